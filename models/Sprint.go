package models

// SprintItem records the planned and, once measured, the actual quantity of
// one item in a sprint.
type SprintItem struct {
	Item   Item     `json:"item"`
	Target float64  `json:"target"`
	Actual *float64 `json:"actual"`
}

func NewSprintItem(item Item, target float64) SprintItem {
	return SprintItem{Item: item, Target: target}
}

func (s *SprintItem) SetActual(actual float64) {
	s.Actual = &actual
}

// Divergence is actual minus target, or zero while no actual is recorded.
func (s SprintItem) Divergence() float64 {
	if s.Actual == nil {
		return 0
	}
	return *s.Actual - s.Target
}

type Sprint struct {
	ID        string       `json:"id"`
	ProcessID string       `json:"process_id"`
	Number    int          `json:"number"`
	Items     []SprintItem `json:"items"`
	Operator  User         `json:"operator"`
	Comment   *string      `json:"comment"`
	Audit
}

// NewSprint builds an unsaved sprint. The number is not checked for
// uniqueness.
func NewSprint(processID string, number int, items []SprintItem, operator User) Sprint {
	if items == nil {
		items = []SprintItem{}
	}
	return Sprint{
		ID:        NewID(),
		ProcessID: processID,
		Number:    number,
		Items:     items,
		Operator:  operator,
		Audit:     newAudit(),
	}
}

// Clone returns a copy that shares neither items nor actuals with s.
func (s Sprint) Clone() Sprint {
	items := make([]SprintItem, len(s.Items))
	for i, item := range s.Items {
		if item.Actual != nil {
			item.SetActual(*item.Actual)
		}
		items[i] = item
	}
	s.Items = items
	if s.Comment != nil {
		comment := *s.Comment
		s.Comment = &comment
	}
	return s
}

func (s *Sprint) AddItem(item SprintItem) {
	s.Items = append(s.Items, item)
	s.Touch()
}

// SetActualForItem records actual on the first entry for itemID.
func (s *Sprint) SetActualForItem(itemID string, actual float64) bool {
	for i := range s.Items {
		if s.Items[i].Item.ID == itemID {
			s.Items[i].SetActual(actual)
			s.Touch()
			return true
		}
	}
	return false
}

func (s *Sprint) SetComment(comment string) {
	s.Comment = &comment
	s.Touch()
}

// SetOperator refreshes the embedded operator copy.
func (s *Sprint) SetOperator(operator User) {
	s.Operator = operator
	s.Touch()
}

func (s Sprint) TotalDivergence() float64 {
	var total float64
	for _, item := range s.Items {
		total += item.Divergence()
	}
	return total
}

func (s Sprint) DivergencePerItem() map[string]float64 {
	out := make(map[string]float64, len(s.Items))
	for _, item := range s.Items {
		out[item.Item.ID] = item.Divergence()
	}
	return out
}

// ApplySuggestions overwrites the target of every item present in suggestions.
func (s *Sprint) ApplySuggestions(suggestions map[string]float64) {
	for i := range s.Items {
		if target, ok := suggestions[s.Items[i].Item.ID]; ok {
			s.Items[i].Target = target
		}
	}
	s.Touch()
}
