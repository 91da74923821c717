package models

const (
	StatusInProgress = "Em Andamento"
	StatusFinished   = "Terminado"
)

// Process is a production run. Formula is a snapshot taken at creation and
// never follows later edits of the live formula.
type Process struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Formula Formula  `json:"formula"`
	Status  string   `json:"status"`
	Weight  float64  `json:"weight"`
	Sprints []Sprint `json:"sprints"`
	Audit
}

func NewProcess(name string, formula Formula) Process {
	return Process{
		ID:      NewID(),
		Name:    name,
		Formula: formula.Clone(),
		Status:  StatusInProgress,
		Weight:  formula.TotalWeight(),
		Sprints: []Sprint{},
		Audit:   newAudit(),
	}
}

// AddSprint stamps a copy of the sprint with the process id and appends it.
func (p *Process) AddSprint(sprint Sprint) Sprint {
	sprint = sprint.Clone()
	sprint.ProcessID = p.ID
	p.Sprints = append(p.Sprints, sprint)
	p.Touch()
	return sprint
}

func (p *Process) UpdateStatus(status string) {
	p.Status = status
	p.Touch()
}

func (p *Process) Finalize() {
	p.UpdateStatus(StatusFinished)
}

func (p *Process) ClearSprints() {
	p.Sprints = []Sprint{}
	p.Touch()
}

// NextSprintNumber is the number the caller should give the next sprint.
func (p Process) NextSprintNumber() int {
	return len(p.Sprints) + 1
}
