package registry

import (
	"context"
	"strings"

	"batchline/internal/docstore"
	"batchline/internal/planning"
	"batchline/models"
)

type Processes struct {
	*core
	users *Users
}

// Create snapshots the referenced formula. Its total weight becomes the
// process weight.
func (r *Processes) Create(ctx context.Context, in ProcessInput) (models.Process, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.FormulaID = strings.TrimSpace(in.FormulaID)
	if err := check(in); err != nil {
		return models.Process{}, err
	}

	var process models.Process
	err := r.update(ctx, []docstore.Collection{docstore.Formulas, docstore.Processes}, func(txn docstore.Txn) error {
		formula, err := load[models.Formula](ctx, txn, docstore.Formulas, in.FormulaID)
		if err != nil {
			return missingReference(err)
		}
		process = models.NewProcess(in.Name, formula)
		return save(ctx, txn, docstore.Processes, process.ID, process)
	})
	if err != nil {
		return models.Process{}, err
	}
	return process, nil
}

func (r *Processes) Get(ctx context.Context, id string) (models.Process, error) {
	return load[models.Process](ctx, r.store, docstore.Processes, id)
}

func (r *Processes) Rename(ctx context.Context, id, name string) (models.Process, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Process{}, invalid("name is required")
	}
	return r.mutate(ctx, id, nil, func(_ docstore.Txn, p *models.Process) error {
		p.Name = name
		p.Touch()
		return nil
	})
}

func (r *Processes) UpdateStatus(ctx context.Context, id, status string) (models.Process, error) {
	return r.mutate(ctx, id, nil, func(_ docstore.Txn, p *models.Process) error {
		p.UpdateStatus(status)
		return nil
	})
}

// Finalize marks the process as finished.
func (r *Processes) Finalize(ctx context.Context, id string) (models.Process, error) {
	return r.mutate(ctx, id, nil, func(_ docstore.Txn, p *models.Process) error {
		p.Finalize()
		return nil
	})
}

// AddSprint stamps the sprint with the process id, stores it in the sprint
// collection and appends it to the process history. The sprint number is
// kept as given.
func (r *Processes) AddSprint(ctx context.Context, processID string, sprint models.Sprint) (models.Sprint, error) {
	var added models.Sprint
	_, err := r.mutate(ctx, processID, []docstore.Collection{docstore.Sprints}, func(txn docstore.Txn, p *models.Process) error {
		if sprint.ID == "" {
			sprint.ID = models.NewID()
		}
		sprint.Touch()
		added = p.AddSprint(sprint)
		return save(ctx, txn, docstore.Sprints, added.ID, added)
	})
	if err != nil {
		return models.Sprint{}, err
	}
	return added, nil
}

// ClearSprints empties the process history and deletes the process's sprint
// documents.
func (r *Processes) ClearSprints(ctx context.Context, id string) (models.Process, error) {
	return r.mutate(ctx, id, []docstore.Collection{docstore.Sprints}, func(txn docstore.Txn, p *models.Process) error {
		owned, err := filter(ctx, txn, docstore.Sprints, func(s models.Sprint) bool {
			return s.ProcessID == p.ID
		})
		if err != nil {
			return err
		}
		for _, s := range owned {
			if err := txn.Delete(ctx, docstore.Sprints, s.ID); err != nil {
				return err
			}
		}
		p.ClearSprints()
		return nil
	})
}

func (r *Processes) Delete(ctx context.Context, id string) error {
	return r.remove(ctx, docstore.Processes, id)
}

func (r *Processes) List(ctx context.Context, page, size int) ([]models.Process, error) {
	return list[models.Process](ctx, r.store, docstore.Processes, page, size)
}

func (r *Processes) Search(ctx context.Context, name string, page, size int) ([]models.Process, error) {
	return search[models.Process](ctx, r.store, docstore.Processes, "name", name, page, size)
}

// SuggestNextSprintTargets returns the per-item targets for the next sprint
// given how many sprints remain, including the next one.
func (r *Processes) SuggestNextSprintTargets(ctx context.Context, id string, remaining int) (map[string]float64, error) {
	process, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return planning.SuggestNextSprintTargets(ctx, process, remaining), nil
}

// PlanSprint builds, without storing it, the next sprint of the process run
// by the named operator. Each formula item gets its suggested target, or its
// formula weight when there is no suggestion.
func (r *Processes) PlanSprint(ctx context.Context, id string, remaining int, operatorUsername string) (models.Sprint, error) {
	process, err := r.Get(ctx, id)
	if err != nil {
		return models.Sprint{}, err
	}
	operator, err := r.users.FindByUsername(ctx, operatorUsername)
	if err != nil {
		return models.Sprint{}, missingReference(err)
	}

	planned := models.NewSprint(process.ID, process.NextSprintNumber(), nil, operator)
	for _, entry := range process.Formula.Entries {
		planned.AddItem(models.NewSprintItem(entry.Item, entry.Weight))
	}
	planned.ApplySuggestions(planning.SuggestNextSprintTargets(ctx, process, remaining))
	return planned, nil
}

// Divergence reports actual minus target per sprint and accumulated per item
// over the process history.
func (r *Processes) Divergence(ctx context.Context, id string) (planning.Report, error) {
	process, err := r.Get(ctx, id)
	if err != nil {
		return planning.Report{}, err
	}
	return planning.DivergenceReport(process), nil
}

// mutate loads the process, applies fn and stores the result, holding the
// process lock plus any extra collections fn writes to.
func (r *Processes) mutate(ctx context.Context, id string, extra []docstore.Collection, fn func(docstore.Txn, *models.Process) error) (models.Process, error) {
	var updated models.Process
	collections := append([]docstore.Collection{docstore.Processes}, extra...)
	err := r.update(ctx, collections, func(txn docstore.Txn) error {
		process, err := load[models.Process](ctx, txn, docstore.Processes, id)
		if err != nil {
			return err
		}
		if err := fn(txn, &process); err != nil {
			return err
		}
		updated = process
		return save(ctx, txn, docstore.Processes, process.ID, process)
	})
	if err != nil {
		return models.Process{}, err
	}
	return updated, nil
}
