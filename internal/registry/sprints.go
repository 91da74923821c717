package registry

import (
	"context"
	"strings"

	"batchline/internal/docstore"
	"batchline/models"
)

type Sprints struct {
	*core
}

// Create stores a standalone sprint document built from in. The process,
// operator and items must exist. Use Processes.AddSprint to also append the
// sprint to its process history.
func (r *Sprints) Create(ctx context.Context, in SprintInput) (models.Sprint, error) {
	in.ProcessID = strings.TrimSpace(in.ProcessID)
	in.OperatorID = strings.TrimSpace(in.OperatorID)
	if err := check(in); err != nil {
		return models.Sprint{}, err
	}

	var sprint models.Sprint
	collections := []docstore.Collection{docstore.Items, docstore.Processes, docstore.Sprints, docstore.Users}
	err := r.update(ctx, collections, func(txn docstore.Txn) error {
		if _, err := load[models.Process](ctx, txn, docstore.Processes, in.ProcessID); err != nil {
			return missingReference(err)
		}
		operator, err := load[models.User](ctx, txn, docstore.Users, in.OperatorID)
		if err != nil {
			return missingReference(err)
		}
		items := make([]models.SprintItem, 0, len(in.Items))
		for _, si := range in.Items {
			item, err := load[models.Item](ctx, txn, docstore.Items, strings.TrimSpace(si.ItemID))
			if err != nil {
				return missingReference(err)
			}
			items = append(items, models.NewSprintItem(item, si.Target))
		}
		sprint = models.NewSprint(in.ProcessID, in.Number, items, operator)
		sprint.Comment = in.Comment
		return save(ctx, txn, docstore.Sprints, sprint.ID, sprint)
	})
	if err != nil {
		return models.Sprint{}, err
	}
	return sprint, nil
}

func (r *Sprints) Get(ctx context.Context, id string) (models.Sprint, error) {
	return load[models.Sprint](ctx, r.store, docstore.Sprints, id)
}

// RecordActual stores the measured quantity of itemID. The copy of the
// sprint held in its process history is updated as well.
func (r *Sprints) RecordActual(ctx context.Context, id, itemID string, actual float64) (models.Sprint, error) {
	return r.mutate(ctx, id, func(s *models.Sprint) error {
		if !s.SetActualForItem(itemID, actual) {
			return invalid("item %q is not part of sprint %q", itemID, id)
		}
		return nil
	})
}

func (r *Sprints) SetComment(ctx context.Context, id, comment string) (models.Sprint, error) {
	return r.mutate(ctx, id, func(s *models.Sprint) error {
		s.SetComment(comment)
		return nil
	})
}

func (r *Sprints) mutate(ctx context.Context, id string, fn func(*models.Sprint) error) (models.Sprint, error) {
	var updated models.Sprint
	err := r.update(ctx, []docstore.Collection{docstore.Processes, docstore.Sprints}, func(txn docstore.Txn) error {
		sprint, err := load[models.Sprint](ctx, txn, docstore.Sprints, id)
		if err != nil {
			return err
		}
		if err := fn(&sprint); err != nil {
			return err
		}
		if err := save(ctx, txn, docstore.Sprints, sprint.ID, sprint); err != nil {
			return err
		}
		updated = sprint
		return syncProcessSprint(ctx, txn, sprint)
	})
	if err != nil {
		return models.Sprint{}, err
	}
	return updated, nil
}

// syncProcessSprint replaces the sprint inside its process history, if the
// process still exists and holds it.
func syncProcessSprint(ctx context.Context, txn docstore.Txn, sprint models.Sprint) error {
	process, err := load[models.Process](ctx, txn, docstore.Processes, sprint.ProcessID)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for i := range process.Sprints {
		if process.Sprints[i].ID == sprint.ID {
			process.Sprints[i] = sprint
			process.Touch()
			return save(ctx, txn, docstore.Processes, process.ID, process)
		}
	}
	return nil
}

// Delete removes the sprint document. The process history is untouched.
func (r *Sprints) Delete(ctx context.Context, id string) error {
	return r.remove(ctx, docstore.Sprints, id)
}

func (r *Sprints) List(ctx context.Context, page, size int) ([]models.Sprint, error) {
	return list[models.Sprint](ctx, r.store, docstore.Sprints, page, size)
}

// Search matches the comment. Sprints without a comment only match an empty
// query.
func (r *Sprints) Search(ctx context.Context, comment string, page, size int) ([]models.Sprint, error) {
	return search[models.Sprint](ctx, r.store, docstore.Sprints, "comment", comment, page, size)
}

func (r *Sprints) ListByProcess(ctx context.Context, processID string) ([]models.Sprint, error) {
	return filter(ctx, r.store, docstore.Sprints, func(s models.Sprint) bool {
		return s.ProcessID == processID
	})
}
