package mock

import (
	"context"
	"fmt"

	"batchline/internal/db"
	"batchline/internal/docstore"
	applog "batchline/internal/log"
	"batchline/internal/registry"
	"batchline/models"
)

// Password is shared by every seeded user.
const Password = "batchline"

// New returns an in-memory sqlite store seeded with a small bakery: two
// suppliers, their items, one formula, an admin and an operator, and a
// process with one measured sprint.
func New(ctx context.Context) (docstore.Store, error) {
	applog.Debug(ctx, "initialising mock store")

	store, err := db.OpenMemory("batchline-mock-" + models.NewID())
	if err != nil {
		return nil, err
	}

	if err := seed(ctx, registry.New(store)); err != nil {
		store.Close()
		return nil, fmt.Errorf("seed mock store: %w", err)
	}

	applog.Debug(ctx, "mock store ready")
	return store, nil
}

func seed(ctx context.Context, reg *registry.Registry) error {
	applog.Debug(ctx, "seeding mock store")

	if _, err := reg.Users.Create(ctx, registry.UserInput{Username: "admin", Password: Password, Role: models.RoleAdmin}); err != nil {
		return err
	}
	operator, err := reg.Users.Create(ctx, registry.UserInput{Username: "operador", Password: Password, Role: models.RoleUser})
	if err != nil {
		return err
	}

	mill, err := reg.Suppliers.Create(ctx, registry.SupplierInput{Name: "Moinho Vale Verde"})
	if err != nil {
		return err
	}
	refinery, err := reg.Suppliers.Create(ctx, registry.SupplierInput{Name: "Usina Santa Clara"})
	if err != nil {
		return err
	}

	flour, err := reg.Items.Create(ctx, registry.ItemInput{Name: "Farinha de Trigo", SupplierID: mill.ID})
	if err != nil {
		return err
	}
	bran, err := reg.Items.Create(ctx, registry.ItemInput{Name: "Farelo", SupplierID: mill.ID})
	if err != nil {
		return err
	}
	sugar, err := reg.Items.Create(ctx, registry.ItemInput{Name: "Açúcar Cristal", SupplierID: refinery.ID})
	if err != nil {
		return err
	}

	formula, err := reg.Formulas.Create(ctx, registry.FormulaInput{
		Name: "Pão Doce",
		Entries: []registry.FormulaEntryInput{
			{ItemID: flour.ID, Weight: 500},
			{ItemID: sugar.ID, Weight: 120},
			{ItemID: bran.ID, Weight: 30},
		},
	})
	if err != nil {
		return err
	}

	process, err := reg.Processes.Create(ctx, registry.ProcessInput{Name: "Lote 001", FormulaID: formula.ID})
	if err != nil {
		return err
	}

	items := make([]models.SprintItem, 0, len(process.Formula.Entries))
	for _, entry := range process.Formula.Entries {
		items = append(items, models.NewSprintItem(entry.Item, entry.Weight))
	}
	sprint, err := reg.Processes.AddSprint(ctx, process.ID, models.NewSprint(process.ID, process.NextSprintNumber(), items, operator))
	if err != nil {
		return err
	}

	actuals := map[string]float64{flour.ID: 512.5, sugar.ID: 118.0, bran.ID: 30.0}
	for itemID, actual := range actuals {
		if _, err := reg.Sprints.RecordActual(ctx, sprint.ID, itemID, actual); err != nil {
			return err
		}
	}
	if _, err := reg.Sprints.SetComment(ctx, sprint.ID, "Primeira massa, farinha um pouco acima."); err != nil {
		return err
	}

	applog.Debug(ctx, "mock store seeded", "process_id", process.ID)
	return nil
}
