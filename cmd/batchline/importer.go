package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	applog "batchline/internal/log"
	"batchline/internal/registry"
	"batchline/models"
)

var cleanWhitespace = regexp.MustCompile(`\s+`)

type importResult struct {
	items     int
	suppliers int
	skipped   int
}

// importItems creates one item per record. Suppliers are matched by name
// ignoring case and created when missing. Records without a supplier or an
// item name, and items the supplier already has, are skipped.
func importItems(ctx context.Context, reg *registry.Registry, records []map[string]string) (importResult, error) {
	var result importResult
	suppliers := make(map[string]models.Supplier)

	for idx, record := range records {
		supplierName := normalizeText(record["Supplier"])
		itemName := normalizeText(record["Item"])
		if supplierName == "" || itemName == "" {
			applog.Debug(ctx, "skipping incomplete csv record", "record", idx+1)
			result.skipped++
			continue
		}

		supplier, created, err := resolveSupplier(ctx, reg, suppliers, supplierName)
		if err != nil {
			return result, fmt.Errorf("record %d (%s): %w", idx+1, itemName, err)
		}
		if created {
			result.suppliers++
		}

		existing, err := reg.Items.ListBySupplier(ctx, supplier.ID)
		if err != nil {
			return result, fmt.Errorf("record %d (%s): list items: %w", idx+1, itemName, err)
		}
		if hasItem(existing, itemName) {
			applog.Debug(ctx, "item already imported", "item", itemName, "supplier", supplier.Name)
			result.skipped++
			continue
		}

		if _, err := reg.Items.Create(ctx, registry.ItemInput{Name: itemName, SupplierID: supplier.ID}); err != nil {
			return result, fmt.Errorf("record %d (%s): create item: %w", idx+1, itemName, err)
		}
		result.items++
	}

	return result, nil
}

func resolveSupplier(ctx context.Context, reg *registry.Registry, cache map[string]models.Supplier, name string) (models.Supplier, bool, error) {
	key := strings.ToLower(name)
	if supplier, ok := cache[key]; ok {
		return supplier, false, nil
	}

	supplier, err := reg.Suppliers.FindByName(ctx, name)
	if err == nil {
		cache[key] = supplier
		return supplier, false, nil
	}
	if !errors.Is(err, registry.ErrNotFound) {
		return models.Supplier{}, false, fmt.Errorf("find supplier %q: %w", name, err)
	}

	supplier, err = reg.Suppliers.Create(ctx, registry.SupplierInput{Name: name})
	if err != nil {
		return models.Supplier{}, false, fmt.Errorf("create supplier %q: %w", name, err)
	}
	cache[key] = supplier
	return supplier, true, nil
}

func hasItem(items []models.Item, name string) bool {
	for _, item := range items {
		if strings.EqualFold(item.Name, name) {
			return true
		}
	}
	return false
}

func readCSV(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}

	header := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}

		record := make(map[string]string, len(header))
		for idx, key := range header {
			if idx >= len(row) {
				continue
			}
			record[strings.TrimSpace(key)] = strings.TrimSpace(row[idx])
		}
		records = append(records, record)
	}

	return records, nil
}

func normalizeValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "N/A") {
		return ""
	}
	return value
}

func normalizeText(value string) string {
	value = normalizeValue(value)
	if value == "" {
		return value
	}
	value = cleanWhitespace.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}
