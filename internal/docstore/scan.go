package docstore

import (
	"context"
	"encoding/json"
	"math"
	"strings"
)

// Scan returns the page-th window of pageSize documents of c in iteration
// order. A negative page or non-positive pageSize yields an empty page.
func Scan(ctx context.Context, r Reader, c Collection, page, pageSize int) ([][]byte, error) {
	return window(ctx, r, c, nil, page, pageSize)
}

// ScanFilter is Scan over the documents whose top-level string field contains
// needle, ignoring case. The needle is matched as given, surrounding spaces
// included. Pagination applies to the filtered stream. An empty needle
// matches every document.
func ScanFilter(ctx context.Context, r Reader, c Collection, field, needle string, page, pageSize int) ([][]byte, error) {
	needle = strings.ToLower(needle)
	if needle == "" {
		return window(ctx, r, c, nil, page, pageSize)
	}
	match := func(doc []byte) (bool, error) {
		value, err := stringField(doc, field)
		if err != nil {
			return false, err
		}
		return strings.Contains(strings.ToLower(value), needle), nil
	}
	return window(ctx, r, c, match, page, pageSize)
}

func window(ctx context.Context, r Reader, c Collection, match func([]byte) (bool, error), page, pageSize int) ([][]byte, error) {
	out := [][]byte{}
	if page < 0 || pageSize <= 0 || page > math.MaxInt/pageSize {
		return out, nil
	}

	skip := page * pageSize
	err := r.ForEach(ctx, c, func(_ string, doc []byte) error {
		if match != nil {
			ok, err := match(doc)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		if skip > 0 {
			skip--
			return nil
		}
		out = append(out, doc)
		if len(out) == pageSize {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// stringField extracts a top-level string. Missing, null and non-string
// fields read as "".
func stringField(doc []byte, field string) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return "", Wrap("decode document", err)
	}
	raw, ok := fields[field]
	if !ok {
		return "", nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", nil
	}
	return value, nil
}
