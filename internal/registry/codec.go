package registry

import (
	"context"
	"encoding/json"

	"batchline/internal/docstore"
)

func encode(c docstore.Collection, v any) ([]byte, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return nil, docstore.Wrap("encode "+string(c), err)
	}
	return doc, nil
}

func decode[T any](c docstore.Collection, id string, doc []byte) (T, error) {
	var v T
	if err := json.Unmarshal(doc, &v); err != nil {
		return v, docstore.Wrap("decode "+string(c)+" "+id, err)
	}
	return v, nil
}

func load[T any](ctx context.Context, r docstore.Reader, c docstore.Collection, id string) (T, error) {
	var zero T
	doc, found, err := r.Get(ctx, c, id)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, notFound(c, id)
	}
	return decode[T](c, id, doc)
}

func save(ctx context.Context, w docstore.Writer, c docstore.Collection, id string, v any) error {
	doc, err := encode(c, v)
	if err != nil {
		return err
	}
	return w.Put(ctx, c, id, doc)
}

func decodeAll[T any](c docstore.Collection, docs [][]byte) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := decode[T](c, "", doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func list[T any](ctx context.Context, r docstore.Reader, c docstore.Collection, page, size int) ([]T, error) {
	if err := checkPage(page, size); err != nil {
		return nil, err
	}
	docs, err := docstore.Scan(ctx, r, c, page, size)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](c, docs)
}

func search[T any](ctx context.Context, r docstore.Reader, c docstore.Collection, field, needle string, page, size int) ([]T, error) {
	if err := checkPage(page, size); err != nil {
		return nil, err
	}
	docs, err := docstore.ScanFilter(ctx, r, c, field, needle, page, size)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](c, docs)
}

// filter decodes every document of c and keeps those accepted by keep.
func filter[T any](ctx context.Context, r docstore.Reader, c docstore.Collection, keep func(T) bool) ([]T, error) {
	out := []T{}
	err := r.ForEach(ctx, c, func(id string, doc []byte) error {
		v, err := decode[T](c, id, doc)
		if err != nil {
			return err
		}
		if keep(v) {
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// first returns the first document of c accepted by match.
func first[T any](ctx context.Context, r docstore.Reader, c docstore.Collection, match func(T) bool) (T, bool, error) {
	var (
		found T
		ok    bool
	)
	err := r.ForEach(ctx, c, func(id string, doc []byte) error {
		v, err := decode[T](c, id, doc)
		if err != nil {
			return err
		}
		if match(v) {
			found, ok = v, true
			return docstore.ErrStop
		}
		return nil
	})
	return found, ok, err
}
