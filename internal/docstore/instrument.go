package docstore

import (
	"context"

	"batchline/internal/metrics"
)

// Instrument counts every call made through store, labelled with backend.
func Instrument(store Store, backend string) Store {
	return &instrumented{next: store, backend: backend}
}

type instrumented struct {
	next    Store
	backend string
}

func (s *instrumented) Get(ctx context.Context, c Collection, id string) ([]byte, bool, error) {
	doc, found, err := s.next.Get(ctx, c, id)
	metrics.ObserveStore(s.backend, "get", err)
	return doc, found, err
}

func (s *instrumented) ForEach(ctx context.Context, c Collection, fn func(string, []byte) error) error {
	err := s.next.ForEach(ctx, c, fn)
	metrics.ObserveStore(s.backend, "foreach", err)
	return err
}

func (s *instrumented) Put(ctx context.Context, c Collection, id string, doc []byte) error {
	err := s.next.Put(ctx, c, id, doc)
	metrics.ObserveStore(s.backend, "put", err)
	return err
}

func (s *instrumented) Delete(ctx context.Context, c Collection, id string) error {
	err := s.next.Delete(ctx, c, id)
	metrics.ObserveStore(s.backend, "delete", err)
	return err
}

func (s *instrumented) Update(ctx context.Context, fn func(Txn) error) error {
	err := s.next.Update(ctx, func(txn Txn) error {
		return fn(instrumentedTxn{next: txn, backend: s.backend})
	})
	metrics.ObserveStore(s.backend, "update", err)
	return err
}

func (s *instrumented) Close() error {
	return s.next.Close()
}

type instrumentedTxn struct {
	next    Txn
	backend string
}

func (t instrumentedTxn) Get(ctx context.Context, c Collection, id string) ([]byte, bool, error) {
	doc, found, err := t.next.Get(ctx, c, id)
	metrics.ObserveStore(t.backend, "get", err)
	return doc, found, err
}

func (t instrumentedTxn) ForEach(ctx context.Context, c Collection, fn func(string, []byte) error) error {
	err := t.next.ForEach(ctx, c, fn)
	metrics.ObserveStore(t.backend, "foreach", err)
	return err
}

func (t instrumentedTxn) Put(ctx context.Context, c Collection, id string, doc []byte) error {
	err := t.next.Put(ctx, c, id, doc)
	metrics.ObserveStore(t.backend, "put", err)
	return err
}

func (t instrumentedTxn) Delete(ctx context.Context, c Collection, id string) error {
	err := t.next.Delete(ctx, c, id)
	metrics.ObserveStore(t.backend, "delete", err)
	return err
}
