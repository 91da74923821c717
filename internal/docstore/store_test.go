package docstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"batchline/internal/metrics"
)

// memStore keeps documents in insertion order. Update is not atomic.
type memStore struct {
	mu     sync.Mutex
	order  map[Collection][]string
	docs   map[Collection]map[string][]byte
	closed bool
}

func newMemStore() *memStore {
	return &memStore{
		order: map[Collection][]string{},
		docs:  map[Collection]map[string][]byte{},
	}
}

func (m *memStore) Get(_ context.Context, c Collection, id string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[c][id]
	return doc, ok, nil
}

func (m *memStore) ForEach(_ context.Context, c Collection, fn func(string, []byte) error) error {
	m.mu.Lock()
	ids := append([]string(nil), m.order[c]...)
	docs := make([][]byte, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, m.docs[c][id])
	}
	m.mu.Unlock()

	for i, id := range ids {
		if err := fn(id, docs[i]); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (m *memStore) Put(_ context.Context, c Collection, id string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[c] == nil {
		m.docs[c] = map[string][]byte{}
	}
	if _, ok := m.docs[c][id]; !ok {
		m.order[c] = append(m.order[c], id)
	}
	m.docs[c][id] = doc
	return nil
}

func (m *memStore) Delete(_ context.Context, c Collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[c][id]; !ok {
		return nil
	}
	delete(m.docs[c], id)
	ids := m.order[c][:0]
	for _, existing := range m.order[c] {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	m.order[c] = ids
	return nil
}

func (m *memStore) Update(_ context.Context, fn func(Txn) error) error {
	return fn(m)
}

func (m *memStore) Close() error {
	m.closed = true
	return nil
}

func putNamed(t *testing.T, s Store, names ...string) {
	t.Helper()
	for i, name := range names {
		doc := []byte(fmt.Sprintf(`{"id":"%03d","name":%q}`, i, name))
		if err := s.Put(context.Background(), Items, fmt.Sprintf("%03d", i), doc); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
}

func TestScanPaginationIsComplete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMemStore()
	const n = 23
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("item-%d", i)
	}
	putNamed(t, store, names...)

	for _, pageSize := range []int{1, 4, 5, 23, 50} {
		seen := map[string]bool{}
		for page := 0; ; page++ {
			docs, err := Scan(ctx, store, Items, page, pageSize)
			if err != nil {
				t.Fatalf("Scan(%d, %d) error = %v", page, pageSize, err)
			}
			for _, doc := range docs {
				if seen[string(doc)] {
					t.Fatalf("page size %d: duplicate document %s", pageSize, doc)
				}
				seen[string(doc)] = true
			}
			if len(docs) < pageSize {
				break
			}
		}
		if len(seen) != n {
			t.Fatalf("page size %d: saw %d documents, want %d", pageSize, len(seen), n)
		}
	}
}

func TestScanRejectsInvalidWindow(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	putNamed(t, store, "a", "b")

	tests := []struct {
		name     string
		page     int
		pageSize int
	}{
		{"zero page size", 0, 0},
		{"negative page size", 0, -1},
		{"negative page", -1, 10},
		{"past the end", 5, 10},
		{"offset overflows", math.MaxInt/2 + 1, 2},
		{"largest page", math.MaxInt, 1},
	}
	for _, tt := range tests {
		docs, err := Scan(context.Background(), store, Items, tt.page, tt.pageSize)
		if err != nil {
			t.Fatalf("%s: Scan() error = %v", tt.name, err)
		}
		if len(docs) != 0 {
			t.Fatalf("%s: len(docs) = %d, want 0", tt.name, len(docs))
		}
	}
}

func TestScanFilterPaginatesAfterFiltering(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMemStore()
	putNamed(t, store, "alpha", "beta", "Alphabet", "gamma", "ALPHA2")

	first, err := ScanFilter(ctx, store, Items, "name", "alpha", 0, 2)
	if err != nil {
		t.Fatalf("ScanFilter() error = %v", err)
	}
	second, err := ScanFilter(ctx, store, Items, "name", "alpha", 1, 2)
	if err != nil {
		t.Fatalf("ScanFilter() error = %v", err)
	}

	want := []string{
		`{"id":"000","name":"alpha"}`,
		`{"id":"002","name":"Alphabet"}`,
		`{"id":"004","name":"ALPHA2"}`,
	}
	got := []string{}
	for _, doc := range append(first, second...) {
		got = append(got, string(doc))
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	all, err := ScanFilter(ctx, store, Items, "name", "", 0, 10)
	if err != nil {
		t.Fatalf("ScanFilter(empty) error = %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("empty needle matched %d documents, want 5", len(all))
	}

	spaced, err := ScanFilter(ctx, store, Items, "name", " alpha", 0, 10)
	if err != nil {
		t.Fatalf("ScanFilter(spaced) error = %v", err)
	}
	if len(spaced) != 0 {
		t.Fatalf("needle with a leading space matched %d documents, want 0", len(spaced))
	}

	none, err := ScanFilter(ctx, store, Items, "missing_field", "alpha", 0, 10)
	if err != nil {
		t.Fatalf("ScanFilter(missing field) error = %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("missing field matched %d documents, want 0", len(none))
	}
}

func TestScanFilterReportsUndecodableDocuments(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	if err := store.Put(context.Background(), Items, "bad", []byte("not json")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	_, err := ScanFilter(context.Background(), store, Items, "name", "x", 0, 10)
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("ScanFilter() error = %v, want ErrStorage", err)
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	if Wrap("op", nil) != nil {
		t.Fatal("Wrap(nil) != nil")
	}
	cause := errors.New("disk full")
	err := Wrap("put", cause)
	if !errors.Is(err, ErrStorage) || !errors.Is(err, cause) {
		t.Fatalf("Wrap() = %v, want ErrStorage and cause", err)
	}
	if again := Wrap("outer", err); !errors.Is(again, cause) {
		t.Fatalf("double Wrap() lost cause: %v", again)
	}
}

func TestOpenerFallsBackOnce(t *testing.T) {
	t.Parallel()

	var primaryCalls, fallbackCalls atomic.Int32
	fallback := newMemStore()
	opener := NewOpener(
		func(context.Context) (Store, error) {
			primaryCalls.Add(1)
			return nil, errors.New("permission denied")
		},
		func(context.Context) (Store, error) {
			fallbackCalls.Add(1)
			return fallback, nil
		},
	)

	var wg sync.WaitGroup
	handles := make([]Store, 8)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store, err := opener.Open(context.Background())
			if err != nil {
				t.Errorf("Open() error = %v", err)
			}
			handles[i] = store
		}(i)
	}
	wg.Wait()

	for i, h := range handles {
		if h != Store(fallback) {
			t.Fatalf("handle %d is not the fallback store", i)
		}
	}
	if primaryCalls.Load() != 1 || fallbackCalls.Load() != 1 {
		t.Fatalf("calls = primary %d fallback %d, want 1 and 1", primaryCalls.Load(), fallbackCalls.Load())
	}
	if !opener.Degraded() {
		t.Fatal("Degraded() = false, want true")
	}

	if err := opener.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !fallback.closed {
		t.Fatal("fallback store not closed")
	}
}

func TestOpenerUsesPrimary(t *testing.T) {
	t.Parallel()

	primary := newMemStore()
	opener := NewOpener(
		func(context.Context) (Store, error) { return primary, nil },
		func(context.Context) (Store, error) { t.Fatal("fallback used"); return nil, nil },
	)

	store, err := opener.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if store != Store(primary) || opener.Degraded() {
		t.Fatalf("Open() = %v, degraded %t", store, opener.Degraded())
	}
}

func TestOpenerWithoutFallbackReportsStorageError(t *testing.T) {
	t.Parallel()

	opener := NewOpener(func(context.Context) (Store, error) {
		return nil, errors.New("locked")
	}, nil)

	if _, err := opener.Open(context.Background()); !errors.Is(err, ErrStorage) {
		t.Fatalf("Open() error = %v, want ErrStorage", err)
	}
	if err := opener.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestInstrumentCountsOperations(t *testing.T) {
	t.Parallel()

	const backend = "instrument-test"
	store := Instrument(newMemStore(), backend)
	ctx := context.Background()

	if err := store.Put(ctx, Users, "u1", []byte(`{}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	err := store.Update(ctx, func(txn Txn) error {
		if _, _, err := txn.Get(ctx, Users, "u1"); err != nil {
			return err
		}
		return txn.Delete(ctx, Users, "u1")
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	for _, op := range []string{"put", "get", "delete", "update"} {
		got := testutil.ToFloat64(metrics.StoreOperations.WithLabelValues(backend, op, metrics.ResultOK))
		if got != 1 {
			t.Fatalf("%s count = %v, want 1", op, got)
		}
	}
}
