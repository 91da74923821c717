// Package badgerstore implements docstore.Store on an embedded BadgerDB.
//
// Keys are "<collection>/<id>", so a collection is a key prefix and iteration
// follows lexicographic id order. Update maps onto one read-write badger
// transaction and is retried when badger reports a write conflict.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"batchline/internal/docstore"
)

const maxConflictRetries = 3

// Config holds configuration for a badger-backed store.
type Config struct {
	// Path is the directory for badger files. Ignored when InMemory is set.
	Path string

	InMemory   bool
	SyncWrites bool

	// Logger receives badger's internal log lines. Nil disables them.
	Logger *slog.Logger

	NumVersionsToKeep int

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults for a store at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:              path,
		SyncWrites:        true,
		NumVersionsToKeep: 1,
		GCInterval:        5 * time.Minute,
		GCDiscardRatio:    0.5,
	}
}

// InMemoryConfig returns a non-persistent configuration with GC disabled.
func InMemoryConfig() Config {
	return Config{
		InMemory:          true,
		NumVersionsToKeep: 1,
	}
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func openDB(cfg Config) (*badger.DB, error) {
	if !cfg.InMemory && strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	versions := cfg.NumVersionsToKeep
	if versions <= 0 {
		versions = 1
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(versions)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return db, nil
}

// Store is a docstore.Store on badger.
type Store struct {
	db       *badger.DB
	gc       *GCRunner
	path     string
	inMemory bool
}

var _ docstore.Store = (*Store)(nil)

// Open opens the database and starts value log GC when configured.
func Open(cfg Config) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, docstore.Wrap("open badger store", err)
	}

	store := &Store{db: db, path: cfg.Path, inMemory: cfg.InMemory}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		runner, err := NewGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create GC runner: %w", err)
		}
		store.gc = runner
		runner.Start()
	}
	return store, nil
}

// OpenInMemory opens a store whose contents are lost on Close.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Path returns the database directory, or "" for in-memory stores.
func (s *Store) Path() string {
	if s.inMemory {
		return ""
	}
	return s.path
}

func (s *Store) InMemory() bool {
	return s.inMemory
}

func (s *Store) Get(ctx context.Context, c docstore.Collection, id string) ([]byte, bool, error) {
	var (
		doc   []byte
		found bool
	)
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		doc, found, err = txnView{txn: txn}.Get(ctx, c, id)
		return err
	})
	return doc, found, err
}

// ForEach copies the collection inside one read transaction and then calls
// fn outside of it, so fn may write to the store.
func (s *Store) ForEach(ctx context.Context, c docstore.Collection, fn func(string, []byte) error) error {
	var entries []entry
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		entries, err = collect(txn, c)
		return err
	})
	if err != nil {
		return err
	}
	return visit(entries, fn)
}

func (s *Store) Put(ctx context.Context, c docstore.Collection, id string, doc []byte) error {
	return s.Update(ctx, func(txn docstore.Txn) error {
		return txn.Put(ctx, c, id, doc)
	})
}

func (s *Store) Delete(ctx context.Context, c docstore.Collection, id string) error {
	return s.Update(ctx, func(txn docstore.Txn) error {
		return txn.Delete(ctx, c, id)
	})
}

// Update runs fn in a read-write transaction and commits it. A commit that
// loses a write conflict is retried with a fresh transaction. Writes past
// badger's transaction size limit fail with badger.ErrTxnTooBig and nothing
// is committed.
func (s *Store) Update(ctx context.Context, fn func(docstore.Txn) error) error {
	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("context cancelled: %w", ctxErr)
		}
		err = s.update(ctx, fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return docstore.Wrap("commit", err)
}

func (s *Store) update(ctx context.Context, fn func(docstore.Txn) error) error {
	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(txnView{txn: txn}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return err
		}
		return docstore.Wrap("commit", err)
	}
	return nil
}

func (s *Store) view(ctx context.Context, fn func(*badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	txn := s.db.NewTransaction(false)
	defer txn.Discard()
	return fn(txn)
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	if s.gc != nil {
		s.gc.Stop()
	}
	if err := s.db.Close(); err != nil {
		return docstore.Wrap("close badger store", err)
	}
	return nil
}

type entry struct {
	id  string
	doc []byte
}

func key(c docstore.Collection, id string) []byte {
	return []byte(string(c) + "/" + id)
}

func prefix(c docstore.Collection) []byte {
	return []byte(string(c) + "/")
}

func collect(txn *badger.Txn, c docstore.Collection) ([]entry, error) {
	p := prefix(c)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = p
	it := txn.NewIterator(opts)
	defer it.Close()

	var entries []entry
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		item := it.Item()
		doc, err := item.ValueCopy(nil)
		if err != nil {
			return nil, docstore.Wrap("read "+string(c), err)
		}
		entries = append(entries, entry{
			id:  strings.TrimPrefix(string(item.Key()), string(p)),
			doc: doc,
		})
	}
	return entries, nil
}

func visit(entries []entry, fn func(string, []byte) error) error {
	for _, e := range entries {
		if err := fn(e.id, e.doc); err != nil {
			if errors.Is(err, docstore.ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

// txnView exposes a badger transaction as a docstore.Txn.
type txnView struct {
	txn *badger.Txn
}

func (v txnView) Get(_ context.Context, c docstore.Collection, id string) ([]byte, bool, error) {
	item, err := v.txn.Get(key(c, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, docstore.Wrap("get "+string(c), err)
	}
	doc, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, docstore.Wrap("get "+string(c), err)
	}
	return doc, true, nil
}

func (v txnView) ForEach(_ context.Context, c docstore.Collection, fn func(string, []byte) error) error {
	entries, err := collect(v.txn, c)
	if err != nil {
		return err
	}
	return visit(entries, fn)
}

func (v txnView) Put(_ context.Context, c docstore.Collection, id string, doc []byte) error {
	if err := v.txn.Set(key(c, id), doc); err != nil {
		return docstore.Wrap("put "+string(c), err)
	}
	return nil
}

func (v txnView) Delete(_ context.Context, c docstore.Collection, id string) error {
	if err := v.txn.Delete(key(c, id)); err != nil {
		return docstore.Wrap("delete "+string(c), err)
	}
	return nil
}
