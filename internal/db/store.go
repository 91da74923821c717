package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"batchline/internal/docstore"
)

const batchSize = 200

// Document is one row of the documents table. Seq follows insertion order
// and survives upserts, so iteration order is first-insert order.
type Document struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement"`
	Collection string    `gorm:"size:64;not null;uniqueIndex:idx_documents_collection_key,priority:1"`
	Key        string    `gorm:"column:doc_key;size:191;not null;uniqueIndex:idx_documents_collection_key,priority:2"`
	Body       []byte    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// Store implements docstore.Store on a gorm database.
type Store struct {
	db *gorm.DB
}

var _ docstore.Store = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Get(ctx context.Context, c docstore.Collection, id string) ([]byte, bool, error) {
	return get(s.db.WithContext(ctx), c, id)
}

func (s *Store) ForEach(ctx context.Context, c docstore.Collection, fn func(string, []byte) error) error {
	return forEach(s.db.WithContext(ctx), c, fn)
}

func (s *Store) Put(ctx context.Context, c docstore.Collection, id string, doc []byte) error {
	return put(s.db.WithContext(ctx), c, id, doc)
}

func (s *Store) Delete(ctx context.Context, c docstore.Collection, id string) error {
	return remove(s.db.WithContext(ctx), c, id)
}

// Update runs fn inside one database transaction.
func (s *Store) Update(ctx context.Context, fn func(docstore.Txn) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(txn{tx: tx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return docstore.Wrap("commit", err)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return docstore.Wrap("close database", err)
	}
	return docstore.Wrap("close database", sqlDB.Close())
}

type txn struct {
	tx *gorm.DB
}

func (t txn) Get(ctx context.Context, c docstore.Collection, id string) ([]byte, bool, error) {
	return get(t.tx.WithContext(ctx), c, id)
}

func (t txn) ForEach(ctx context.Context, c docstore.Collection, fn func(string, []byte) error) error {
	return forEach(t.tx.WithContext(ctx), c, fn)
}

func (t txn) Put(ctx context.Context, c docstore.Collection, id string, doc []byte) error {
	return put(t.tx.WithContext(ctx), c, id, doc)
}

func (t txn) Delete(ctx context.Context, c docstore.Collection, id string) error {
	return remove(t.tx.WithContext(ctx), c, id)
}

func get(db *gorm.DB, c docstore.Collection, id string) ([]byte, bool, error) {
	var docs []Document
	err := db.Where("collection = ? AND doc_key = ?", string(c), id).Limit(1).Find(&docs).Error
	if err != nil {
		return nil, false, docstore.Wrap("get "+string(c), err)
	}
	if len(docs) == 0 {
		return nil, false, nil
	}
	return docs[0].Body, true, nil
}

// forEach pages through the collection by seq. Each batch is fully read
// before fn sees it, so fn may write through the same handle.
func forEach(db *gorm.DB, c docstore.Collection, fn func(string, []byte) error) error {
	var (
		batch []Document
		fnErr error
	)
	result := db.Where("collection = ?", string(c)).
		FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
			for _, doc := range batch {
				if err := fn(doc.Key, doc.Body); err != nil {
					fnErr = err
					return err
				}
			}
			return nil
		})
	if fnErr != nil {
		if errors.Is(fnErr, docstore.ErrStop) {
			return nil
		}
		return fnErr
	}
	return docstore.Wrap("scan "+string(c), result.Error)
}

func put(db *gorm.DB, c docstore.Collection, id string, body []byte) error {
	doc := Document{Collection: string(c), Key: id, Body: body}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&doc).Error
	return docstore.Wrap("put "+string(c), err)
}

func remove(db *gorm.DB, c docstore.Collection, id string) error {
	err := db.Where("collection = ? AND doc_key = ?", string(c), id).Delete(&Document{}).Error
	return docstore.Wrap("delete "+string(c), err)
}
