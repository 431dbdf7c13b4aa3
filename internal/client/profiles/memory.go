package profiles

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

// MemoryStore is an in-process UserProfileStore. A batch is applied under one
// lock, so it is atomic.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[docRef]models.Document
	getErr   error
	batchErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[docRef]models.Document{}}
}

// FailGet makes GetDocument return err; nil clears it.
func (m *MemoryStore) FailGet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// FailBatch makes BatchWrite return err without applying anything; nil clears it.
func (m *MemoryStore) FailBatch(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchErr = err
}

func (m *MemoryStore) GetDocument(ctx context.Context, collection, key string) (models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	d, ok := m.docs[docRef{collection, key}]
	if !ok {
		return nil, nil
	}
	return mergeFields(d, nil), nil
}

func (m *MemoryStore) BatchWrite(ctx context.Context, ops []models.WriteOp) error {
	if err := validateBatch(ops); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batchErr != nil {
		return m.batchErr
	}

	for _, op := range ops {
		ref := docRef{op.Collection, op.Key}
		switch op.Mode {
		case models.ModeSet:
			m.docs[ref] = mergeFields(nil, op.Fields)
		case models.ModeMerge:
			m.docs[ref] = mergeFields(m.docs[ref], op.Fields)
		case models.ModeDelete:
			delete(m.docs, ref)
		}
	}
	return nil
}

// Collection returns a copy of every document in collection keyed by
// document key.
func (m *MemoryStore) Collection(collection string) map[string]models.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]models.Document{}
	for ref, d := range m.docs {
		if ref.collection == collection {
			out[ref.key] = mergeFields(d, nil)
		}
	}
	return out
}
