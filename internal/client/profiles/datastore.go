package profiles

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/datastore"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"google.golang.org/api/option"
)

// DatastoreStore keeps documents as Cloud Datastore entities: the collection
// is the entity kind and the document key is the key name.
type DatastoreStore struct {
	client    *datastore.Client
	namespace string
}

// NewDatastoreStore connects to projectID. DATASTORE_EMULATOR_HOST is
// honoured by the client library.
func NewDatastoreStore(ctx context.Context, projectID, namespace string, opts ...option.ClientOption) (*DatastoreStore, error) {
	client, err := datastore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("datastore client: %w", err)
	}
	return &DatastoreStore{client: client, namespace: namespace}, nil
}

func (s *DatastoreStore) Close() error {
	return s.client.Close()
}

func (s *DatastoreStore) key(collection, key string) *datastore.Key {
	k := datastore.NameKey(collection, key, nil)
	k.Namespace = s.namespace
	return k
}

func (s *DatastoreStore) GetDocument(ctx context.Context, collection, key string) (models.Document, error) {
	var props datastore.PropertyList
	err := s.client.Get(ctx, s.key(collection, key), &props)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return fromProperties(props), nil
}

// BatchWrite reads the current state of merged documents, then commits all
// upserts and deletes in one Mutate call. A concurrent writer between the
// read and the commit loses its fields (last write wins).
func (s *DatastoreStore) BatchWrite(ctx context.Context, ops []models.WriteOp) error {
	if err := validateBatch(ops); err != nil {
		return err
	}

	current, err := s.loadForMerge(ctx, ops)
	if err != nil {
		return err
	}

	muts := make([]*datastore.Mutation, 0, len(ops))
	for i, op := range ops {
		k := s.key(op.Collection, op.Key)
		switch op.Mode {
		case models.ModeSet:
			props := toProperties(op.Fields)
			muts = append(muts, datastore.NewUpsert(k, &props))
		case models.ModeMerge:
			props := toProperties(mergeFields(current[i], op.Fields))
			muts = append(muts, datastore.NewUpsert(k, &props))
		case models.ModeDelete:
			muts = append(muts, datastore.NewDelete(k))
		}
	}

	if _, err := s.client.Mutate(ctx, muts...); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// loadForMerge returns the stored fields of every merge op, indexed by op
// position. Missing entities yield nil.
func (s *DatastoreStore) loadForMerge(ctx context.Context, ops []models.WriteOp) (map[int]models.Document, error) {
	var (
		idx  []int
		keys []*datastore.Key
	)
	for i, op := range ops {
		if op.Mode == models.ModeMerge {
			idx = append(idx, i)
			keys = append(keys, s.key(op.Collection, op.Key))
		}
	}
	out := make(map[int]models.Document, len(idx))
	if len(keys) == 0 {
		return out, nil
	}

	dst := make([]datastore.PropertyList, len(keys))
	err := s.client.GetMulti(ctx, keys, dst)
	var merr datastore.MultiError
	switch {
	case err == nil:
	case errors.As(err, &merr):
		for j, e := range merr {
			if e != nil && !errors.Is(e, datastore.ErrNoSuchEntity) {
				return nil, fmt.Errorf("load %s: %w", keys[j], e)
			}
		}
	default:
		return nil, fmt.Errorf("load merge targets: %w", err)
	}

	for j, i := range idx {
		if dst[j] != nil {
			out[i] = fromProperties(dst[j])
		}
	}
	return out, nil
}

func toProperties(d models.Document) datastore.PropertyList {
	props := make(datastore.PropertyList, 0, len(d))
	for name, v := range d {
		props = append(props, datastore.Property{Name: name, Value: v})
	}
	return props
}

func fromProperties(props datastore.PropertyList) models.Document {
	d := make(models.Document, len(props))
	for _, p := range props {
		d[p.Name] = p.Value
	}
	return d
}
