// Package profiles defines the UserProfileStore capability: a document
// database holding users/{uid} profile documents and the usernames/{name}
// index.
//
// A batch is applied as a single commit where the backend supports it, but
// callers must not rely on atomicity across collections.
package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

// UserProfileStore is the external document store.
type UserProfileStore interface {
	// GetDocument returns (nil, nil) when the document does not exist.
	GetDocument(ctx context.Context, collection, key string) (models.Document, error)
	BatchWrite(ctx context.Context, ops []models.WriteOp) error
}

var (
	ErrEmptyKey        = errors.New("document collection and key must be set")
	ErrDuplicateKey    = errors.New("batch touches the same document twice")
	ErrUnsupportedMode = errors.New("unsupported write mode")
)

type docRef struct{ collection, key string }

// validateBatch rejects ops the hosted backends would refuse at commit time.
func validateBatch(ops []models.WriteOp) error {
	seen := make(map[docRef]struct{}, len(ops))
	for i, op := range ops {
		if op.Collection == "" || op.Key == "" {
			return fmt.Errorf("op %d: %w", i, ErrEmptyKey)
		}
		switch op.Mode {
		case models.ModeSet, models.ModeMerge, models.ModeDelete:
		default:
			return fmt.Errorf("op %d: %w: %d", i, ErrUnsupportedMode, op.Mode)
		}
		ref := docRef{op.Collection, op.Key}
		if _, dup := seen[ref]; dup {
			return fmt.Errorf("op %d %s/%s: %w", i, op.Collection, op.Key, ErrDuplicateKey)
		}
		seen[ref] = struct{}{}
	}
	return nil
}

// mergeFields overlays patch on base without mutating either.
func mergeFields(base, patch models.Document) models.Document {
	out := make(models.Document, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
