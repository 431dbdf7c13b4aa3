package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/identity"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/profiles"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// resolveUser merges the identity backend's current account with its
// users/{uid} profile document. A missing document leaves the profile fields
// nil; a failed read makes the user unresolvable.
func resolveUser(ctx context.Context, auth identity.AuthService, store profiles.UserProfileStore) (*models.User, error) {
	acc, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	if acc == nil {
		return nil, common.ErrNoUser
	}

	doc, err := store.GetDocument(ctx, models.CollectionUsers, acc.UID)
	if err != nil {
		return nil, fmt.Errorf("read profile of %s: %w", acc.UID, err)
	}

	return &models.User{
		UID:         acc.UID,
		Email:       acc.Email,
		DisplayName: doc.String(models.FieldDisplayName),
		Username:    doc.String(models.FieldUsername),
	}, nil
}
