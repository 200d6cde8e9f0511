// ABOUTME: In-process collaborator adapters backed directly by the store.
// ABOUTME: Used when the server edits its own widgets without an HTTP round trip.

package api

import (
	"context"
	"fmt"

	"github.com/2389/studio/internal/schema"
	"github.com/2389/studio/internal/store"
	"github.com/2389/studio/internal/validation"
)

// LocalValidator validates configurations against widget types in the local
// store, bypassing HTTP.
type LocalValidator struct {
	store *store.Store
}

func NewLocalValidator(s *store.Store) *LocalValidator {
	return &LocalValidator{store: s}
}

func (v *LocalValidator) Validate(ctx context.Context, typeID string, config map[string]any) (validation.RemoteResult, error) {
	wt, err := v.store.GetWidgetType(typeID)
	if err != nil {
		return validation.RemoteResult{}, fmt.Errorf("widget type %s: %w", typeID, err)
	}
	fieldErrors, warnings, isValid := schema.Validate(wt.Fields, config)
	return validation.RemoteResult{
		IsValid:  isValid,
		Errors:   fieldErrors,
		Warnings: warnings,
	}, nil
}
