// Package audit provides helpers for stamping audit fields from the
// request actor.
package audit

import (
	"context"

	appctx "clinicstock/internal/core/context"
)

// EnrichCreatedBy sets CreatedBy and UpdatedBy from the context actor.
// Use in create paths. If no actor is in context, this is a no-op.
func EnrichCreatedBy(ctx context.Context, entity any) error {
	actorID := appctx.GetActorID(ctx)
	if actorID == "" {
		return nil
	}

	switch e := entity.(type) {
	case interface {
		SetCreatedBy(string)
		SetUpdatedBy(string)
	}:
		e.SetCreatedBy(actorID)
		e.SetUpdatedBy(actorID)
	}

	return nil
}

// EnrichUpdatedBy sets only UpdatedBy from the context actor.
// Use in update paths. If no actor is in context, this is a no-op.
func EnrichUpdatedBy(ctx context.Context, entity any) error {
	actorID := appctx.GetActorID(ctx)
	if actorID == "" {
		return nil
	}

	switch e := entity.(type) {
	case interface{ SetUpdatedBy(string) }:
		e.SetUpdatedBy(actorID)
	}

	return nil
}

// EnrichCreatedByDirect stamps both fields directly.
func EnrichCreatedByDirect(ctx context.Context, createdBy, updatedBy *string) {
	actorID := appctx.GetActorID(ctx)
	if actorID != "" && createdBy != nil && updatedBy != nil {
		*createdBy = actorID
		*updatedBy = actorID
	}
}

// EnrichUpdatedByDirect stamps UpdatedBy directly.
func EnrichUpdatedByDirect(ctx context.Context, updatedBy *string) {
	actorID := appctx.GetActorID(ctx)
	if actorID != "" && updatedBy != nil {
		*updatedBy = actorID
	}
}
