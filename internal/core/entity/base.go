package entity

import (
	"context"
	"time"

	"clinicstock/internal/core/id"
)

// Validatable checks internal invariants without touching the database.
// Cross-entity rules (referenced batch exists, unit belongs to product)
// live in the services.
type Validatable interface {
	Validate(ctx context.Context) error
}

// BaseEntity carries the columns shared by every stored entity.
type BaseEntity struct {
	// ID is a UUIDv7 primary key.
	ID id.ID `db:"id" json:"id"`

	// DeletionMark soft-deletes the row. Marked rows stay resolvable
	// so that ledger history keeps pointing at real entities.
	DeletionMark bool `db:"deletion_mark" json:"deletionMark"`

	// Version backs optimistic locking; every update increments it.
	Version int `db:"version" json:"version"`

	// Attributes holds site-specific JSONB fields.
	Attributes Attributes `db:"attributes" json:"attributes,omitempty"`

	CDCFields
}

func NewBaseEntity() BaseEntity {
	return BaseEntity{
		ID:      id.New(),
		Version: 1,
	}
}

// Touch increments the optimistic-locking version.
func (b *BaseEntity) Touch() {
	b.Version++
}

// BaseCatalog is the base for reference data. Catalogs carry no audit
// timestamps; reference data changes rarely and the version column is
// enough to order edits.
type BaseCatalog struct {
	BaseEntity
}

func NewBaseCatalog() BaseCatalog {
	return BaseCatalog{BaseEntity: NewBaseEntity()}
}

// BaseRequest is the base for workflow documents, which do need the
// full audit trail of who touched them and when.
type BaseRequest struct {
	BaseEntity

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

func NewBaseRequest() BaseRequest {
	now := time.Now().UTC()
	return BaseRequest{
		BaseEntity: NewBaseEntity(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Touch refreshes UpdatedAt and increments the version.
func (b *BaseRequest) Touch() {
	b.UpdatedAt = time.Now().UTC()
	b.BaseEntity.Touch()
}
