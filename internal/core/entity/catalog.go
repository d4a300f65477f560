package entity

import (
	"context"

	"clinicstock/internal/core/apperror"
)

// Catalog is the shared shape of reference data: products, units of
// measure and product batches all embed it.
type Catalog struct {
	BaseCatalog

	// Code is the human-readable identifier, unique per catalog.
	// Left empty on create, it is filled from the numerator.
	Code string `db:"code" json:"code"`

	Name string `db:"name" json:"name"`

	// ParentID and IsFolder support folder trees, e.g. grouping
	// consumables by cabinet section.
	ParentID *string `db:"parent_id" json:"parentId,omitempty"`
	IsFolder bool    `db:"is_folder" json:"isFolder"`
}

func NewCatalog(code, name string) Catalog {
	return Catalog{
		BaseCatalog: NewBaseCatalog(),
		Code:        code,
		Name:        name,
	}
}

// Validate implements Validatable. Code is not checked here because it
// may still be pending generation when validation runs.
func (c *Catalog) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}
