// Package tx defines the transaction boundary used by the domain layer.
// Services depend on Manager; the pgx-backed implementation lives in
// infrastructure/storage/postgres.
package tx

import "context"

// Manager runs a function inside a database transaction. The transaction
// travels in the context, so repository calls made from fn join it and a
// nested RunInTransaction reuses the outer transaction instead of opening
// a new one. An error from fn rolls everything back.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
