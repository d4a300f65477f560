package entity

import "time"

// CDCFields are the columns the replication pipeline reads. They are
// populated by the database side (triggers and txid_current()), never by
// application code, and stay out of API payloads.
type CDCFields struct {
	// DeletedAt mirrors soft deletion so that downstream consumers can
	// reconstruct DELETE events from the logical stream.
	DeletedAt *time.Time `db:"_deleted_at" json:"-"`

	// TxID orders changes within the stream. More stable than xmin,
	// which wraps around.
	TxID int64 `db:"_txid" json:"-"`
}
