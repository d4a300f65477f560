package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/requests"
)

// CompressionAlgo specifies the payload compression algorithm.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditRow is one persisted approval transition.
type AuditRow struct {
	ID                id.ID                `db:"id"`
	RequestID         id.ID                `db:"request_id"`
	RequestKind       requests.Kind        `db:"request_kind"`
	FromStatus        entity.RequestStatus `db:"from_status"`
	ToStatus          entity.RequestStatus `db:"to_status"`
	ActorID           string               `db:"actor_id"`
	OccurredAt        time.Time            `db:"occurred_at"`
	Payload           json.RawMessage      `db:"payload"`
	PayloadCompressed []byte               `db:"payload_compressed"`
	CompressionAlgo   CompressionAlgo      `db:"compression_algo"`
}

// ApprovalAudit persists the approval audit trail. Large request snapshots
// are zstd-compressed before storage. Writes go through the caller's
// transaction: a failed audit write fails the transition.
type ApprovalAudit struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// Compile-time check that ApprovalAudit implements requests.AuditRecorder.
var _ requests.AuditRecorder = (*ApprovalAudit)(nil)

// NewApprovalAudit creates the audit recorder.
func NewApprovalAudit(txManager *TxManager) (*ApprovalAudit, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &ApprovalAudit{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 4 * 1024,
	}, nil
}

// RecordTransition implements requests.AuditRecorder.
func (s *ApprovalAudit) RecordTransition(ctx context.Context, rec requests.TransitionRecord) error {
	row := AuditRow{
		ID:          id.New(),
		RequestID:   rec.RequestID,
		RequestKind: rec.RequestKind,
		FromStatus:  rec.FromStatus,
		ToStatus:    rec.ToStatus,
		ActorID:     rec.ActorID,
		OccurredAt:  rec.OccurredAt,
	}
	if row.OccurredAt.IsZero() {
		row.OccurredAt = time.Now().UTC()
	}

	if rec.Payload != nil {
		payload, err := json.Marshal(rec.Payload)
		if err != nil {
			return fmt.Errorf("marshal audit payload: %w", err)
		}
		row.Payload = payload
	}

	row.CompressionAlgo = CompressionNone
	if len(row.Payload) > s.compressThreshold {
		row.PayloadCompressed = s.encoder.EncodeAll(row.Payload, nil)
		row.Payload = nil
		row.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO approval_audit (
			id, request_id, request_kind, from_status, to_status,
			actor_id, occurred_at, payload, payload_compressed, compression_algo
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		row.ID, row.RequestID, row.RequestKind, row.FromStatus, row.ToStatus,
		row.ActorID, row.OccurredAt,
		row.Payload, row.PayloadCompressed, row.CompressionAlgo,
	)
	return err
}

// History retrieves the transition trail of one request, newest first.
// Compressed payloads are inflated before return.
func (s *ApprovalAudit) History(ctx context.Context, requestID id.ID, limit int) ([]AuditRow, error) {
	if limit <= 0 {
		limit = 100
	}

	sql := `
		SELECT id, request_id, request_kind, from_status, to_status,
			   actor_id, occurred_at, payload, payload_compressed, compression_algo
		FROM approval_audit
		WHERE request_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, requestID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		err := rows.Scan(
			&r.ID, &r.RequestID, &r.RequestKind, &r.FromStatus, &r.ToStatus,
			&r.ActorID, &r.OccurredAt, &r.Payload, &r.PayloadCompressed, &r.CompressionAlgo,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}

		if r.CompressionAlgo == CompressionZstd && len(r.PayloadCompressed) > 0 {
			payload, err := s.decoder.DecodeAll(r.PayloadCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress audit payload: %w", err)
			}
			r.Payload = payload
			r.PayloadCompressed = nil
		}

		out = append(out, r)
	}

	return out, rows.Err()
}
