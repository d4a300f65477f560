package pools

import (
	"context"
	"sort"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

// ScopedQuantity is one location or personal pool in a snapshot.
type ScopedQuantity struct {
	ScopeKey string            `json:"scopeKey"`
	Quantity types.Quantity    `json:"quantity"`
	Status   entity.PoolStatus `json:"status"`
}

// Snapshot is the read model of all pools of one batch.
type Snapshot struct {
	BatchID   id.ID            `json:"batchId"`
	Main      types.Quantity   `json:"main"`
	Locations []ScopedQuantity `json:"locations"`
	Personal  []ScopedQuantity `json:"personal"`
	Total     types.Quantity   `json:"total"`
}

// Service provides read operations over stock pools.
// All writes go through the movement engine.
type Service struct {
	repo Repository
}

// NewService creates a new pool service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetSnapshot returns the current distribution of a batch across pools.
// Reads are read-committed; a snapshot taken after a committed movement
// reflects that movement.
func (s *Service) GetSnapshot(ctx context.Context, batchID id.ID) (*Snapshot, error) {
	items, err := s.repo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{BatchID: batchID}
	for _, p := range items {
		snap.Total += p.Quantity
		switch p.Kind {
		case entity.PoolMain:
			snap.Main = p.Quantity
		case entity.PoolLocation:
			snap.Locations = append(snap.Locations, ScopedQuantity{
				ScopeKey: p.ScopeKey, Quantity: p.Quantity, Status: p.Status,
			})
		case entity.PoolPersonal:
			snap.Personal = append(snap.Personal, ScopedQuantity{
				ScopeKey: p.ScopeKey, Quantity: p.Quantity, Status: p.Status,
			})
		}
	}

	// Deterministic output
	sort.Slice(snap.Locations, func(i, j int) bool { return snap.Locations[i].ScopeKey < snap.Locations[j].ScopeKey })
	sort.Slice(snap.Personal, func(i, j int) bool { return snap.Personal[i].ScopeKey < snap.Personal[j].ScopeKey })

	return snap, nil
}

// TotalOnHand returns the summed quantity of a batch across all pools.
func (s *Service) TotalOnHand(ctx context.Context, batchID id.ID) (types.Quantity, error) {
	snap, err := s.GetSnapshot(ctx, batchID)
	if err != nil {
		return 0, err
	}
	return snap.Total, nil
}

// Get returns one pool by key.
func (s *Service) Get(ctx context.Context, key entity.PoolKey) (*entity.StockPool, error) {
	return s.repo.Get(ctx, key)
}

// ListByScope returns everything held in one location or by one person.
func (s *Service) ListByScope(ctx context.Context, kind entity.PoolKind, scopeKey string) ([]*entity.StockPool, error) {
	if !kind.Valid() {
		return nil, apperror.NewValidation("invalid pool kind").
			WithDetail("kind", string(kind))
	}
	return s.repo.ListByScope(ctx, kind, scopeKey)
}

// SetStatus annotates a pool lifecycle status. Status never changes
// quantities; it is bookkeeping for damaged/lost/returned stock.
func (s *Service) SetStatus(ctx context.Context, key entity.PoolKey, status entity.PoolStatus) error {
	if !status.Valid() {
		return apperror.NewValidation("invalid pool status").
			WithDetail("status", string(status))
	}
	return s.repo.SetStatus(ctx, key, status)
}
