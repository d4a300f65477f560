// Package cache provides caching infrastructure with PostgreSQL
// LISTEN/NOTIFY invalidation.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
	"clinicstock/internal/domain/movement"
	"clinicstock/pkg/logger"
)

// notifyChannel is raised by a trigger on cat_product_units.
const notifyChannel = "product_units_changed"

// binding is one cached product unit row.
type binding struct {
	ProductID id.ID
	Factor    decimal.Decimal
	Deleted   bool
}

// ConversionCache caches product unit conversion factors with automatic
// invalidation via PostgreSQL LISTEN/NOTIFY. Conversion factors are read
// on every stock movement but change rarely, so the hot path never
// touches the database.
type ConversionCache struct {
	pool     *pgxpool.Pool
	mu       sync.RWMutex
	bindings map[id.ID]binding // productUnitID -> binding

	// Listeners for cache invalidation
	listeners   []InvalidationListener
	listenersMu sync.RWMutex

	// Lifecycle
	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// InvalidationListener is called when cache is invalidated.
type InvalidationListener func(channel string, payload string)

// Compile-time check: the cache is a drop-in Converter for the engine.
var _ movement.Converter = (*ConversionCache)(nil)

// NewConversionCache creates a new conversion cache.
func NewConversionCache(pool *pgxpool.Pool) *ConversionCache {
	return &ConversionCache{
		pool:     pool,
		bindings: make(map[id.ID]binding),
	}
}

// Start loads all bindings and begins listening for NOTIFY events.
func (c *ConversionCache) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.lifecycleMu.Lock()
	if c.started {
		c.lifecycleMu.Unlock()
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true
	c.lifecycleMu.Unlock()

	if err := c.loadAll(c.ctx); err != nil {
		c.Stop()
		return fmt.Errorf("load product units: %w", err)
	}

	c.wg.Add(1)
	go c.listenLoop()
	logger.Info(c.ctx, "conversion cache started")
	return nil
}

// Stop gracefully stops the cache listener.
func (c *ConversionCache) Stop() {
	c.lifecycleMu.Lock()
	if !c.started {
		c.lifecycleMu.Unlock()
		return
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	logger.Info(context.Background(), "conversion cache stopped")
}

// listenLoop listens for PostgreSQL NOTIFY events.
func (c *ConversionCache) listenLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		// Acquire dedicated connection for LISTEN
		conn, err := c.pool.Acquire(c.ctx)
		if err != nil {
			logger.Error(c.ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}

		_, err = conn.Exec(c.ctx, "LISTEN "+notifyChannel)
		if err != nil {
			logger.Error(c.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}

		logger.Info(c.ctx, "listening for product unit notifications", "channel", notifyChannel)

		c.waitForNotifications(conn)
		conn.Release()
	}
}

// waitForNotifications blocks waiting for NOTIFY events.
func (c *ConversionCache) waitForNotifications(conn *pgxpool.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		// Wait for notification with timeout for graceful shutdown
		ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if c.ctx.Err() != nil {
				return // Shutting down
			}
			// Timeout is expected, continue listening
			continue
		}

		logger.Debug(c.ctx, "received notification",
			"channel", notification.Channel,
			"payload", notification.Payload)

		c.handleNotification(notification.Channel, notification.Payload)
	}
}

// handleNotification processes a NOTIFY event. Payload is the changed
// product unit ID, or empty for a full reload.
func (c *ConversionCache) handleNotification(channel, payload string) {
	c.invalidate(c.ctx, payload)

	// Notify registered listeners with panic recovery (no goroutine fan-out).
	c.listenersMu.RLock()
	for _, listener := range c.listeners {
		func(l InvalidationListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(c.ctx, "listener panic recovered", "channel", channel, "panic", r)
				}
			}()
			l(channel, payload)
		}(listener)
	}
	c.listenersMu.RUnlock()
}

func (c *ConversionCache) invalidate(ctx context.Context, payload string) {
	raw := strings.TrimSpace(payload)
	if raw == "" {
		if err := c.loadAll(ctx); err != nil {
			logger.Error(ctx, "failed to reload product units", "error", err)
		}
		return
	}

	puID, err := id.Parse(raw)
	if err != nil {
		logger.Error(ctx, "invalid notification payload", "payload", raw, "error", err)
		return
	}
	if err := c.loadOne(ctx, puID); err != nil {
		logger.Error(ctx, "failed to reload product unit",
			"product_unit_id", raw, "error", err)
	}
}

// loadAll loads every binding, including soft-deleted ones. Deleted
// bindings stay resolvable so historic ledger rows keep their audit pair.
func (c *ConversionCache) loadAll(ctx context.Context) error {
	rows, err := c.pool.Query(ctx, `
		SELECT id, product_id, conversion_to_base, deletion_mark
		FROM cat_product_units
	`)
	if err != nil {
		return fmt.Errorf("query product units: %w", err)
	}
	defer rows.Close()

	bindings := make(map[id.ID]binding)
	for rows.Next() {
		var puID id.ID
		var b binding
		if err := rows.Scan(&puID, &b.ProductID, &b.Factor, &b.Deleted); err != nil {
			return fmt.Errorf("scan product unit: %w", err)
		}
		bindings[puID] = b
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate product units: %w", err)
	}

	c.mu.Lock()
	c.bindings = bindings
	c.mu.Unlock()

	logger.Info(ctx, "loaded product units", "count", len(bindings))
	return nil
}

// loadOne reloads a single binding.
func (c *ConversionCache) loadOne(ctx context.Context, puID id.ID) error {
	var b binding
	err := c.pool.QueryRow(ctx, `
		SELECT product_id, conversion_to_base, deletion_mark
		FROM cat_product_units
		WHERE id = $1
	`, puID).Scan(&b.ProductID, &b.Factor, &b.Deleted)
	if err != nil {
		return fmt.Errorf("query product unit: %w", err)
	}

	c.mu.Lock()
	c.bindings[puID] = b
	c.mu.Unlock()

	logger.Debug(ctx, "reloaded product unit", "product_unit_id", puID.String())
	return nil
}

func (c *ConversionCache) lookup(puID id.ID) (binding, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bindings[puID]
	return b, ok
}

// resolve returns the binding, falling back to the database on a miss.
// A miss happens when the binding was created after the last full load
// and its NOTIFY has not arrived yet.
func (c *ConversionCache) resolve(ctx context.Context, puID id.ID) (binding, error) {
	if b, ok := c.lookup(puID); ok {
		return b, nil
	}

	if err := c.loadOne(ctx, puID); err != nil {
		return binding{}, apperror.NewNotFound("product unit", puID.String()).WithCause(err)
	}

	b, ok := c.lookup(puID)
	if !ok {
		return binding{}, apperror.NewNotFound("product unit", puID.String())
	}
	return b, nil
}

// Factor returns the conversion factor of a product unit.
func (c *ConversionCache) Factor(ctx context.Context, puID id.ID) (decimal.Decimal, error) {
	b, err := c.resolve(ctx, puID)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Factor, nil
}

// ToBase converts a quantity in the given product unit to base units,
// verifying the unit belongs to the product. Inexact conversions are
// rejected rather than rounded. Deleted bindings are resolvable through
// Factor for historic rows but cannot book new movements.
func (c *ConversionCache) ToBase(ctx context.Context, productID, productUnitID id.ID, qty types.Quantity) (types.Quantity, error) {
	b, err := c.resolve(ctx, productUnitID)
	if err != nil {
		return 0, err
	}
	if b.ProductID != productID {
		return 0, apperror.NewNotFound("product unit", productUnitID.String()).
			WithDetail("product_id", productID.String())
	}
	if b.Deleted {
		return 0, apperror.NewValidation("product unit is deleted").
			WithDetail("product_unit_id", productUnitID.String())
	}

	base, err := qty.MulExact(b.Factor)
	if err != nil {
		return 0, apperror.NewValidation("conversion result is not exact").
			WithDetail("quantity", qty.String()).
			WithDetail("factor", b.Factor.String()).
			WithCause(err)
	}
	return base, nil
}

// OnInvalidation registers a callback for cache invalidation events.
func (c *ConversionCache) OnInvalidation(listener InvalidationListener) {
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, listener)
	c.listenersMu.Unlock()
}

// CacheStats holds cache statistics.
type CacheStats struct {
	BindingsCount int
}

// GetStats returns current cache statistics.
func (c *ConversionCache) GetStats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{BindingsCount: len(c.bindings)}
}
