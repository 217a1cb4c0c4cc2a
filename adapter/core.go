// Package adapter implements the persistence façade for the CMS: uniform
// CRUD, authentication state, hierarchical content versioning, media and
// settings bookkeeping, batching, and transactions over a MySQL backing
// store. Every operation returns the result envelope; driver errors never
// escape the package.
package adapter

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/forgecms/storage/database"
	"github.com/forgecms/storage/events"
	"github.com/forgecms/storage/result"
)

// Options configures a new Adapter. Either Conn or a pre-built DB pool
// must be provided before Connect.
type Options struct {
	Conn database.ConnectionInfo
	// DB, when set, is used as-is and Conn is ignored. Useful for sharing
	// a pool with the host application and for tests.
	DB *sql.DB

	Logger     zerolog.Logger
	Events     *events.Publisher // nil disables change events
	BcryptCost int
	JWTSecret  string // empty disables access token issuing
	AccessTTL  time.Duration
	SessionTTL time.Duration // default session lifetime when callers omit an expiry
	TokenTTL   time.Duration // default verification/reset token lifetime
}

// eventPublisher is the delivery seam for change events, satisfied by
// events.Publisher.
type eventPublisher interface {
	Publish(ctx context.Context, event events.ContentChangedEvent) error
}

// core owns the connection pool and the shared helpers every module is
// built on. Modules receive it by constructor injection and hold no other
// shared state; all entity state lives in the database.
type core struct {
	mu        sync.RWMutex
	db        *sql.DB
	connected bool

	conn       database.ConnectionInfo
	log        zerolog.Logger
	events     eventPublisher
	bcryptCost int
	jwtSecret  string
	accessTTL  time.Duration
	sessionTTL time.Duration
	tokenTTL   time.Duration
}

// ErrNotConnected is returned by operations attempted before Connect.
var ErrNotConnected = errors.New("adapter is not connected")

func (c *core) database() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected || c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db, nil
}

func (c *core) isConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// wrap runs op and converts its outcome into the uniform envelope. Not
// being connected short-circuits with NOT_CONNECTED; sentinel errors are
// promoted to their taxonomy codes; everything else carries the
// operation's code. Failures other than missing rows are logged.
func wrap[T any](ctx context.Context, c *core, code string, op func(ctx context.Context, db *sql.DB) (T, error)) result.Result[T] {
	db, err := c.database()
	if err != nil {
		return result.Fail[T](result.CodeNotConnected, err.Error())
	}
	v, err := op(ctx, db)
	if err != nil {
		if !errors.Is(err, result.ErrNotFound) {
			c.log.Error().Err(err).Str("code", code).Msg("operation failed")
		}
		return result.FromError[T](code, err)
	}
	return result.OK(v)
}

// transact runs fn inside a driver transaction, committing on nil and
// rolling back on error. Shared by every check-then-act operation.
func transact(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// now returns the adapter clock. All stored timestamps are UTC.
func now() time.Time { return time.Now().UTC() }

// isDuplicate detects MySQL duplicate-key violations (error 1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// publish emits a change event when a publisher is configured. Delivery
// failures are logged inside the publisher and ignored here; events are
// advisory and must not fail the originating operation.
func (c *core) publish(ctx context.Context, action, collection, id, tenantID, path string) {
	if c.events == nil {
		return
	}
	_ = c.events.Publish(ctx, events.ContentChangedEvent{
		Action:     action,
		Collection: collection,
		ID:         id,
		TenantID:   tenantID,
		Path:       path,
		OccurredAt: now().Format(time.RFC3339),
	})
}

// Health reports connection status, round-trip latency and pool counters.
type Health struct {
	Connected bool          `json:"connected"`
	Latency   time.Duration `json:"latency"`
	OpenConns int           `json:"openConnections"`
	InUse     int           `json:"inUse"`
	Idle      int           `json:"idle"`
}
