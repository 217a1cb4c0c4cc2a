package adapter

import (
	"context"
	"database/sql"
	"time"

	"github.com/forgecms/storage/database"
	"github.com/forgecms/storage/result"
)

// Adapter composes every persistence module behind one object. Construct
// with New, call Connect, then use the module namespaces.
type Adapter struct {
	core *core

	Crud          *CrudModule
	Auth          *AuthModule
	Content       *ContentModule
	Media         *MediaModule
	Folders       *FoldersModule
	Preferences   *PreferencesModule
	Themes        *ThemesModule
	Widgets       *WidgetsModule
	WebsiteTokens *WebsiteTokenModule
	Batch         *BatchModule
}

// New builds an Adapter from options. No connection is made until
// Connect is called.
func New(opts Options) *Adapter {
	c := &core{
		conn:       opts.Conn,
		log:        opts.Logger,
		bcryptCost: opts.BcryptCost,
		jwtSecret:  opts.JWTSecret,
		accessTTL:  opts.AccessTTL,
		sessionTTL: opts.SessionTTL,
		tokenTTL:   opts.TokenTTL,
	}
	if c.bcryptCost <= 0 {
		c.bcryptCost = 10
	}
	if c.accessTTL <= 0 {
		c.accessTTL = 15 * time.Minute
	}
	if c.sessionTTL <= 0 {
		c.sessionTTL = 7 * 24 * time.Hour
	}
	if c.tokenTTL <= 0 {
		c.tokenTTL = time.Hour
	}
	if opts.Events != nil {
		c.events = opts.Events
	}
	if opts.DB != nil {
		c.db = opts.DB
	}
	a := &Adapter{core: c}
	a.Crud = &CrudModule{c: c}
	a.Auth = &AuthModule{c: c}
	a.Content = &ContentModule{
		Nodes:     &ContentNodeModule{c: c},
		Drafts:    &ContentDraftModule{c: c},
		Revisions: &ContentRevisionModule{c: c},
	}
	a.Media = &MediaModule{c: c}
	a.Folders = &FoldersModule{c: c}
	a.Preferences = &PreferencesModule{c: c}
	a.Themes = &ThemesModule{c: c}
	a.Widgets = &WidgetsModule{c: c}
	a.WebsiteTokens = &WebsiteTokenModule{c: c}
	a.Batch = &BatchModule{c: c, crud: a.Crud}
	return a
}

// Connect opens the pool (or pings a pre-supplied one) and marks the
// adapter connected.
func (a *Adapter) Connect(ctx context.Context) result.Result[bool] {
	c := a.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return result.OK(true)
	}
	if c.db == nil {
		db, err := database.Open(ctx, c.conn)
		if err != nil {
			c.log.Error().Err(err).Msg("connect failed")
			return result.Fail[bool](result.CodeConnectionFailed, err.Error())
		}
		c.db = db
	} else if err := c.db.PingContext(ctx); err != nil {
		c.log.Error().Err(err).Msg("connect failed")
		return result.Fail[bool](result.CodeConnectionFailed, err.Error())
	}
	c.connected = true
	c.log.Info().Str("host", c.conn.Host).Str("database", c.conn.Name).Msg("connected")
	return result.OK(true)
}

// Disconnect closes the pool and marks the adapter disconnected.
func (a *Adapter) Disconnect() result.Result[bool] {
	c := a.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return result.OK(true)
	}
	c.connected = false
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			return result.Fail[bool](result.CodeConnectionFailed, err.Error())
		}
		c.db = nil
	}
	c.log.Info().Msg("disconnected")
	return result.OK(true)
}

// IsConnected reports whether Connect has succeeded.
func (a *Adapter) IsConnected() bool { return a.core.isConnected() }

// WaitForConnection polls the connected flag until it is set or ctx is
// done. The context bounds the wait; there is no internal timeout.
func (a *Adapter) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if a.core.isConnected() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Capabilities returns the static capability descriptor for the backing
// store.
func (a *Adapter) Capabilities() Capabilities { return mysqlCapabilities }

// ConnectionHealth pings the store and reports latency plus pool stats.
func (a *Adapter) ConnectionHealth(ctx context.Context) result.Result[Health] {
	return wrap(ctx, a.core, "HEALTH_CHECK_FAILED", func(ctx context.Context, db *sql.DB) (Health, error) {
		start := time.Now()
		if err := db.PingContext(ctx); err != nil {
			return Health{}, err
		}
		stats := db.Stats()
		return Health{
			Connected: true,
			Latency:   time.Since(start),
			OpenConns: stats.OpenConnections,
			InUse:     stats.InUse,
			Idle:      stats.Idle,
		}, nil
	})
}

// Query starts a fluent query builder scoped to one collection.
func (a *Adapter) Query(collection string) *QueryBuilder {
	return newQueryBuilder(a.core, collection)
}

// FindInCollections reads the same equality filter from several
// collections in one call, keyed by collection name. Collections that
// fail individually surface through the overall error envelope.
func (a *Adapter) FindInCollections(ctx context.Context, collections []string, filter map[string]any, tenantID string) result.Result[map[string][]map[string]any] {
	out := make(map[string][]map[string]any, len(collections))
	for _, col := range collections {
		r := a.Crud.FindMany(ctx, col, filter, tenantID, 0, 0)
		if !r.Success {
			return result.Fail[map[string][]map[string]any](r.Error.Code, r.Message)
		}
		out[col] = r.Data
	}
	return result.OK(out)
}

// CountCollections returns row counts for several collections under the
// same filter, keyed by collection name.
func (a *Adapter) CountCollections(ctx context.Context, collections []string, filter map[string]any, tenantID string) result.Result[map[string]int64] {
	out := make(map[string]int64, len(collections))
	for _, col := range collections {
		r := a.Crud.Count(ctx, col, filter, tenantID)
		if !r.Success {
			return result.Fail[map[string]int64](r.Error.Code, r.Message)
		}
		out[col] = r.Data
	}
	return result.OK(out)
}
