package goSession

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/permission"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
	"github.com/MrEthical07/goSession/ui"
	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Client]. A builder is single-use.
type Builder struct {
	config Config

	store      credential.Store
	redis      redis.UniversalClient
	httpClient *http.Client

	notifier  ui.Notifier
	navigator ui.Navigator
	log       logr.Logger
	auditSink AuditSink
	conn      session.Connectivity

	routes  []guard.Route
	catalog *permission.Catalog

	built bool
}

// New returns a builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		log:    logr.Discard(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithCredentialStore overrides the store selected by Config.Storage.
func (b *Builder) WithCredentialStore(s credential.Store) *Builder {
	b.store = s
	return b
}

// WithRedis supplies the client used by the redis storage backend.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

func (b *Builder) WithNotifier(n ui.Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithNavigator(n ui.Navigator) *Builder {
	b.navigator = n
	return b
}

func (b *Builder) WithLogger(l logr.Logger) *Builder {
	b.log = l
	return b
}

// WithAuditSink sets where audit events go when Config.Audit is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithConnectivity(c session.Connectivity) *Builder {
	b.conn = c
	return b
}

// WithRoutes replaces [guard.DefaultRoutes].
func (b *Builder) WithRoutes(routes []guard.Route) *Builder {
	b.routes = routes
	return b
}

// WithCatalog sets the permission catalog routes are validated against.
func (b *Builder) WithCatalog(c *permission.Catalog) *Builder {
	b.catalog = c
	return b
}

// Build validates the configuration, restores persisted credentials, and
// wires every component. ctx bounds the credential load only.
func (b *Builder) Build(ctx context.Context) (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := b.credentialStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	notifier := b.notifier
	if notifier == nil {
		notifier = ui.LogNotifier{Log: b.log.WithName("notify")}
	}
	navigator := b.navigator
	if navigator == nil {
		navigator = ui.Discard{}
	}
	catalog := b.catalog
	if catalog == nil {
		catalog = permission.DefaultCatalog()
	}
	routes := b.routes
	if routes == nil {
		routes = guard.DefaultRoutes()
	}

	c := &Client{
		cfg:     cfg,
		log:     b.log.WithName("gosession"),
		metrics: NewMetrics(cfg.Metrics),
		catalog: catalog,
	}

	// -------- AUDIT --------
	c.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	// -------- TRANSPORT --------
	base := transport.NewHTTPDoer(transport.HTTPConfig{
		BaseURL:   cfg.HTTP.BaseURL,
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	}, b.httpClient, b.log).WithObserver(c.observeRequest)

	// -------- SESSION --------
	c.session, err = session.New(ctx, session.Options{
		Backend:      api.NewAuthBackend(base).WithRefreshPath(cfg.Refresh.Path),
		Store:        store,
		Notifier:     notifier,
		Connectivity: b.conn,
		Logger:       b.log,
		Observer:     session.ObserverFunc(c.observeSession),
	})
	if err != nil {
		c.audit.Close()
		return nil, err
	}
	c.evaluator = permission.NewEvaluator(c.session)

	c.interceptor = transport.NewInterceptor(base, c.session, notifier, navigator, b.log, transport.InterceptorConfig{
		LoginPath:     cfg.Guard.LoginPath,
		RefreshPath:   cfg.Refresh.Path,
		RefreshLeeway: cfg.Refresh.Leeway,
	}).OnEvent(c.observeTransport)
	c.api = api.New(c.interceptor)

	// -------- GUARD --------
	c.guard, err = guard.New(routes, c.session, c.evaluator, navigator, b.log, guard.Config{
		LoginPath:    cfg.Guard.LoginPath,
		LandingPath:  cfg.Guard.LandingPath,
		AppTitle:     cfg.Guard.AppTitle,
		MaxHops:      cfg.Guard.MaxHops,
		Catalog:      catalog,
		AllowPartial: cfg.Refresh.AllowPartial,
	})
	if err != nil {
		c.audit.Close()
		return nil, fmt.Errorf("routes: %w", err)
	}
	c.guard.OnDenied(c.observeDenied)

	b.built = true
	return c, nil
}

func (b *Builder) credentialStore(cfg StorageConfig) (credential.Store, error) {
	if b.store != nil {
		return b.store, nil
	}
	switch cfg.Backend {
	case StorageFile:
		return credential.NewFileStore(cfg.FilePath), nil
	case StorageRedis:
		if b.redis == nil {
			return nil, ErrRedisRequired
		}
		return credential.NewRedisStore(b.redis, cfg.RedisPrefix, cfg.RefreshTTL), nil
	default:
		return credential.NewMemoryStore(nil), nil
	}
}
