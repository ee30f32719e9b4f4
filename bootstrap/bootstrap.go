// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/artpar/postmeta/adapters/auth"
	"github.com/artpar/postmeta/adapters/clock"
	"github.com/artpar/postmeta/adapters/hasher"
	apihttp "github.com/artpar/postmeta/adapters/http"
	"github.com/artpar/postmeta/adapters/idgen"
	"github.com/artpar/postmeta/adapters/memory"
	"github.com/artpar/postmeta/adapters/metrics"
	"github.com/artpar/postmeta/adapters/random"
	"github.com/artpar/postmeta/adapters/sqlite"
	"github.com/artpar/postmeta/adapters/tracing"
	"github.com/artpar/postmeta/app"
	"github.com/artpar/postmeta/config"
	"github.com/artpar/postmeta/core/events"
	"github.com/artpar/postmeta/core/openapi"
	"github.com/artpar/postmeta/core/registry"
	"github.com/artpar/postmeta/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// OpenAPIInstance is the swag instance name the API document is served as.
const OpenAPIInstance = "postmeta"

// App represents the running application.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	DB         *sqlite.DB // nil with the memory driver
	Registry   *registry.Registry
	Metrics    *metrics.Collector // nil when metrics are disabled
	Events     *events.Bus
	HTTPServer *http.Server

	// Services
	Fields *app.FieldService
	Posts  *app.PostService
	Auth   *app.AuthService

	holder          *config.Holder
	shutdownTracing tracing.Shutdown
}

// Options controls how New builds the application.
type Options struct {
	// ConfigPath is a YAML file. When it does not exist, configuration
	// comes from POSTMETA_* environment variables only.
	ConfigPath string

	// Config, when set, is used as is and ConfigPath is ignored.
	Config *config.Config

	Version   string
	LogOutput io.Writer // defaults to stdout
}

// New creates and initializes the application.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, holder, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := NewLogger(cfg.Logging, out)
	logger.Info().Str("version", opts.Version).Msg("initializing postmeta")

	a := &App{
		Config: cfg,
		Logger: logger,
		holder: holder,
	}
	if holder != nil {
		holder.SetLogger(logger)
	}

	a.shutdownTracing, err = tracing.Setup(ctx, tracing.Options{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
		Version:     opts.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	stores, err := a.initStores(ctx)
	if err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("init database: %w", err)
	}

	a.Registry, err = config.BuildRegistry(cfg.Fields)
	if err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("register fields: %w", err)
	}
	for _, e := range a.Registry.List() {
		logger.Debug().
			Str("resource_type", e.ResourceType).
			Str("field", e.Field.Name).
			Str("type", string(e.Field.Schema.Type)).
			Msg("registered field")
	}

	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.Metrics = metrics.NewWithRegistry(reg)
		gatherer = reg
		logger.Info().Msg("prometheus metrics enabled")
	}

	if err := a.wireServices(stores); err != nil {
		a.Shutdown()
		return nil, err
	}

	routerCfg := apihttp.RouterConfig{
		Posts:           a.Posts,
		Fields:          a.Fields,
		Auth:            a.Auth,
		Logger:          logger,
		Metrics:         a.Metrics,
		MetricsGatherer: gatherer,
		Version:         opts.Version,
		RequestTimeout:  cfg.Server.RequestTimeout,
	}
	if a.DB != nil {
		routerCfg.Store = a.DB
	}
	if cfg.OpenAPI.Enabled {
		gen := openapi.NewGenerator(a.Registry, apihttp.BasePath)
		gen.SetInfo(openapi.Info{
			Title:       "postmeta API",
			Version:     versionOr(opts.Version),
			Description: "Posts and their registered metadata fields",
		})
		openapi.Register(OpenAPIInstance, openapi.NewDoc(gen, logger))
		routerCfg.OpenAPIInstance = OpenAPIInstance
	}

	a.HTTPServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      apihttp.NewRouter(routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if holder != nil {
		holder.OnChange(a.applyConfig)
		if a.Metrics != nil {
			holder.OnReload(a.Metrics.ConfigReloaded)
		}
	}

	return a, nil
}

func loadConfig(opts Options) (*config.Config, *config.Holder, error) {
	if opts.Config != nil {
		return opts.Config, nil, nil
	}
	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err == nil {
			holder, err := config.NewHolder(opts.ConfigPath, zerolog.Nop())
			if err != nil {
				return nil, nil, err
			}
			return holder.Get(), holder, nil
		}
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil, nil
}

type stores struct {
	posts ports.PostStore
	meta  ports.MetaStore
	users ports.UserStore
	keys  ports.KeyStore
}

func (a *App) initStores(ctx context.Context) (stores, error) {
	if a.Config.Database.Driver == "memory" {
		a.Logger.Warn().Msg("using in-memory storage, data is lost on exit")
		return stores{
			posts: memory.NewPostStore(),
			meta:  memory.NewMetaStore(),
			users: memory.NewUserStore(),
			keys:  memory.NewKeyStore(),
		}, nil
	}

	db, err := sqlite.Open(a.Config.Database.DSN)
	if err != nil {
		return stores{}, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return stores{}, fmt.Errorf("migrate: %w", err)
	}
	a.DB = db
	a.Logger.Info().Str("dsn", a.Config.Database.DSN).Msg("database ready")

	return stores{
		posts: sqlite.NewPostStore(db),
		meta:  sqlite.NewMetaStore(db),
		users: sqlite.NewUserStore(db),
		keys:  sqlite.NewKeyStore(db),
	}, nil
}

func (a *App) wireServices(s stores) error {
	a.Events = events.NewBus(a.Logger)
	a.Events.Subscribe("*", a.audit)

	var observer ports.FieldObserver
	if a.Metrics != nil {
		observer = a.Metrics
	}

	authz := app.Capabilities{}
	a.Fields = app.NewFieldService(app.FieldDeps{
		Registry: a.Registry,
		Posts:    s.posts,
		Meta:     s.meta,
		Authz:    authz,
		Observer: observer,
		Events:   a.Events,
		Logger:   a.Logger,
	})
	a.Posts = app.NewPostService(app.PostDeps{
		Posts:  s.posts,
		Fields: a.Fields,
		Authz:  authz,
		Clock:  clock.System{},
		Logger: a.Logger,
	})

	rnd := random.Real{}
	secret := a.Config.Auth.JWTSecret
	if secret == "" {
		var err error
		if secret, err = rnd.String(64); err != nil {
			return fmt.Errorf("generate jwt secret: %w", err)
		}
		a.Logger.Warn().Msg("auth.jwt_secret not set, tokens will not survive a restart")
	}
	a.Auth = app.NewAuthService(app.AuthDeps{
		Users:     s.users,
		Keys:      s.keys,
		Tokens:    auth.NewTokenService(secret, a.Config.Auth.TokenTTL),
		Hasher:    hasher.NewBcrypt(a.Config.Auth.BcryptCost),
		Clock:     clock.System{},
		IDGen:     idgen.UUID{},
		Random:    rnd,
		KeyPrefix: a.Config.Auth.KeyPrefix,
		Logger:    a.Logger,
	})
	return nil
}

// audit logs every persisted change at info level.
func (a *App) audit(_ context.Context, e events.Event) error {
	ev := a.Logger.Info().
		Str("event", e.Name).
		Int64("post_id", e.PostID).
		Str("user_id", e.UserID)
	if e.Field != "" {
		ev = ev.Str("field", e.Field)
	}
	ev.Msg("change recorded")
	return nil
}

// applyConfig applies the settings that take effect without a restart.
func (a *App) applyConfig(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return
	}
	zerolog.SetGlobalLevel(level)
	a.Logger.Info().Str("level", level.String()).Msg("log level applied")
}

// Reload re-reads the configuration file. It fails when the app was not
// started from a file.
func (a *App) Reload() error {
	if a.holder == nil {
		return errors.New("no configuration file to reload")
	}
	return a.holder.Reload()
}

// Run starts the HTTP server and blocks until ctx is done, a shutdown
// signal arrives, or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a.holder != nil {
		if err := a.holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch unavailable")
		}
		a.holder.WatchSignals()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		a.Logger.Info().Msg("context done, shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// NewLogger builds the process logger. The level is applied globally so
// a config reload can change it for every component.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Str("service", "postmeta").Logger()
}

func versionOr(v string) string {
	if v == "" {
		return "dev"
	}
	return v
}
