package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/diwanhq/diwan/internal/auth"
	"github.com/diwanhq/diwan/internal/config"
	"github.com/diwanhq/diwan/internal/db"
	"github.com/diwanhq/diwan/internal/logging"
	"github.com/diwanhq/diwan/internal/notify"
	"github.com/diwanhq/diwan/internal/ratelimit"
	"github.com/diwanhq/diwan/internal/sync"
)

// App is the runtime container every handler receives.
type App struct {
	cfg      config.Config
	db       *sqlx.DB
	logger   *zap.Logger
	auth     *auth.Service
	limiter  *ratelimit.Limiter
	notifier *notify.Notifier
	bridge   *sync.Bridge
	cron     *cron.Cron

	webRouter *gin.Engine
}

// New loads configuration, connects the store and wires the services.
func New(configFile string) (*App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	dsn := db.DSN(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.DBName, cfg.DB.SSLMode)
	dbx, err := db.Connect(dsn)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Bootstrap(dbx); err != nil {
		return nil, err
	}

	a := NewWithDB(cfg, dbx, logger)

	if _, err := a.cron.AddFunc(cfg.Sweep.Schedule, a.runSweep); err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}

	return a, nil
}

// NewWithDB wires the services around an existing database handle. Callers
// that bring their own connection (tests, tooling) skip config loading,
// schema bootstrap and sweep scheduling.
func NewWithDB(cfg config.Config, dbx *sqlx.DB, logger *zap.Logger) *App {
	return &App{
		cfg:      cfg,
		db:       dbx,
		logger:   logger,
		auth:     auth.NewService(dbx, time.Duration(cfg.SessionExpireDays)*24*time.Hour),
		limiter:  ratelimit.New(dbx, cfg.RateLimits),
		notifier: notify.New(dbx, cfg.SMTP, logger),
		bridge:   sync.NewBridge(dbx, logger),
		cron:     cron.New(),
	}
}

func (a *App) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := a.bridge.Sweep(ctx, a.cfg.Sweep.Workers); err != nil {
		a.logger.Error("connection sweep failed", zap.Error(err))
	}
}

// SetWebRouter attaches the HTTP surface built by the api package.
func (a *App) SetWebRouter(r *gin.Engine) { a.webRouter = r }

// Run starts the sweep scheduler and serves HTTP until the listener stops.
func (a *App) Run() error {
	a.cron.Start()

	addr := fmt.Sprintf("%s:%d", a.cfg.WebHost, a.cfg.WebPort)
	a.logger.Info("http listening", zap.String("addr", addr))
	return a.webRouter.Run(addr)
}

func (a *App) Close() error {
	a.cron.Stop()
	_ = a.logger.Sync()
	return a.db.Close()
}

// Accessors used by the api package.

func (a *App) Config() config.Config       { return a.cfg }
func (a *App) DB() *sqlx.DB                { return a.db }
func (a *App) Logger() *zap.Logger         { return a.logger }
func (a *App) Auth() *auth.Service         { return a.auth }
func (a *App) Limiter() *ratelimit.Limiter { return a.limiter }
func (a *App) Notifier() *notify.Notifier  { return a.notifier }
func (a *App) Bridge() *sync.Bridge        { return a.bridge }
