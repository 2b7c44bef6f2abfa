package daemon

import (
	"context"

	"github.com/mgaspar301/txtpay/internal/avatar"
	"github.com/mgaspar301/txtpay/internal/bus"
	"github.com/mgaspar301/txtpay/internal/config"
	"github.com/mgaspar301/txtpay/internal/ingest"
	"github.com/mgaspar301/txtpay/internal/lock"
	"github.com/mgaspar301/txtpay/internal/logging"
	"github.com/mgaspar301/txtpay/internal/notify"
	"github.com/mgaspar301/txtpay/internal/rates"
	"github.com/mgaspar301/txtpay/internal/render"
	"github.com/mgaspar301/txtpay/internal/session"
	"github.com/mgaspar301/txtpay/internal/status"
	"github.com/mgaspar301/txtpay/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string // optional override for testing; empty = use default
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideDirectory,
			providePrices,
			provideIcons,
			provideSink,
			bindSink,
			provideOrchestrator,
			bindNotifier,
			provideEngine,
			NewHandlers,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() *config.Config {
	return config.LoadOrDefault(session.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

// storeDirectory adapts the store to the pipeline's directory port.
type storeDirectory struct {
	db *store.DB
}

func (d *storeDirectory) ConversationBySender(_ context.Context, senderID string) (notify.Conversation, bool, error) {
	conv, err := d.db.GetConversationBySender(senderID)
	if err != nil {
		return notify.Conversation{}, false, err
	}
	if conv == nil {
		return notify.Conversation{}, false, nil
	}
	return notify.Conversation{
		Key:         conv.ID,
		DisplayName: conv.Name,
		AvatarURL:   conv.AvatarURL,
		Accepted:    conv.Accepted,
	}, true, nil
}

func provideDirectory(db *store.DB) notify.ConversationDirectory {
	return &storeDirectory{db: db}
}

func providePrices(cfg *config.Config) notify.PriceConverter {
	return rates.NewClient(cfg.Rates.Endpoint, cfg.Rates.Currency)
}

func provideIcons() notify.IconFetcher {
	return avatar.NewFetcher()
}

func provideSink(b *bus.Bus, logger *zap.Logger) *render.BusSink {
	return render.NewBusSink(b, logger)
}

func bindSink(s *render.BusSink) notify.Sink {
	return s
}

func provideOrchestrator(
	dir notify.ConversationDirectory,
	prices notify.PriceConverter,
	icons notify.IconFetcher,
	sink notify.Sink,
	cfg *config.Config,
	b *bus.Bus,
	logger *zap.Logger,
) *notify.Orchestrator {
	return notify.NewOrchestrator(
		dir, prices, icons, sink,
		notify.Capabilities{
			SupportsInlineReply:       cfg.Notify.SupportsInlineReply,
			SupportsPerMessageActions: cfg.Notify.SupportsPerMessageAction,
		},
		notify.Policy{ClearUnreadOnForeground: cfg.Notify.ClearUnreadOnForeground},
		b,
		logger,
	)
}

func bindNotifier(o *notify.Orchestrator) ingest.Notifier {
	return o
}

func provideEngine(db *store.DB, b *bus.Bus, notifier ingest.Notifier, logger *zap.Logger) *ingest.Engine {
	return ingest.NewEngine(db, b, notifier, logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, engine *ingest.Engine, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start ingest engine (subscribes to transport.* bus events).
			engine.Start(context.Background())

			// Start API server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("API server error", zap.Error(err))
					_ = machine.Transition(status.Error)
				}
			}()

			if err := machine.Transition(status.Ready); err != nil {
				return err
			}
			logger.Info("daemon ready")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = machine.Transition(status.Stopping)
			engine.Stop()
			srv.Stop(ctx)
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
