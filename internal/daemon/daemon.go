package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/viniciusgp/stickerlot/internal/config"
	"github.com/viniciusgp/stickerlot/internal/logger"
	"github.com/viniciusgp/stickerlot/internal/metrics"
	"github.com/viniciusgp/stickerlot/pkg/gateway"
	"github.com/viniciusgp/stickerlot/pkg/lot"
	"github.com/viniciusgp/stickerlot/pkg/sticker"
	"github.com/viniciusgp/stickerlot/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

// Daemon wires the sticker bot together: bridge connection, router, lot
// controller, media pipeline, artifact store and keepalive server.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	store      *storage.Store
	sessions   *lot.Store
	bridge     *gateway.Client
	pipeline   *sticker.Pipeline
	controller *lot.Controller
	router     *Router

	eventLoop   *EventLoop
	keepalive   *KeepaliveServer
	maintenance *Maintenance
}

// New creates a daemon from validated configuration.
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	metrics.EnsureRegistered()

	store, err := storage.New(storage.Config{
		DBPath: filepath.Join(cfg.DataDir, "db", "stickers.db"),
		Logger: log.Zerolog(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sticker store: %w", err)
	}

	d := &Daemon{
		config:   cfg,
		logger:   log,
		store:    store,
		sessions: lot.NewStore(),
	}

	d.keepalive = NewKeepaliveServer(cfg.Server.Host, cfg.Server.Port, log.Zerolog())
	d.maintenance = NewMaintenance(store, d.sessions, log.Zerolog())

	return d, nil
}

// Run connects to the bridge and processes messages until the context ends
// or the bridge connection is lost.
func (d *Daemon) Run(ctx context.Context) error {
	bridge, err := gateway.Dial(ctx, gateway.Config{
		URL: d.config.Bridge.URL,
		Meta: gateway.StickerMeta{
			Pack:   d.config.Sticker.Pack,
			Author: d.config.Sticker.Author,
		},
		Logger: d.logger.Zerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to bridge: %w", err)
	}
	d.bridge = bridge

	d.pipeline, err = sticker.NewPipeline(sticker.Config{
		Store:     d.store,
		Transport: bridge,
		Logger:    d.logger.Zerolog(),
	})
	if err != nil {
		return err
	}

	timers := lot.NewTimerRegistry(
		time.Duration(d.config.Session.NotifyAfterMs)*time.Millisecond,
		time.Duration(d.config.Session.FlushAfterMs)*time.Millisecond,
	)

	d.controller, err = lot.NewController(lot.Config{
		Store:    d.sessions,
		Timers:   timers,
		Pipeline: d.pipeline,
		Notifier: bridge,
		Logger:   d.logger.Zerolog(),
	})
	if err != nil {
		return err
	}

	d.router, err = NewRouter(RouterConfig{
		Controller:  d.controller,
		Pipeline:    d.pipeline,
		GroupFilter: d.config.Bridge.GroupFilter,
		Logger:      d.logger.Zerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	d.keepalive.Start()
	if err := d.maintenance.Start(); err != nil {
		return fmt.Errorf("failed to start maintenance: %w", err)
	}

	d.logger.Info().
		Int("port", d.config.Server.Port).
		Str("bridge", d.config.Bridge.URL).
		Msg("Sticker bot running")

	d.eventLoop = NewEventLoop(d.router, d.logger.Zerolog())
	d.eventLoop.Run(ctx, bridge.Inbound())

	return d.shutdown()
}

func (d *Daemon) shutdown() error {
	d.logger.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	d.maintenance.Stop()

	if err := d.keepalive.Shutdown(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("Keepalive shutdown failed")
	}

	if d.bridge != nil {
		if err := d.bridge.Close(); err != nil {
			d.logger.Warn().Err(err).Msg("Bridge close failed")
		}
	}

	if err := d.store.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("Store close failed")
	}

	d.logger.Info().Msg("Shutdown complete")
	return nil
}
