package daemon

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/viniciusgp/stickerlot/internal/metrics"
	"github.com/viniciusgp/stickerlot/pkg/lot"
	"github.com/viniciusgp/stickerlot/pkg/storage"
)

// Maintenance runs periodic housekeeping: it reports store and session
// stats and keeps the active-session gauge honest.
type Maintenance struct {
	cron     *cron.Cron
	store    *storage.Store
	sessions *lot.Store
	logger   zerolog.Logger
}

// NewMaintenance creates the maintenance scheduler.
func NewMaintenance(store *storage.Store, sessions *lot.Store, logger zerolog.Logger) *Maintenance {
	return &Maintenance{
		cron:     cron.New(),
		store:    store,
		sessions: sessions,
		logger:   logger.With().Str("module", "maintenance").Logger(),
	}
}

// Start schedules the hourly report and starts the scheduler.
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc("@hourly", m.report); err != nil {
		return err
	}
	m.cron.Start()
	m.logger.Debug().Msg("Maintenance scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}

func (m *Maintenance) report() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	active := m.sessions.Active()
	metrics.SetActiveSessions(active)

	count, err := m.store.Count(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to count artifacts")
		return
	}

	m.logger.Info().
		Int64("artifacts", count).
		Int("active_sessions", active).
		Msg("Maintenance report")
}
