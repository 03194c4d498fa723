package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// TickClient is the tick stream client.
	TickClient *Client
	// Roster is the market roster.
	Roster *Roster
	// DelistingWatcher is the delisting announcements watcher.
	DelistingWatcher *Watcher
	// RosterInterval is the roster refresh cadence.
	RosterInterval time.Duration
	// DelistingInterval is the delisting poll cadence.
	DelistingInterval time.Duration
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager manages the lifecycle processes of the market data feeds.
type Manager struct {
	cfg          *ManagerConfig
	jobScheduler gocron.Scheduler
}

// NewManager initializes the fetch manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating job scheduler: %w", err)
	}

	return &Manager{
		cfg:          cfg,
		jobScheduler: scheduler,
	}, nil
}

// refreshRoster reloads the market roster and subscribes any additions on the live
// tick stream.
func (m *Manager) refreshRoster(ctx context.Context) {
	added, err := m.cfg.Roster.Refresh(ctx)
	if err != nil {
		m.cfg.Logger.Error().Msgf("refreshing roster: %v", err)
		return
	}

	if len(added) == 0 {
		return
	}

	m.cfg.Logger.Info().Msgf("%d markets added to the roster", len(added))
	err = m.cfg.TickClient.Subscribe(added)
	if err != nil {
		// The next reconnect subscribes the full set, additions are not lost.
		m.cfg.Logger.Error().Msgf("subscribing %d added markets: %v", len(added), err)
	}
}

// pollDelistings runs a single delisting announcements poll.
func (m *Manager) pollDelistings(ctx context.Context) {
	err := m.cfg.DelistingWatcher.RunOnce(ctx)
	if err != nil {
		m.cfg.Logger.Error().Msgf("polling delistings: %v", err)
	}
}

// Run manages the lifecycle processes of the fetch manager.
func (m *Manager) Run(ctx context.Context) {
	err := m.cfg.DelistingWatcher.WarmUp(ctx)
	if err != nil {
		m.cfg.Logger.Error().Msgf("warming delisting facts: %v", err)
	}
	m.pollDelistings(ctx)
	m.refreshRoster(ctx)

	_, err = m.jobScheduler.NewJob(gocron.DurationJob(m.cfg.RosterInterval),
		gocron.NewTask(func() { m.refreshRoster(ctx) }))
	if err != nil {
		m.cfg.Logger.Error().Msgf("scheduling roster refresh: %v", err)
	}

	_, err = m.jobScheduler.NewJob(gocron.DurationJob(m.cfg.DelistingInterval),
		gocron.NewTask(func() { m.pollDelistings(ctx) }))
	if err != nil {
		m.cfg.Logger.Error().Msgf("scheduling delisting poll: %v", err)
	}

	m.jobScheduler.Start()
	defer func() {
		err := m.jobScheduler.Shutdown()
		if err != nil {
			m.cfg.Logger.Error().Msgf("shutting down job scheduler: %v", err)
		}
	}()

	m.cfg.TickClient.Run(ctx)
}
