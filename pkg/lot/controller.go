package lot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/viniciusgp/stickerlot/internal/metrics"
)

// User-facing lot session texts.
const (
	msgStarted = `> Session started! Send the images for the sticker lot now. ` +
		`Put "end" in the caption of the last image when you are done.`
	msgAlreadyActive = `> You already have an active session. Send "end" to finish it.`
	msgItemAdded     = "> Images added to the lot: %d"
	msgItemsSoFar    = "> Images already in the lot: %d"
	msgNoSession     = "> No images were added to the lot, or you never started one!"
	msgLotFinished   = "> Lot finished, sending stickers..."
	msgTimeExpired   = "> Time expired! Sending the lot images..."
)

// Notifier sends acknowledgement texts back into a conversation.
type Notifier interface {
	SendText(ctx context.Context, conversationID, text string) error
}

// BatchRunner processes a finished lot in arrival order.
type BatchRunner interface {
	RunBatch(ctx context.Context, conversationID string, items [][]byte) error
}

// Controller is the lot session state machine. It composes the session
// store, the timer registry and the media pipeline, and serializes all
// transitions per conversation.
type Controller struct {
	store    *Store
	timers   *TimerRegistry
	pipeline BatchRunner
	notifier Notifier
	logger   zerolog.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Config holds controller configuration
type Config struct {
	Store    *Store         // optional, a fresh store is created when nil
	Timers   *TimerRegistry // optional, defaults to DefaultNotifyAfter/DefaultFlushAfter
	Pipeline BatchRunner
	Notifier Notifier
	Logger   zerolog.Logger
}

// NewController creates a new lot session controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if cfg.Store == nil {
		cfg.Store = NewStore()
	}
	if cfg.Timers == nil {
		cfg.Timers = NewTimerRegistry(DefaultNotifyAfter, DefaultFlushAfter)
	}

	metrics.EnsureRegistered()

	return &Controller{
		store:    cfg.Store,
		timers:   cfg.Timers,
		pipeline: cfg.Pipeline,
		notifier: cfg.Notifier,
		logger:   cfg.Logger.With().Str("module", "lot").Logger(),
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// lock returns the mutex serializing transitions for one conversation.
func (c *Controller) lock(conversationID string) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()

	if l, exists := c.locks[conversationID]; exists {
		return l
	}
	l := &sync.Mutex{}
	c.locks[conversationID] = l
	return l
}

// Active reports whether a lot session is in progress for the conversation.
func (c *Controller) Active(conversationID string) bool {
	return c.store.Exists(conversationID)
}

// Start opens a lot session. When one is already active the existing buffer
// is left untouched and the user is told so.
func (c *Controller) Start(ctx context.Context, conversationID string) {
	l := c.lock(conversationID)
	l.Lock()
	defer l.Unlock()

	if !c.store.Create(conversationID) {
		c.sendText(ctx, conversationID, msgAlreadyActive)
		return
	}

	metrics.RecordSessionStarted()
	metrics.SetActiveSessions(c.store.Active())

	c.logger.Info().Str("conversation_id", conversationID).Msg("Lot session started")
	c.sendText(ctx, conversationID, msgStarted)
}

// AddItem appends an image to the active lot, acknowledges the running
// count and re-arms the notify/flush timers. Without an active session this
// is a silent no-op: callers gate on Active.
func (c *Controller) AddItem(ctx context.Context, conversationID string, item []byte) {
	l := c.lock(conversationID)
	l.Lock()
	defer l.Unlock()

	count, ok := c.store.Append(conversationID, item)
	if !ok {
		c.logger.Debug().Str("conversation_id", conversationID).Msg("Item for inactive session dropped")
		return
	}

	metrics.RecordItemBuffered()

	c.logger.Debug().
		Str("conversation_id", conversationID).
		Int("count", count).
		Msg("Image added to lot")

	c.sendText(ctx, conversationID, fmt.Sprintf(msgItemAdded, count))
	c.timers.Reset(conversationID, c.onNotify, c.onFlush)
}

// End finishes the lot. The image carried by the terminating command is
// appended as the final lot item before the batch runs, so the end
// command doubles as a data-carrying event. Session and timers are torn
// down together before the batch is dispatched.
func (c *Controller) End(ctx context.Context, conversationID string, trailing []byte) {
	l := c.lock(conversationID)
	l.Lock()
	defer l.Unlock()

	if !c.store.Exists(conversationID) {
		c.sendText(ctx, conversationID, msgNoSession)
		return
	}

	var count int
	if len(trailing) > 0 {
		count, _ = c.store.Append(conversationID, trailing)
		metrics.RecordItemBuffered()
	} else {
		count, _ = c.store.Len(conversationID)
	}
	c.sendText(ctx, conversationID, fmt.Sprintf(msgItemAdded, count))

	items, _ := c.store.Items(conversationID)
	c.store.Delete(conversationID)
	c.timers.Clear(conversationID)
	metrics.SetActiveSessions(c.store.Active())

	c.logger.Info().
		Str("conversation_id", conversationID).
		Int("items", len(items)).
		Msg("Lot session ended")

	if len(items) == 0 {
		return
	}

	c.sendText(ctx, conversationID, msgLotFinished)
	metrics.RecordBatch("end", len(items))
	if err := c.pipeline.RunBatch(ctx, conversationID, items); err != nil {
		c.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Lot batch failed")
	}
}

// onNotify is the debounce notice: it fires once per reset, reports the
// running count and never re-arms itself.
func (c *Controller) onNotify(conversationID string) {
	ctx := context.Background()

	l := c.lock(conversationID)
	l.Lock()
	defer l.Unlock()

	count, ok := c.store.Len(conversationID)
	if !ok {
		// Session ended between scheduling and firing.
		return
	}

	c.sendText(ctx, conversationID, fmt.Sprintf(msgItemsSoFar, count))
}

// onFlush finalizes a stalled lot: notice, batch run, then teardown.
func (c *Controller) onFlush(conversationID string) {
	ctx := context.Background()

	l := c.lock(conversationID)
	l.Lock()
	defer l.Unlock()

	items, ok := c.store.Items(conversationID)
	if !ok {
		// Already ended explicitly.
		return
	}

	c.logger.Info().
		Str("conversation_id", conversationID).
		Int("items", len(items)).
		Msg("Lot flush timeout fired")

	c.sendText(ctx, conversationID, msgTimeExpired)

	metrics.RecordBatch("flush_timeout", len(items))
	if err := c.pipeline.RunBatch(ctx, conversationID, items); err != nil {
		c.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Lot batch failed")
	}

	c.store.Delete(conversationID)
	c.timers.Clear(conversationID)
	metrics.SetActiveSessions(c.store.Active())
}

// sendText delivers a notice, logging and swallowing transport failures.
func (c *Controller) sendText(ctx context.Context, conversationID, text string) {
	if err := c.notifier.SendText(ctx, conversationID, text); err != nil {
		metrics.RecordMessageSent(false)
		c.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to send notice")
		return
	}
	metrics.RecordMessageSent(true)
}
