package daemon

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/viniciusgp/stickerlot/pkg/gateway"
)

const laneDepth = 32

// EventLoop fans inbound messages out to one worker per conversation so a
// slow batch in one chat never blocks another, while messages for the same
// conversation keep their arrival order.
type EventLoop struct {
	router *Router
	logger zerolog.Logger

	mu    sync.Mutex
	lanes map[string]chan gateway.InboundMessage
	wg    sync.WaitGroup
}

// NewEventLoop creates a new event loop around the router.
func NewEventLoop(router *Router, logger zerolog.Logger) *EventLoop {
	return &EventLoop{
		router: router,
		logger: logger.With().Str("module", "eventloop").Logger(),
		lanes:  make(map[string]chan gateway.InboundMessage),
	}
}

// Run consumes the inbound channel until it closes or the context ends,
// then drains the per-conversation lanes.
func (e *EventLoop) Run(ctx context.Context, inbound <-chan gateway.InboundMessage) {
	e.logger.Info().Msg("Event loop started")

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Event loop stopping")
			e.closeLanes()
			return

		case msg, ok := <-inbound:
			if !ok {
				e.logger.Info().Msg("Inbound channel closed, event loop stopping")
				e.closeLanes()
				return
			}
			e.dispatch(ctx, msg)
		}
	}
}

// dispatch enqueues the message on its conversation's lane, creating the
// lane worker on first use.
func (e *EventLoop) dispatch(ctx context.Context, msg gateway.InboundMessage) {
	e.mu.Lock()
	lane, exists := e.lanes[msg.ConversationID]
	if !exists {
		lane = make(chan gateway.InboundMessage, laneDepth)
		e.lanes[msg.ConversationID] = lane

		e.wg.Add(1)
		go e.work(ctx, msg.ConversationID, lane)
	}
	e.mu.Unlock()

	select {
	case lane <- msg:
	case <-ctx.Done():
	}
}

func (e *EventLoop) work(ctx context.Context, conversationID string, lane <-chan gateway.InboundMessage) {
	defer e.wg.Done()

	for msg := range lane {
		e.router.Route(ctx, msg)
	}

	e.logger.Debug().Str("conversation_id", conversationID).Msg("Lane drained")
}

func (e *EventLoop) closeLanes() {
	e.mu.Lock()
	for _, lane := range e.lanes {
		close(lane)
	}
	e.lanes = make(map[string]chan gateway.InboundMessage)
	e.mu.Unlock()

	e.wg.Wait()
}
