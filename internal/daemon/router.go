package daemon

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/viniciusgp/stickerlot/internal/metrics"
	"github.com/viniciusgp/stickerlot/pkg/gateway"
	"github.com/viniciusgp/stickerlot/pkg/lot"
	"github.com/viniciusgp/stickerlot/pkg/sticker"
)

// Inbound caption commands.
const (
	captionSticker = "sticker"
	captionLots    = "sticker lots"
	captionEnd     = "end"
)

// SingleSender is the immediate single-sticker path.
type SingleSender interface {
	SendSingle(ctx context.Context, conversationID string, raw []byte) error
}

// Router dispatches inbound image messages to the lot state machine or the
// immediate sticker path based on their caption.
type Router struct {
	controller  *lot.Controller
	pipeline    SingleSender
	groupFilter *regexp.Regexp
	logger      zerolog.Logger
}

// RouterConfig holds router configuration
type RouterConfig struct {
	Controller *lot.Controller
	Pipeline   SingleSender
	// GroupFilter restricts sticker commands in group conversations to
	// groups whose name matches. Empty disables the filter.
	GroupFilter string
	Logger      zerolog.Logger
}

// NewRouter creates a new message router.
func NewRouter(cfg RouterConfig) (*Router, error) {
	var filter *regexp.Regexp
	if cfg.GroupFilter != "" {
		var err error
		filter, err = regexp.Compile(cfg.GroupFilter)
		if err != nil {
			return nil, err
		}
	}

	return &Router{
		controller:  cfg.Controller,
		pipeline:    cfg.Pipeline,
		groupFilter: filter,
		logger:      cfg.Logger.With().Str("module", "router").Logger(),
	}, nil
}

// Route handles one inbound message. Errors are logged and never propagate:
// a failing message must not take the event loop down with it.
func (r *Router) Route(ctx context.Context, msg gateway.InboundMessage) {
	metrics.RecordMessageReceived()

	// Only image messages participate in the sticker flows.
	if len(msg.Image) == 0 {
		return
	}

	caption := strings.ToLower(strings.TrimSpace(msg.Caption))

	switch caption {
	case captionSticker:
		if !r.allowed(msg) {
			r.logger.Debug().
				Str("conversation_id", msg.ConversationID).
				Str("group", msg.ConversationName).
				Msg("Group does not match filter, ignoring")
			return
		}
		if err := r.pipeline.SendSingle(ctx, msg.ConversationID, msg.Image); err != nil {
			r.logger.Error().
				Err(err).
				Str("conversation_id", msg.ConversationID).
				Msg("Single sticker failed")
		}

	case captionLots:
		if !r.allowed(msg) {
			r.logger.Debug().
				Str("conversation_id", msg.ConversationID).
				Str("group", msg.ConversationName).
				Msg("Group does not match filter, ignoring")
			return
		}
		r.controller.Start(ctx, msg.ConversationID)

	case captionEnd:
		r.controller.End(ctx, msg.ConversationID, msg.Image)

	default:
		if r.controller.Active(msg.ConversationID) {
			r.controller.AddItem(ctx, msg.ConversationID, msg.Image)
		}
	}
}

// allowed applies the group name filter. Direct conversations always pass.
func (r *Router) allowed(msg gateway.InboundMessage) bool {
	if r.groupFilter == nil || !msg.IsGroup {
		return true
	}
	return r.groupFilter.MatchString(msg.ConversationName)
}

// compile-time check that the concrete pipeline satisfies the router's view
var _ SingleSender = (*sticker.Pipeline)(nil)
