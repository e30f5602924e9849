package sticker

import (
	"context"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/viniciusgp/stickerlot/internal/metrics"
	"github.com/viniciusgp/stickerlot/pkg/gateway"
	"github.com/viniciusgp/stickerlot/pkg/storage"
)

// User-facing texts for the single-sticker path.
const (
	msgStickerDone   = "> Sticker generated!"
	msgStickerFailed = "> Failed to process the image. Please try again."
)

// Persister is the append-only artifact store the pipeline writes to.
type Persister interface {
	Save(ctx context.Context, conversationID, payload string) (*storage.Artifact, error)
}

// Pipeline converts raw images into sticker artifacts, persists them and
// dispatches them back to the conversation. Items are always processed one
// at a time, in the order they were received.
type Pipeline struct {
	store     Persister
	transport gateway.Transport
	logger    zerolog.Logger
}

// Config holds pipeline configuration
type Config struct {
	Store     Persister
	Transport gateway.Transport
	Logger    zerolog.Logger
}

// NewPipeline creates a new media pipeline.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Transport == nil {
		return nil, errors.New("transport is required")
	}

	metrics.EnsureRegistered()

	return &Pipeline{
		store:     cfg.Store,
		transport: cfg.Transport,
		logger:    cfg.Logger.With().Str("module", "pipeline").Logger(),
	}, nil
}

// PersistAndDispatch saves an encoded sticker and sends it to the
// conversation. Transport failures are logged and swallowed; only
// persistence failures propagate.
func (p *Pipeline) PersistAndDispatch(ctx context.Context, conversationID string, encoded []byte) error {
	payload := DataURL(encoded)

	start := time.Now()
	artifact, err := p.store.Save(ctx, conversationID, payload)
	metrics.RecordArtifact(time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("failed to persist sticker: %w", err)
	}

	p.logger.Info().
		Int64("id", artifact.ID).
		Str("conversation_id", artifact.ConversationID).
		Str("payload", truncate(artifact.Payload, 50)).
		Msg("Sticker persisted")

	if err := p.transport.SendSticker(ctx, conversationID, encoded); err != nil {
		metrics.RecordMessageSent(false)
		p.logger.Error().
			Err(err).
			Str("conversation_id", conversationID).
			Msg("Failed to dispatch sticker")
		return nil
	}
	metrics.RecordMessageSent(true)

	return nil
}

// RunBatch converts, persists and dispatches a lot of raw images strictly
// sequentially, preserving arrival order. A failing item is logged and
// skipped; the remaining items are still processed.
func (p *Pipeline) RunBatch(ctx context.Context, conversationID string, items [][]byte) error {
	batchID, err := gonanoid.New()
	if err != nil {
		batchID = "unknown"
	}

	logger := p.logger.With().
		Str("batch_id", batchID).
		Str("conversation_id", conversationID).
		Logger()

	logger.Info().Int("items", len(items)).Msg("Batch started")

	failed := 0
	for i, raw := range items {
		encoded, err := p.convert(raw)
		if err != nil {
			failed++
			logger.Error().Err(err).Int("index", i).Msg("Failed to convert lot item, skipping")
			continue
		}

		if err := p.PersistAndDispatch(ctx, conversationID, encoded); err != nil {
			failed++
			logger.Error().Err(err).Int("index", i).Msg("Failed to persist lot item, skipping")
			continue
		}
	}

	logger.Info().
		Int("items", len(items)).
		Int("failed", failed).
		Msg("Batch finished")

	return nil
}

// SendSingle is the immediate path for a lone sticker-tagged image: convert,
// persist and dispatch one item outside any session. Failures notify the
// user generically.
func (p *Pipeline) SendSingle(ctx context.Context, conversationID string, raw []byte) error {
	encoded, err := p.convert(raw)
	if err != nil {
		p.notifyFailure(ctx, conversationID)
		return fmt.Errorf("failed to convert sticker: %w", err)
	}

	if err := p.PersistAndDispatch(ctx, conversationID, encoded); err != nil {
		p.notifyFailure(ctx, conversationID)
		return err
	}

	if err := p.transport.SendText(ctx, conversationID, msgStickerDone); err != nil {
		p.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to send ack")
	}

	return nil
}

func (p *Pipeline) convert(raw []byte) ([]byte, error) {
	start := time.Now()
	encoded, err := Convert(raw)
	metrics.RecordConvert(time.Since(start))
	return encoded, err
}

func (p *Pipeline) notifyFailure(ctx context.Context, conversationID string) {
	if err := p.transport.SendText(ctx, conversationID, msgStickerFailed); err != nil {
		p.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to send failure notice")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
