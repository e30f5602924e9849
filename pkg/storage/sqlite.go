package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when no artifact matches a query.
var ErrNotFound = errors.New("storage: artifact not found")

// Artifact is a persisted, converted sticker payload.
type Artifact struct {
	ID             int64
	ConversationID string
	Payload        string // base64 data-URL string
	CreatedAt      time.Time
}

// Store persists sticker artifacts in sqlite. Append-only: artifacts are
// never updated or deleted.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Config holds store configuration
type Config struct {
	DBPath string
	Logger zerolog.Logger
}

// New opens the sticker database, creating it and its schema if needed.
func New(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{
		db:     db,
		logger: cfg.Logger.With().Str("module", "storage").Logger(),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info().Str("path", cfg.DBPath).Msg("Sticker store opened")

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS stickers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_stickers_conversation
			ON stickers(conversation_id, id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Save inserts an artifact and returns the stored row.
func (s *Store) Save(ctx context.Context, conversationID, payload string) (*Artifact, error) {
	if conversationID == "" {
		return nil, errors.New("conversation id is required")
	}
	if payload == "" {
		return nil, errors.New("payload is required")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO stickers (conversation_id, payload) VALUES (?, ?)`,
		conversationID, payload,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert artifact: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact id: %w", err)
	}

	artifact, err := s.byID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read back saved artifact: %w", err)
	}

	s.logger.Debug().
		Int64("id", artifact.ID).
		Str("conversation_id", conversationID).
		Msg("Artifact saved")

	return artifact, nil
}

// LatestByConversation returns the most recently saved artifact for a
// conversation, or ErrNotFound.
func (s *Store) LatestByConversation(ctx context.Context, conversationID string) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, payload, created_at
		 FROM stickers WHERE conversation_id = ?
		 ORDER BY id DESC LIMIT 1`,
		conversationID,
	)
	return scanArtifact(row)
}

// All returns every persisted artifact in insertion order.
func (s *Store) All(ctx context.Context) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, payload, created_at FROM stickers ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.ID, &a.ConversationID, &a.Payload, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read artifacts: %w", err)
	}

	return artifacts, nil
}

// Count returns the number of persisted artifacts.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stickers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count artifacts: %w", err)
	}
	return n, nil
}

func (s *Store) byID(ctx context.Context, id int64) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, payload, created_at FROM stickers WHERE id = ?`,
		id,
	)
	return scanArtifact(row)
}

func scanArtifact(row *sql.Row) (*Artifact, error) {
	var a Artifact
	if err := row.Scan(&a.ID, &a.ConversationID, &a.Payload, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan artifact: %w", err)
	}
	return &a, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
