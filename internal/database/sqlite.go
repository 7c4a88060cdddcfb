package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // driver: sqlite

	"github.com/examly/session-engine/internal/config"
)

// NewCommunityDB opens the SQLite database backing the community
// practice-set store and ensures its schema exists. Community content is
// user-authored and lives outside the official PostgreSQL cluster.
func NewCommunityDB(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", cfg.CommunityDBPath)
	if err != nil {
		return nil, fmt.Errorf("open community db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping community db: %w", err)
	}

	if _, err := db.ExecContext(ctx, communitySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure community schema: %w", err)
	}

	log.Info().Str("dsn", cfg.CommunityDBPath).Msg("Community SQLite connected")
	return db, nil
}

const communitySchema = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS practice_sets (
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  author_id TEXT NOT NULL,
  time_limit_min INTEGER NOT NULL,
  difficulty TEXT NOT NULL DEFAULT 'mixed',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS practice_questions (
  id TEXT PRIMARY KEY,
  set_id TEXT NOT NULL REFERENCES practice_sets(id) ON DELETE CASCADE,
  body TEXT NOT NULL,
  choices_json TEXT NOT NULL,
  answer_json TEXT NOT NULL,
  hint TEXT,
  position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS practice_sessions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  set_id TEXT NOT NULL REFERENCES practice_sets(id) ON DELETE CASCADE,
  duration_sec INTEGER NOT NULL,
  score INTEGER NOT NULL,
  correct_count INTEGER NOT NULL,
  total_questions INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS practice_attempts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL REFERENCES practice_sessions(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  question_id TEXT NOT NULL,
  selected TEXT NOT NULL,
  is_correct INTEGER NOT NULL
);
`
