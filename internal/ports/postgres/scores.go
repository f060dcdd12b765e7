// Package postgres archives completed games for leaderboards and history.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"bigtwo/internal/config"
	"bigtwo/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_results (
	id          BIGSERIAL PRIMARY KEY,
	match_id    TEXT        NOT NULL,
	seats       JSONB       NOT NULL,
	totals      JSONB       NOT NULL,
	winners     JSONB       NOT NULL,
	matches     INT         NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS game_results_finished_at_idx ON game_results (finished_at DESC);
`

// Store implements ports.ScoreStore on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens the pool and ensures the schema exists.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) RecordGame(ctx context.Context, result ports.GameResult) error {
	seats, err := json.Marshal(result.Seats)
	if err != nil {
		return err
	}
	totals, err := json.Marshal(result.Totals)
	if err != nil {
		return err
	}
	winners, err := json.Marshal(result.Winners)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO game_results (match_id, seats, totals, winners, matches, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		result.MatchID, seats, totals, winners, result.Matches, result.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

func (s *Store) PlayerHistory(ctx context.Context, userID string, limit int) ([]ports.GameResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT match_id, seats, totals, winners, matches, finished_at
		FROM game_results
		WHERE seats ? $1
		ORDER BY finished_at DESC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query player history: %w", err)
	}
	defer rows.Close()

	var results []ports.GameResult
	for rows.Next() {
		var (
			r       ports.GameResult
			seats   []byte
			totals  []byte
			winners []byte
		)
		if err := rows.Scan(&r.MatchID, &seats, &totals, &winners, &r.Matches, &r.FinishedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(seats, &r.Seats); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(totals, &r.Totals); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(winners, &r.Winners); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
