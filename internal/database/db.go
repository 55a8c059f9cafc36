// Package database persists scoring payloads and portfolio exposures to
// PostgreSQL.
package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/quantfold/riskpulse/models"
)

// DB represents a database connection.
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters.
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection and ensures the schema exists.
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS macro_scores (
			as_of DATE PRIMARY KEY,
			run_id TEXT NOT NULL,
			macro_mode TEXT NOT NULL,
			global_score DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			transition TEXT NOT NULL,
			channel_scores JSONB NOT NULL,
			reasons TEXT[] NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	// Single-row duplicate of the most recent payload, the "latest" pointer.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS macro_score_latest (
			id SMALLINT PRIMARY KEY CHECK (id = 1),
			as_of DATE NOT NULL,
			run_id TEXT NOT NULL,
			macro_mode TEXT NOT NULL,
			global_score DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			transition TEXT NOT NULL,
			channel_scores JSONB NOT NULL,
			reasons TEXT[] NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS portfolios (
			id TEXT PRIMARY KEY,
			cash_balance DOUBLE PRECISION NOT NULL DEFAULT 0,
			exposures JSONB,
			exposures_as_of DATE
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS portfolio_snapshots (
			portfolio_id TEXT NOT NULL REFERENCES portfolios(id),
			snapshot_date DATE NOT NULL,
			cash_balance DOUBLE PRECISION NOT NULL,
			positions JSONB NOT NULL,
			PRIMARY KEY (portfolio_id, snapshot_date)
		)
	`)
	return err
}

// SaveMacroScore stores the payload keyed by its as-of date and refreshes
// the latest pointer. Both writes are upserts so a rerun for the same date
// overwrites cleanly.
func (db *DB) SaveMacroScore(payload models.MacroScorePayload) error {
	channelScores, err := json.Marshal(payload.ChannelScores)
	if err != nil {
		return fmt.Errorf("encoding channel scores: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO macro_scores (
			as_of, run_id, macro_mode, global_score, confidence, transition, channel_scores, reasons
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (as_of)
		DO UPDATE SET
			run_id = EXCLUDED.run_id,
			macro_mode = EXCLUDED.macro_mode,
			global_score = EXCLUDED.global_score,
			confidence = EXCLUDED.confidence,
			transition = EXCLUDED.transition,
			channel_scores = EXCLUDED.channel_scores,
			reasons = EXCLUDED.reasons
	`,
		payload.AsOf.Format("2006-01-02"), payload.RunID, payload.MacroMode,
		payload.GlobalScore, payload.Confidence, payload.Transition,
		channelScores, pq.Array(payload.Reasons))
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO macro_score_latest (
			id, as_of, run_id, macro_mode, global_score, confidence, transition, channel_scores, reasons
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			as_of = EXCLUDED.as_of,
			run_id = EXCLUDED.run_id,
			macro_mode = EXCLUDED.macro_mode,
			global_score = EXCLUDED.global_score,
			confidence = EXCLUDED.confidence,
			transition = EXCLUDED.transition,
			channel_scores = EXCLUDED.channel_scores,
			reasons = EXCLUDED.reasons
	`,
		payload.AsOf.Format("2006-01-02"), payload.RunID, payload.MacroMode,
		payload.GlobalScore, payload.Confidence, payload.Transition,
		channelScores, pq.Array(payload.Reasons))
	return err
}

// LatestMacroScore retrieves the latest persisted payload, or nil when no
// run has been stored yet.
func (db *DB) LatestMacroScore() (*models.MacroScorePayload, error) {
	var (
		payload       models.MacroScorePayload
		channelScores []byte
		reasons       pq.StringArray
	)

	err := db.QueryRow(`
		SELECT as_of, run_id, macro_mode, global_score, confidence, transition, channel_scores, reasons
		FROM macro_score_latest
		WHERE id = 1
	`).Scan(
		&payload.AsOf, &payload.RunID, &payload.MacroMode, &payload.GlobalScore,
		&payload.Confidence, &payload.Transition, &channelScores, &reasons,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(channelScores, &payload.ChannelScores); err != nil {
		return nil, fmt.Errorf("decoding channel scores: %w", err)
	}
	payload.Reasons = reasons

	return &payload, nil
}

// GetPortfolio loads a portfolio and its snapshots ordered by date.
func (db *DB) GetPortfolio(id string) (*models.Portfolio, error) {
	portfolio := models.Portfolio{ID: id}

	err := db.QueryRow(`
		SELECT cash_balance FROM portfolios WHERE id = $1
	`, id).Scan(&portfolio.CashBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("portfolio %s not found", id)
		}
		return nil, err
	}

	rows, err := db.Query(`
		SELECT snapshot_date, cash_balance, positions
		FROM portfolio_snapshots
		WHERE portfolio_id = $1
		ORDER BY snapshot_date
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			snap      models.PortfolioSnapshot
			date      time.Time
			positions []byte
		)
		if err := rows.Scan(&date, &snap.CashBalance, &positions); err != nil {
			return nil, err
		}
		snap.Date = date
		if err := json.Unmarshal(positions, &snap.Positions); err != nil {
			return nil, fmt.Errorf("decoding positions: %w", err)
		}
		portfolio.Snapshots = append(portfolio.Snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &portfolio, nil
}

// SaveExposures merges the exposure report into the portfolio's own record.
func (db *DB) SaveExposures(report models.ExposureReport) error {
	exposures, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding exposures: %w", err)
	}

	result, err := db.Exec(`
		UPDATE portfolios
		SET exposures = $1, exposures_as_of = $2
		WHERE id = $3
	`, exposures, report.AsOf.Format("2006-01-02"), report.PortfolioID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("portfolio %s not found", report.PortfolioID)
	}
	return nil
}
