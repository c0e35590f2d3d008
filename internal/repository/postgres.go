package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"artifact-chat/internal/domain"
)

const DefaultMessagesTable = "messages"

// PostgresStore keeps chat history in a Postgres table.
type PostgresStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

// OpenPostgres opens and pings a lib/pq connection pool.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("repository: postgres DSN must not be empty")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB, table string) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("repository: db must not be nil")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		table = DefaultMessagesTable
	}
	return &PostgresStore{db: db, table: table, now: time.Now}, nil
}

func (s *PostgresStore) quotedTable() string {
	return pq.QuoteIdentifier(s.table)
}

func (s *PostgresStore) migrateStatements() []string {
	t := s.quotedTable()
	idx := pq.QuoteIdentifier(s.table + "_user_artifact_ts")
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + t + ` (
			id          BIGSERIAL PRIMARY KEY,
			user_id     TEXT NOT NULL,
			artifact_id TEXT NOT NULL,
			role        TEXT NOT NULL,
			content     TEXT NOT NULL,
			timestamp   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS ` + idx + ` ON ` + t + ` (user_id, artifact_id, timestamp DESC)`,
	}
}

// Migrate creates the messages table and its lookup index when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.migrateStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("repository: migrate %s: %w", s.table, err)
		}
	}
	return nil
}

func (s *PostgresStore) historyQuery() string {
	return `SELECT role, content, timestamp FROM ` + s.quotedTable() +
		` WHERE user_id = $1 AND artifact_id = $2 ORDER BY timestamp DESC, id DESC LIMIT $3`
}

func (s *PostgresStore) insertQuery() string {
	return `INSERT INTO ` + s.quotedTable() +
		` (user_id, artifact_id, role, content, timestamp) VALUES ($1, $2, $3, $4, $5)`
}

// GetHistory returns up to limit of the most recent messages, oldest first.
func (s *PostgresStore) GetHistory(ctx context.Context, userID, artifactID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, s.historyQuery(), userID, artifactID, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: GetHistory query: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		m := domain.Message{UserID: userID, ArtifactID: artifactID}
		if err := rows.Scan(&m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("repository: GetHistory scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: GetHistory rows: %w", err)
	}
	reverse(msgs)
	return msgs, nil
}

// SaveExchange inserts the user message and the assistant reply in one transaction.
func (s *PostgresStore) SaveExchange(ctx context.Context, userID, artifactID, question, answer string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: SaveExchange begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now().UTC()
	insert := s.insertQuery()
	if _, err = tx.ExecContext(ctx, insert, userID, artifactID, domain.RoleUser, question, now); err != nil {
		return fmt.Errorf("repository: SaveExchange user message: %w", err)
	}
	if _, err = tx.ExecContext(ctx, insert, userID, artifactID, domain.RoleAssistant, answer, now); err != nil {
		return fmt.Errorf("repository: SaveExchange assistant message: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("repository: SaveExchange commit: %w", err)
	}
	return nil
}
