package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/velvetdaemon/daemon-bot/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type PostgresJournal struct {
	db *sql.DB
}

func NewPostgresJournal(config DatabaseConfig) (*PostgresJournal, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	journal := &PostgresJournal{db: db}

	// Initialize database schema
	if err := journal.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return journal, nil
}

func (j *PostgresJournal) initializeSchema() error {
	// Read migrations file
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	// Execute migrations
	_, err = j.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (j *PostgresJournal) RecordReply(ctx context.Context, record *models.ReplyRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO replies (id, cast_hash, thread_hash, intent, reply_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := j.db.ExecContext(ctx, query,
		record.ID,
		record.CastHash,
		record.ThreadHash,
		record.Intent,
		record.ReplyHash,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error recording reply: %v", err)
	}

	return nil
}

func (j *PostgresJournal) BotRepliedTo(ctx context.Context, castHash string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM replies WHERE cast_hash = $1)`

	var exists bool
	if err := j.db.QueryRowContext(ctx, query, castHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("error querying reply journal: %v", err)
	}

	return exists, nil
}

func (j *PostgresJournal) RepliesInThread(ctx context.Context, threadHash string) (int, error) {
	query := `SELECT COUNT(*) FROM replies WHERE thread_hash = $1`

	var count int
	if err := j.db.QueryRowContext(ctx, query, threadHash).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting thread replies: %v", err)
	}

	return count, nil
}

func (j *PostgresJournal) Close() error {
	return j.db.Close()
}
