// Package postgres provides a PostgreSQL queue transport. Producers insert
// rows into <schema>.messages; the subscriber claims them per topic with
// FOR UPDATE SKIP LOCKED, so several gateway instances can share a table.
// Rows are converted with adapters.SQL.
//
// Ack deletes the row. Nack increments retry_count and hides the row for an
// exponential backoff; a row nacked more than MaxRetries times is marked
// failed and no longer delivered.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/drblury/ingress/internal/runtime/adapters"
	"github.com/drblury/ingress/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "postgres"

const (
	// DefaultPollInterval is the default interval for polling new messages.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultMaxRetries is the default number of nacks before a row fails.
	DefaultMaxRetries = 3
	// DefaultLockTimeout is the default duration a message is locked during processing.
	DefaultLockTimeout = 30 * time.Second
	// DefaultRetryBackoff is the delay after the first nack. It doubles per retry.
	DefaultRetryBackoff = time.Second
	// DefaultSchemaName holds the queue table when no schema is configured.
	DefaultSchemaName = "ingress"
)

var (
	// ErrConnectionStringRequired is returned by New without a connection string.
	ErrConnectionStringRequired = errors.New("postgres: connection string is required")
	// ErrInvalidSchemaName is returned for schema names that are not plain identifiers.
	ErrInvalidSchemaName = errors.New("postgres: invalid schema name")
	// ErrClosed is returned when subscribing on a closed subscriber.
	ErrClosed = errors.New("postgres: subscriber is closed")
)

var schemaNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func init() {
	Register()
}

// Register registers the PostgreSQL transport and its "postgresql" alias
// with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.PostgresCapabilities)
	transport.RegisterWithCapabilities("postgresql", Build, transport.PostgresCapabilities)
}

// Build creates a new PostgreSQL subscriber.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	sub, err := New(ctx, Config{
		ConnectionString: cfg.GetPostgresURL(),
		SchemaName:       cfg.GetPostgresSchema(),
	}, logger)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.PostgresCapabilities
}

// Config holds PostgreSQL-specific configuration.
type Config struct {
	// ConnectionString is the PostgreSQL connection string.
	ConnectionString string
	// PollInterval is the interval for polling new messages.
	PollInterval time.Duration
	// MaxRetries is the number of nacks a row survives.
	MaxRetries int
	// LockTimeout is how long a message stays locked during processing.
	LockTimeout time.Duration
	// RetryBackoff is the delay after the first nack.
	RetryBackoff time.Duration
	// SchemaName is the schema to use for tables. Defaults to "ingress".
	SchemaName string
	// MaxOpenConns sets the maximum number of open connections to the database.
	MaxOpenConns int
	// MaxIdleConns sets the maximum number of idle connections.
	MaxIdleConns int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = DefaultLockTimeout
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.SchemaName == "" {
		c.SchemaName = DefaultSchemaName
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	return c
}

func (c Config) validate() error {
	if c.ConnectionString == "" {
		return ErrConnectionStringRequired
	}
	if !schemaNamePattern.MatchString(c.SchemaName) {
		return fmt.Errorf("%w: %q", ErrInvalidSchemaName, c.SchemaName)
	}
	return nil
}

// Subscriber polls the messages table.
type Subscriber struct {
	db     *sql.DB
	config Config
	logger watermill.LoggerAdapter

	closed     bool
	closedMu   sync.RWMutex
	closedChan chan struct{}
	wg         sync.WaitGroup
}

// New connects to the database and creates the schema and queue table when
// missing.
func New(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (*Subscriber, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	db, err := sql.Open("postgres", cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	s := &Subscriber{
		db:         db,
		config:     cfg,
		logger:     logger,
		closedChan: make(chan struct{}),
	}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// #nosec G201 - schema name is checked against schemaNamePattern in validate()
func (s *Subscriber) query(format string) string {
	return fmt.Sprintf(format, s.config.SchemaName)
}

func (s *Subscriber) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.query(`CREATE SCHEMA IF NOT EXISTS %s`)); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	_, err := s.db.ExecContext(ctx, s.query(`
	CREATE TABLE IF NOT EXISTS %[1]s.messages (
		id BIGSERIAL PRIMARY KEY,
		uuid TEXT,
		topic TEXT NOT NULL,
		payload BYTEA,
		metadata JSONB DEFAULT '{}',
		created_at TIMESTAMPTZ DEFAULT NOW(),
		available_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		locked_until TIMESTAMPTZ,
		retry_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending'
	);

	CREATE INDEX IF NOT EXISTS idx_messages_topic_status_available
		ON %[1]s.messages(topic, status, available_at)
		WHERE status = 'pending';
	`))
	return err
}

// Subscribe polls rows of topic until ctx is done or the subscriber closes.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.closedMu.RLock()
	defer s.closedMu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	msgChan := make(chan *message.Message)
	s.wg.Add(1)
	go s.pollMessages(ctx, topic, msgChan)

	return msgChan, nil
}

func (s *Subscriber) pollMessages(ctx context.Context, topic string, msgChan chan *message.Message) {
	defer s.wg.Done()
	defer close(msgChan)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closedChan:
			return
		case <-ticker.C:
			// drain what is available before waiting for the next tick
			for s.processAvailableMessage(ctx, topic, msgChan) {
			}
		}
	}
}

func (s *Subscriber) fetchAndLockMessage(ctx context.Context, topic string) (*adapters.QueueRow, bool) {
	now := time.Now().UTC()
	lockUntil := now.Add(s.config.LockTimeout)

	var (
		row  adapters.QueueRow
		uuid sql.NullString
	)
	err := s.db.QueryRowContext(ctx, s.query(`
		UPDATE %[1]s.messages
		SET locked_until = $1
		WHERE id = (
			SELECT id FROM %[1]s.messages
			WHERE topic = $2
			AND status = 'pending'
			AND available_at <= $3
			AND (locked_until IS NULL OR locked_until < $3)
			ORDER BY available_at ASC, id ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, uuid, payload, metadata, retry_count
	`), lockUntil, topic, now).Scan(&row.ID, &uuid, &row.Payload, &row.Metadata, &row.RetryCount)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) && ctx.Err() == nil {
			s.logger.Error("failed to fetch and lock message", err, watermill.LogFields{"topic": topic})
		}
		return nil, false
	}
	row.UUID = uuid.String
	return &row, true
}

// processAvailableMessage delivers at most one row and reports whether it did.
func (s *Subscriber) processAvailableMessage(ctx context.Context, topic string, msgChan chan *message.Message) bool {
	row, found := s.fetchAndLockMessage(ctx, topic)
	if !found {
		return false
	}

	msg := adapters.EncodeWatermill(adapters.SQL{}.ToRawMessage(row))
	msg.SetContext(ctx)

	// settle the row even when ctx ends while waiting for the handler
	settleCtx := context.WithoutCancel(ctx)

	select {
	case msgChan <- msg:
	case <-ctx.Done():
		s.unlockMessage(settleCtx, row.ID)
		return false
	case <-s.closedChan:
		s.unlockMessage(settleCtx, row.ID)
		return false
	}

	select {
	case <-msg.Acked():
		s.ackMessage(settleCtx, row.ID)
		return true
	case <-msg.Nacked():
		s.nackMessage(settleCtx, row)
		return true
	case <-ctx.Done():
	case <-s.closedChan:
	}
	s.unlockMessage(settleCtx, row.ID)
	return false
}

func (s *Subscriber) ackMessage(ctx context.Context, id int64) {
	if _, err := s.db.ExecContext(ctx, s.query(`DELETE FROM %s.messages WHERE id = $1`), id); err != nil {
		s.logger.Error("failed to ack message", err, watermill.LogFields{"row_id": id})
	}
}

func (s *Subscriber) nackMessage(ctx context.Context, row *adapters.QueueRow) {
	if row.RetryCount >= s.config.MaxRetries {
		s.logger.Info("Message exceeded max retries, marking failed", watermill.LogFields{
			"row_id":      row.ID,
			"retry_count": row.RetryCount,
		})
		if _, err := s.db.ExecContext(ctx, s.query(`UPDATE %s.messages SET status = 'failed', locked_until = NULL WHERE id = $1`), row.ID); err != nil {
			s.logger.Error("failed to mark message failed", err, watermill.LogFields{"row_id": row.ID})
		}
		return
	}

	availableAt := time.Now().UTC().Add(s.config.RetryBackoff << row.RetryCount)
	if _, err := s.db.ExecContext(ctx, s.query(`
		UPDATE %s.messages
		SET retry_count = retry_count + 1,
		    locked_until = NULL,
		    available_at = $1
		WHERE id = $2
	`), availableAt, row.ID); err != nil {
		s.logger.Error("failed to nack message", err, watermill.LogFields{"row_id": row.ID})
	}
}

func (s *Subscriber) unlockMessage(ctx context.Context, id int64) {
	if _, err := s.db.ExecContext(ctx, s.query(`UPDATE %s.messages SET locked_until = NULL WHERE id = $1`), id); err != nil {
		s.logger.Error("failed to unlock message", err, watermill.LogFields{"row_id": id})
	}
}

// Close stops all pollers and closes the database. It is idempotent.
func (s *Subscriber) Close() error {
	s.closedMu.Lock()
	if s.closed {
		s.closedMu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closedChan)
	s.closedMu.Unlock()

	s.wg.Wait()
	return s.db.Close()
}

// DB returns the underlying database connection for advanced use cases.
func (s *Subscriber) DB() *sql.DB {
	return s.db
}
