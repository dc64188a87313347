// Package sqlite provides a SQLite queue transport. Producers insert rows into
// the messages table; the subscriber polls it per topic and converts rows
// with adapters.SQL.
//
// Ack deletes the row. Nack increments retry_count and hides the row for an
// exponential backoff; a row nacked more than MaxRetries times is marked
// failed and no longer delivered. Times are stored as Unix milliseconds.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/drblury/ingress/internal/runtime/adapters"
	"github.com/drblury/ingress/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "sqlite"

const (
	// DefaultPollInterval is the default interval for polling new messages.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultMaxRetries is the default number of nacks before a row fails.
	DefaultMaxRetries = 3
	// DefaultLockTimeout is how long a delivered row stays hidden from other pollers.
	DefaultLockTimeout = 30 * time.Second
	// DefaultRetryBackoff is the delay after the first nack. It doubles per retry.
	DefaultRetryBackoff = time.Second
)

// ErrClosed is returned when subscribing on a closed subscriber.
var ErrClosed = errors.New("sqlite: subscriber is closed")

func init() {
	Register()
}

// Register registers the SQLite transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.SQLiteCapabilities)
}

// Build creates a new SQLite subscriber.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	sub, err := New(Config{FilePath: cfg.GetSQLitePath(), MaxRetries: DefaultMaxRetries}, logger)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.SQLiteCapabilities
}

// Config holds SQLite-specific configuration.
type Config struct {
	// FilePath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database (useful for testing).
	FilePath string
	// PollInterval is the interval for polling new messages.
	PollInterval time.Duration
	// MaxRetries is the number of nacks a row survives. Zero fails a row on
	// its first nack.
	MaxRetries int
	// LockTimeout is how long a delivered row stays locked.
	LockTimeout time.Duration
	// RetryBackoff is the delay after the first nack.
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.FilePath == "" {
		c.FilePath = "ingress_queue.db"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = DefaultLockTimeout
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	return c
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

// New opens the database and creates the queue table when missing.
func New(cfg Config, logger watermill.LoggerAdapter) (*Subscriber, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	db, err := sql.Open("sqlite3", cfg.FilePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Subscriber{
		db:         db,
		config:     cfg,
		logger:     logger,
		closedChan: make(chan struct{}),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Subscriber) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT,
		topic TEXT NOT NULL,
		payload BLOB,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		available_at INTEGER NOT NULL DEFAULT 0,
		locked_until INTEGER NOT NULL DEFAULT 0,
		retry_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending'
	);

	CREATE INDEX IF NOT EXISTS idx_messages_topic_status ON messages(topic, status, available_at);
	`)
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("failed to begin transaction", err, nil)
		return nil, false
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.logger.Error("failed to rollback transaction", err, nil)
		}
	}()

	now := time.Now().UnixMilli()

	row := tx.QueryRowContext(ctx, `
		SELECT id, uuid, payload, metadata, retry_count
		FROM messages
		WHERE topic = ?
		AND status = 'pending'
		AND available_at <= ?
		AND locked_until < ?
		ORDER BY available_at ASC, id ASC
		LIMIT 1
	`, topic, now, now)

	var (
		fetched  adapters.QueueRow
		uuid     sql.NullString
		metadata sql.NullString
	)
	if err := row.Scan(&fetched.ID, &uuid, &fetched.Payload, &metadata, &fetched.RetryCount); err != nil {
		if !errors.Is(err, sql.ErrNoRows) && ctx.Err() == nil {
			s.logger.Error("failed to scan message", err, watermill.LogFields{"topic": topic})
		}
		return nil, false
	}
	fetched.UUID = uuid.String
	if metadata.Valid {
		fetched.Metadata = []byte(metadata.String)
	}

	lockUntil := now + s.config.LockTimeout.Milliseconds()
	if _, err := tx.ExecContext(ctx, `UPDATE messages SET locked_until = ? WHERE id = ?`, lockUntil, fetched.ID); err != nil {
		s.logger.Error("failed to lock message", err, nil)
		return nil, false
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit lock", err, nil)
		return nil, false
	}

	return &fetched, true
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
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id); err != nil {
		s.logger.Error("failed to ack message", err, watermill.LogFields{"row_id": id})
	}
}

func (s *Subscriber) nackMessage(ctx context.Context, row *adapters.QueueRow) {
	if row.RetryCount >= s.config.MaxRetries {
		s.logger.Info("Message exceeded max retries, marking failed", watermill.LogFields{
			"row_id":      row.ID,
			"retry_count": row.RetryCount,
		})
		if _, err := s.db.ExecContext(ctx, `UPDATE messages SET status = 'failed', locked_until = 0 WHERE id = ?`, row.ID); err != nil {
			s.logger.Error("failed to mark message failed", err, watermill.LogFields{"row_id": row.ID})
		}
		return
	}

	availableAt := time.Now().Add(s.config.RetryBackoff << row.RetryCount).UnixMilli()
	if _, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET retry_count = retry_count + 1,
		    locked_until = 0,
		    available_at = ?
		WHERE id = ?
	`, availableAt, row.ID); err != nil {
		s.logger.Error("failed to nack message", err, watermill.LogFields{"row_id": row.ID})
	}
}

func (s *Subscriber) unlockMessage(ctx context.Context, id int64) {
	if _, err := s.db.ExecContext(ctx, `UPDATE messages SET locked_until = 0 WHERE id = ?`, id); err != nil {
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

// DB returns the underlying database, for producers sharing the file.
func (s *Subscriber) DB() *sql.DB {
	return s.db
}

// PendingCount returns the number of rows of topic still to be delivered.
func (s *Subscriber) PendingCount(topic string) (int64, error) {
	return s.countByStatus(topic, "pending")
}

// FailedCount returns the number of rows of topic that exceeded MaxRetries.
func (s *Subscriber) FailedCount(topic string) (int64, error) {
	return s.countByStatus(topic, "failed")
}

func (s *Subscriber) countByStatus(topic, status string) (int64, error) {
	var count int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE topic = ? AND status = ?`, topic, status).Scan(&count)
	return count, err
}
