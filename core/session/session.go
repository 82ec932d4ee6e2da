// Package session manages the single live database connection. A Session
// walks a small state machine (Disconnected -> Connecting -> Connected) and
// serializes all connection and transaction access behind one mutex: SQL
// sessions are not safe for concurrent statement issuance, so callers from
// any goroutine funnel through Transact one at a time.
package session

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/chenhy0213/test-tool-with-db/core/config"
	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/logging"
	"github.com/chenhy0213/test-tool-with-db/core/observability"
	"github.com/chenhy0213/test-tool-with-db/core/shared/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// State is the connection lifecycle state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Session owns one logical database connection.
type Session struct {
	mu     sync.Mutex
	cfg    config.DatabaseConfig
	driver string
	db     *sql.DB
	state  State
	log    logging.Logger
}

// New creates a disconnected session for the given database block.
func New(cfg config.DatabaseConfig) *Session {
	return &Session{
		cfg: cfg,
		log: logging.New("Session"),
	}
}

// Wrap adopts an already opened database handle as a connected session.
// Embedders that manage their own sql.DB use this instead of Connect; the
// caller keeps responsibility for pool sizing and handle lifetime.
func Wrap(db *sql.DB, driver string) *Session {
	return &Session{
		driver: driver,
		db:     db,
		state:  Connected,
		log:    logging.New("Session"),
	}
}

// Connect establishes the connection. An already connected session is closed
// first, so Connect doubles as reconnect. On failure the state returns to
// Disconnected and the error carries CONNECTION_ERROR.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	s.state = Connecting

	driverName, dsn, err := BuildDSN(s.cfg)
	if err != nil {
		s.state = Disconnected
		return errors.WrapError(errors.ErrCodeConnectionError, "invalid database configuration", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		s.state = Disconnected
		return errors.WrapError(errors.ErrCodeConnectionError, "failed to open database connection", err)
	}

	// One live connection: statements from one execution must all see the
	// same transaction, and the tool promises a single session.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		s.state = Disconnected
		observability.RecordSessionOperation(ctx, driverName, "connect", false, float64(time.Since(start).Milliseconds()))
		return errors.WrapError(errors.ErrCodeConnectionError, "failed to connect to database", err)
	}

	s.driver = driverName
	s.db = db
	s.state = Connected
	observability.RecordSessionOperation(ctx, driverName, "connect", true, float64(time.Since(start).Milliseconds()))
	s.log.Infof("Connected to %s database '%s' at %s:%d", driverName, s.cfg.Database, s.cfg.Host, s.cfg.Port)
	return nil
}

// Close tears down the connection. Closing a disconnected session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		s.state = Disconnected
		return nil
	}

	err := s.db.Close()
	s.db = nil
	s.state = Disconnected
	s.log.Info("Database connection closed")
	return err
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connected reports whether the session holds a live connection.
func (s *Session) Connected() bool {
	return s.State() == Connected
}

// Driver returns the active driver name, empty when disconnected.
func (s *Session) Driver() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver
}

// Ping verifies the connection is still alive and demotes the session to
// Disconnected when it is not.
func (s *Session) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Connected || s.db == nil {
		return errors.NewAppError(errors.ErrCodeConnectionError, "database is not connected", nil)
	}

	if err := s.db.PingContext(ctx); err != nil {
		s.db.Close()
		s.db = nil
		s.state = Disconnected
		return errors.WrapError(errors.ErrCodeConnectionError, "database connection lost", err)
	}
	return nil
}

// Transact runs fn inside one explicit transaction, holding the session
// mutex for the whole execution so statement sequences never interleave.
// The transaction commits only when fn returns nil; any error (or panic)
// rolls back and the original failure is surfaced unchanged. Calling
// Transact on a session that is not Connected fails with CONNECTION_ERROR
// before any network activity.
func (s *Session) Transact(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Connected || s.db == nil {
		return errors.NewAppError(errors.ErrCodeConnectionError, "database is not connected", nil)
	}

	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		// Failing to even start a transaction means the connection is gone.
		s.db.Close()
		s.db = nil
		s.state = Disconnected
		observability.RecordSessionOperation(ctx, s.driver, "begin", false, float64(time.Since(start).Milliseconds()))
		return errors.WrapError(errors.ErrCodeDatabaseError, "failed to begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.log.Errorf("Rollback failed: %v", rbErr)
		}
		observability.RecordSessionOperation(ctx, s.driver, "transaction", false, float64(time.Since(start).Milliseconds()))
		return err
	}

	if err := tx.Commit(); err != nil {
		observability.RecordSessionOperation(ctx, s.driver, "transaction", false, float64(time.Since(start).Milliseconds()))
		return errors.WrapError(errors.ErrCodeDatabaseError, "failed to commit transaction", err)
	}

	observability.RecordSessionOperation(ctx, s.driver, "transaction", true, float64(time.Since(start).Milliseconds()))
	return nil
}
