package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"tunedeck/core/playlist"
	"tunedeck/db"
	"tunedeck/model"
)

// txState tracks the lifecycle of a Tx. A transaction starts Active and
// resolves exactly once, to either committed or rolled back.
type txState int

const (
	txActive txState = iota
	txCommitted
	txRolledBack
)

var errTxResolved = errors.New("transaction already resolved")

// UnitOfWork opens database transactions that group writes so they commit or
// roll back together. It is a stateless factory; all lifecycle state lives on
// the Tx it returns.
type UnitOfWork struct {
	DB *sql.DB
}

// NewUnitOfWork creates a UnitOfWork backed by the given database.
func NewUnitOfWork(database *sql.DB) *UnitOfWork {
	return &UnitOfWork{DB: database}
}

// Begin starts a transaction for the playlist engines.
func (u *UnitOfWork) Begin(ctx context.Context) (playlist.Tx, error) {
	return u.BeginTx(ctx)
}

// BeginTx starts a transaction and returns the concrete Tx, exposing the
// underlying Queryer for callers outside the playlist engines.
func (u *UnitOfWork) BeginTx(ctx context.Context) (*Tx, error) {
	sqlTx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: sqlTx}, nil
}

// Tx is a single open database transaction. Writes issued through it are
// invisible to other connections until Commit; Rollback after a successful
// Commit is a no-op so it can sit in a defer.
type Tx struct {
	tx    *sql.Tx
	mu    sync.Mutex
	state txState
}

// Queryer exposes the transaction for repository helpers that accept a
// db.Queryer, letting the same SQL serve both pooled and transactional paths.
func (t *Tx) Queryer() db.Queryer {
	return t.tx
}

// CreatePlaylist inserts a playlist inside the transaction.
func (t *Tx) CreatePlaylist(ctx context.Context, p *model.Playlist) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txActive {
		return 0, errTxResolved
	}
	return insertPlaylist(ctx, t.tx, p)
}

// AddTrackToPlaylist inserts a membership row inside the transaction.
func (t *Tx) AddTrackToPlaylist(ctx context.Context, playlistID, trackID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txActive {
		return errTxResolved
	}
	return insertMembership(ctx, t.tx, playlistID, trackID)
}

// Commit makes the transaction's writes durable. Calling it on an already
// resolved transaction is an error.
func (t *Tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txActive {
		return errTxResolved
	}
	if err := t.tx.Commit(); err != nil {
		t.state = txRolledBack
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.state = txCommitted
	return nil
}

// Rollback discards the transaction's writes. After Commit it does nothing,
// and a repeated Rollback is equally harmless.
func (t *Tx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txActive {
		return nil
	}
	t.state = txRolledBack
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}
