package mocks

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// A database whose transactions only record how they ended.
// Statements panic so it only suits code whose repositories are mocked.
type TxRecorder struct {
	pgx.Tx
	Committed  int
	RolledBack int
}

func (self *TxRecorder) Begin(context.Context) (pgx.Tx, error) {
	return &recordedTx{recorder: self}, nil
}

type recordedTx struct {
	pgx.Tx
	recorder *TxRecorder
	closed   bool
}

func (self *recordedTx) Commit(context.Context) error {
	if self.closed {
		return pgx.ErrTxClosed
	}
	self.closed = true
	self.recorder.Committed += 1
	return nil
}

func (self *recordedTx) Rollback(context.Context) error {
	if self.closed {
		return pgx.ErrTxClosed
	}
	self.closed = true
	self.recorder.RolledBack += 1
	return nil
}
