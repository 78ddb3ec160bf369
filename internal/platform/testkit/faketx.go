package testkit

import (
	"context"

	"habitreward/internal/platform/store"
)

// FakeTx is a TxRunner for service tests. Tx hands the runner itself to fn so
// repos bound inside the transaction see the same fake. Direct query methods
// panic, individual tests swap them when a call is expected
type FakeTx struct {
	ExecFn     func(ctx context.Context, sql string, args ...any) (store.CommandTag, error)
	QueryFn    func(ctx context.Context, sql string, args ...any) (store.Rows, error)
	QueryRowFn func(ctx context.Context, sql string, args ...any) store.Row
}

var _ store.TxRunner = (*FakeTx)(nil)

// Tx runs fn against the fake itself
func (f *FakeTx) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	return fn(f)
}

// Exec delegates to ExecFn or panics when unused
func (f *FakeTx) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	if f.ExecFn == nil {
		panic("testkit: FakeTx.Exec not wired")
	}
	return f.ExecFn(ctx, sql, args...)
}

// Query delegates to QueryFn or panics when unused
func (f *FakeTx) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	if f.QueryFn == nil {
		panic("testkit: FakeTx.Query not wired")
	}
	return f.QueryFn(ctx, sql, args...)
}

// QueryRow delegates to QueryRowFn or panics when unused
func (f *FakeTx) QueryRow(ctx context.Context, sql string, args ...any) store.Row {
	if f.QueryRowFn == nil {
		panic("testkit: FakeTx.QueryRow not wired")
	}
	return f.QueryRowFn(ctx, sql, args...)
}
