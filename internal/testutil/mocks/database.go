package mocks

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gobill/billing-service/internal/domain/ports"
)

// StubDBTX is a no-op executor handed to repository mocks in service tests.
// The repository layer is mocked above it, so no query ever reaches it.
type StubDBTX struct{}

var _ ports.DBTX = (*StubDBTX)(nil)

func (StubDBTX) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (StubDBTX) Query(ctx context.Context, sql string, arguments ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (StubDBTX) QueryRow(ctx context.Context, sql string, arguments ...interface{}) pgx.Row {
	return nil
}

// StubTransactionManager runs transaction callbacks inline against a StubDBTX,
// so service tests exercise the code inside WithTransaction without a
// database.
type StubTransactionManager struct {
	DB StubDBTX
}

var _ ports.TransactionManager = (*StubTransactionManager)(nil)

func (s *StubTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.DBTX) error) error {
	return fn(ctx, s.DB)
}

func (s *StubTransactionManager) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.DBTX) error) error {
	return fn(ctx, s.DB)
}
