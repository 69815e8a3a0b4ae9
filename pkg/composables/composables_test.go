package composables

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type stubTx struct{}

func (stubTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (stubTx) Query(context.Context, string, ...any) (pgx.Rows, error)  { return nil, nil }
func (stubTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (stubTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }

func TestUseTx(t *testing.T) {
	_, err := UseTx(context.Background())
	require.ErrorIs(t, err, ErrNoPool)

	ctx := WithTx(context.Background(), stubTx{})
	tx, err := UseTx(ctx)
	require.NoError(t, err)
	require.Equal(t, stubTx{}, tx)
}

func TestInTx_ReusesAmbientTransaction(t *testing.T) {
	ctx := WithTx(context.Background(), stubTx{})
	called := false
	err := InTx(ctx, func(inner context.Context) error {
		called = true
		tx, err := UseTx(inner)
		require.NoError(t, err)
		require.Equal(t, stubTx{}, tx)
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)

	boom := errors.New("boom")
	require.ErrorIs(t, InTx(ctx, func(context.Context) error { return boom }), boom)
}

func TestInTx_RequiresPool(t *testing.T) {
	err := InTx(context.Background(), func(context.Context) error {
		t.Fatal("fn must not run without a transaction")
		return nil
	})
	require.ErrorIs(t, err, ErrNoPool)
}

func TestUseLogger(t *testing.T) {
	require.Equal(t, logrus.StandardLogger(), UseLogger(context.Background()))

	logger, hook := test.NewNullLogger()
	ctx := WithLogger(context.Background(), logger.WithField("request-id", "r1"))
	UseLogger(ctx).Info("hello")
	require.Equal(t, "r1", hook.LastEntry().Data["request-id"])
}
