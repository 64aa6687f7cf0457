package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pg "db-cleanup/internal/pkg/postgres"
)

// mockDialer выдает заранее подготовленные mock-соединения по очереди
type mockDialer struct {
	t     *testing.T
	dbs   []*sqlx.DB
	users []string
}

func (d *mockDialer) add() sqlmock.Sqlmock {
	db, mock, err := sqlmock.New()
	require.NoError(d.t, err)
	d.dbs = append(d.dbs, sqlx.NewDb(db, "pgx"))
	return mock
}

func (d *mockDialer) dial(_ context.Context, user, _ string) (*sqlx.DB, error) {
	require.NotEmpty(d.t, d.dbs, "unexpected dial")
	db := d.dbs[0]
	d.dbs = d.dbs[1:]
	d.users = append(d.users, user)
	return db, nil
}

// newConnectedSession возвращает открытую сессию и mock ее соединения
func newConnectedSession(t *testing.T) (*pg.Session, sqlmock.Sqlmock, *mockDialer) {
	t.Helper()

	d := &mockDialer{t: t}
	mock := d.add()

	session := pg.NewSession(d.dial, zap.NewNop())
	require.NoError(t, session.Connect(context.Background(), "janitor", "secret"))

	return session, mock, d
}
