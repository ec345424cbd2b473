// Package dbtest sobe um Postgres descartável com as migrações aplicadas.
package dbtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/radieske/matka-exchange/internal/shared/db"
)

// TestDatabase é um container Postgres com o schema do projeto
type TestDatabase struct {
	Container *postgres.PostgresContainer
	DB        *sql.DB
	DSN       string
}

// Setup pula o teste com -short; caso contrário sobe o container e migra
func Setup(t *testing.T) *TestDatabase {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test: requires docker")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("matka_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{
			"test":      "matka-repository",
			"test-name": t.Name(),
		}),
	)
	require.NoError(t, err)

	td := &TestDatabase{Container: container}
	t.Cleanup(func() {
		if td.DB != nil {
			td.DB.Close()
		}
		cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.MigrateUp(dsn, zap.NewNop()))

	conn, err := db.ConnectPostgres(dsn)
	require.NoError(t, err)

	td.DB = conn
	td.DSN = dsn
	return td
}
