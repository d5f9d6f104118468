package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/database/dbtest"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/repository"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// setupPostgres starts a PostgreSQL container with the client tables
// migrated and returns a repository over it
func setupPostgres(t *testing.T) (*repository.ClientRepository, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "hydra",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/hydra?sslmode=disable", host, port.Port())

	// The port can accept connections before postgres is ready
	for i := 0; i < 10; i++ {
		if err = dbtest.MigratePostgres(dsn); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err)

	repo, err := repository.Open(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo, dsn
}
