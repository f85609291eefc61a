package testhelpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage is the image used for storage integration tests.
const PostgresImage = "postgres:16-alpine"

// PostgresContainer is a disposable PostgreSQL server.
type PostgresContainer struct {
	Container testcontainers.Container

	// DSN connects to the test database.
	DSN string
}

// SetupPostgresContainer starts a PostgreSQL container for the test and
// returns its connection string. The container is terminated by t.Cleanup.
//
// The test is skipped in short mode and when no Docker daemon is reachable:
//
//	func TestStore(t *testing.T) {
//	    pg := testhelpers.SetupPostgresContainer(t)
//	    store, err := pgstore.Open(ctx, pg.DSN)
//	    // ...
//	}
func SetupPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping container-based test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "didchain",
			"POSTGRES_PASSWORD": "didchain",
			"POSTGRES_DB":       "didchain",
		},
		// The server restarts once after initdb; wait for the second message.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get PostgreSQL host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get PostgreSQL port: %v", err)
	}

	pg := &PostgresContainer{
		Container: container,
		DSN:       fmt.Sprintf("postgres://didchain:didchain@%s:%d/didchain?sslmode=disable", host, port.Int()),
	}
	t.Logf("PostgreSQL started: %s:%d", host, port.Int())
	return pg
}
