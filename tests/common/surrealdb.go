// Package common provides shared helpers for integration tests.
package common

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	surrealImage = "surrealdb/surrealdb:v3.0.0"
	surrealPort  = "8000/tcp"

	// Namespace scopes every integration-test database. Suites share the
	// container but never a database, so rows cannot leak across tests.
	Namespace = "tradesim_test"
)

var (
	surrealOnce      sync.Once
	surrealContainer *SurrealDBContainer
	surrealError     error
)

// SurrealDBContainer is the process-wide SurrealDB instance shared by all
// integration tests.
type SurrealDBContainer struct {
	container testcontainers.Container
	address   string
}

// StartSurrealDB starts the shared container on first use. Later calls return
// the same instance.
func StartSurrealDB(t *testing.T) *SurrealDBContainer {
	t.Helper()

	surrealOnce.Do(func() {
		surrealContainer, surrealError = startSurrealDB(context.Background())
	})
	if surrealError != nil {
		t.Fatalf("SurrealDB container failed: %v", surrealError)
	}
	return surrealContainer
}

func startSurrealDB(ctx context.Context) (*SurrealDBContainer, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        surrealImage,
			ExposedPorts: []string{surrealPort},
			Cmd:          []string{"start", "--user", "root", "--pass", "root"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort(surrealPort),
				wait.ForLog("Started web server"),
			).WithDeadline(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start SurrealDB container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("resolve SurrealDB host: %w", err)
	}
	port, err := container.MappedPort(ctx, surrealPort)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("resolve SurrealDB port: %w", err)
	}

	return &SurrealDBContainer{
		container: container,
		address:   fmt.Sprintf("ws://%s:%s/rpc", host, port.Port()),
	}, nil
}

// Address returns the WebSocket RPC address for SurrealDB.
func (c *SurrealDBContainer) Address() string {
	return c.address
}

// Cleanup terminates the container. Call from TestMain if needed.
func (c *SurrealDBContainer) Cleanup() {
	if c != nil && c.container != nil {
		c.container.Terminate(context.Background())
	}
}

// IsolatedDatabase derives a database name unique to the calling test.
// Subtest names carry "/" and spaces, which SurrealDB rejects in identifiers.
func IsolatedDatabase(t *testing.T, prefix string) string {
	t.Helper()
	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("%s_%s_%d", prefix, sanitized, time.Now().UnixNano()%1000000)
}
