package mongodb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
)

// TestURIEnv names the variable that enables integration tests against a real server.
const TestURIEnv = "SURFIN_TEST_MONGO_URI"

// NewTestConnection connects to a throwaway database named after the test, or skips the
// test when SURFIN_TEST_MONGO_URI is unset. The database is dropped on cleanup.
func NewTestConnection(t testing.TB) *Connection {
	t.Helper()
	uri := os.Getenv(TestURIEnv)
	if uri == "" {
		t.Skipf("%s not set; skipping mongo integration test", TestURIEnv)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := Connect(ctx, config.MongoConfig{
		URI:                   uri,
		Database:              fmt.Sprintf("surfin_test_%s", uuid.NewString()[:8]),
		ConnectTimeoutSeconds: 5,
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = conn.Database().Drop(ctx)
		_ = conn.Close(ctx)
	})
	return conn
}
