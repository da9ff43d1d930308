// internal/testutil/db.go

// Package testutil provides shared helpers for integration tests: a
// per-test MongoDB database, data fixtures, and authenticated request
// builders.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/orgdesk/orgdesk/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// TestContext returns a context with a generous timeout for one test's
// worth of database calls.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// SetupTestDB connects to a local MongoDB instance and returns a
// database unique to this test. The database is dropped and the client
// disconnected during test cleanup. Tests are skipped when no MongoDB
// is reachable, so the suite still passes on machines without one.
//
// Override the URI with TEST_MONGO_URI.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("mongo connect failed, skipping: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("mongo not reachable at %s, skipping: %v", uri, err)
	}

	name := fmt.Sprintf("orgdesk_test_%s", primitive.NewObjectID().Hex())
	db := client.Database(name)

	// Tests run against the same schema production gets, unique keys
	// included, so duplicate-key paths behave the same here.
	if err := indexes.EnsureAll(ctx, db); err != nil {
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return db
}
