package audit_test

import (
	"testing"
	"time"

	"github.com/orgdesk/orgdesk/internal/app/store/audit"
	"github.com/orgdesk/orgdesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_LogAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := primitive.NewObjectID()
	group := primitive.NewObjectID()

	events := []audit.Event{
		{
			Category:  audit.CategoryAdmin,
			EventType: audit.EventGroupCreated,
			ActorID:   &actor,
			GroupID:   &group,
			Success:   true,
			After:     map[string]string{"name": "Platform"},
		},
		{
			Category:  audit.CategoryAdmin,
			EventType: audit.EventGroupArchived,
			ActorID:   &actor,
			GroupID:   &group,
			Success:   true,
		},
		{
			Category:  audit.CategoryAuth,
			EventType: audit.EventLoginFailed,
			Success:   false,
		},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	// Unfiltered query returns everything newest-first.
	got, err := store.Query(ctx, audit.QueryFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for _, e := range got {
		if e.Timestamp.IsZero() {
			t.Error("expected a timestamp on every event")
		}
	}
	if got[0].Timestamp.Before(got[len(got)-1].Timestamp) {
		t.Error("expected newest-first ordering")
	}

	// Category filter.
	got, err = store.Query(ctx, audit.QueryFilter{Category: audit.CategoryAuth})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].EventType != audit.EventLoginFailed {
		t.Errorf("auth filter: got %+v", got)
	}

	// Group filter with event type.
	got, err = store.Query(ctx, audit.QueryFilter{GroupID: &group, EventType: audit.EventGroupCreated})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("group+type filter: got %d events", len(got))
	}
	if got[0].After["name"] != "Platform" {
		t.Errorf("expected diff preserved, got %v", got[0].After)
	}

	// A future time window matches nothing.
	start := time.Now().Add(time.Hour)
	got, err = store.Query(ctx, audit.QueryFilter{StartTime: &start})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("future window: got %d events", len(got))
	}

	// Limit caps the page size.
	got, err = store.Query(ctx, audit.QueryFilter{Limit: 2})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("limit 2: got %d events", len(got))
	}
}
