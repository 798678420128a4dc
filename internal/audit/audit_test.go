package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/auto-analyst/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestLogAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entry := Entry{
		ID:            "test-1",
		ActorType:     ActorOperator,
		ActorID:       "cli",
		Action:        ActionFactRevised,
		SessionID:     "s1",
		Phase:         "documentation",
		Subject:       "analysis.payment_model",
		Summary:       "Payment model revised",
		PreviousValue: "cash on delivery",
		NewValue:      "card online",
	}

	if err := store.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := store.GetByID(ctx, "test-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if got.ActorType != ActorOperator {
		t.Errorf("ActorType = %q, want %q", got.ActorType, ActorOperator)
	}
	if got.Action != ActionFactRevised {
		t.Errorf("Action = %q, want %q", got.Action, ActionFactRevised)
	}
	if got.Subject != "analysis.payment_model" {
		t.Errorf("Subject = %q", got.Subject)
	}
	if got.PreviousValue != "cash on delivery" || got.NewValue != "card online" {
		t.Errorf("values = %q -> %q", got.PreviousValue, got.NewValue)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestLogDefaults(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Log(ctx, Entry{Action: ActionSessionCreated, SessionID: "s1", Summary: "created"}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := store.Query(ctx, QueryFilter{SessionID: "s1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("expected generated ID")
	}
	if entries[0].ActorType != ActorSystem {
		t.Errorf("expected system actor by default, got %q", entries[0].ActorType)
	}
}

func seed(t *testing.T, store *Store) {
	t.Helper()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ActorType: ActorSystem, Action: ActionSessionCreated, SessionID: "s1", Summary: "created"},
		{ActorType: ActorOperator, Action: ActionFactRecorded, SessionID: "s1", Subject: "analysis.goals", Summary: "goals"},
		{ActorType: ActorOperator, Action: ActionDecisionCommitted, SessionID: "s1", Subject: "opt-a", Summary: "decided"},
		{ActorType: ActorCollaborator, Action: ActionCollaboratorFail, SessionID: "s2", Summary: "search timed out"},
	}
	for i, e := range entries {
		e.Timestamp = base.Add(time.Duration(i) * time.Minute)
		if err := store.Log(context.Background(), e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	seed(t, store)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter QueryFilter
		want   int
	}{
		{"all", QueryFilter{}, 4},
		{"session", QueryFilter{SessionID: "s1"}, 3},
		{"actor", QueryFilter{ActorType: ActorOperator}, 2},
		{"action", QueryFilter{Action: ActionDecisionCommitted}, 1},
		{"subject", QueryFilter{Subject: "analysis.goals"}, 1},
		{"limit", QueryFilter{Limit: 2}, 2},
		{"offset without limit", QueryFilter{Offset: 3}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}
}

func TestQueryOrdering(t *testing.T) {
	store := setupStore(t)
	seed(t, store)
	ctx := context.Background()

	newest, err := store.Query(ctx, QueryFilter{SessionID: "s1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if newest[0].Action != ActionDecisionCommitted {
		t.Errorf("expected newest first, got %q", newest[0].Action)
	}

	timeline, err := store.Query(ctx, QueryFilter{SessionID: "s1", Chronological: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if timeline[0].Action != ActionSessionCreated {
		t.Errorf("expected oldest first, got %q", timeline[0].Action)
	}
}

func TestQuerySinceUntil(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	since := time.Date(2026, 5, 1, 10, 1, 0, 0, time.UTC)
	until := time.Date(2026, 5, 1, 10, 2, 0, 0, time.UTC)
	got, err := store.Query(context.Background(), QueryFilter{Since: &since, Until: &until})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 entries in range, got %d", len(got))
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	n, err := store.DeleteBefore(context.Background(), time.Date(2026, 5, 1, 10, 2, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := setupStore(t)
	if _, err := store.GetByID(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing entry")
	}
}

func newRouter(store *Store) *chi.Mux {
	r := chi.NewRouter()
	RegisterRoutes(r, store)
	r.Get("/api/sessions/{sessionID}/audit", HandleQuery(store, "sessionID"))
	return r
}

func TestHTTPGetByID(t *testing.T) {
	store := setupStore(t)
	if err := store.Log(context.Background(), Entry{ID: "e1", Action: ActionPhaseChanged, SessionID: "s1", Summary: "analysis -> solution"}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	r := newRouter(store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit/e1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got Entry
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Summary != "analysis -> solution" {
		t.Errorf("Summary = %q", got.Summary)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHTTPSessionTimeline(t *testing.T) {
	store := setupStore(t)
	seed(t, store)
	r := newRouter(store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/s1/audit?actor=operator", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []Entry
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].Action != ActionFactRecorded {
		t.Errorf("unexpected timeline: %+v", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/none/audit", nil))
	if rec.Body.String() != "[]\n" {
		t.Errorf("expected empty array, got %q", rec.Body.String())
	}
}
