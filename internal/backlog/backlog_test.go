package backlog

import (
	"context"
	"testing"

	"github.com/ziadkadry99/auto-analyst/internal/db"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	_, err = database.Exec(`INSERT INTO sessions (id, phase, status, snapshot, created_at, updated_at)
		VALUES ('s1', 'documentation', 'active', '{}', datetime('now'), datetime('now'))`)
	if err != nil {
		t.Fatalf("inserting session: %v", err)
	}
	return NewStore(database)
}

func sampleGeneration(n int) Generation {
	return Generation{
		Number: n,
		Epics: []Epic{
			{ID: "epic-checkout", Title: "Checkout", Goal: "Customers can pay online", Source: "feature:Checkout"},
			{ID: "epic-payment", Title: "Payment: Stripe Checkout", Source: "decision"},
		},
		Stories: []Story{
			{
				ID:     "epic-checkout/story-1",
				EpicID: "epic-checkout",
				Title:  "As a customer, I want to pay by card, so that I can order without calling",
				AcceptanceCriteria: []Criterion{
					{Given: "a filled basket", When: "I pay with a valid card", Then: "the order is confirmed"},
				},
				Status:    StatusValidated,
				DependsOn: []string{"epic-payment/story-1"},
			},
			{
				ID:     "epic-payment/story-1",
				EpicID: "epic-payment",
				Title:  "Pay",
				Status: StatusRejected,
			},
		},
		Violations: []Violation{
			{Rule: "story_title_not_benefit_form", Severity: SeverityBlocking, EpicID: "epic-payment", StoryID: "epic-payment/story-1", Message: "title must read As a ..."},
			{Rule: "story_missing_estimate", Severity: SeverityAdvisory, StoryID: "epic-checkout/story-1", Message: "no estimate"},
		},
	}
}

func TestSaveAndLatest(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.SaveGeneration(ctx, "s1", sampleGeneration(1)); err != nil {
		t.Fatalf("SaveGeneration: %v", err)
	}

	g, err := store.Latest(ctx, "s1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if g == nil {
		t.Fatal("expected a generation")
	}
	if g.Number != 1 {
		t.Errorf("expected generation 1, got %d", g.Number)
	}
	if len(g.Epics) != 2 || g.Epics[0].ID != "epic-checkout" {
		t.Fatalf("unexpected epics: %+v", g.Epics)
	}
	if len(g.Epics[0].StoryIDs) != 1 || g.Epics[0].StoryIDs[0] != "epic-checkout/story-1" {
		t.Errorf("story ids not rebuilt: %v", g.Epics[0].StoryIDs)
	}

	story := g.Stories[0]
	if len(story.AcceptanceCriteria) != 1 || !story.AcceptanceCriteria[0].Complete() {
		t.Errorf("criteria not round-tripped: %+v", story.AcceptanceCriteria)
	}
	if story.Status != StatusValidated {
		t.Errorf("expected validated, got %s", story.Status)
	}
	if len(story.DependsOn) != 1 {
		t.Errorf("dependencies lost: %v", story.DependsOn)
	}
	if len(g.Violations) != 2 || g.Violations[0].Severity != SeverityBlocking {
		t.Errorf("unexpected violations: %+v", g.Violations)
	}
}

func TestLatestWithoutGenerations(t *testing.T) {
	store := setupTestStore(t)
	g, err := store.Latest(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if g != nil {
		t.Errorf("expected nil, got %+v", g)
	}
}

func TestSaveGenerationReplacesRows(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.SaveGeneration(ctx, "s1", sampleGeneration(1)); err != nil {
		t.Fatalf("SaveGeneration: %v", err)
	}
	smaller := sampleGeneration(1)
	smaller.Epics = smaller.Epics[:1]
	smaller.Stories = smaller.Stories[:1]
	smaller.Violations = nil
	if err := store.SaveGeneration(ctx, "s1", smaller); err != nil {
		t.Fatalf("SaveGeneration again: %v", err)
	}

	g, err := store.Get(ctx, "s1", 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(g.Epics) != 1 || len(g.Stories) != 1 || len(g.Violations) != 0 {
		t.Errorf("expected rows replaced, got %d epics %d stories %d violations", len(g.Epics), len(g.Stories), len(g.Violations))
	}
}

func TestLatestPicksHighestGeneration(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, n := range []int{1, 3, 2} {
		if err := store.SaveGeneration(ctx, "s1", sampleGeneration(n)); err != nil {
			t.Fatalf("SaveGeneration %d: %v", n, err)
		}
	}
	g, err := store.Latest(ctx, "s1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if g.Number != 3 {
		t.Errorf("expected generation 3, got %d", g.Number)
	}
}

func TestCountBySeverity(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	if err := store.SaveGeneration(ctx, "s1", sampleGeneration(1)); err != nil {
		t.Fatalf("SaveGeneration: %v", err)
	}

	counts, err := store.CountBySeverity(ctx, "s1", 1)
	if err != nil {
		t.Fatalf("CountBySeverity: %v", err)
	}
	if counts[SeverityBlocking] != 1 || counts[SeverityAdvisory] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestStoriesForKeepsEpicOrder(t *testing.T) {
	g := sampleGeneration(1)
	epic := Epic{ID: "x", StoryIDs: []string{"epic-payment/story-1", "missing", "epic-checkout/story-1"}}
	got := StoriesFor(epic, g.Stories)
	if len(got) != 2 || got[0].ID != "epic-payment/story-1" {
		t.Errorf("unexpected stories: %+v", got)
	}
}

func TestViolationString(t *testing.T) {
	v := Violation{Rule: "epic_without_story", Severity: SeverityBlocking, EpicID: "epic-checkout", Message: "no stories"}
	want := "[blocking] epic_without_story (epic-checkout): no stories"
	if v.String() != want {
		t.Errorf("got %q, want %q", v.String(), want)
	}
}
