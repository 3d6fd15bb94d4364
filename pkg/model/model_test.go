package model

import (
	"testing"
	"time"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNormalizeHistoryDropsAdjacentDuplicates(t *testing.T) {
	h := []Status{
		{Status: StatusActive, At: at("2025-01-01T00:00:00Z")},
		{Status: StatusActive, At: at("2025-01-01T01:00:00Z")},
	}
	got := NormalizeHistory(h)
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d: %+v", len(got), got)
	}
}

func TestNormalizeHistoryFlapSuppression(t *testing.T) {
	h := []Status{
		{Status: StatusActive, At: at("2025-01-01T09:00:00Z")},
		{Status: StatusInactive, At: at("2025-01-01T10:00:00Z")},
		{Status: StatusActive, At: at("2025-01-01T14:59:00Z")},
	}
	got := NormalizeHistory(h)
	if len(got) != 1 || got[0].Status != StatusActive {
		t.Fatalf("expected flap collapsed to single active, got %+v", got)
	}
}

func TestNormalizeHistoryNoFlapBeyondWindow(t *testing.T) {
	h := []Status{
		{Status: StatusActive, At: at("2025-01-01T09:00:00Z")},
		{Status: StatusInactive, At: at("2025-01-01T10:00:00Z")},
		{Status: StatusActive, At: at("2025-01-01T17:00:00Z")},
	}
	got := NormalizeHistory(h)
	if len(got) != 3 {
		t.Fatalf("expected no flap suppression beyond window, got %+v", got)
	}
}

func TestNormalizeHistoryIdempotent(t *testing.T) {
	h := []Status{
		{Status: StatusInactive, At: at("2025-01-01T08:00:00Z")},
		{Status: StatusActive, At: at("2025-01-01T09:00:00Z")},
		{Status: StatusInactive, At: at("2025-01-01T20:00:00Z")},
	}
	once := NormalizeHistory(h)
	twice := NormalizeHistory(once)
	if len(once) != len(twice) {
		t.Fatalf("not idempotent: %+v vs %+v", once, twice)
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("not idempotent at %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestJobIsActiveAndActiveHours(t *testing.T) {
	j := Job{Title: "Engineer", Link: "https://x/1"}
	if j.IsActive() {
		t.Fatal("empty history should not be active")
	}
	j.Mark(StatusActive, time.Now().Add(-2*time.Hour))
	if !j.IsActive() {
		t.Fatal("expected active after Mark(active)")
	}
	if h := j.ActiveHours(); h < 1.9 || h > 2.1 {
		t.Fatalf("ActiveHours = %v, want ~2", h)
	}
	j.Mark(StatusInactive, time.Now())
	if j.IsActive() {
		t.Fatal("expected inactive after Mark(inactive)")
	}
	if h := j.ActiveHours(); h != 0 {
		t.Fatalf("ActiveHours on inactive job = %v, want 0", h)
	}
}

func TestRecordAttemptResetsZeroCountersOnSuccess(t *testing.T) {
	b := NewJobBoard("Acme", "https://x/icon.png", "https://x")
	b.RecordAttempt(nil, true, at("2025-01-01T00:00:00Z"), AttemptOptions{})
	h := b.RecordAttempt([]Job{{Title: "A", Link: "https://x/1"}}, true, at("2025-01-01T01:00:00Z"), AttemptOptions{})
	if h.ConsecutiveZeroAttempts != 0 {
		t.Fatalf("expected zero counter reset, got %d", h.ConsecutiveZeroAttempts)
	}
	if h.FlaggedUntil != nil {
		t.Fatal("expected flagged_until cleared on success")
	}
}

func TestRecordAttemptCapsAtMaxAttempts(t *testing.T) {
	b := NewJobBoard("Acme", "https://x/icon.png", "https://x")
	base := at("2025-01-01T00:00:00Z")
	for i := 0; i < MaxAttempts+10; i++ {
		b.RecordAttempt(nil, true, base.Add(time.Duration(i)*time.Hour), AttemptOptions{})
	}
	if len(b.Attempts) != MaxAttempts {
		t.Fatalf("attempts = %d, want %d", len(b.Attempts), MaxAttempts)
	}
}

func TestFirstRunUpsert(t *testing.T) {
	b := NewJobBoard("Acme", "https://x/icon.png", "https://x")
	ts := at("2025-01-01T00:00:00Z")
	b.ApplyScrape([]Job{{Title: "Engineer", Link: "https://x/jobs/1"}}, ts, true, AttemptOptions{})

	if len(b.Content) != 1 {
		t.Fatalf("expected 1 job, got %d", len(b.Content))
	}
	j := b.Content[0]
	if len(j.History) != 1 || j.History[0].Status != StatusActive || !j.History[0].At.Equal(ts) {
		t.Fatalf("unexpected history: %+v", j.History)
	}
	if b.LastScraped == nil || !b.LastScraped.Equal(ts) {
		t.Fatal("last_scraped not set")
	}
	if b.LastSuccessAt == nil || !b.LastSuccessAt.Equal(ts) {
		t.Fatal("last_success_at not set")
	}
	if b.ScrapeHealth.Status != HealthNormal || b.ScrapeHealth.Reason != ReasonNone {
		t.Fatalf("unexpected health: %+v", b.ScrapeHealth)
	}
	if b.ScrapeHealth.BaselineNonzeroCount == nil || *b.ScrapeHealth.BaselineNonzeroCount != 1 {
		t.Fatalf("unexpected baseline: %+v", b.ScrapeHealth.BaselineNonzeroCount)
	}
}

func TestHealthGatedZeroThenCascadeToDown(t *testing.T) {
	b := NewJobBoard("Acme", "https://x/icon.png", "https://x")
	successAt := at("2025-01-01T08:00:00Z")
	for i := 0; i < 3; i++ {
		b.ApplyScrape([]Job{
			{Title: "A", Link: "https://x/1"},
			{Title: "B", Link: "https://x/2"},
			{Title: "C", Link: "https://x/3"},
		}, successAt.Add(time.Duration(i)*time.Hour), true, AttemptOptions{})
	}

	first := at("2025-01-01T12:00:00Z")
	b.ApplyScrape(nil, first, true, AttemptOptions{})
	if b.ScrapeHealth.Reason != ReasonZeroSpike || b.ScrapeHealth.Status != HealthSuspect {
		t.Fatalf("unexpected health after first zero: %+v", b.ScrapeHealth)
	}
	if len(b.Content) != 3 {
		t.Fatalf("expected content untouched, got %d", len(b.Content))
	}

	second := at("2025-01-01T12:05:00Z")
	b.ApplyScrape(nil, second, true, AttemptOptions{})
	if b.ScrapeHealth.Status != HealthSuspect {
		t.Fatalf("expected still suspect, got %s", b.ScrapeHealth.Status)
	}
	if len(b.Content) != 3 {
		t.Fatalf("expected still no deactivation, got %d jobs", len(b.Content))
	}

	// two more zeros (total of 4) then a fifth reaches the down threshold.
	b.ApplyScrape(nil, first.Add(1*time.Hour), true, AttemptOptions{})
	b.ApplyScrape(nil, first.Add(2*time.Hour), true, AttemptOptions{})
	b.ApplyScrape(nil, first.Add(3*time.Hour), true, AttemptOptions{})

	if b.ScrapeHealth.Status != HealthDown {
		t.Fatalf("expected down after threshold zeros, got %s", b.ScrapeHealth.Status)
	}
	if b.ScrapeHealth.FlaggedUntil == nil {
		t.Fatal("expected flagged_until set")
	}
}

// With the default policy, health is no longer "normal" once
// consecutive_zero_attempts reaches 2 (see RecordAttempt; with a last
// non-zero count of at least min_baseline_to_flag it is already "suspect"
// at the first zero), which forecloses
// the "two successful zeros AND health normal" gate — the only zero attempt
// where health still reads "normal" is the first one, and that one always
// fails the "previous attempt was also a successful zero" half of the gate.
// So under the default policy two consecutive zeros never deactivate; single
// -zero deactivation only happens when the policy opts out of the
// two-zero requirement.
func TestApplyScrapeSingleZeroDeactivatesWhenPolicyAllowsAndHealthNormal(t *testing.T) {
	b := NewJobBoard("Acme", "https://x/icon.png", "https://x")
	b.Policy.RequireTwoSuccessfulZerosToDeactivate = false
	base := at("2025-01-01T00:00:00Z")
	b.ApplyScrape([]Job{{Title: "A", Link: "https://x/1"}}, base, true, AttemptOptions{})

	b.ApplyScrape(nil, base.Add(1*time.Hour), true, AttemptOptions{})
	if b.Content[0].IsActive() {
		t.Fatal("single zero with health normal and policy opted out should deactivate")
	}
}

func TestApplyScrapeTwoConsecutiveZerosNeverDeactivateUnderDefaultPolicy(t *testing.T) {
	b := NewJobBoard("Acme", "https://x/icon.png", "https://x")
	b.Policy.MinBaselineToFlag = 100 // keep prior-nonzero-exists false
	base := at("2025-01-01T00:00:00Z")
	b.ApplyScrape([]Job{{Title: "A", Link: "https://x/1"}}, base, true, AttemptOptions{})

	b.ApplyScrape(nil, base.Add(1*time.Hour), true, AttemptOptions{})
	if !b.Content[0].IsActive() {
		t.Fatal("first zero must not deactivate")
	}

	b.ApplyScrape(nil, base.Add(2*time.Hour), true, AttemptOptions{})
	if !b.Content[0].IsActive() {
		t.Fatal("second zero flips health to suspect, so it must not deactivate either")
	}
	if b.ScrapeHealth.Status != HealthSuspect {
		t.Fatalf("expected suspect after second consecutive zero, got %s", b.ScrapeHealth.Status)
	}
}

func TestApplyScrapeNoOpWhenScrapedSetMatchesActive(t *testing.T) {
	b := NewJobBoard("Acme", "https://x/icon.png", "https://x")
	ts := at("2025-01-01T00:00:00Z")
	b.ApplyScrape([]Job{{Title: "Engineer", Link: "https://x/1"}}, ts, true, AttemptOptions{})

	before := append([]Job(nil), b.Content...)
	b.ApplyScrape([]Job{{Title: "Engineer", Link: "https://x/1"}}, ts.Add(time.Hour), true, AttemptOptions{})

	if len(b.Content) != len(before) {
		t.Fatalf("content length changed: %d vs %d", len(b.Content), len(before))
	}
	if len(b.Content[0].History) != len(before[0].History) {
		t.Fatalf("history changed on no-op merge: %+v vs %+v", b.Content[0].History, before[0].History)
	}
}

func TestContentLinksMatchCanonicalSet(t *testing.T) {
	b := NewJobBoard("Acme", "https://x/icon.png", "https://x")
	ts := at("2025-01-01T00:00:00Z")
	b.ApplyScrape([]Job{
		{Title: "A", Link: "https://x/1"},
		{Title: "B", Link: "https://x/2"},
	}, ts, true, AttemptOptions{})

	seen := map[string]bool{}
	for _, j := range b.Content {
		if seen[j.Link] {
			t.Fatalf("duplicate link %s", j.Link)
		}
		seen[j.Link] = true
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 unique links, got %d", len(seen))
	}
}
