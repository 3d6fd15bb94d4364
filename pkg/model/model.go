// Package model holds the append-only job-posting data model: per-job status
// history, scrape attempts, the board health state machine, and the
// health-aware merge that reconciles a fresh scrape into a board.
package model

import "time"

// Status is a single observation of a job posting's lifecycle state.
type Status struct {
	Status string    `json:"status"` // "active" or "inactive"
	At     time.Time `json:"at"`
}

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// FlapWindow is the window within which a returning "active" cancels out an
// intervening "inactive" observation. It is a package constant used by
// NormalizeHistory; ScrapePolicy has no per-board flap window.
const FlapWindow = 6 * time.Hour

// Job is a single posting, uniquely identified within a board by Link.
type Job struct {
	Title   string   `json:"title"`
	Link    string   `json:"link"`
	History []Status `json:"history"`
}

// NormalizeHistory restores the history invariants: ascending order, no two
// adjacent events of equal status, and flap suppression (an active event
// that arrives within FlapWindow of a preceding inactive cancels it out).
// Idempotent and total.
func NormalizeHistory(history []Status) []Status {
	if len(history) == 0 {
		return nil
	}

	hist := make([]Status, len(history))
	copy(hist, history)
	sortStatusesByTime(hist)

	out := make([]Status, 0, len(hist))
	for _, st := range hist {
		if len(out) > 0 {
			last := out[len(out)-1]
			if last.Status == st.Status {
				continue
			}
			if st.Status == StatusActive && last.Status == StatusInactive {
				if st.At.Sub(last.At) <= FlapWindow {
					out = out[:len(out)-1] // drop the inactive, skip the returning active
					continue
				}
			}
		}
		out = append(out, st)
	}
	return out
}

func sortStatusesByTime(s []Status) {
	// Small, already-near-sorted slices in practice; insertion sort keeps
	// this dependency-free and stable.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].At.Before(s[j-1].At); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// IsActive reports whether the job's most recent status is active.
func (j *Job) IsActive() bool {
	return len(j.History) > 0 && j.History[len(j.History)-1].Status == StatusActive
}

// ActiveHours returns the length, in hours, of the trailing unbroken active
// run ending now. Zero if the job is not currently active.
func (j *Job) ActiveHours() float64 {
	if !j.IsActive() {
		return 0
	}

	var start time.Time
	for i := len(j.History) - 1; i >= 0; i-- {
		st := j.History[i]
		if st.Status == StatusInactive {
			break
		}
		start = st.At
	}
	if start.IsZero() {
		return 0
	}

	hours := time.Since(start).Hours()
	if hours < 0 {
		return 0
	}
	return hours
}

// Mark appends a status-change event unless it would duplicate the last
// recorded event, then re-normalises history.
func (j *Job) Mark(status string, at time.Time) {
	if len(j.History) > 0 && j.History[len(j.History)-1].Status == status {
		return
	}
	j.History = append(j.History, Status{Status: status, At: at})
	j.History = NormalizeHistory(j.History)
}

// ScrapeAttempt records the outcome of one scrape pass over a board.
type ScrapeAttempt struct {
	At            time.Time `json:"at"`
	OK            bool      `json:"ok"`
	Count         int       `json:"count"`
	DurationMS    *int      `json:"duration_ms,omitempty"`
	RendererUsed  *bool     `json:"renderer_used,omitempty"`
	ErrorKind     string    `json:"error_kind,omitempty"`
}

// MaxAttempts bounds the sliding window of retained attempts.
const MaxAttempts = 50

// ScrapePolicy tunes a board's health-machine thresholds.
type ScrapePolicy struct {
	TimeFlagDurationS                  int  `json:"time_flag_duration_s"`
	AttemptThresholdForDown            int  `json:"attempt_threshold_for_down"`
	AttemptWindowSize                  int  `json:"attempt_window_size"`
	MinBaselineToFlag                  int  `json:"min_baseline_to_flag"`
	RequireTwoSuccessfulZerosToDeactivate bool `json:"require_two_successful_zeros_to_deactivate"`
	ManualOverride                     bool `json:"manual_override"`
}

// DefaultPolicy mirrors the spec's default tuning values.
func DefaultPolicy() ScrapePolicy {
	return ScrapePolicy{
		TimeFlagDurationS:                     24 * 3600,
		AttemptThresholdForDown:               5,
		AttemptWindowSize:                     10,
		MinBaselineToFlag:                     3,
		RequireTwoSuccessfulZerosToDeactivate: true,
		ManualOverride:                        false,
	}
}

const (
	HealthNormal  = "normal"
	HealthSuspect = "suspect"
	HealthDown    = "down"

	ReasonNone        = "NONE"
	ReasonZeroSpike   = "ZERO_SPIKE"
	ReasonEmptyStreak = "EMPTY_STREAK"
	ReasonManual      = "MANUAL"
)

// ScrapeHealth is the board-level derived signal gating destructive merges.
type ScrapeHealth struct {
	Status string `json:"status"`
	Reason string `json:"reason"`

	FirstZeroAt            *time.Time `json:"first_zero_at,omitempty"`
	ConsecutiveZeroAttempts int       `json:"consecutive_zero_attempts"`
	FlaggedUntil           *time.Time `json:"flagged_until,omitempty"`

	LastNonzeroAt    *time.Time `json:"last_nonzero_at,omitempty"`
	LastNonzeroCount *int       `json:"last_nonzero_count,omitempty"`

	BaselineNonzeroCount *int `json:"baseline_nonzero_count,omitempty"`

	LastSuccessAt    *time.Time `json:"last_success_at,omitempty"`
	LastSuccessCount *int       `json:"last_success_count,omitempty"`
}

// NewScrapeHealth returns the initial state for a fresh board.
func NewScrapeHealth() ScrapeHealth {
	return ScrapeHealth{Status: HealthNormal, Reason: ReasonNone}
}

// JobBoard is a single tracked career site.
type JobBoard struct {
	Title      string `json:"title"`
	IconURL    string `json:"icon_url"`
	WebsiteURL string `json:"website_url"`

	Attempts     []ScrapeAttempt `json:"attempts"`
	ScrapeHealth ScrapeHealth    `json:"scrape_health"`
	Policy       ScrapePolicy    `json:"policy"`

	LastScraped   *time.Time `json:"last_scraped,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	NextScrapeAt  *time.Time `json:"next_scrape_at,omitempty"`

	Content []Job `json:"content"`
}

// NewJobBoard constructs a fresh board in its initial state.
func NewJobBoard(title, iconURL, websiteURL string) *JobBoard {
	return &JobBoard{
		Title:        title,
		IconURL:      iconURL,
		WebsiteURL:   websiteURL,
		Attempts:     nil,
		ScrapeHealth: NewScrapeHealth(),
		Policy:       DefaultPolicy(),
		Content:      nil,
	}
}
