package model

import (
	"sort"
	"time"
)

// AttemptOptions carries the optional metadata a caller may attach to a
// recorded scrape attempt.
type AttemptOptions struct {
	DurationMS   *int
	RendererUsed *bool
	ErrorKind    string
}

// RecordAttempt appends a ScrapeAttempt, truncates the window to the most
// recent MaxAttempts, and advances the health state machine. It does not
// mutate Content.
func (b *JobBoard) RecordAttempt(scrapedJobs []Job, ok bool, scrapedAt time.Time, opts AttemptOptions) ScrapeHealth {
	count := len(scrapedJobs)
	b.LastScraped = &scrapedAt

	b.Attempts = append(b.Attempts, ScrapeAttempt{
		At:           scrapedAt,
		OK:           ok,
		Count:        count,
		DurationMS:   opts.DurationMS,
		RendererUsed: opts.RendererUsed,
		ErrorKind:    opts.ErrorKind,
	})
	if len(b.Attempts) > MaxAttempts {
		b.Attempts = b.Attempts[len(b.Attempts)-MaxAttempts:]
	}

	health := &b.ScrapeHealth
	policy := b.Policy
	window := time.Duration(policy.TimeFlagDurationS) * time.Second

	if policy.ManualOverride {
		if health.Status != HealthDown {
			health.Status = HealthSuspect
		}
		health.Reason = ReasonManual
		return *health
	}

	if count > 0 && ok {
		health.ConsecutiveZeroAttempts = 0
		health.FirstZeroAt = nil
		health.FlaggedUntil = nil
		health.Status = HealthNormal
		health.Reason = ReasonNone

		health.LastNonzeroAt = &scrapedAt
		health.LastNonzeroCount = intPtr(count)
		health.LastSuccessAt = &scrapedAt
		health.LastSuccessCount = intPtr(count)
		b.LastSuccessAt = &scrapedAt

		k := policy.AttemptWindowSize
		successes := recentSuccessCounts(b.Attempts, k)
		if len(successes) > 0 {
			health.BaselineNonzeroCount = intPtr(median(successes))
		} else {
			health.BaselineNonzeroCount = intPtr(count)
		}
		return *health
	}

	if health.ConsecutiveZeroAttempts == 0 {
		health.FirstZeroAt = &scrapedAt
	}
	health.ConsecutiveZeroAttempts++

	priorNonzeroExists := health.LastNonzeroCount != nil && *health.LastNonzeroCount >= policy.MinBaselineToFlag

	var prev *ScrapeAttempt
	if n := len(b.Attempts); n >= 2 {
		prev = &b.Attempts[n-2]
	}
	if prev != nil && prev.OK && prev.Count > 0 && count == 0 {
		health.Reason = ReasonZeroSpike
	} else {
		health.Reason = ReasonEmptyStreak
	}

	fu := scrapedAt.Add(window)
	if health.FlaggedUntil == nil || fu.After(*health.FlaggedUntil) {
		health.FlaggedUntil = &fu
	}

	if priorNonzeroExists {
		withinWindow := health.FirstZeroAt != nil && scrapedAt.Sub(*health.FirstZeroAt) <= window
		if withinWindow && health.ConsecutiveZeroAttempts >= policy.AttemptThresholdForDown {
			health.Status = HealthDown
		} else {
			health.Status = HealthSuspect
		}
	} else {
		if health.ConsecutiveZeroAttempts >= 2 {
			health.Status = HealthSuspect
		} else {
			health.Status = HealthNormal
		}
	}

	return *health
}

func recentSuccessCounts(attempts []ScrapeAttempt, k int) []int {
	var successes []int
	for i := len(attempts) - 1; i >= 0 && len(successes) < k; i-- {
		a := attempts[i]
		if a.OK && a.Count > 0 {
			successes = append(successes, a.Count)
		}
	}
	return successes
}

func median(ints []int) int {
	s := make([]int, len(ints))
	copy(s, ints)
	sort.Ints(s)
	n := len(s)
	mid := n / 2
	if n%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func intPtr(v int) *int { return &v }
