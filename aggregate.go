package main

import (
	"context"
	"fmt"
)

// Mode picks how many passes the aggregator makes and how it treats an
// empty first pass.
type Mode int

const (
	// ModeTwoPhase fetches popular comments, then recent ones, deduplicating
	// across both. An empty first pass is not fatal.
	ModeTwoPhase Mode = iota
	// ModeSinglePass fetches popular comments only. Collecting nothing is fatal.
	ModeSinglePass
)

func (m Mode) String() string {
	if m == ModeSinglePass {
		return "single-pass"
	}
	return "two-phase"
}

func parseMode(s string) (Mode, error) {
	switch s {
	case "", "two-phase", "two_phase", "twophase":
		return ModeTwoPhase, nil
	case "single-pass", "single_pass", "single":
		return ModeSinglePass, nil
	}
	return ModeTwoPhase, fmt.Errorf("unknown mode %q (want two-phase or single-pass)", s)
}

// Termination says why a pass stopped consuming its source.
type Termination int

const (
	Exhausted Termination = iota
	Capped
	Failed
)

func (t Termination) String() string {
	switch t {
	case Exhausted:
		return "exhausted"
	case Capped:
		return "capped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type passReport struct {
	Sort         SortOrder
	Seen         int // items pulled from the source
	Added        int // items retained after dedup
	TerminatedBy Termination
	Err          error
}

// AggregationResult is returned once per Aggregate call and not touched afterwards.
type AggregationResult struct {
	Comments []Comment
	Total    int
	Success  bool
	Error    string
	Passes   []passReport
}

// Aggregator drives one or two passes over a CommentSource.
type Aggregator struct {
	Source CommentSource
	Mode   Mode

	// ProgressEvery controls how often a count milestone is reported.
	// Zero picks 500 for two-phase and 100 for single-pass.
	ProgressEvery int

	// Progress receives human-readable diagnostics. May be nil.
	Progress func(format string, args ...any)
}

// run holds the state of a single Aggregate call.
type run struct {
	collected []Comment
	seen      map[string]struct{}
	max       int
}

func (r *run) capped() bool {
	return r.max > 0 && len(r.collected) >= r.max
}

// Aggregate collects up to maxComments unique comments for videoID.
// maxComments <= 0 means no limit.
func (a *Aggregator) Aggregate(ctx context.Context, videoID string, maxComments int) AggregationResult {
	r := &run{
		collected: []Comment{},
		seen:      make(map[string]struct{}),
		max:       maxComments,
	}
	var passes []passReport

	a.logf("Phase 1: fetching popular comments for %s...", videoID)
	first := a.pass(ctx, r, videoID, SortPopular)
	passes = append(passes, first)
	a.logf("Got %d popular comments (%s)", first.Added, first.TerminatedBy)

	if a.Mode == ModeSinglePass {
		if len(r.collected) == 0 {
			return a.finish(r, passes, false, emptySinglePassError(first))
		}
		return a.finish(r, passes, true, "")
	}

	if !r.capped() {
		a.logf("Phase 2: fetching recent comments...")
		second := a.pass(ctx, r, videoID, SortRecent)
		passes = append(passes, second)
		a.logf("Got %d additional comments (%s)", second.Added, second.TerminatedBy)
	}

	if len(r.collected) == 0 && allFailed(passes) {
		return a.finish(r, passes, false, fmt.Sprintf("Failed to fetch comments: %v", passes[len(passes)-1].Err))
	}
	return a.finish(r, passes, true, "")
}

func (a *Aggregator) pass(ctx context.Context, r *run, videoID string, sort SortOrder) passReport {
	rep := passReport{Sort: sort, TerminatedBy: Exhausted}
	every := a.progressEvery()

	for raw, err := range a.Source.Comments(ctx, videoID, sort) {
		if err != nil {
			rep.TerminatedBy = Failed
			rep.Err = err
			a.logf("%s phase: %s", sort, clip(err.Error(), 100))
			break
		}
		rep.Seen++

		if _, dup := r.seen[raw.CID]; !dup {
			r.seen[raw.CID] = struct{}{}
			r.collected = append(r.collected, normalizeComment(raw))
			rep.Added++
			if rep.Added%every == 0 {
				a.logf("%d %s comments...", rep.Added, sort)
			}
		}

		if r.capped() {
			rep.TerminatedBy = Capped
			a.logf("Reached limit of %d comments", r.max)
			break
		}
	}
	return rep
}

func (a *Aggregator) finish(r *run, passes []passReport, ok bool, msg string) AggregationResult {
	if ok {
		a.logf("TOTAL: %d YouTube comments", len(r.collected))
	}
	return AggregationResult{
		Comments: r.collected,
		Total:    len(r.collected),
		Success:  ok,
		Error:    msg,
		Passes:   passes,
	}
}

func (a *Aggregator) progressEvery() int {
	if a.ProgressEvery > 0 {
		return a.ProgressEvery
	}
	if a.Mode == ModeSinglePass {
		return 100
	}
	return 500
}

func (a *Aggregator) logf(format string, args ...any) {
	if a.Progress != nil {
		a.Progress(format, args...)
	}
}

func emptySinglePassError(p passReport) string {
	if p.TerminatedBy == Failed {
		return fmt.Sprintf("Failed to scrape comments: %v. The video might have comments disabled or restricted access.", p.Err)
	}
	return "No comments found. The video might have comments disabled, be age-restricted, or have no comments yet."
}

func allFailed(passes []passReport) bool {
	for _, p := range passes {
		if p.TerminatedBy != Failed {
			return false
		}
	}
	return len(passes) > 0
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
