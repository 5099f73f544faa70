// Package coder drives the external code-generation subprocess. The
// subprocess emits streamed JSON events on stdout and finishes with a
// result envelope carrying the result text, cost, session id and a
// subtype distinguishing normal completion from hitting the max-turn
// budget.
package coder

import (
	"context"
	"time"
)

// Bounded execution windows. A full session covers a whole implement or
// revise pass; oneShot is for quick single-turn verdicts.
const (
	SessionTimeout = time.Hour
	OneShotTimeout = 60 * time.Second

	// KillGrace is the window between the cancellation signal and
	// SIGKILL.
	KillGrace = 5 * time.Second
)

// Subtypes reported by the result envelope.
const (
	SubtypeSuccess  = "success"
	SubtypeMaxTurns = "error_max_turns"
)

// Request describes one coder invocation.
type Request struct {
	Prompt          string
	Workdir         string
	SessionID       string
	MaxTurns        int
	AllowedTools    []string
	DisallowedTools []string
}

// Result is the parsed final envelope plus the trace record for ledger
// telemetry.
type Result struct {
	Text      string
	Subtype   string
	SessionID string
	CostUSD   float64
	Trace     *Trace
}

// Trace is the execution trace recorded on the pipeline run.
type Trace struct {
	SessionID  string  `json:"sessionId"`
	Subtype    string  `json:"subtype"`
	CostUSD    float64 `json:"costUsd"`
	NumTurns   int     `json:"numTurns"`
	DurationMs int64   `json:"durationMs"`
}

// MaxTurns reports whether the session stopped on the turn budget.
func (r *Result) MaxTurns() bool {
	return r != nil && r.Subtype == SubtypeMaxTurns
}

// Client runs the coder subprocess. Both calls block until the subprocess
// exits or the bounded timeout fires; timeouts surface as errors which the
// executor converts into a typed error result.
type Client interface {
	// Run starts or resumes a full coder session.
	Run(ctx context.Context, req Request) (*Result, error)

	// OneShot runs a single-turn invocation with the short timeout.
	OneShot(ctx context.Context, req Request) (*Result, error)
}
