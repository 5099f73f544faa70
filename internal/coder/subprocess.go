package coder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// DefaultCommand is the coder binary invoked when none is configured.
const DefaultCommand = "claude"

// subprocessClient implements Client by spawning the coder binary and
// consuming its streamed JSON events.
type subprocessClient struct {
	command string
}

// NewSubprocess returns a Client that spawns command (or DefaultCommand
// when empty).
func NewSubprocess(command string) Client {
	if command == "" {
		command = DefaultCommand
	}
	return &subprocessClient{command: command}
}

// streamEvent is one JSON line on the subprocess stdout. Only the final
// result envelope is consumed; intermediate events are drained.
type streamEvent struct {
	Type       string  `json:"type"`
	Subtype    string  `json:"subtype"`
	Result     string  `json:"result"`
	SessionID  string  `json:"session_id"`
	CostUSD    float64 `json:"total_cost_usd"`
	NumTurns   int     `json:"num_turns"`
	DurationMs int64   `json:"duration_ms"`
}

func (c *subprocessClient) Run(ctx context.Context, req Request) (*Result, error) {
	return c.invoke(ctx, req, SessionTimeout, false)
}

func (c *subprocessClient) OneShot(ctx context.Context, req Request) (*Result, error) {
	return c.invoke(ctx, req, OneShotTimeout, true)
}

func (c *subprocessClient) invoke(ctx context.Context, req Request, timeout time.Duration, oneShot bool) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"-p", req.Prompt, "--output-format", "stream-json", "--verbose"}
	if req.SessionID != "" {
		args = append(args, "--resume", req.SessionID)
	}
	maxTurns := req.MaxTurns
	if oneShot {
		maxTurns = 1
	}
	if maxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(maxTurns))
	}
	for _, tool := range req.AllowedTools {
		args = append(args, "--allowedTools", tool)
	}
	for _, tool := range req.DisallowedTools {
		args = append(args, "--disallowedTools", tool)
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	if req.Workdir != "" {
		cmd.Dir = req.Workdir
	}
	cmd.Env = os.Environ()

	// Cooperative cancellation: interrupt first, SIGKILL after the
	// grace window.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = KillGrace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("coder stdout: %w", err)
	}
	cmd.Stderr = nil

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start coder: %w", err)
	}

	var final *streamEvent
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event streamEvent
		if err := json.Unmarshal(line, &event); err != nil {
			// Non-JSON noise on stdout is tolerated.
			continue
		}
		if event.Type == "result" {
			copied := event
			final = &copied
		}
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("coder timed out after %s: %w", timeout, ctx.Err())
	}
	if scanErr != nil {
		return nil, fmt.Errorf("coder stream: %w", scanErr)
	}
	if final == nil {
		if waitErr != nil {
			return nil, fmt.Errorf("coder exited without result envelope: %w", waitErr)
		}
		return nil, fmt.Errorf("coder exited without result envelope")
	}
	// A max-turns stop exits non-zero; the envelope subtype is the
	// authoritative signal.
	if waitErr != nil && final.Subtype != SubtypeMaxTurns {
		return nil, fmt.Errorf("coder failed: %w: %s", waitErr, final.Result)
	}

	duration := final.DurationMs
	if duration == 0 {
		duration = time.Since(start).Milliseconds()
	}

	return &Result{
		Text:      final.Result,
		Subtype:   final.Subtype,
		SessionID: final.SessionID,
		CostUSD:   final.CostUSD,
		Trace: &Trace{
			SessionID:  final.SessionID,
			Subtype:    final.Subtype,
			CostUSD:    final.CostUSD,
			NumTurns:   final.NumTurns,
			DurationMs: duration,
		},
	}, nil
}

var _ Client = (*subprocessClient)(nil)
