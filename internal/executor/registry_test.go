package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warpmetrics/warp-coder/internal/names"
)

type stubExecutor struct {
	name    string
	types   []string
	execute func(ctx context.Context, run *Run, ec *Context) (*Result, error)
}

func (s stubExecutor) Name() string          { return s.name }
func (s stubExecutor) ResultTypes() []string { return s.types }
func (s stubExecutor) Execute(ctx context.Context, run *Run, ec *Context) (*Result, error) {
	if s.execute == nil {
		return &Result{Type: "success"}, nil
	}
	return s.execute(ctx, run, ec)
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register(stubExecutor{name: "work", types: []string{"success"}}))

	err := reg.Register(stubExecutor{name: "work", types: []string{"success"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "already registered")

	require.Error(t, reg.Register(nil))
	require.Error(t, reg.Register(stubExecutor{name: ""}))

	e, err := reg.Get("work")
	require.NoError(t, err)
	require.Equal(t, "work", e.Name())

	_, err = reg.Get("missing")
	require.Error(t, err)
}

func TestRegistryNamesSorted(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register(stubExecutor{name: "zeta", types: []string{"success"}}))
	require.NoError(t, reg.Register(stubExecutor{name: "alpha", types: []string{"success"}}))

	require.Equal(t, []string{"alpha", "zeta"}, reg.Names())
}

func TestDeclaredResultTypes(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register(stubExecutor{name: "work", types: []string{"success", "error"}}))

	declared := reg.DeclaredResultTypes()
	require.Equal(t, []string{"success", "error"}, declared["work"])
}

func TestProvidersAndEffects(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	_, ok := reg.Provider("work")
	require.False(t, ok)

	reg.RegisterProvider("work", func(context.Context, *Run, *Context) (map[string]any, error) {
		return map[string]any{"k": "v"}, nil
	})
	provider, ok := reg.Provider("work")
	require.True(t, ok)
	extra, err := provider(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Equal(t, "v", extra["k"])

	_, ok = reg.EffectFor("work", "success")
	require.False(t, ok)

	fired := false
	reg.RegisterEffect("work", "success", func(context.Context, *Run, *Result, *Context) error {
		fired = true
		return nil
	})
	effect, ok := reg.EffectFor("work", "success")
	require.True(t, ok)
	require.NoError(t, effect(context.Background(), nil, nil, nil))
	require.True(t, fired)

	_, ok = reg.EffectFor("work", "error")
	require.False(t, ok)

	require.Equal(t, "work:success", EffectKey("work", "success"))
}

func TestWaitingCapable(t *testing.T) {
	t.Parallel()

	require.True(t, WaitingCapable(stubExecutor{name: "w", types: []string{names.ResultWaiting, "ready"}}))
	require.False(t, WaitingCapable(stubExecutor{name: "x", types: []string{"success", "error"}}))
}

func TestResultWaiting(t *testing.T) {
	t.Parallel()

	require.True(t, (&Result{Type: names.ResultWaiting}).Waiting())
	require.False(t, (&Result{Type: "success"}).Waiting())

	var nilResult *Result
	require.False(t, nilResult.Waiting())
}

func TestOptHelpers(t *testing.T) {
	t.Parallel()

	opts := map[string]any{
		"str":     "value",
		"int":     3,
		"int64":   int64(4),
		"float":   float64(5),
		"mistype": []string{"x"},
	}

	require.Equal(t, "value", OptString(opts, "str"))
	require.Empty(t, OptString(opts, "int"))
	require.Empty(t, OptString(nil, "str"))

	require.Equal(t, 3, OptInt(opts, "int"))
	require.Equal(t, 4, OptInt(opts, "int64"))
	require.Equal(t, 5, OptInt(opts, "float"))
	require.Zero(t, OptInt(opts, "mistype"))
	require.Zero(t, OptInt(nil, "int"))
}
