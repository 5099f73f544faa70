package coder

import (
	"context"
	"sync"
)

// Fake returns scripted results in order. Used by executor and scheduler
// tests.
type Fake struct {
	mu      sync.Mutex
	results []*Result
	errs    []error

	// Requests records every invocation.
	Requests []Request
}

// NewFake returns an empty fake coder client.
func NewFake() *Fake {
	return &Fake{}
}

// Script queues a result (or error) for the next invocation.
func (f *Fake) Script(result *Result, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
	f.errs = append(f.errs, err)
}

func (f *Fake) next(req Request) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if len(f.results) == 0 {
		return &Result{Subtype: SubtypeSuccess, Trace: &Trace{Subtype: SubtypeSuccess}}, nil
	}
	result, err := f.results[0], f.errs[0]
	f.results = f.results[1:]
	f.errs = f.errs[1:]
	return result, err
}

// Run implements Client.
func (f *Fake) Run(_ context.Context, req Request) (*Result, error) {
	return f.next(req)
}

// OneShot implements Client.
func (f *Fake) OneShot(_ context.Context, req Request) (*Result, error) {
	return f.next(req)
}

var _ Client = (*Fake)(nil)
