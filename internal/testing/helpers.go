// Package testing provides test helpers for the marketstats application.
//
// Using t.Fatal() or t.FailNow() in goroutines causes undefined behavior because
// these methods call runtime.Goexit() which only terminates the current goroutine,
// not the test goroutine.
package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Error Channel Pattern
// =============================================================================

// TestHelper manages error collection from goroutines.
//
// Usage:
//
//	h := NewTestHelper(t)
//	defer h.Wait()
//
//	for i := 0; i < 10; i++ {
//	    h.Add(1)
//	    go func(id int) {
//	        defer h.Done()
//	        if r := cache.GetOrCompute(ctx, load); !r.IsOk() {
//	            h.Errorf("reader %d: %v", id, r.Err())
//	        }
//	    }(i)
//	}
type TestHelper struct {
	t      *testing.T
	wg     sync.WaitGroup
	errors chan error
}

// NewTestHelper creates a new test helper.
func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{
		t:      t,
		errors: make(chan error, 100),
	}
}

// Add increments the goroutine counter.
func (h *TestHelper) Add(delta int) {
	h.wg.Add(delta)
}

// Done decrements the goroutine counter.
func (h *TestHelper) Done() {
	h.wg.Done()
}

// Errorf records a test error from a goroutine.
// This is safe to call from any goroutine.
func (h *TestHelper) Errorf(format string, args ...interface{}) {
	h.Error(fmt.Errorf(format, args...))
}

// Error records a test error from a goroutine.
func (h *TestHelper) Error(err error) {
	if err == nil {
		return
	}
	select {
	case h.errors <- err:
	default:
		// Buffer full, error will be lost but test will still fail
	}
}

// Wait waits for all goroutines and reports any errors.
// Must be called (typically via defer) to ensure errors are reported.
func (h *TestHelper) Wait() {
	h.wg.Wait()
	close(h.errors)

	var failed bool
	for err := range h.errors {
		h.t.Errorf("goroutine error: %v", err)
		failed = true
	}

	if failed {
		h.t.FailNow()
	}
}

// =============================================================================
// Goroutine Group
// =============================================================================

// GoroutineTest runs error-returning functions in goroutines and reports
// their errors from the test goroutine on Wait.
type GoroutineTest struct {
	t      *testing.T
	wg     sync.WaitGroup
	errors chan error
	ctx    context.Context
	cancel context.CancelFunc
}

// NewGoroutineTest creates a GoroutineTest whose context expires after timeout.
func NewGoroutineTest(t *testing.T, timeout time.Duration) *GoroutineTest {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return &GoroutineTest{
		t:      t,
		errors: make(chan error, 100),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go runs fn in a goroutine and collects its error.
func (gt *GoroutineTest) Go(fn func(ctx context.Context) error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		if err := fn(gt.ctx); err != nil {
			select {
			case gt.errors <- err:
			default:
				gt.t.Logf("error channel full, dropping error: %v", err)
			}
		}
	}()
}

// Wait waits for all goroutines and fails the test if any returned an error.
func (gt *GoroutineTest) Wait() {
	gt.wg.Wait()
	gt.cancel()
	close(gt.errors)

	var errs []error
	for err := range gt.errors {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		gt.t.Errorf("goroutine test failed with %d error(s):", len(errs))
		for i, err := range errs {
			gt.t.Errorf("  [%d] %v", i+1, err)
		}
		gt.t.FailNow()
	}
}

// =============================================================================
// Timing Helpers
// =============================================================================

// WithTimeout runs fn and returns its error, or a timeout error if fn does
// not return within timeout.
func WithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("operation timed out after %v", timeout)
	}
}

// Eventually polls condition every interval until it holds or timeout passes.
func Eventually(timeout, interval time.Duration, condition func() bool) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return nil
		}
		time.Sleep(interval)
	}
	return fmt.Errorf("condition not met within %v", timeout)
}
