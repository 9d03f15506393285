package testutil

import (
	"context"
	"sync"
	"testing"
	"time"
)

// GoroutineTest collects errors from goroutines and reports them on the
// test goroutine. t.Fatal must not be called from other goroutines since
// runtime.Goexit only ends the calling goroutine.
//
//	gt := testutil.NewGoroutineTest(t, 5*time.Second)
//	defer gt.Wait()
//
//	gt.Go(func(ctx context.Context) error {
//	    _, err := engine.Run(ctx, snaps)
//	    return err
//	})
type GoroutineTest struct {
	t      *testing.T
	wg     sync.WaitGroup
	mu     sync.Mutex
	errs   []error
	ctx    context.Context
	cancel context.CancelFunc
}

// NewGoroutineTest creates a helper whose context expires after timeout.
func NewGoroutineTest(t *testing.T, timeout time.Duration) *GoroutineTest {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return &GoroutineTest{t: t, ctx: ctx, cancel: cancel}
}

// Go runs fn in a goroutine and records its error.
func (gt *GoroutineTest) Go(fn func(ctx context.Context) error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		if err := fn(gt.ctx); err != nil {
			gt.mu.Lock()
			gt.errs = append(gt.errs, err)
			gt.mu.Unlock()
		}
	}()
}

// Wait blocks until all goroutines finish and fails the test on any error.
func (gt *GoroutineTest) Wait() {
	gt.wg.Wait()
	gt.cancel()

	if len(gt.errs) == 0 {
		return
	}
	gt.t.Errorf("goroutine test failed with %d error(s):", len(gt.errs))
	for i, err := range gt.errs {
		gt.t.Errorf("  [%d] %v", i+1, err)
	}
	gt.t.FailNow()
}
