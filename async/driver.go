// Package async runs a module's code-section decode on a bounded,
// cancellable off-goroutine when the module is large enough that doing it
// inline would stall the caller.
package async

import (
	"context"

	"github.com/dufoli/graal/config"
	"github.com/dufoli/graal/internal/xlog"
	"github.com/dufoli/graal/wasm/failure"
	"golang.org/x/sync/errgroup"
)

var log = xlog.For("async")

// Decode runs decodeCode — the caller's code-section pass — either inline
// or on a single background goroutine, depending on cfg and moduleSize.
// A single-member errgroup collects the worker's error; it does not
// recover panics.
//
// ctx cancellation aborts the goroutine's wait (Decode returns ctx.Err()
// normalized to UnspecifiedInvalid) but cannot interrupt decodeCode once
// it has started; decodeCode must itself check ctx if it needs to.
func Decode(ctx context.Context, cfg config.ConfigProvider, moduleSize uint32, decodeCode func() error) error {
	threshold := cfg.AsyncParsingBinarySize()
	if threshold == 0 || moduleSize < threshold {
		return decodeCode()
	}

	log.WithField("module_size", moduleSize).Debug("dispatching code section to async driver")

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return decodeCode()
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return failure.Fail(failure.UnspecifiedInvalid, "Asynchronous parsing failed.")
		}
		return nil
	case <-ctx.Done():
		return failure.Fail(failure.UnspecifiedInvalid, "Asynchronous parsing interrupted.")
	}
}
