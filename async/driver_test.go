package async

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dufoli/graal/config"
	"github.com/dufoli/graal/wasm/failure"
)

func TestDecodeRunsInlineBelowThreshold(t *testing.T) {
	cfg := config.Defaults{BinarySize: 1024}
	called := false
	err := Decode(context.Background(), cfg, 10, func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}

func TestDecodeRunsInlineWhenThresholdZero(t *testing.T) {
	cfg := config.Defaults{BinarySize: 0}
	called := false
	err := Decode(context.Background(), cfg, 1<<30, func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}

func TestDecodeDispatchesAboveThreshold(t *testing.T) {
	cfg := config.Defaults{BinarySize: 100}
	called := false
	err := Decode(context.Background(), cfg, 200, func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}

func TestDecodePropagatesFailure(t *testing.T) {
	cfg := config.Defaults{BinarySize: 100}
	boom := errors.New("bad module")
	err := Decode(context.Background(), cfg, 200, func() error { return boom })
	require.Error(t, err)
	require.Equal(t, failure.UnspecifiedInvalid, failure.KindOf(err))
}

func TestDecodeInterruptedByCancellation(t *testing.T) {
	cfg := config.Defaults{BinarySize: 1}
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})

	errCh := make(chan error, 1)
	go func() {
		errCh <- Decode(ctx, cfg, 1000, func() error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	cancel()
	err := <-errCh
	close(release)

	require.Error(t, err)
	require.Equal(t, failure.UnspecifiedInvalid, failure.KindOf(err))
}
