// Package ro exposes process shutdown signals as samber/ro observables.
package ro

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/samber/ro"
)

// ShutdownSignals are the OS signals that trigger graceful shutdown.
var ShutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

// GracefulShutdown creates an Observable that emits the first shutdown signal and completes.
func GracefulShutdown() ro.Observable[os.Signal] {
	return GracefulShutdownWithSignals(ShutdownSignals...)
}

// GracefulShutdownWithSignals is GracefulShutdown for a custom signal set.
// Signal delivery is registered per subscription and released on teardown.
func GracefulShutdownWithSignals(signals ...os.Signal) ro.Observable[os.Signal] {
	return ro.NewObservableWithContext(func(ctx context.Context, observer ro.Observer[os.Signal]) ro.Teardown {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, signals...)
		stop := make(chan struct{})

		go func() {
			select {
			case sig := <-ch:
				observer.NextWithContext(ctx, sig)
				observer.CompleteWithContext(ctx)
			case <-ctx.Done():
				observer.ErrorWithContext(ctx, ctx.Err())
			case <-stop:
			}
		}()

		return func() {
			signal.Stop(ch)
			close(stop)
		}
	})
}

// WaitForShutdown blocks until a shutdown signal arrives or ctx is canceled.
// The signal is logged at info level on logger when it is not nil.
func WaitForShutdown(ctx context.Context, logger *zerolog.Logger) (os.Signal, error) {
	return waitFor(ctx, logger, GracefulShutdown())
}

func waitFor(ctx context.Context, logger *zerolog.Logger, source ro.Observable[os.Signal]) (os.Signal, error) {
	logged := ro.Pipe1(source, ro.DoOnNext(func(sig os.Signal) {
		if logger != nil {
			logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		}
	}))

	results, _, err := ro.CollectWithContext(ctx, logged)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ctx.Err()
	}
	return results[0], nil
}

// OnShutdown runs callback when a shutdown signal is received.
// Unsubscribe the returned Subscription to stop listening.
func OnShutdown(ctx context.Context, callback func(os.Signal)) ro.Subscription {
	return GracefulShutdown().SubscribeWithContext(ctx, ro.OnNextWithContext(func(_ context.Context, sig os.Signal) {
		callback(sig)
	}))
}
