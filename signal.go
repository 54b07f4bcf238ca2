package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// interruptSignals end an in-flight lookup.
var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// interruptContext derives a context that the first interrupt cancels, so a
// pending token or matching call returns at its next network read. If a
// second interrupt arrives before the command has unwound, forceExit runs.
func interruptContext(parent context.Context, logger *slog.Logger, forceExit func()) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, interruptSignals...)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("interrupted, abandoning provider call",
				slog.String("signal", sig.String()),
			)
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("interrupted again, exiting without cleanup",
				slog.String("signal", sig.String()),
			)
			forceExit()
		case <-parent.Done():
		}
	}()

	return ctx
}

// exitNow is the forceExit used by main.
func exitNow() {
	os.Exit(exitError)
}
