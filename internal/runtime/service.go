package runtime

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context cancelled on SIGINT/SIGTERM. onSignal, if
// set, runs first so callers can stop scheduling work before cancellation.
func SignalContext(parent context.Context, service string, onSignal func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-ctx.Done():
		case sig := <-sigCh:
			log.Printf("[%s] received signal %s, shutting down", service, sig)
			if onSignal != nil {
				onSignal()
			}
			cancel()
		}
	}()
	return ctx, cancel
}
