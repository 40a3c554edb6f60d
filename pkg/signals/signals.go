package signals

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dynsix/dynsix/pkg/utils"
)

// SignalContext returns a context that is canceled when the application
// receives an interrupt or termination signal
// A second signal causes an immediate exit
func SignalContext(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-ch
		utils.LogFromContext(ctx).Info("Received signal; shutting down", slog.String("signal", sig.String()))
		cancel()

		// Exit right away on the second signal
		<-ch
		utils.LogFromContext(ctx).Warn("Received second signal; exiting")
		os.Exit(1)
	}()

	return ctx
}
