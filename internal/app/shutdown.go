package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application. In-flight order
// placements are not force-cancelled: cancelling the context only stops
// new scans from starting and lets the orchestrator's loops observe
// cancellation and return on their own.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.logger.Error("venue-a-stream-close-error", zap.Error(err))
		}
	}

	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Error("storage-close-error", zap.Error(err))
		}
	}

	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")
	return nil
}
