package app

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run starts the application and blocks until a shutdown signal arrives.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("trading-mode", a.cfg.TradingMode),
		zap.Bool("dry-run", a.cfg.DryRun),
		zap.String("log-level", a.cfg.LogLevel))

	a.wg.Add(1)
	go a.runHTTPServer()

	a.wg.Add(1)
	go a.runOrchestrator()

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready", zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runOrchestrator() {
	defer a.wg.Done()
	a.orch.Run(a.ctx)
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
