package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/PrathyushaPonnala/sales-prediction/internal/bootstrap"
)

func main() {
	container := bootstrap.NewContainer()
	container.MustInit()

	if err := container.Start(); err != nil {
		container.Log.Fatalf("Failed to start: %v", err)
	}

	waitForShutdown(container)
}

// waitForShutdown blocks until a termination signal arrives or a fatal
// component error cancels the application context, then runs the
// coordinated shutdown sequence.
func waitForShutdown(c *bootstrap.Container) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		c.Log.Infof("Received signal %s, shutting down...", sig)
	case <-c.Context.Done():
		c.Log.Info("Application context canceled, shutting down...")
	}

	c.Shutdown()
}
