package signalhandler

import (
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

// SetupHandler installs SIGINT/SIGTERM handling. The stop callback is
// invoked once, from a separate goroutine, so the render loop can run
// its normal teardown instead of the process dying mid-frame.
func SetupHandler(stop func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		slog.Info("signalhandler: shutdown requested", "signal", sig.String())
		stop()
	}()
}

// GetOptimalProcs returns the worker count for the extraction pool.
// OpenCV work goes through CGo, so leaving some CPUs free keeps the
// render thread responsive.
func GetOptimalProcs() int {
	numCPU := runtime.NumCPU()

	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
