// Command herbot loads, validates, joins and publishes tabular datasets.
//
// Usage:
//
//	herbot run --config job.yaml
//	herbot validate --config job.yaml
//	herbot preview data/calls.csv --rows 20
//	herbot query --config job.yaml "SELECT TOP 10 * FROM dbo.calls"
//	herbot query --config job.yaml @sql/refresh.sql --exec -p period=202425
//	herbot findate 7 202425
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// Register every SQL dialect; the config picks one by kind.
	_ "herbot/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
