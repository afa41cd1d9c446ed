package cli

import (
	"fmt"
	"os"

	"github.com/raphaelgruber/girs/internal/metrics"
)

// printMetrics displays request timings collected during this run.
func printMetrics(snap metrics.Snapshot) {
	if len(snap.Operations) == 0 {
		return
	}

	fmt.Fprintf(os.Stderr, "\nRequest Statistics\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "Elapsed: %.1f seconds\n", snap.UptimeSeconds)

	for _, op := range snap.Operations {
		fmt.Fprintf(os.Stderr, "\n%s:\n", op.Operation)
		fmt.Fprintf(os.Stderr, "  Calls: %d, Failures: %d, Total: %dms\n", op.Count, op.Failures, op.TotalTimeMs)
		fmt.Fprintf(os.Stderr, "  Time: avg %.1fms, min %dms, max %dms\n",
			op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	}
}
