package server

import (
	"log"
	"os"

	"github.com/katana-web/katana/core/metrics"
)

// connDebugEnabled gates the verbose per-close logging behind
// KATANA_CONN_DEBUG so production runs pay nothing for it.
var connDebugEnabled = os.Getenv("KATANA_CONN_DEBUG") != ""

// maybeLogClose logs a connection close with dampening: the first 20 events
// per reason, then every 1000th.
func maybeLogClose(reason string, count uint64) {
	if !connDebugEnabled {
		return
	}
	if count <= 20 || count%1000 == 0 {
		log.Printf("[conn_debug] close %s count=%d", reason, count)
	}
}

// logAcceptError logs accept failures with a widening cadence: the first 10,
// then every 10th up to 100, then every 100th.
func logAcceptError(err error, m *metrics.ServerMetrics) {
	if !connDebugEnabled {
		return
	}
	total := m.Accept.Total()
	if total <= 10 || (total <= 100 && total%10 == 0) || total%100 == 0 {
		log.Printf("[conn_debug] accept4 failed: %v total_errors=%d recovered=%d",
			err, total, m.Accept.Recovered.Load())
	}
}
