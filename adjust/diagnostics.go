package adjust

import (
	"sync"

	"github.com/edaniels/golog"
)

// maxLoggedFailures caps how many projection failures are reported in full
// before the log goes quiet for the rest of the run.
const maxLoggedFailures = 100

// Diagnostics tracks projection failures across every residual sharing it.
// One instance is owned by the optimization run and handed to each cost at
// construction. The counter is never reset mid-run. After the logging cap is
// reached the counter keeps incrementing silently, so an accelerating
// failure rate late in a run leaves no trace in the log.
type Diagnostics struct {
	mu       sync.Mutex
	failures int
	logger   golog.Logger
}

// NewDiagnostics creates a failure tracker reporting through the given logger.
func NewDiagnostics(logger golog.Logger) *Diagnostics {
	return &Diagnostics{logger: logger}
}

// RecordFailure increments the failure counter and logs the error, rate
// limited to the first maxLoggedFailures occurrences plus a single
// suppression notice. The whole read-increment-compare-log sequence runs
// under the lock; keep it short, every projecting goroutine contends here.
func (d *Diagnostics) RecordFailure(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures++
	if d.failures <= maxLoggedFailures {
		d.logger.Error(err)
	} else if d.failures == maxLoggedFailures+1 {
		d.logger.Info("will print no more error messages about failing to compute residuals")
	}
}

// Failures returns the number of failures recorded so far.
func (d *Diagnostics) Failures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failures
}
