package alerting

import (
	"time"
)

// TimeToExhaustion is how long a sustained burn rate takes to spend the
// budget of timeWindow.
func TimeToExhaustion(timeWindow time.Duration, burnRate float64) time.Duration {
	if burnRate <= 0 {
		return 0
	}
	return time.Duration(float64(timeWindow) / burnRate)
}
