package responder

import (
	"math/rand"
	"time"
)

// randT returns a random duration in [0, d].
func randT(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

const (
	probeInterval       = 250 * time.Millisecond
	announce1Interval   = 250 * time.Millisecond
	announce2Interval   = 1000 * time.Millisecond
	firstProbeDelayBase = 120 * time.Millisecond
	firstProbeDelayJit  = 127 * time.Millisecond
	backoffProbeDelay   = 1000 * time.Millisecond

	// backoffThreshold is the number of failed probes after which the
	// first-probe delay is lengthened (spec §4.2 "Probe packet").
	backoffThreshold = 5
)

// firstProbeDelay returns the delay before a PCB's first probe packet,
// per spec §4.2: "120ms + random(0..127ms) (1s + random when more than
// five probes have already failed on this PCB)".
func firstProbeDelay(failedProbes int) time.Duration {
	if failedProbes > backoffThreshold {
		return backoffProbeDelay + randT(firstProbeDelayJit)
	}
	return firstProbeDelayBase + randT(firstProbeDelayJit)
}
