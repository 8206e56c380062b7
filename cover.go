package taior

import (
	"time"

	"github.com/taior/taior/aorp"
	"github.com/taior/taior/log"
)

// coverTick is the scheduler's fixed polling period; the jittered
// send interval is layered on top of it (§4.6).
const coverTick = 500 * time.Millisecond

// coverLoop is the cover-traffic scheduler: a periodic timer that, at a
// jittered interval derived from the configured target rate, emits a
// random-filled frame wrapped through the active circuit exactly like a
// real payload, so observers cannot distinguish cover from real traffic
// by size, timing, or framing after encryption. Cover failures are
// logged and suppressed, never fatal (§4.6, §7).
func (c *Core) coverLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(coverTick)
	defer ticker.Stop()

	var next time.Time
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			enabled, rate := c.coverSettings()
			if !enabled || rate <= 0 {
				next = time.Time{}
				continue
			}
			if next.IsZero() || now.After(next) {
				c.sendCoverFrame()
				next = now.Add(jitteredCoverInterval(rate))
			}
		}
	}
}

func (c *Core) coverSettings() (enabled bool, rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coverEnabled, c.coverRate
}

func (c *Core) sendCoverFrame() {
	circuit, ok := c.circuits.AnyActive(time.Now())
	if !ok {
		return
	}

	wrapped, err := c.wrapForCircuit(buildCoverFrame(), circuit)
	if err != nil {
		c.metrics.CoverFailed.Inc(1)
		log.Err(c.logger, err, "cover traffic wrap failed")
		return
	}

	sleepJitter(c.cfg.JitterMax)
	if err := c.substrate.SendFrame(circuit.Hops[0], withMagic(aorp.MagicAORP, wrapped)); err != nil {
		c.metrics.CoverFailed.Inc(1)
		log.Err(c.logger, err, "cover traffic send failed")
		return
	}
	c.metrics.CoverSent.Inc(1)
}

// jitteredCoverInterval samples the wait until the next cover send: mean
// 1/rate seconds, jittered uniformly within ±25%.
func jitteredCoverInterval(rate float64) time.Duration {
	mean := time.Duration(float64(time.Second) / rate)
	factor := 0.75 + 0.5*randFloat64()
	return time.Duration(float64(mean) * factor)
}

// randFloat64 returns a CSPRNG-sampled value uniformly distributed in
// [0, 1).
func randFloat64() float64 {
	const precision = 1 << 53
	n := randUint64(precision)
	return float64(n) / float64(precision)
}
