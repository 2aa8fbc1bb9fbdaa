// Package sanitize corrects a known reporting defect in the sensor feed:
// some CPUs misreport their bus speed several times above the nominal
// 100 MHz, which inflates every clock sensor derived from it by the same
// ratio. The first inflated reading fixes a correction factor for the rest
// of the process lifetime; each cycle the raw feed values are divided by it.
package sanitize

import (
	"sync"

	"codeberg.org/mutker/hwmond/internal/logger"
	"codeberg.org/mutker/hwmond/internal/sensor"
)

const (
	busSpeedSensor = "Bus Speed"

	// Nominal bus speed is ~100 MHz (99.8 - 100.2 observed). Anything
	// above 150 is the known misreporting pattern, not a real clock.
	nominalBusSpeed = 100.0
	maxSaneBusSpeed = 150.0
)

// Sanitizer holds the one-shot correction factor. The factor is computed
// from the first inflated reading and never recomputed or cleared, so
// sensor fluctuations survive correction.
type Sanitizer struct {
	mu     sync.RWMutex
	factor float64
	set    bool
}

func New() *Sanitizer {
	return &Sanitizer{}
}

// Factor returns the recorded correction factor, false before the first
// inflated reading has been seen.
func (s *Sanitizer) Factor() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.factor, s.set
}

// Apply corrects inflated clock readings in place and returns the snapshot.
// Only CPU nodes whose raw bus speed exceeds the sane range this cycle are
// touched; the division always runs against raw feed values, so repeated
// application to fresh input never compounds. Missing fields are skipped,
// never fabricated.
func (s *Sanitizer) Apply(snap sensor.Snapshot) sensor.Snapshot {
	for n := range snap {
		node := &snap[n]
		if node.Kind != sensor.Cpu {
			continue
		}

		bus := findBusSpeed(node)
		if bus == nil || bus.Value == nil || *bus.Value <= maxSaneBusSpeed {
			continue
		}

		factor := s.lockFactor(*bus.Value)

		scale(bus, factor)
		for i := range node.Sensors {
			other := &node.Sensors[i]
			if other.Type == sensor.Clock && other.Name != busSpeedSensor {
				scale(other, factor)
			}
		}
	}

	return snap
}

// lockFactor records the correction factor on first use and returns it.
// The first inflated reading is assumed representative of the error scale.
func (s *Sanitizer) lockFactor(raw float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.set {
		s.factor = raw / nominalBusSpeed
		s.set = true
		logger.Info().Msgf("Detected inflated bus speed (%.1f MHz). Applied correction factor: %.2f", raw, s.factor)
	}

	return s.factor
}

func findBusSpeed(node *sensor.HardwareNode) *sensor.Sensor {
	for i := range node.Sensors {
		s := &node.Sensors[i]
		if s.Name == busSpeedSensor && s.Type == sensor.Clock {
			return s
		}
	}

	return nil
}

func scale(s *sensor.Sensor, factor float64) {
	if s.Value != nil {
		*s.Value /= factor
	}
	if s.Min != nil {
		*s.Min /= factor
	}
	if s.Max != nil {
		*s.Max /= factor
	}
}
