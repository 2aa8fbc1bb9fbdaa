// Package alert evaluates snapshots against user-defined threshold rules.
// Rules are CRUD-managed at runtime; triggered events are debounced per
// sensor and handed to a dispatcher that must never block evaluation.
package alert

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"codeberg.org/mutker/hwmond/internal/logger"
	"codeberg.org/mutker/hwmond/internal/metrics"
	"codeberg.org/mutker/hwmond/internal/sensor"
	"github.com/google/uuid"
)

// A sensor that just fired stays quiet for this long. Exactly one window
// elapsed is allowed to fire again.
const debounceWindow = 10 * time.Second

type Level string

const (
	High Level = "High"
	Low  Level = "Low"
)

// Event is one triggered alert, carrying the rule that matched so sinks
// can honor its side effect flags.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Sensor  string    `json:"sensor"`
	Level   Level     `json:"level"`
	Value   float64   `json:"value"`
	Message string    `json:"message"`
	Rule    Rule      `json:"rule"`
	At      time.Time `json:"at"`
}

// Dispatcher hands a triggered event off for side effects. Implementations
// must return immediately; delivery is best effort with no completion
// report back to the engine.
type Dispatcher interface {
	Dispatch(Event)
}

// Engine holds the rule set and per-sensor debounce state. SetRule,
// RemoveRule and the read accessors are safe for concurrent use; Evaluate
// is driven by the single consumer tick.
type Engine struct {
	mu    sync.RWMutex
	rules map[string]Rule

	// lastFired is only touched by the evaluation goroutine. Entries are
	// never deleted; growth is bounded by the number of distinct rules.
	lastFired map[string]time.Time

	dispatcher Dispatcher
	now        func() time.Time
}

func NewEngine(dispatcher Dispatcher) *Engine {
	return &Engine{
		rules:      make(map[string]Rule),
		lastFired:  make(map[string]time.Time),
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// SetRule inserts or replaces the rule for its sensor name.
func (e *Engine) SetRule(r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	e.rules[r.Sensor] = r
	e.mu.Unlock()

	return nil
}

// RemoveRule deletes the rule for a sensor name, no-op when absent.
func (e *Engine) RemoveRule(sensorName string) {
	e.mu.Lock()
	delete(e.rules, sensorName)
	e.mu.Unlock()
}

// Rule returns the rule for a sensor name.
func (e *Engine) Rule(sensorName string) (Rule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	r, ok := e.rules[sensorName]

	return r, ok
}

// Rules returns all rules ordered by sensor name.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	rules := make([]Rule, 0, len(e.rules))
	for _, r := range e.rules {
		rules = append(rules, r)
	}
	e.mu.RUnlock()

	sort.Slice(rules, func(i, j int) bool { return rules[i].Sensor < rules[j].Sensor })

	return rules
}

// Evaluate checks every sensor across all nodes against the rule set.
// Sensors without a rule or without a value pass silently. When both
// thresholds are breached the high breach wins.
func (e *Engine) Evaluate(snap sensor.Snapshot) {
	now := e.now()

	for _, node := range snap {
		for _, s := range node.Sensors {
			rule, ok := e.Rule(s.Name)
			if !ok || s.Value == nil {
				continue
			}

			value := *s.Value
			var level Level
			switch {
			case rule.Max != nil && value > *rule.Max:
				level = High
			case rule.Min != nil && value < *rule.Min:
				level = Low
			default:
				continue
			}

			e.fire(s.Name, level, value, rule, now)
		}
	}
}

func (e *Engine) fire(name string, level Level, value float64, rule Rule, now time.Time) {
	if last, ok := e.lastFired[name]; ok && now.Sub(last) < debounceWindow {
		metrics.AlertSuppressed()
		logger.Debug().Msgf("Alert for %s suppressed, last fired %s ago", name, now.Sub(last))

		return
	}
	e.lastFired[name] = now

	event := Event{
		ID:      uuid.New(),
		Sensor:  name,
		Level:   level,
		Value:   value,
		Message: fmt.Sprintf("%s is %s: %v", name, level, value),
		Rule:    rule,
		At:      now,
	}

	metrics.AlertFired(string(level))
	logger.Warn().Msgf("Alert: %s", event.Message)

	if e.dispatcher != nil {
		e.dispatcher.Dispatch(event)
	}
}
