package alert

import (
	"os"

	"codeberg.org/mutker/hwmond/internal/errors"
	"gopkg.in/yaml.v3"
)

// Rule is a threshold watch keyed by sensor display name. Keying by plain
// name means two nodes exposing the same sensor name share one rule; that
// matches how users name rules and is a documented limitation.
type Rule struct {
	Sensor string   `json:"sensor" yaml:"sensor"`
	Min    *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max    *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Sound  bool     `json:"sound" yaml:"sound"`
	Notify bool     `json:"notify" yaml:"notify"`
}

// NewRule builds a rule. Side effect flags default to on when left unset,
// matching what users expect from a freshly created alert.
func NewRule(sensor string, min, max *float64, sound, notify *bool) Rule {
	r := Rule{Sensor: sensor, Min: min, Max: max, Sound: true, Notify: true}
	if sound != nil {
		r.Sound = *sound
	}
	if notify != nil {
		r.Notify = *notify
	}

	return r
}

// Validate rejects rules that could never trigger. Min above max is legal:
// a value breaching both bounds fires High, never both.
func (r Rule) Validate() error {
	if r.Sensor == "" {
		return errors.WithMessage(errors.ErrInvalidRule, "rule has no sensor name")
	}
	if r.Min == nil && r.Max == nil {
		return errors.WithMessage(errors.ErrInvalidRule, "rule needs at least one of min, max")
	}

	return nil
}

type ruleSpec struct {
	Sensor string   `yaml:"sensor"`
	Min    *float64 `yaml:"min"`
	Max    *float64 `yaml:"max"`
	Sound  *bool    `yaml:"sound"`
	Notify *bool    `yaml:"notify"`
}

type rulesFile struct {
	Alerts []ruleSpec `yaml:"alerts"`
}

// LoadRulesFile reads threshold rules from a YAML file:
//
//	alerts:
//	  - sensor: CPU Package
//	    max: 85.0
//	  - sensor: GPU Fan
//	    min: 200
//	    sound: false
func LoadRulesFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrReadRulesFile, err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrReadRulesFile, err)
	}

	rules := make([]Rule, 0, len(file.Alerts))
	for _, spec := range file.Alerts {
		rule := NewRule(spec.Sensor, spec.Min, spec.Max, spec.Sound, spec.Notify)
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, nil
}
