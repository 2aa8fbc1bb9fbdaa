// Package sensor defines the hardware snapshot model shared by the feed
// reader, the sanitizer, the alert engine, and the display layers. A
// snapshot is one full poll cycle: an ordered list of hardware nodes, each
// carrying an ordered list of typed readings.
package sensor

import (
	"encoding/json"

	"codeberg.org/mutker/hwmond/internal/errors"
)

// SensorType classifies a single reading.
type SensorType string

const (
	Temperature SensorType = "Temperature"
	Voltage     SensorType = "Voltage"
	Load        SensorType = "Load"
	Fan         SensorType = "Fan"
	Clock       SensorType = "Clock"
	Power       SensorType = "Power"
	Other       SensorType = "Other"
)

// HardwareKind classifies the device a node represents.
type HardwareKind string

const (
	Cpu         HardwareKind = "Cpu"
	GpuNvidia   HardwareKind = "GpuNvidia"
	GpuAmd      HardwareKind = "GpuAmd"
	GpuIntel    HardwareKind = "GpuIntel"
	Motherboard HardwareKind = "Motherboard"
	Memory      HardwareKind = "Memory"
	Storage     HardwareKind = "Storage"
	Network     HardwareKind = "Network"
	Battery     HardwareKind = "Battery"
)

// Sensor is a single named measurement. Value, Min and Max are absent when
// the provider does not support the metric, never zero-filled.
type Sensor struct {
	Name  string     `json:"Name"`
	Type  SensorType `json:"Type"`
	Value *float64   `json:"Value,omitempty"`
	Min   *float64   `json:"Min,omitempty"`
	Max   *float64   `json:"Max,omitempty"`
}

// Key returns the identity of this sensor within the named node.
func (s Sensor) Key(node string) string {
	return node + "/" + string(s.Type) + "/" + s.Name
}

// HardwareNode is one physical or logical device exposing a group of
// sensors. The tree is one level deep; providers that report nested
// sub-hardware flatten it before emitting.
type HardwareNode struct {
	Name    string       `json:"Name"`
	Kind    HardwareKind `json:"Type"`
	Sensors []Sensor     `json:"Sensors"`
}

// Snapshot is one complete poll cycle. Once published to the store it is
// treated as immutable; consumers only read.
type Snapshot []HardwareNode

// DecodeSnapshot parses one line of the bridge feed. The feed emits a JSON
// array of hardware nodes per line; anything else is a decode error the
// caller logs and skips.
func DecodeSnapshot(line []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(line, &snap); err != nil {
		return nil, errors.Wrap(errors.ErrFeedDecode, err)
	}

	return snap, nil
}

// Float returns a pointer to v. Convenience for building snapshots by hand.
func Float(v float64) *float64 {
	return &v
}
