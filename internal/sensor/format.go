package sensor

import (
	"fmt"
	"strings"
)

// Unit returns the display unit for a sensor type, empty when unknown.
func (t SensorType) Unit() string {
	switch t {
	case Temperature:
		return "°C"
	case Voltage:
		return "V"
	case Load:
		return "%"
	case Fan:
		return "RPM"
	case Clock:
		return "MHz"
	case Power:
		return "W"
	default:
		return ""
	}
}

// FormatValue renders an optional reading for display. Missing values show
// as "N/A" rather than a fabricated zero.
func FormatValue(v *float64) string {
	if v == nil {
		return "N/A"
	}

	return fmt.Sprintf("%.2f", *v)
}

// kindLabels maps provider hardware kinds to friendly component names.
var kindLabels = map[HardwareKind]string{
	Cpu:         "CPU",
	GpuNvidia:   "GPU (NVIDIA)",
	GpuAmd:      "GPU (AMD)",
	GpuIntel:    "GPU (Intel)",
	Motherboard: "Motherboard",
	Memory:      "Memory",
	Storage:     "Storage",
	Network:     "Network",
	Battery:     "Battery",
}

// Label returns a human-readable component name for a hardware kind.
func (k HardwareKind) Label() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	if strings.HasPrefix(string(k), "Gpu") {
		return "GPU"
	}

	return string(k)
}
