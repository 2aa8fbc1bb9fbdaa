package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/hwmond/internal/alert"
	"codeberg.org/mutker/hwmond/internal/sensor"
	"codeberg.org/mutker/hwmond/internal/store"
)

type fakeFeed struct {
	available bool
}

func (f *fakeFeed) Available() bool {
	return f.available
}

func testSnapshot() sensor.Snapshot {
	return sensor.Snapshot{
		{
			Name: "AMD Ryzen 7 5800X",
			Kind: sensor.Cpu,
			Sensors: []sensor.Sensor{
				{Name: "CPU Package", Type: sensor.Temperature, Value: sensor.Float(61.5), Min: sensor.Float(38.0), Max: sensor.Float(84.25)},
				{Name: "Core #1", Type: sensor.Clock, Value: sensor.Float(4650.0)},
				{Name: "Core VID", Type: sensor.Voltage},
			},
		},
	}
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func sized(t *testing.T, m model) model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})

	return next.(model)
}

func tick(t *testing.T, m model) model {
	t.Helper()
	next, cmd := m.Update(tickMsg(time.Now()))
	require.NotNil(t, cmd, "tick must reschedule itself")

	return next.(model)
}

func TestViewWaitsForData(t *testing.T) {
	m := sized(t, newModel(store.New(), nil))

	assert.Contains(t, m.View(), "Waiting for sensor data")
}

func TestTickSamplesStore(t *testing.T) {
	st := store.New()
	st.Publish(testSnapshot())
	m := sized(t, newModel(st, &fakeFeed{available: true}))

	m = tick(t, m)

	view := m.View()
	assert.Contains(t, view, "AMD Ryzen 7 5800X")
	assert.Contains(t, view, "CPU")
	assert.Contains(t, view, "CPU Package")
	assert.Contains(t, view, "61.50 °C")
	assert.Contains(t, view, "84.25 °C")
	assert.Contains(t, view, "4650.00 MHz")
	assert.Contains(t, view, "N/A")
	assert.Contains(t, view, "LIVE")
}

func TestNoFeedTag(t *testing.T) {
	m := sized(t, newModel(store.New(), &fakeFeed{available: false}))

	assert.Contains(t, m.View(), "NO FEED")
}

func TestPausePreventsSampling(t *testing.T) {
	st := store.New()
	m := sized(t, newModel(st, nil))

	next, _ := m.Update(key('p'))
	m = next.(model)

	st.Publish(testSnapshot())
	m = tick(t, m)
	assert.Contains(t, m.View(), "Waiting for sensor data")
	assert.Contains(t, m.View(), "PAUSED")

	next, _ = m.Update(key('p'))
	m = next.(model)
	m = tick(t, m)
	assert.Contains(t, m.View(), "CPU Package")
	assert.NotContains(t, m.View(), "PAUSED")
}

func TestQuitKey(t *testing.T) {
	m := sized(t, newModel(store.New(), nil))

	_, cmd := m.Update(key('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestScrollKeys(t *testing.T) {
	m := sized(t, newModel(store.New(), nil))

	next, _ := m.Update(key('j'))
	m = next.(model)
	next, _ = m.Update(key('j'))
	m = next.(model)
	assert.Equal(t, 2, m.scroll)

	next, _ = m.Update(key('k'))
	m = next.(model)
	assert.Equal(t, 1, m.scroll)

	next, _ = m.Update(key('k'))
	m = next.(model)
	next, _ = m.Update(key('k'))
	m = next.(model)
	assert.Equal(t, 0, m.scroll, "scroll never goes negative")
}

func TestAlertFlashHighlightAndBell(t *testing.T) {
	st := store.New()
	st.Publish(testSnapshot())
	m := sized(t, newModel(st, nil))
	m = tick(t, m)

	event := alert.Event{
		Sensor:  "CPU Package",
		Level:   alert.High,
		Value:   91.0,
		Message: "CPU Package is High: 91",
		Rule:    alert.Rule{Sensor: "CPU Package", Sound: true},
		At:      time.Now(),
	}
	next, _ := m.Update(alertMsg{event: event})
	m = next.(model)

	view := m.View()
	assert.Contains(t, view, "\a", "sound-flagged alert rings the bell")
	assert.Contains(t, view, "ALERT  CPU Package is High: 91")

	// The bell rings once; the flash line survives the next tick.
	m = tick(t, m)
	view = m.View()
	assert.NotContains(t, view, "\a")
	assert.Contains(t, view, "ALERT  CPU Package is High: 91")
}

func TestAlertWithoutSoundStaysSilent(t *testing.T) {
	m := sized(t, newModel(store.New(), nil))

	event := alert.Event{
		Sensor:  "GPU Fan",
		Level:   alert.Low,
		Message: "GPU Fan is Low: 150",
		Rule:    alert.Rule{Sensor: "GPU Fan", Sound: false},
	}
	next, _ := m.Update(alertMsg{event: event})
	m = next.(model)

	view := m.View()
	assert.NotContains(t, view, "\a")
	assert.Contains(t, view, "ALERT  GPU Fan is Low: 150")
}

func TestGroupByTypeOrder(t *testing.T) {
	sensors := []sensor.Sensor{
		{Name: "VCore", Type: sensor.Voltage},
		{Name: "Package", Type: sensor.Temperature},
		{Name: "Energy", Type: sensor.SensorType("Energy")},
		{Name: "Bus Speed", Type: sensor.Clock},
		{Name: "Core #1", Type: sensor.Clock},
	}

	groups := groupByType(sensors)
	require.Len(t, groups, 4)
	assert.Equal(t, sensor.Temperature, groups[0].kind)
	assert.Equal(t, sensor.Clock, groups[1].kind)
	assert.Len(t, groups[1].sensors, 2)
	assert.Equal(t, sensor.Voltage, groups[2].kind)
	assert.Equal(t, sensor.SensorType("Energy"), groups[3].kind)
}

func TestCell(t *testing.T) {
	assert.Equal(t, "61.50 °C", cell(sensor.Float(61.5), "°C"))
	assert.Equal(t, "0.00 RPM", cell(sensor.Float(0), "RPM"))
	assert.Equal(t, "N/A", cell(nil, "°C"))
	assert.Equal(t, "12.00", cell(sensor.Float(12), ""))
}
