// Package dashboard fetches the latest reading once and renders it into
// named display targets.
package dashboard

import (
	"fmt"
	"io"
	"sync"
)

// Target names one output slot of the dashboard.
type Target string

const (
	TargetTemperature Target = "temperatureValue"
	TargetHumidity    Target = "humidityValue"
	TargetMoisture    Target = "moistureValue"
	TargetStatus      Target = "status"
)

// Targets lists every target in render order.
var Targets = []Target{TargetTemperature, TargetHumidity, TargetMoisture, TargetStatus}

// Placeholder is written into the measurement targets when no reading is shown.
const Placeholder = "--"

// Display receives text for named targets.
type Display interface {
	SetText(target Target, text string)
}

// Board is an in-memory Display safe for concurrent use.
type Board struct {
	mu    sync.RWMutex
	texts map[Target]string
}

// NewBoard creates a Board with every measurement target showing the placeholder.
func NewBoard() *Board {
	b := &Board{texts: make(map[Target]string, len(Targets))}
	for _, t := range Targets {
		b.texts[t] = Placeholder
	}
	b.texts[TargetStatus] = ""
	return b
}

// SetText implements Display.
func (b *Board) SetText(target Target, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.texts[target] = text
}

// Text returns the current text of one target.
func (b *Board) Text(target Target) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.texts[target]
}

// Snapshot returns a copy of every target's text.
func (b *Board) Snapshot() map[Target]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[Target]string, len(b.texts))
	for k, v := range b.texts {
		out[k] = v
	}
	return out
}

// Render writes the board as aligned "label: text" lines.
func (b *Board) Render(w io.Writer) error {
	snap := b.Snapshot()
	rows := []struct {
		label  string
		target Target
	}{
		{"Temperature", TargetTemperature},
		{"Humidity", TargetHumidity},
		{"Moisture", TargetMoisture},
		{"Status", TargetStatus},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%-12s %s\n", row.label+":", snap[row.target]); err != nil {
			return fmt.Errorf("render %s: %w", row.target, err)
		}
	}
	return nil
}
