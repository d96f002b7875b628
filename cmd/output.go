package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/anicoll/baratron-integration/internal/pkg/baratron"
	"github.com/anicoll/baratron-integration/internal/pkg/model"
	"github.com/anicoll/baratron-integration/internal/pkg/registry"
)

const (
	timeoutMessage = "Could not connect to device."
	tableFormat    = "%-10s %14s %-16s %14s %-40s %-16s %10s %10s\n"
	missing        = "-"
)

var errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

func errorMessage(err error) string {
	if errors.Is(err, baratron.ErrTimeout) {
		return timeoutMessage
	}
	return err.Error()
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render(errorMessage(err)))
}

// printState writes state as indented JSON; map keys come out sorted.
func printState(w io.Writer, state model.State) error {
	data, err := json.MarshalIndent(jsonValues(state), "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// jsonValues writes whole floats with one decimal, so 2 hours prints as 2.0.
func jsonValues(state model.State) map[string]any {
	out := make(map[string]any, len(state))
	for name, v := range state {
		if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1e16 {
			out[name] = json.Number(strconv.FormatFloat(f, 'f', 1, 64))
			continue
		}
		out[name] = v
	}
	return out
}

func printHeader(w io.Writer) {
	fmt.Fprintf(w, tableFormat,
		"time (s)", "pressure", "units", "full scale", "system status", "led color", "run (h)", "wait (h)")
}

func printRow(w io.Writer, elapsed time.Duration, state model.State) {
	fmt.Fprintf(w, tableFormat,
		fmt.Sprintf("%.2f", elapsed.Seconds()),
		float(state, registry.Pressure, "%.6g"),
		text(state, registry.PressureUnits),
		float(state, registry.FullScalePressure, "%.6g"),
		text(state, registry.SystemStatus),
		text(state, registry.LEDColor),
		float(state, registry.RunHours, "%.2f"),
		float(state, registry.WaitHours, "%.2f"),
	)
}

func float(state model.State, name, format string) string {
	v, ok := state.Float(name)
	if !ok {
		return missing
	}
	return fmt.Sprintf(format, v)
}

func text(state model.State, name string) string {
	v, ok := state.String(name)
	if !ok {
		return missing
	}
	return v
}
