// Package results exports TransientResult/History data in the two shapes
// spec.md §6 requires: CSV (temperature and heat-flow tables) and JSON
// ("results-only" and "full-model-results").
package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.ngs.io/thermosat/internal/domain"
)

// Units selects the unit system applied to every numeric column (§6, "a
// single flag units=si|imperial").
type Units int

const (
	SI Units = iota
	Imperial
)

// ParseUnits parses the units=si|imperial query/flag value.
func ParseUnits(s string) (Units, error) {
	switch s {
	case "", "si":
		return SI, nil
	case "imperial":
		return Imperial, nil
	default:
		return 0, fmt.Errorf("unknown units %q, expected si|imperial", s)
	}
}

func convertTemperature(u Units, kelvin float64) float64 {
	if u == SI {
		return kelvin
	}
	return kelvin*9.0/5.0 - 459.67 // K -> degF
}

func temperatureLabel(u Units) string {
	if u == SI {
		return "K"
	}
	return "°F"
}

func convertPower(u Units, watts float64) float64 {
	if u == SI {
		return watts
	}
	return watts * 3.412141633 // W -> BTU/h
}

func powerLabel(u Units) string {
	if u == SI {
		return "W"
	}
	return "BTU/h"
}

// shortID returns the trailing segment of a conductor id after its last
// separator, used for the CSV heat-flow column label "Conductor_<short id>".
func shortID(id string) string {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '/' || id[i] == ':' {
			return id[i+1:]
		}
	}
	return id
}

// WriteTemperatureCSV writes one row per recorded sample: "Time (s)" followed
// by one column per node labeled "<node id> (K|°F)". Nodes carry no separate
// display name, so the column label is always the node id.
func WriteTemperatureCSV(w io.Writer, h *domain.History, u Units) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := make([]string, 0, len(h.NodeIDs)+1)
	header = append(header, "Time (s)")
	for _, id := range h.NodeIDs {
		header = append(header, fmt.Sprintf("%s (%s)", id, temperatureLabel(u)))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	if len(h.Samples) == 0 {
		return cw.Error()
	}
	t0 := h.Samples[0].Time
	row := make([]string, len(header))
	for _, s := range h.Samples {
		row[0] = strconv.FormatFloat(s.Time.Sub(t0).Seconds(), 'f', 6, 64)
		for i, v := range s.T {
			row[i+1] = strconv.FormatFloat(convertTemperature(u, v), 'f', 6, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

// WriteHeatFlowCSV writes one row per recorded flow sample: "Time (s)"
// followed by one column per conductor labeled "Conductor_<short id>
// (W|BTU/h)" (§6). All conductors are assumed to share the same sample
// timeline (the stepper records one flow sample per conductor per output
// grid point).
func WriteHeatFlowCSV(w io.Writer, h *domain.History, u Units) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := make([]string, 0, len(h.ConductorIDs)+1)
	header = append(header, "Time (s)")
	for _, id := range h.ConductorIDs {
		header = append(header, fmt.Sprintf("Conductor_%s (%s)", shortID(id), powerLabel(u)))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	n := 0
	for _, id := range h.ConductorIDs {
		if len(h.Flows[id]) > n {
			n = len(h.Flows[id])
		}
	}
	if n == 0 {
		return cw.Error()
	}

	var t0 time.Time
	for _, id := range h.ConductorIDs {
		if len(h.Flows[id]) > 0 {
			t0 = h.Flows[id][0].Time
			break
		}
	}

	row := make([]string, len(header))
	for i := 0; i < n; i++ {
		set := false
		for ci, id := range h.ConductorIDs {
			samples := h.Flows[id]
			if i >= len(samples) {
				row[ci+1] = ""
				continue
			}
			if !set {
				row[0] = strconv.FormatFloat(samples[i].Time.Sub(t0).Seconds(), 'f', 6, 64)
				set = true
			}
			row[ci+1] = strconv.FormatFloat(convertPower(u, samples[i].FlowW), 'f', 6, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

// ResultsOnly is the "results-only" JSON export shape (§6): run metadata
// plus per-node histories and optional per-conductor flow histories.
type ResultsOnly struct {
	RunID        string                         `json:"runId"`
	NodeTemps    map[string][]TimeSeriesPoint    `json:"nodeTemperatures"`
	ConductorFlo map[string][]TimeSeriesPoint    `json:"conductorFlows,omitempty"`
	Energy       domain.EnergyBalance           `json:"energy"`
}

// TimeSeriesPoint is one JSON-serialized (time, value) pair.
type TimeSeriesPoint struct {
	TimeSeconds float64 `json:"t"`
	Value       float64 `json:"v"`
}

// FullModelResults is the "full-model-results" shape (§6): ResultsOnly plus
// a snapshot of the model and the simulation config that produced it.
type FullModelResults struct {
	ResultsOnly
	Model *domain.Model            `json:"model"`
	Config domain.SimulationConfig `json:"config"`
}

func buildResultsOnly(result *domain.TransientResult) ResultsOnly {
	ro := ResultsOnly{
		RunID:     result.RunID,
		NodeTemps: make(map[string][]TimeSeriesPoint, len(result.History.NodeIDs)),
		Energy:    result.Energy,
	}
	if len(result.History.Samples) > 0 {
		t0 := result.History.Samples[0].Time
		for idx, id := range result.History.NodeIDs {
			series := make([]TimeSeriesPoint, len(result.History.Samples))
			for i, s := range result.History.Samples {
				series[i] = TimeSeriesPoint{TimeSeconds: s.Time.Sub(t0).Seconds(), Value: s.T[idx]}
			}
			ro.NodeTemps[id] = series
		}
	}
	if len(result.History.Flows) > 0 {
		ro.ConductorFlo = make(map[string][]TimeSeriesPoint, len(result.History.Flows))
		for id, flows := range result.History.Flows {
			if len(flows) == 0 {
				continue
			}
			t0 := flows[0].Time
			series := make([]TimeSeriesPoint, len(flows))
			for i, f := range flows {
				series[i] = TimeSeriesPoint{TimeSeconds: f.Time.Sub(t0).Seconds(), Value: f.FlowW}
			}
			ro.ConductorFlo[id] = series
		}
	}
	return ro
}

// WriteResultsOnlyJSON marshals the "results-only" shape to w.
func WriteResultsOnlyJSON(w io.Writer, result *domain.TransientResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildResultsOnly(result))
}

// WriteFullModelResultsJSON marshals the "full-model-results" shape to w.
func WriteFullModelResultsJSON(w io.Writer, model *domain.Model, cfg domain.SimulationConfig, result *domain.TransientResult) error {
	full := FullModelResults{
		ResultsOnly: buildResultsOnly(result),
		Model:       model,
		Config:      cfg,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(full)
}
