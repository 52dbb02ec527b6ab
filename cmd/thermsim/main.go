// Package main provides thermsim, a command-line runner for a single .vxm
// model: transient or steady-state. A transient run writes temperature and
// heat-flow CSV files into the -out directory; a steady-state run prints one
// temperature per node to stdout. Sensitivity and failure-sweep runs are
// served over HTTP only.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.ngs.io/thermosat/internal/adapter/modelstore"
	"go.ngs.io/thermosat/internal/adapter/results"
	"go.ngs.io/thermosat/internal/domain"
	"go.ngs.io/thermosat/internal/usecase"
)

const version = "0.1.0"

func main() {
	modelPath := flag.String("model", "", "Path to a .vxm model file (required)")
	mode := flag.String("mode", "transient", "Operation: transient or steady")
	coatingMapPath := flag.String("coating-map", "", "Optional NetCDF coating property overlay")
	tStart := flag.String("start", "", "Simulation start time, RFC3339 (required for transient; reference time for steady)")
	tEnd := flag.String("end", "", "Simulation end time, RFC3339 (required for transient)")
	stepSeconds := flag.Float64("step", 10, "Initial step size in seconds")
	tauSeconds := flag.Float64("tau", 1e-3, "Step-accept tolerance (K)")
	outputGridSeconds := flag.Float64("output-grid", 60, "Output sampling interval in seconds")
	crankNicolson := flag.Bool("crank-nicolson", false, "Use Crank-Nicolson (theta=0.5) instead of backward Euler")
	units := flag.String("units", "si", "Output units: si or imperial")
	outDir := flag.String("out", ".", "Directory to write results into")
	deadlineSeconds := flag.Float64("deadline", 0, "Wall-clock deadline in seconds (0 disables)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("thermsim version %s\n", version)
		return
	}

	if *modelPath == "" {
		log.Fatalf("missing required flag -model")
	}

	provider := modelProvider(*modelPath, *coatingMapPath)
	id := strings.TrimSuffix(filepath.Base(*modelPath), filepath.Ext(*modelPath))
	model, err := provider.LoadModel(id)
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}

	u, err := results.ParseUnits(*units)
	if err != nil {
		log.Fatalf("invalid -units: %v", err)
	}

	ctx, cancel := runContext(*deadlineSeconds)
	defer cancel()

	solverUC := usecase.NewSolverUseCase(0)

	switch *mode {
	case "transient":
		cfg, err := transientConfig(*tStart, *tEnd, *stepSeconds, *tauSeconds, *outputGridSeconds, *crankNicolson)
		if err != nil {
			log.Fatalf("%v", err)
		}
		runTransient(ctx, solverUC, model, cfg, u, *outDir)
	case "steady":
		runSteady(ctx, solverUC, model, *tStart)
	default:
		log.Fatalf("unsupported -mode %q (transient, steady supported from the CLI; sensitivity and failure-sweep are served over HTTP)", *mode)
	}
}

func modelProvider(modelPath, coatingMapPath string) modelstore.Provider {
	dir := filepath.Dir(modelPath)
	base := modelstore.NewFileProvider(dir)
	if coatingMapPath == "" {
		return base
	}
	overlay, err := modelstore.NewNetCDFOverlayProvider(base, coatingMapPath)
	if err != nil {
		log.Fatalf("failed to load coating map: %v", err)
	}
	return overlay
}

func runContext(deadlineSeconds float64) (context.Context, context.CancelFunc) {
	if deadlineSeconds <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), time.Duration(deadlineSeconds*float64(time.Second)))
}

func transientConfig(startStr, endStr string, step, tau, outputGrid float64, crankNicolson bool) (domain.SimulationConfig, error) {
	if startStr == "" || endStr == "" {
		return domain.SimulationConfig{}, fmt.Errorf("-start and -end are required for -mode transient")
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return domain.SimulationConfig{}, fmt.Errorf("invalid -start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return domain.SimulationConfig{}, fmt.Errorf("invalid -end: %w", err)
	}
	return domain.SimulationConfig{
		TStart:             start,
		TEnd:               end,
		InitialStepSeconds: step,
		ToleranceTau:       tau,
		OutputGridSeconds:  outputGrid,
		UseCrankNicolson:   crankNicolson,
	}, nil
}

func runTransient(ctx context.Context, uc *usecase.SolverUseCase, model *domain.Model, cfg domain.SimulationConfig, u results.Units, outDir string) {
	result, err := uc.RunTransient(ctx, model, cfg, domain.DefaultEnvironmentPreset())
	if err != nil {
		log.Fatalf("transient run failed: %v", err)
	}

	log.Printf("run %s: %d samples, energy relative error %.3g", result.RunID, len(result.History.Samples), result.Energy.RelativeError)

	tempPath := filepath.Join(outDir, result.RunID+"_temperatures.csv")
	flowPath := filepath.Join(outDir, result.RunID+"_flows.csv")

	tempFile, err := os.Create(tempPath)
	if err != nil {
		log.Fatalf("failed to create %s: %v", tempPath, err)
	}
	defer tempFile.Close()
	if err := results.WriteTemperatureCSV(tempFile, result.History, u); err != nil {
		log.Fatalf("failed to write temperatures: %v", err)
	}

	flowFile, err := os.Create(flowPath)
	if err != nil {
		log.Fatalf("failed to create %s: %v", flowPath, err)
	}
	defer flowFile.Close()
	if err := results.WriteHeatFlowCSV(flowFile, result.History, u); err != nil {
		log.Fatalf("failed to write flows: %v", err)
	}

	log.Printf("wrote %s and %s", tempPath, flowPath)
}

func runSteady(ctx context.Context, uc *usecase.SolverUseCase, model *domain.Model, refTimeStr string) {
	refTime := time.Now().UTC()
	if refTimeStr != "" {
		t, err := time.Parse(time.RFC3339, refTimeStr)
		if err != nil {
			log.Fatalf("invalid -start: %v", err)
		}
		refTime = t
	}
	result, err := uc.RunSteadyState(ctx, model, domain.SteadyStateConfig{ReferenceTime: refTime}, domain.DefaultEnvironmentPreset())
	if err != nil {
		log.Fatalf("steady-state run failed: %v", err)
	}
	log.Printf("run %s converged in %d iterations (||R||=%g)", result.RunID, result.Iterations, result.FinalResidualNorm)
	for i, n := range model.Nodes {
		fmt.Printf("%s\t%.4f\n", n.ID, result.Temperatures[i])
	}
}
