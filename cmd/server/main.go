// Package main provides the thermosat HTTP server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"

	httpHandler "go.ngs.io/thermosat/internal/http"
	"go.ngs.io/thermosat/internal/usecase"
)

const version = "0.1.0"

func main() {
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("thermosat version %s\n", version)
		return
	}

	port := getEnv("PORT", "8080")
	corsOrigins := parseOrigins(getEnv("CORS_ALLOWED_ORIGINS", ""))
	poolSize := getEnvInt("WORKER_POOL_SIZE", runtime.GOMAXPROCS(0))

	log.Printf("Starting thermosat server...")
	log.Printf("Port: %s", port)
	log.Printf("Worker pool size: %d", poolSize)

	solverUC := usecase.NewSolverUseCase(poolSize)
	router := httpHandler.SetupRouter(solverUC, corsOrigins)

	addr := fmt.Sprintf(":%s", port)
	log.Printf("Server listening on %s", addr)
	log.Printf("API endpoints:")
	log.Printf("  - POST /v1/run/transient")
	log.Printf("  - POST /v1/run/steady-state")
	log.Printf("  - POST /v1/run/sensitivity")
	log.Printf("  - POST /v1/run/failure-sweep")
	log.Printf("  - GET  /healthz")

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable, falling back to
// defaultValue if unset or unparseable.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// parseOrigins splits a comma-separated origin list; an empty input means
// "allow all origins" (handled by httpHandler.SetupRouter).
func parseOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("thermosat Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  thermosat-server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println("  WORKER_POOL_SIZE        Max concurrent sub-runs for sensitivity/failure-sweep (default: GOMAXPROCS)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  thermosat-server")
	fmt.Println()
	fmt.Println("  # Start server on custom port")
	fmt.Println("  PORT=3000 thermosat-server")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET  /healthz                   Health check")
	fmt.Println("  POST /v1/run/transient          Run a transient simulation")
	fmt.Println("  POST /v1/run/steady-state       Run a steady-state solve")
	fmt.Println("  POST /v1/run/sensitivity        Run a finite-difference sensitivity sweep")
	fmt.Println("  POST /v1/run/failure-sweep      Run a parallel failure-case sweep")
	fmt.Println()
}
