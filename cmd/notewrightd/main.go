// File path: cmd/notewrightd/main.go
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/clearscribe/notewright/internal/api"
	"github.com/clearscribe/notewright/internal/common"
	"github.com/clearscribe/notewright/internal/emr"
	"github.com/clearscribe/notewright/internal/llm"
	"github.com/clearscribe/notewright/internal/merge"
	"github.com/clearscribe/notewright/internal/sqlite"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("notewright: .env file not loaded", "error", err)
	} else {
		logger.Info("notewright: environment loaded from .env")
	}

	addr := flag.String("addr", ":8084", "listen address")
	dbPath := flag.String("db", defaultArchivePath(), "path to the note archive database (empty disables persistence)")
	profilesPath := flag.String("profiles", "", "path to a JSON file of EMR profile overrides")
	gatewayTimeout := flag.String("gateway-timeout", "45s", "per-call timeout for generation providers")
	flag.Parse()

	logger.Info("notewright: startup initiated", "addr", *addr, "db", *dbPath)

	timeout, err := time.ParseDuration(strings.TrimSpace(*gatewayTimeout))
	if err != nil {
		logger.Error("notewright: invalid gateway timeout", "value", *gatewayTimeout, "error", err)
		fmt.Println("gateway timeout error:", err)
		os.Exit(1)
	}

	profiles, err := emr.LoadRegistry(*profilesPath)
	if err != nil {
		logger.Error("notewright: profile registry load failed", "error", err)
		fmt.Println("profile registry error:", err)
		os.Exit(1)
	}
	logger.Info("notewright: emr profiles loaded", "ids", profiles.IDs())

	primary := llm.NewProvider()
	fallback := llm.NewFallbackProvider()
	logger.Info("notewright: generation providers ready",
		"primary", primary.Name(), "fallback", fallback.Name())

	engine := merge.New(
		llm.NewProviderGateway(primary, timeout),
		llm.NewProviderGateway(fallback, timeout),
	)

	var archive *sqlite.Store
	if trimmed := strings.TrimSpace(*dbPath); trimmed != "" {
		archive, err = sqlite.Open(trimmed)
		if err != nil {
			logger.Error("notewright: archive open failed", "path", trimmed, "error", err)
			fmt.Println("archive error:", err)
			os.Exit(1)
		}
		defer archive.Close()
		logger.Info("notewright: note archive ready", "path", trimmed)
	} else {
		logger.Warn("notewright: persistence disabled; merges will not be archived")
	}

	server, err := api.NewServer(profiles, engine, archive)
	if err != nil {
		logger.Error("notewright: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("notewright: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("notewright: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

func defaultArchivePath() string {
	return filepath.Join("data", "notes.db")
}
