// Package internal provides the App struct that wires all components of the
// specflow workflow engine together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sdd-tools/specflow/internal/cli"
	"github.com/sdd-tools/specflow/internal/core"
	"github.com/sdd-tools/specflow/internal/gitx"
	"github.com/sdd-tools/specflow/internal/observability"
	"github.com/sdd-tools/specflow/internal/storage"
	"github.com/sdd-tools/specflow/pkg/models"
)

// App holds all service dependencies for the specflow system.
type App struct {
	BasePath string

	Config *models.EngineConfig

	// Storage layer
	SpecStore storage.SpecStoreManager

	// Version control
	Branches gitx.BranchLifecycle

	// Observability
	EventLog observability.EventLog

	// Engine
	Engine *core.Engine
}

// ResolveBasePath returns the data directory: $SPECFLOW_HOME if set,
// otherwise the current working directory.
func ResolveBasePath() string {
	if p := os.Getenv("SPECFLOW_HOME"); p != "" {
		return p
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// NewApp creates and wires all components. basePath is the root directory
// where specifications and the audit log are stored.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	cfg, err := core.NewConfigLoader(basePath).Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	app.Config = cfg

	app.SpecStore = storage.NewSpecStore(basePath)

	// The git adapter degrades to warnings outside a repository, so the CLI
	// adapter is always safe to wire.
	app.Branches = gitx.NewCLIAdapter(basePath)

	app.EventLog = observability.NewJSONLEventLog(filepath.Join(basePath, ".specflow_events.jsonl"))

	app.Engine = core.NewEngine(cfg, app.SpecStore, app.Branches, observability.NewRecorder(app.EventLog))

	cli.Engine = app.Engine
	cli.EventLog = app.EventLog

	return app, nil
}
