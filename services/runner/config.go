package runner

import (
	"fmt"

	"europarl-collector/lib/chrono"
)

// DefaultSchedule is what daemons fall back to when no schedule is
// configured: weekly, monday 03:00 utc.
const DefaultSchedule = "0 3 * * 1"

// SetupConfig describes the dependency install step of a run.
type SetupConfig struct {
	// dependency manifest copied into the workspace before the install
	// command runs, empty when the command needs no manifest
	Manifest string `json:"manifest"`
	// install command argv, run inside the workspace
	Command []string `json:"command"`
}

// ScrapeConfig describes the scraper subprocess.
type ScrapeConfig struct {
	// scraper command argv, run inside the workspace
	Command []string `json:"command"`
	// names of the environment variables holding the scraper's
	// credentials. their values are read from the daemon environment at
	// the start of a run and handed over through the subprocess
	// environment only: never argv, never logs, never the run record.
	Secrets []string `json:"secrets"`
	// hard cap on a single scrape, 0 means none
	TimeoutMinutes int `json:"timeout_minutes"`
}

// ArtifactConfig names one file the scraper leaves behind that is kept as a
// run artifact.
type ArtifactConfig struct {
	// path relative to the workspace
	File string `json:"file"`
	// name the artifact is stored under
	Name string `json:"name"`
	// 0 falls back to the store default of 7 days
	RetentionDays int `json:"retention_days"`
}

type PipelineConfig struct {
	// cron expression for scheduled runs, e.g. "0 3 * * 1"
	Schedule string `json:"schedule"`
	// directory per-run workspaces are created under
	WorkspaceRoot string `json:"workspace_root"`
	// keep workspaces after their run finishes, for debugging
	KeepWorkspace bool             `json:"keep_workspace"`
	Setup         SetupConfig      `json:"setup"`
	Scrape        ScrapeConfig     `json:"scrape"`
	Artifacts     []ArtifactConfig `json:"artifacts"`
}

// Validate reports the first problem that would keep this configuration
// from running.
func (c PipelineConfig) Validate() error {
	if c.Schedule != "" {
		if err := chrono.ValidateSpec(c.Schedule); err != nil {
			return fmt.Errorf("schedule %q: %w", c.Schedule, err)
		}
	}
	if len(c.Scrape.Command) == 0 {
		return fmt.Errorf("scrape.command must not be empty")
	}
	for _, name := range c.Scrape.Secrets {
		if name == "" {
			return fmt.Errorf("secret names must not be empty")
		}
	}

	seen := map[string]bool{}
	for _, artifact := range c.Artifacts {
		if artifact.File == "" || artifact.Name == "" {
			return fmt.Errorf("artifacts need both a file and a name")
		}
		if seen[artifact.Name] {
			return fmt.Errorf("artifact name %q is used twice", artifact.Name)
		}
		seen[artifact.Name] = true
	}
	return nil
}
