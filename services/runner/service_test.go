package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"europarl-collector/lib/chrono"
	"europarl-collector/lib/testutil"
	"europarl-collector/services/artifacts"
	artifactsdb "europarl-collector/services/artifacts/db"
	"europarl-collector/services/runner/db"

	"github.com/stretchr/testify/require"
)

func testSecrets(name string) (string, bool) {
	switch name {
	case "HF_TOKEN":
		return "hf_testtoken", true
	case "HF_USERNAME":
		return "someone", true
	}
	return "", false
}

func setupRunner(t *testing.T, config PipelineConfig) (Service, artifacts.Service) {
	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/runner",
		DbSchema: db.Schema + artifactsdb.Schema,
	})
	t.Cleanup(cleanup)

	if config.WorkspaceRoot == "" {
		config.WorkspaceRoot = t.TempDir()
	}
	clock := chrono.NewStandardImpl()
	store := artifacts.NewService(result.DB, t.TempDir(), clock)
	service := NewService(result.DB, store, config, clock).WithEnv(testSecrets)
	return service, store
}

func standardArtifacts() []ArtifactConfig {
	return []ArtifactConfig{
		{File: "europarl_xml_urls.txt", Name: "europarl-xml-urls", RetentionDays: 7},
		{File: "europarl_dutch_data_sample.json", Name: "europarl-dutch-data-sample", RetentionDays: 7},
	}
}

func artifactNames(stored []artifactsdb.Artifact) []string {
	var names []string
	for _, artifact := range stored {
		names = append(names, artifact.Name)
	}
	return names
}

func TestExecuteSuccess(t *testing.T) {
	manifest := filepath.Join(t.TempDir(), "requirements.txt")
	require.NoError(t, os.WriteFile(manifest, []byte("beautifulsoup4\nlxml\n"), 0644))

	service, store := setupRunner(t, PipelineConfig{
		Setup: SetupConfig{
			Manifest: manifest,
			// proves the manifest really was provisioned into the workspace
			Command: []string{"sh", "-c", "test -f requirements.txt"},
		},
		Scrape: ScrapeConfig{
			Command: []string{"sh", "-c",
				"printf 'https://example.org/a.xml\\n' > europarl_xml_urls.txt && printf '[]' > europarl_dutch_data_sample.json"},
			Secrets: []string{"HF_TOKEN", "HF_USERNAME"},
		},
		Artifacts: standardArtifacts(),
	})

	runId, err := service.Execute(context.Background(), TriggerManual)
	require.NoError(t, err)

	run, err := service.GetRun(context.Background(), runId)
	require.NoError(t, err)
	require.Equal(t, string(StatusSuccess), run.Status)
	require.Equal(t, string(StageDone), run.Stage)
	require.Equal(t, string(TriggerManual), run.TriggerKind)
	require.True(t, run.ScrapeExitCode.Valid)
	require.EqualValues(t, 0, run.ScrapeExitCode.Int64)
	require.True(t, run.FinishedAt.Valid)
	require.Empty(t, run.Error)

	stored, err := store.ForRun(context.Background(), runId)
	require.NoError(t, err)
	require.Equal(t,
		[]string{"europarl-dutch-data-sample", "europarl-xml-urls"},
		artifactNames(stored))

	// the workspace is gone once the run is over
	_, err = os.Stat(run.Workspace)
	require.True(t, os.IsNotExist(err))
}

func TestExecuteScraperFailureKeepsPartialArtifacts(t *testing.T) {
	service, store := setupRunner(t, PipelineConfig{
		Scrape: ScrapeConfig{
			Command: []string{"sh", "-c",
				"printf 'https://example.org/a.xml\\n' > europarl_xml_urls.txt; exit 3"},
			Secrets: []string{"HF_TOKEN"},
		},
		Artifacts: standardArtifacts(),
	})

	runId, err := service.Execute(context.Background(), TriggerScheduled)
	require.Error(t, err)

	run, err := service.GetRun(context.Background(), runId)
	require.NoError(t, err)
	require.Equal(t, string(StatusFailure), run.Status)
	require.Equal(t, string(StageScrape), run.Stage)
	require.True(t, run.ScrapeExitCode.Valid)
	require.EqualValues(t, 3, run.ScrapeExitCode.Int64)
	require.Contains(t, run.Error, "exited with code 3")

	// the file the scraper did write is kept, the missing one is skipped
	stored, err := store.ForRun(context.Background(), runId)
	require.NoError(t, err)
	require.Equal(t, []string{"europarl-xml-urls"}, artifactNames(stored))
}

func TestExecuteInstallFailureKeepsNoArtifacts(t *testing.T) {
	service, store := setupRunner(t, PipelineConfig{
		Setup: SetupConfig{
			Command: []string{"sh", "-c", "echo 'resolver error' >&2; exit 1"},
		},
		Scrape: ScrapeConfig{
			Command: []string{"sh", "-c", "printf 'urls\\n' > europarl_xml_urls.txt"},
			Secrets: []string{"HF_TOKEN"},
		},
		Artifacts: standardArtifacts(),
	})

	runId, err := service.Execute(context.Background(), TriggerScheduled)
	require.Error(t, err)

	run, err := service.GetRun(context.Background(), runId)
	require.NoError(t, err)
	require.Equal(t, string(StatusFailure), run.Status)
	require.Equal(t, string(StageInstall), run.Stage)
	require.False(t, run.ScrapeExitCode.Valid)

	stored, err := store.ForRun(context.Background(), runId)
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestManualAndScheduledRunsAreIdentical(t *testing.T) {
	service, store := setupRunner(t, PipelineConfig{
		Scrape: ScrapeConfig{
			Command: []string{"sh", "-c",
				"printf 'x\\n' > europarl_xml_urls.txt && printf '[]' > europarl_dutch_data_sample.json"},
			Secrets: []string{"HF_TOKEN"},
		},
		Artifacts: standardArtifacts(),
	})

	scheduledId, err := service.Execute(context.Background(), TriggerScheduled)
	require.NoError(t, err)
	manualId, err := service.Execute(context.Background(), TriggerManual)
	require.NoError(t, err)

	scheduled, err := service.GetRun(context.Background(), scheduledId)
	require.NoError(t, err)
	manual, err := service.GetRun(context.Background(), manualId)
	require.NoError(t, err)

	// the trigger is bookkeeping, everything else about the runs matches
	require.Equal(t, string(TriggerScheduled), scheduled.TriggerKind)
	require.Equal(t, string(TriggerManual), manual.TriggerKind)
	require.Equal(t, scheduled.Status, manual.Status)
	require.Equal(t, scheduled.Stage, manual.Stage)
	require.Equal(t, scheduled.ScrapeExitCode, manual.ScrapeExitCode)

	scheduledArtifacts, err := store.ForRun(context.Background(), scheduledId)
	require.NoError(t, err)
	manualArtifacts, err := store.ForRun(context.Background(), manualId)
	require.NoError(t, err)
	require.Equal(t, artifactNames(scheduledArtifacts), artifactNames(manualArtifacts))
}

func TestSecretsOnlyReachTheScraper(t *testing.T) {
	service, _ := setupRunner(t, PipelineConfig{
		KeepWorkspace: true,
		Setup: SetupConfig{
			Command: []string{"sh", "-c", `printf '%s' "${HF_TOKEN:-absent}" > install_env.txt`},
		},
		Scrape: ScrapeConfig{
			Command: []string{"sh", "-c",
				`printf '%s' "$HF_TOKEN" > scrape_token.txt && printf '%s' "$HF_USERNAME" > scrape_user.txt`},
			Secrets: []string{"HF_TOKEN", "HF_USERNAME"},
		},
	})

	runId, err := service.Execute(context.Background(), TriggerManual)
	require.NoError(t, err)
	run, err := service.GetRun(context.Background(), runId)
	require.NoError(t, err)

	// the install step runs with the secrets scrubbed out
	install, err := os.ReadFile(filepath.Join(run.Workspace, "install_env.txt"))
	require.NoError(t, err)
	require.Equal(t, "absent", string(install))

	// the scraper gets them through its environment
	token, err := os.ReadFile(filepath.Join(run.Workspace, "scrape_token.txt"))
	require.NoError(t, err)
	require.Equal(t, "hf_testtoken", string(token))
	user, err := os.ReadFile(filepath.Join(run.Workspace, "scrape_user.txt"))
	require.NoError(t, err)
	require.Equal(t, "someone", string(user))
}

func TestScraperOutputIsLogged(t *testing.T) {
	service, _ := setupRunner(t, PipelineConfig{
		KeepWorkspace: true,
		Scrape: ScrapeConfig{
			Command: []string{"sh", "-c", "echo collecting urls; echo resolver warning >&2"},
			Secrets: []string{"HF_TOKEN"},
		},
	})

	runId, err := service.Execute(context.Background(), TriggerManual)
	require.NoError(t, err)
	run, err := service.GetRun(context.Background(), runId)
	require.NoError(t, err)

	// both output streams end up in the workspace log
	logged, err := os.ReadFile(filepath.Join(run.Workspace, ScraperLogFile))
	require.NoError(t, err)
	require.Contains(t, string(logged), "collecting urls")
	require.Contains(t, string(logged), "resolver warning")
}

func TestExecuteMissingSecret(t *testing.T) {
	service, store := setupRunner(t, PipelineConfig{
		Scrape: ScrapeConfig{
			Command: []string{"sh", "-c", "printf 'x\\n' > europarl_xml_urls.txt"},
			Secrets: []string{"HF_TOKEN", "MISSING_SECRET"},
		},
		Artifacts: standardArtifacts(),
	})

	runId, err := service.Execute(context.Background(), TriggerManual)
	require.Error(t, err)
	require.Contains(t, err.Error(), "MISSING_SECRET")
	// the error names the missing variable, values of present ones never
	// leak into it
	require.NotContains(t, err.Error(), "hf_testtoken")

	run, err := service.GetRun(context.Background(), runId)
	require.NoError(t, err)
	require.Equal(t, string(StatusFailure), run.Status)
	require.Equal(t, string(StageProvision), run.Stage)
	require.False(t, run.ScrapeExitCode.Valid)

	// nothing external ever ran, the workspace was never even created
	_, err = os.Stat(run.Workspace)
	require.True(t, os.IsNotExist(err))

	stored, err := store.ForRun(context.Background(), runId)
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestExecuteCanceledScrapeStillCollects(t *testing.T) {
	service, store := setupRunner(t, PipelineConfig{
		Scrape: ScrapeConfig{
			Command: []string{"sh", "-c",
				"printf 'x\\n' > europarl_xml_urls.txt && sleep 10"},
			Secrets: []string{"HF_TOKEN"},
		},
		Artifacts: standardArtifacts(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	runId, err := service.Execute(ctx, TriggerManual)
	require.Error(t, err)

	run, err := service.GetRun(context.Background(), runId)
	require.NoError(t, err)
	require.Equal(t, string(StatusFailure), run.Status)
	require.False(t, run.ScrapeExitCode.Valid)

	// collection and bookkeeping survive the canceled context
	stored, err := store.ForRun(context.Background(), runId)
	require.NoError(t, err)
	require.Equal(t, []string{"europarl-xml-urls"}, artifactNames(stored))
}

type recordingCron struct {
	spec     string
	callback func()
}

func (c *recordingCron) Cron(spec string, callback func()) error {
	c.spec = spec
	c.callback = callback
	return nil
}

func TestScheduleRegistersAndFires(t *testing.T) {
	service, _ := setupRunner(t, PipelineConfig{
		Schedule: "0 3 * * 1",
		Scrape: ScrapeConfig{
			Command: []string{"sh", "-c", "printf 'x\\n' > europarl_xml_urls.txt"},
			Secrets: []string{"HF_TOKEN"},
		},
		Artifacts: standardArtifacts(),
	})

	cronner := &recordingCron{}
	require.NoError(t, service.Schedule(cronner))
	require.Equal(t, "0 3 * * 1", cronner.spec)
	require.NotNil(t, cronner.callback)

	cronner.callback()
	runs, err := service.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, string(TriggerScheduled), runs[0].TriggerKind)
	require.Equal(t, string(StatusSuccess), runs[0].Status)
}

func TestScheduleWithoutSpec(t *testing.T) {
	service, _ := setupRunner(t, PipelineConfig{
		Scrape: ScrapeConfig{Command: []string{"true"}},
	})
	require.Error(t, service.Schedule(&recordingCron{}))
}
