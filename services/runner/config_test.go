package runner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipelineConfigValidate(t *testing.T) {
	valid := func() PipelineConfig {
		return PipelineConfig{
			Schedule: "0 3 * * 1",
			Scrape: ScrapeConfig{
				Command: []string{"./europarl-scraper"},
				Secrets: []string{"HF_TOKEN", "HF_USERNAME"},
			},
			Artifacts: standardArtifacts(),
		}
	}
	require.NoError(t, valid().Validate())

	// a schedule is optional, manual-only pipelines are fine
	unscheduled := valid()
	unscheduled.Schedule = ""
	require.NoError(t, unscheduled.Validate())

	testCases := []struct {
		name   string
		mutate func(*PipelineConfig)
	}{
		{"bad schedule", func(c *PipelineConfig) { c.Schedule = "every monday" }},
		{"no scrape command", func(c *PipelineConfig) { c.Scrape.Command = nil }},
		{"empty secret name", func(c *PipelineConfig) { c.Scrape.Secrets = []string{""} }},
		{"artifact without a name", func(c *PipelineConfig) { c.Artifacts[0].Name = "" }},
		{"artifact without a file", func(c *PipelineConfig) { c.Artifacts[0].File = "" }},
		{"duplicate artifact name", func(c *PipelineConfig) { c.Artifacts[1].Name = c.Artifacts[0].Name }},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			config := valid()
			testCase.mutate(&config)
			require.Error(t, config.Validate())
		})
	}
}
