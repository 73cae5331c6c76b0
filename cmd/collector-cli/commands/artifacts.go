package commands

import (
	"fmt"

	"europarl-collector/lib/serviceutil"
	"europarl-collector/services/artifacts/db"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var artifactsRun *string

func init() {
	artifactsRun = artifactsListCmd.Flags().String("run", "", "Only show artifacts from this run.")
	artifactsCmd.AddCommand(artifactsListCmd)
	artifactsCmd.AddCommand(artifactsPruneCmd)
	rootCmd.AddCommand(artifactsCmd)
}

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Inspects and maintains stored run artifacts.",
}

var artifactsListCmd = &cobra.Command{
	Use:   "list [--run <run_id>]",
	Short: "Lists stored artifacts, newest runs first.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := openArtifacts(cfg)

		var stored []db.Artifact
		var err error
		if *artifactsRun != "" {
			stored, err = store.ForRun(cmd.Context(), *artifactsRun)
		} else {
			stored, err = store.List(cmd.Context())
		}
		if err != nil {
			serviceutil.Fatal("list artifacts", err)
		}

		renderArtifacts(stored)
	},
}

var artifactsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Deletes every artifact past its retention window.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := openArtifacts(cfg)

		pruned, err := store.Prune(cmd.Context())
		if err != nil {
			serviceutil.Fatal("prune artifacts", err)
		}
		fmt.Printf("pruned %d expired artifact(s)\n", pruned)
	},
}

func renderArtifacts(stored []db.Artifact) {
	t := newTable()
	t.AppendHeader(table.Row{"run", "name", "file", "size", "sha256", "expires"})
	for _, artifact := range stored {
		t.AppendRow(table.Row{
			artifact.RunID, artifact.Name, artifact.FileName,
			humanize.Bytes(uint64(artifact.SizeBytes)),
			artifact.Sha256[:12],
			formatUnix(artifact.ExpiresAt),
		})
	}
	t.Render()
}
