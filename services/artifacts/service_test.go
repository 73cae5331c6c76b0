package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"europarl-collector/lib/testutil"
	"europarl-collector/services/artifacts/db"

	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Location() *time.Location {
	return time.UTC
}

func setup(t *testing.T) (Service, *testClock, string) {
	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/artifacts",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	clock := &testClock{now: time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)}
	root := t.TempDir()
	return NewService(result.DB, root, clock), clock, root
}

func writeSource(t *testing.T, name string, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestPutAndOpen(t *testing.T) {
	service, clock, root := setup(t)
	ctx := context.Background()

	source := writeSource(t, "europarl_xml_urls.txt", "https://example.org/a.xml\n")
	artifact, err := service.Put(ctx, PutRequest{
		RunId:      "run-1",
		Name:       "europarl-xml-urls",
		SourcePath: source,
	})
	require.NoError(t, err)

	require.Equal(t, "run-1", artifact.RunID)
	require.Equal(t, "europarl-xml-urls", artifact.Name)
	require.Equal(t, "europarl_xml_urls.txt", artifact.FileName)
	require.Equal(t, int64(len("https://example.org/a.xml\n")), artifact.SizeBytes)

	wantDigest := sha256.Sum256([]byte("https://example.org/a.xml\n"))
	require.Equal(t, hex.EncodeToString(wantDigest[:]), artifact.Sha256)

	require.Equal(t, clock.now.Unix(), artifact.CreatedAt)
	require.Equal(t, clock.now.Add(DefaultRetention).Unix(), artifact.ExpiresAt)

	// content lands under <root>/<run>/<name>/<file>
	require.Equal(t, filepath.Join(root, "run-1", "europarl-xml-urls", "europarl_xml_urls.txt"), artifact.Path)

	reader, err := service.Open(ctx, "run-1", "europarl-xml-urls")
	require.NoError(t, err)
	defer reader.Close()
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, "https://example.org/a.xml\n", string(content))
}

func TestPutMissingSource(t *testing.T) {
	service, _, _ := setup(t)
	ctx := context.Background()

	_, err := service.Put(ctx, PutRequest{
		RunId:      "run-1",
		Name:       "europarl-dutch-data-sample",
		SourcePath: filepath.Join(t.TempDir(), "does_not_exist.json"),
	})
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))

	artifacts, err := service.ForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Empty(t, artifacts)
}

func TestPutReplacesExisting(t *testing.T) {
	service, _, _ := setup(t)
	ctx := context.Background()

	first := writeSource(t, "data.json", `[{"URL":"a"}]`)
	_, err := service.Put(ctx, PutRequest{RunId: "run-1", Name: "sample", SourcePath: first})
	require.NoError(t, err)

	second := writeSource(t, "data.json", `[{"URL":"a"},{"URL":"b"}]`)
	_, err = service.Put(ctx, PutRequest{RunId: "run-1", Name: "sample", SourcePath: second})
	require.NoError(t, err)

	artifacts, err := service.ForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, artifacts, 1)

	reader, err := service.Open(ctx, "run-1", "sample")
	require.NoError(t, err)
	defer reader.Close()
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, `[{"URL":"a"},{"URL":"b"}]`, string(content))
}

func TestForRunAndList(t *testing.T) {
	service, _, _ := setup(t)
	ctx := context.Background()

	for _, put := range []PutRequest{
		{RunId: "run-1", Name: "europarl-xml-urls", SourcePath: writeSource(t, "europarl_xml_urls.txt", "urls")},
		{RunId: "run-1", Name: "europarl-dutch-data-sample", SourcePath: writeSource(t, "europarl_dutch_data_sample.json", "[]")},
		{RunId: "run-2", Name: "europarl-xml-urls", SourcePath: writeSource(t, "europarl_xml_urls.txt", "urls")},
	} {
		_, err := service.Put(ctx, put)
		require.NoError(t, err)
	}

	runOne, err := service.ForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, runOne, 2)
	// per-run listing is ordered by name
	require.Equal(t, "europarl-dutch-data-sample", runOne[0].Name)
	require.Equal(t, "europarl-xml-urls", runOne[1].Name)

	all, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestPrune(t *testing.T) {
	service, clock, root := setup(t)
	ctx := context.Background()

	_, err := service.Put(ctx, PutRequest{
		RunId:      "run-1",
		Name:       "europarl-xml-urls",
		SourcePath: writeSource(t, "europarl_xml_urls.txt", "urls"),
	})
	require.NoError(t, err)
	_, err = service.Put(ctx, PutRequest{
		RunId:      "run-1",
		Name:       "europarl-dutch-data-sample",
		SourcePath: writeSource(t, "europarl_dutch_data_sample.json", "[]"),
	})
	require.NoError(t, err)
	kept, err := service.Put(ctx, PutRequest{
		RunId:      "run-2",
		Name:       "europarl-xml-urls",
		SourcePath: writeSource(t, "europarl_xml_urls.txt", "urls"),
		Retention:  30 * 24 * time.Hour,
	})
	require.NoError(t, err)

	// nothing is due yet
	pruned, err := service.Prune(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, pruned)

	clock.now = clock.now.Add(8 * 24 * time.Hour)
	pruned, err = service.Prune(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, pruned)

	all, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "run-2", all[0].RunID)

	// the expired run's directory tree is gone, the surviving one stays
	_, err = os.Stat(filepath.Join(root, "run-1"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(kept.Path)
	require.NoError(t, err)
}
