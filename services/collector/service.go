// Package collector runs the europarl minutes pipeline end to end: crawl the
// archive for xml urls, extract the dutch narrative text and publish the
// merged dataset to the hub. the two audit files it writes along the way are
// picked up as run artifacts by the caller.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"europarl-collector/lib/hfhub"
	"europarl-collector/lib/scrapers/europarl"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/collector")

// audit file with every xml url the crawl found, one per line
const UrlsFile = "europarl_xml_urls.txt"

// audit file with the records extracted by this run
const SampleFile = "europarl_dutch_data_sample.json"

type Config struct {
	// directory the audit files are written to, defaults to the working
	// directory
	OutputDir string `json:"output_dir"`
	// hub dataset repository, e.g. "someone/europarl-dutch-minutes"
	DatasetRepo string `json:"dataset_repo"`
	// cap on the number of documents processed, 0 means all of them.
	// the url audit file always lists the full crawl.
	Limit int `json:"limit"`
	// write the audit files but skip the hub entirely
	SkipPublish bool `json:"skip_publish"`
}

type Service struct {
	scraper europarl.Client
	hub     hfhub.Client
	config  Config
}

func NewService(scraper europarl.Client, hub hfhub.Client, config Config) Service {
	return Service{
		scraper: scraper,
		hub:     hub,
		config:  config,
	}
}

// Run executes the whole pipeline once. an empty crawl or an extraction that
// yields nothing is an error, a scheduled run that produced no data should
// fail loudly rather than succeed with an empty dataset.
func (s Service) Run(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	urls, err := s.scraper.CollectArchiveLinks(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if len(urls) == 0 {
		err := fmt.Errorf("the archive crawl yielded no xml urls")
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	// the crawl order depends on the term dropdown, sorting keeps the audit
	// file and the limit selection stable across reruns
	sort.Strings(urls)
	slog.InfoContext(ctx, "collected xml urls", "count", len(urls))

	if err := s.writeUrlsFile(urls); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if s.config.Limit > 0 && len(urls) > s.config.Limit {
		slog.InfoContext(ctx, "limiting processed documents", "limit", s.config.Limit)
		urls = urls[:s.config.Limit]
	}

	records, err := s.scraper.ExtractRecords(ctx, urls)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if len(records) == 0 {
		err := fmt.Errorf("no dutch text could be extracted from %d urls", len(urls))
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	slog.InfoContext(ctx, "extracted records", "count", len(records))

	if err := s.writeSampleFile(records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if s.config.SkipPublish {
		slog.InfoContext(ctx, "publishing is disabled, stopping after the audit files")
		return nil
	}
	return s.publish(ctx, records)
}

func (s Service) writeUrlsFile(urls []string) error {
	var buffer bytes.Buffer
	for _, link := range urls {
		buffer.WriteString(link)
		buffer.WriteByte('\n')
	}
	return os.WriteFile(filepath.Join(s.config.OutputDir, UrlsFile), buffer.Bytes(), 0644)
}

func (s Service) writeSampleFile(records []europarl.Record) error {
	file, err := os.Create(filepath.Join(s.config.OutputDir, SampleFile))
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

// publish merges this run's records into the hub dataset. records whose url
// is already in the dataset are dropped, and when nothing new remains the
// commit is skipped altogether.
func (s Service) publish(ctx context.Context, records []europarl.Record) error {
	ctx, span := tracer.Start(ctx, "publish")
	defer span.End()
	span.SetAttributes(attribute.String("repo", s.config.DatasetRepo))

	if s.config.DatasetRepo == "" {
		err := fmt.Errorf("no dataset repository is configured")
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := s.hub.EnsureDatasetRepo(ctx, s.config.DatasetRepo); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	existing, err := s.loadExistingRecords(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	merged, added := mergeRecords(existing, records)
	if added == 0 {
		slog.InfoContext(ctx, "no new records since the last run, the dataset is up to date")
		return nil
	}

	content, err := encodeDataset(merged)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	summary := fmt.Sprintf("add %d records", added)
	err = s.hub.CommitFiles(ctx, s.config.DatasetRepo, summary, []hfhub.CommitFile{
		{Path: datasetPath, Content: content},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	slog.InfoContext(ctx, "published dataset",
		"repo", s.config.DatasetRepo, "added", added, "total", len(merged))
	return nil
}

func (s Service) loadExistingRecords(ctx context.Context) ([]europarl.Record, error) {
	content, err := s.hub.DownloadFile(ctx, s.config.DatasetRepo, datasetPath)
	if errors.Is(err, hfhub.ErrNotFound) {
		// first run against a fresh repository
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeDataset(content)
}
