package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"europarl-collector/lib/hfhub"
	"europarl-collector/lib/restyutil"
	"europarl-collector/lib/scrapers/europarl"
	"europarl-collector/lib/serviceutil"
	"europarl-collector/lib/telemetry"
	"europarl-collector/services/collector"
)

// the dataset repository lives under the account the credentials belong to
const datasetName = "europarl-dutch-minutes"

func mustLookupEnv(name string) string {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		serviceutil.Fatal("read credentials", fmt.Errorf("%s is not set", name))
	}
	return value
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	limit := flag.Int("limit", 0, "Cap the number of documents processed, 0 processes everything.")
	skipPublish := flag.Bool("skip-publish", false, "Write the output files but never talk to the hub.")
	flag.Parse()

	telemetry.InitSlog(*verbose)

	ctx := serviceutil.SignalContext()
	err := telemetry.SetupFromEnv(ctx, "europarl-scraper")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())

	if *verbose {
		europarl.SetRestyInstrumentOutput(
			restyutil.NewFilesystemOutput(".dev/resty/europarl"),
		)
		hfhub.SetRestyInstrumentOutput(
			restyutil.NewFilesystemOutput(".dev/resty/hfhub"),
		)
	}

	// credentials come in through the environment only, never argv
	token := mustLookupEnv("HF_TOKEN")
	username := mustLookupEnv("HF_USERNAME")

	scraper, err := europarl.NewClient(europarl.ClientOptions{})
	if err != nil {
		serviceutil.Fatal("initialize archive client", err)
	}
	hub := hfhub.NewClient(hfhub.ClientOptions{Token: token})

	service := collector.NewService(scraper, hub, collector.Config{
		DatasetRepo: username + "/" + datasetName,
		Limit:       *limit,
		SkipPublish: *skipPublish,
	})

	t1 := time.Now()
	err = service.Run(ctx)
	if err != nil {
		serviceutil.Fatal("collection run", err)
	}
	slog.Info("collection finished", "seconds", time.Since(t1).Seconds())
}
