package europarl

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Source value stamped on every record
const RecordSource = "European Parliament Minutes"

// Record is one processed minutes document. the field casing follows the
// published dataset schema, URL is uppercase there.
type Record struct {
	URL    string `json:"URL"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// ExtractRecords downloads each dutch minutes document and extracts its
// narrative text. urls that are not dutch (`_NL.xml`), fail to download or
// yield no substantive text are skipped, they never fail the batch.
func (c Client) ExtractRecords(ctx context.Context, urls []string) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "client:ExtractRecords")
	defer span.End()

	var records []Record
	for _, link := range urls {
		if !strings.Contains(link, "_NL.xml") {
			continue
		}

		content, err := c.DownloadDocument(ctx, link)
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			slog.WarnContext(ctx, "download document", "url", link, "err", err)
			continue
		}

		text, ok := ExtractDutchText(content)
		if ok {
			records = append(records, Record{
				URL:    link,
				Text:   text,
				Source: RecordSource,
			})
		}

		if err := sleepCtx(ctx, c.docDelay); err != nil {
			return records, err
		}
	}

	span.SetAttributes(
		attribute.Int("urls", len(urls)),
		attribute.Int("records", len(records)),
	)
	return records, nil
}
