package europarl

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"europarl-collector/lib/htmlutil"
	"europarl-collector/lib/restyutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// the archive search page for the dutch plenary minutes
const BaseMinutesUrl = "https://www.europarl.europa.eu/plenary/nl/minutes.html"

// base for the minutes documents themselves, xml hrefs resolve against it
const BaseDocUrl = "https://www.europarl.europa.eu/doceo/document/"

// css classes the archive uses on its per-sitting xml download links
const xmlLinkSelector = `a.nopadding[href$=".xml"], a.link_simple_iconsmall[href$=".xml"]`

// Term is one parliamentary term from the archive dropdown. Value is the
// form token the archive expects, Title is the human readable label.
type Term struct {
	Value string
	Title string
}

type Client struct {
	archive *resty.Client
	doc     *resty.Client

	minutesUrl string
	docBase    *url.URL

	termDelay time.Duration
	docDelay  time.Duration
}

type ClientOptions struct {
	// overrides BaseMinutesUrl, tests point this at a local server
	MinutesUrl string
	// overrides BaseDocUrl
	DocUrl string
	// pause between archive form submissions, defaults to a second
	TermDelay time.Duration
	// pause between document downloads, defaults to 100ms
	DocDelay time.Duration
}

func NewClient(options ClientOptions) (Client, error) {
	minutesUrl := options.MinutesUrl
	if minutesUrl == "" {
		minutesUrl = BaseMinutesUrl
	}
	docUrl := options.DocUrl
	if docUrl == "" {
		docUrl = BaseDocUrl
	}
	docBase, err := url.Parse(docUrl)
	if err != nil {
		return Client{}, err
	}

	termDelay := options.TermDelay
	if termDelay == 0 {
		termDelay = time.Second
	}
	docDelay := options.DocDelay
	if docDelay == 0 {
		docDelay = time.Millisecond * 100
	}

	archive := resty.New()
	archive.SetTimeout(time.Second * 30)
	restyutil.InstrumentClient(archive, tracer, restyInstrumentOutput)

	doc := resty.New()
	doc.SetTimeout(time.Second * 20)
	doc.SetRetryCount(3)
	doc.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil || res == nil {
			return false
		}
		code := res.StatusCode()
		return code == 408 || code == 429 || code >= 500
	})
	restyutil.InstrumentClient(doc, tracer, restyInstrumentOutput)

	return Client{
		archive:    archive,
		doc:        doc,
		minutesUrl: minutesUrl,
		docBase:    docBase,
		termDelay:  termDelay,
		docDelay:   docDelay,
	}, nil
}

func statusError(res *resty.Response) error {
	if res.IsError() {
		return fmt.Errorf("%s %s: %s", res.Request.Method, res.Request.URL, res.Status())
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchTerms loads the archive landing page and reads the parliamentary
// term dropdown out of it.
func (c Client) FetchTerms(ctx context.Context) ([]Term, error) {
	ctx, span := tracer.Start(ctx, "client:FetchTerms")
	defer span.End()

	res, err := c.archive.R().
		SetContext(ctx).
		Get(c.minutesUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch minutes page")
		return nil, err
	}
	if err := statusError(res); err != nil {
		span.SetStatus(codes.Error, "minutes page returned an error status")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse minutes page html")
		return nil, err
	}

	dropdown := doc.Find("select#criteriaSidesLeg")
	if len(dropdown.Nodes) == 0 {
		err := fmt.Errorf("could not find the parliamentary term dropdown")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var terms []Term
	dropdown.Find("option").Each(func(_ int, option *goquery.Selection) {
		value := option.AttrOr("value", "")
		title := option.AttrOr("title", "")
		if value == "" || title == "" {
			return
		}
		terms = append(terms, Term{Value: value, Title: title})
	})

	span.SetAttributes(attribute.Int("count", len(terms)))
	return terms, nil
}

// FetchTermDocuments submits the archive search form for one term and
// returns the absolute urls of the xml documents linked from the results.
func (c Client) FetchTermDocuments(ctx context.Context, term Term) ([]string, error) {
	ctx, span := tracer.Start(ctx, "client:FetchTermDocuments")
	defer span.End()
	span.SetAttributes(attribute.String("term", term.Title))

	res, err := c.archive.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"clean":               "false",
			"legChange":           "false",
			"source":              "",
			"dateSys":             "",
			"tabActif":            "tabResult",
			"leg":                 term.Value,
			"refSittingDateStart": "",
			"refSittingDateEnd":   "",
			"miType":              "text",
			"miText":              "",
			"sortResults":         "",
		}).
		Post(c.minutesUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit term form")
		return nil, err
	}
	if err := statusError(res); err != nil {
		span.SetStatus(codes.Error, "term form returned an error status")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse term results html")
		return nil, err
	}

	var links []string
	for _, anchor := range htmlutil.GetAnchors(ctx, doc.Find(xmlLinkSelector), c.docBase) {
		links = append(links, anchor.Href)
	}

	span.SetAttributes(attribute.Int("count", len(links)))
	return links, nil
}

// CollectArchiveLinks walks every parliamentary term and gathers the full
// deduplicated list of minutes xml urls. a single term failing is logged and
// skipped, the crawl carries on with the rest.
func (c Client) CollectArchiveLinks(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "client:CollectArchiveLinks")
	defer span.End()

	terms, err := c.FetchTerms(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list parliamentary terms")
		return nil, err
	}
	slog.InfoContext(ctx, "found parliamentary terms", "count", len(terms))

	seen := map[string]bool{}
	var urls []string
	for _, term := range terms {
		links, err := c.FetchTermDocuments(ctx, term)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// one term failing should not sink the whole crawl, back off
			// a little longer than usual and move on
			slog.WarnContext(ctx, "fetch term documents", "term", term.Title, "err", err)
			if err := sleepCtx(ctx, c.termDelay*5); err != nil {
				return nil, err
			}
			continue
		}

		added := 0
		for _, link := range links {
			if seen[link] {
				continue
			}
			seen[link] = true
			urls = append(urls, link)
			added++
		}
		slog.DebugContext(ctx, "collected term links", "term", term.Title, "new", added, "total", len(urls))

		if err := sleepCtx(ctx, c.termDelay); err != nil {
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("count", len(urls)))
	return urls, nil
}

// DownloadDocument fetches one minutes xml document.
func (c Client) DownloadDocument(ctx context.Context, link string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:DownloadDocument")
	defer span.End()
	span.SetAttributes(attribute.String("url", link))

	res, err := c.doc.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download document")
		return nil, err
	}
	if err := statusError(res); err != nil {
		span.SetStatus(codes.Error, "document returned an error status")
		return nil, err
	}
	return res.Body(), nil
}
