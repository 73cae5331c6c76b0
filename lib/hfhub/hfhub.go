// Package hfhub talks to the Hugging Face Hub http api, just enough of it to
// maintain a dataset repository: create the repo, read a file out of it and
// commit new file contents back.
package hfhub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"europarl-collector/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// the public hub
const DefaultEndpoint = "https://huggingface.co"

// ErrNotFound is returned when the hub has no such repository or file.
var ErrNotFound = errors.New("not found")

type Client struct {
	http     *resty.Client
	endpoint string
}

type ClientOptions struct {
	// api token with write access, sent as a bearer header on every call.
	// it never appears in urls or request bodies.
	Token string
	// overrides DefaultEndpoint, tests point this at a local server
	Endpoint string
}

func NewClient(options ClientOptions) Client {
	endpoint := strings.TrimSuffix(options.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	client := resty.New()
	client.SetTimeout(time.Minute * 2)
	if options.Token != "" {
		client.SetAuthToken(options.Token)
	}
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	return Client{
		http:     client,
		endpoint: endpoint,
	}
}

type createRepoRequest struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Private      bool   `json:"private"`
}

// EnsureDatasetRepo creates the dataset repository when it does not exist
// yet. a repository that already exists is not an error.
func (c Client) EnsureDatasetRepo(ctx context.Context, repoId string) error {
	ctx, span := tracer.Start(ctx, "client:EnsureDatasetRepo")
	defer span.End()
	span.SetAttributes(attribute.String("repo", repoId))

	request := createRepoRequest{Type: "dataset", Name: repoId}
	if namespace, name, found := strings.Cut(repoId, "/"); found {
		request.Organization = namespace
		request.Name = name
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(request).
		Post(c.endpoint + "/api/repos/create")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create repository")
		return err
	}
	if res.StatusCode() == http.StatusConflict {
		// already exists
		return nil
	}
	if res.IsError() {
		err := fmt.Errorf("create repo %s: %s", repoId, res.Status())
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// DownloadFile fetches one file from the main branch of a dataset
// repository. ErrNotFound means the repository or the file does not exist.
func (c Client) DownloadFile(ctx context.Context, repoId string, path string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:DownloadFile")
	defer span.End()
	span.SetAttributes(
		attribute.String("repo", repoId),
		attribute.String("path", path),
	)

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.endpoint + "/datasets/" + repoId + "/resolve/main/" + path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download file")
		return nil, err
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%s in %s: %w", path, repoId, ErrNotFound)
	}
	if err := statusError(res); err != nil {
		span.SetStatus(codes.Error, "file download returned an error status")
		return nil, err
	}
	return res.Body(), nil
}

// CommitFile is one file written by a commit.
type CommitFile struct {
	Path    string
	Content []byte
}

type commitLine struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type commitHeader struct {
	Summary string `json:"summary"`
}

type commitFilePayload struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// CommitFiles writes the given files to the main branch of a dataset
// repository as a single commit, using the hub's ndjson commit endpoint.
func (c Client) CommitFiles(ctx context.Context, repoId string, summary string, files []CommitFile) error {
	ctx, span := tracer.Start(ctx, "client:CommitFiles")
	defer span.End()
	span.SetAttributes(
		attribute.String("repo", repoId),
		attribute.Int("files", len(files)),
	)

	var body bytes.Buffer
	encoder := json.NewEncoder(&body)
	if err := encoder.Encode(commitLine{Key: "header", Value: commitHeader{Summary: summary}}); err != nil {
		return err
	}
	for _, file := range files {
		err := encoder.Encode(commitLine{Key: "file", Value: commitFilePayload{
			Path:     file.Path,
			Content:  base64.StdEncoding.EncodeToString(file.Content),
			Encoding: "base64",
		}})
		if err != nil {
			return err
		}
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-ndjson").
		SetBody(body.Bytes()).
		Post(c.endpoint + "/api/datasets/" + repoId + "/commit/main")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to commit files")
		return err
	}
	if err := statusError(res); err != nil {
		span.SetStatus(codes.Error, "commit returned an error status")
		return err
	}
	return nil
}

func statusError(res *resty.Response) error {
	if res.IsError() {
		return fmt.Errorf("%s %s: %s", res.Request.Method, res.Request.URL, res.Status())
	}
	return nil
}
