package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/waabox/azdeck/internal/domain"
)

const (
	defaultBaseURL = "https://dev.azure.com"
	apiVersion     = "7.1"
)

// Adapter implements domain.PipelineProvider for Azure DevOps Services and Server.
type Adapter struct {
	token   string
	baseURL string
	client  *http.Client
}

// Ensure Adapter fully implements domain.PipelineProvider.
var _ domain.PipelineProvider = (*Adapter)(nil)

// NewAdapter creates an Azure DevOps adapter authenticating with a personal
// access token. baseURL can point at an Azure DevOps Server collection root;
// pass empty string for dev.azure.com.
func NewAdapter(token string, baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		token:   token,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Adapter) apiURL(project domain.Project, path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", apiVersion)
	return fmt.Sprintf("%s/%s/%s/_apis/%s?%s",
		a.baseURL, url.PathEscape(project.Org), url.PathEscape(project.Name), path, query.Encode())
}

// ListDefinitions returns every pipeline definition of the project.
func (a *Adapter) ListDefinitions(ctx context.Context, project domain.Project) ([]domain.Definition, error) {
	query := url.Values{"queryOrder": {"definitionNameAscending"}}
	var result listResponse[buildDefinition]
	if err := a.send(ctx, http.MethodGet, a.apiURL(project, "build/definitions", query), nil, &result); err != nil {
		return nil, err
	}
	defs := make([]domain.Definition, len(result.Value))
	for i, d := range result.Value {
		defs[i] = d.toDefinition()
	}
	return defs, nil
}

// ListRuns returns the most recent runs of a definition, newest first.
// A definitionID of 0 lists runs of every definition.
func (a *Adapter) ListRuns(ctx context.Context, project domain.Project, definitionID int, top int) ([]domain.Run, error) {
	query := url.Values{
		"$top":       {strconv.Itoa(top)},
		"queryOrder": {"queueTimeDescending"},
	}
	if definitionID > 0 {
		query.Set("definitions", strconv.Itoa(definitionID))
	}
	var result listResponse[build]
	if err := a.send(ctx, http.MethodGet, a.apiURL(project, "build/builds", query), nil, &result); err != nil {
		return nil, err
	}
	runs := make([]domain.Run, len(result.Value))
	for i, b := range result.Value {
		runs[i] = b.toRun()
	}
	return runs, nil
}

// GetRun returns a single run.
func (a *Adapter) GetRun(ctx context.Context, project domain.Project, runID int) (domain.Run, error) {
	var b build
	if err := a.send(ctx, http.MethodGet, a.apiURL(project, fmt.Sprintf("build/builds/%d", runID), nil), nil, &b); err != nil {
		return domain.Run{}, err
	}
	return b.toRun(), nil
}

// GetTimeline returns the flat status records of a run. A run that has not
// been picked up by an agent yet has no timeline and yields no records.
func (a *Adapter) GetTimeline(ctx context.Context, project domain.Project, runID int) ([]domain.TimelineRecord, error) {
	var tl struct {
		Records []timelineRecord `json:"records"`
	}
	err := a.send(ctx, http.MethodGet, a.apiURL(project, fmt.Sprintf("build/builds/%d/timeline", runID), nil), nil, &tl)
	if err != nil {
		return nil, err
	}
	records := make([]domain.TimelineRecord, len(tl.Records))
	for i, r := range tl.Records {
		records[i] = r.toRecord()
	}
	return records, nil
}

// GetLog returns the plain-text log of a timeline record.
func (a *Adapter) GetLog(ctx context.Context, project domain.Project, runID int, logID int) (string, error) {
	return a.getText(ctx, a.apiURL(project, fmt.Sprintf("build/builds/%d/logs/%d", runID, logID), nil))
}

// QueueRun starts a new run of a pipeline through the Pipelines runs API,
// which accepts template parameters.
func (a *Adapter) QueueRun(ctx context.Context, project domain.Project, req domain.QueueRequest) (domain.Run, error) {
	body := newRunRequest(req)
	var run pipelineRun
	err := a.send(ctx, http.MethodPost, a.apiURL(project, fmt.Sprintf("pipelines/%d/runs", req.DefinitionID), nil), body, &run)
	if err != nil {
		return domain.Run{}, err
	}
	return run.toRun(), nil
}

// CancelRun asks the service to cancel a run. Cancellation is asynchronous:
// the run moves through the cancelling status before it completes.
func (a *Adapter) CancelRun(ctx context.Context, project domain.Project, runID int) error {
	body := map[string]string{"status": "cancelling"}
	return a.send(ctx, http.MethodPatch, a.apiURL(project, fmt.Sprintf("build/builds/%d", runID), nil), body, nil)
}

func (a *Adapter) newRequest(ctx context.Context, method, apiURL string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, apiURL, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth("", a.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (a *Adapter) do(req *http.Request) (*http.Response, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		return nil, fmt.Errorf("azure devops API error: %s: %w", resp.Status, domain.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("azure devops API error: %s: %w", resp.Status, domain.ErrNotFound)
	case resp.StatusCode >= 400:
		defer resp.Body.Close()
		return nil, fmt.Errorf("azure devops API error: %s%s", resp.Status, errorMessage(resp.Body))
	}
	return resp, nil
}

// send issues a JSON request and decodes the response into target, if any.
func (a *Adapter) send(ctx context.Context, method, apiURL string, body any, target any) error {
	req, err := a.newRequest(ctx, method, apiURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := a.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	// An empty body leaves target untouched.
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// getText fetches a URL and returns the response body as a plain string.
func (a *Adapter) getText(ctx context.Context, apiURL string) (string, error) {
	req, err := a.newRequest(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")
	resp, err := a.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading log response: %w", err)
	}
	return string(b), nil
}

// errorMessage extracts the message of an Azure DevOps error body, if present.
func errorMessage(body io.Reader) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 64<<10)).Decode(&e); err != nil || e.Message == "" {
		return ""
	}
	return ": " + e.Message
}
