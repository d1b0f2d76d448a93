// Package github implements the WorkflowDispatcher port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v75/github"
	"github.com/gregjones/httpcache"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
	"github.com/gopalvishwakrma/dojialert/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WorkflowDispatcher = (*Dispatcher)(nil)

// Dispatcher triggers and inspects runs of one workflow file in one repository.
type Dispatcher struct {
	gh           *gh.Client
	owner        string
	repo         string
	workflowFile string
}

// NewDispatcher creates a Dispatcher with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewDispatcher(token, repoFullName, workflowFile string) (*Dispatcher, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Dispatcher{
		gh:           client,
		owner:        owner,
		repo:         repo,
		workflowFile: workflowFile,
	}, nil
}

// NewDispatcherWithHTTPClient creates a Dispatcher with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewDispatcherWithHTTPClient(httpClient *http.Client, baseURL, repoFullName, workflowFile string) (*Dispatcher, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	client := gh.NewClient(httpClient)
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Dispatcher{
		gh:           client,
		owner:        owner,
		repo:         repo,
		workflowFile: workflowFile,
	}, nil
}

// Dispatch creates a workflow_dispatch event for the workflow on ref.
func (d *Dispatcher) Dispatch(ctx context.Context, ref string) error {
	event := gh.CreateWorkflowDispatchEventRequest{Ref: ref}

	resp, err := d.gh.Actions.CreateWorkflowDispatchEventByFileName(ctx, d.owner, d.repo, d.workflowFile, event)
	if err != nil {
		return fmt.Errorf("dispatching %s on %s/%s@%s: %w", d.workflowFile, d.owner, d.repo, ref, err)
	}
	logRateLimit(resp, "workflow_dispatch")

	slog.Info("workflow dispatched", "repo", d.owner+"/"+d.repo, "workflow", d.workflowFile, "ref", ref)
	return nil
}

// RecentRuns lists up to limit of the workflow's most recent runs, newest first.
func (d *Dispatcher) RecentRuns(ctx context.Context, limit int) ([]model.WorkflowRun, error) {
	if limit <= 0 {
		return []model.WorkflowRun{}, nil
	}

	opts := &gh.ListWorkflowRunsOptions{
		ListOptions: gh.ListOptions{PerPage: min(limit, 100)},
	}

	runs, resp, err := d.gh.Actions.ListWorkflowRunsByFileName(ctx, d.owner, d.repo, d.workflowFile, opts)
	if err != nil {
		return nil, fmt.Errorf("listing runs of %s on %s/%s: %w", d.workflowFile, d.owner, d.repo, err)
	}
	logRateLimit(resp, "workflow_runs")

	result := make([]model.WorkflowRun, 0, len(runs.WorkflowRuns))
	for _, r := range runs.WorkflowRuns {
		if len(result) == limit {
			break
		}
		result = append(result, mapWorkflowRun(r))
	}
	return result, nil
}

// mapWorkflowRun converts a go-github WorkflowRun to a domain model WorkflowRun.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapWorkflowRun(r *gh.WorkflowRun) model.WorkflowRun {
	return model.WorkflowRun{
		ID:         r.GetID(),
		Event:      r.GetEvent(),
		Status:     r.GetStatus(),
		Conclusion: r.GetConclusion(),
		HTMLURL:    r.GetHTMLURL(),
		CreatedAt:  r.GetCreatedAt().Time,
	}
}

func logRateLimit(resp *gh.Response, endpoint string) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
