package plane

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/petr-muller/planesync/internal/syncerr"
)

const (
	defaultTimeout = 30 * time.Second
	apiKeyHeader   = "X-API-Key"
)

// Options configures a Plane API client
type Options struct {
	BaseURL   string
	APIToken  string
	Workspace string
	ProjectID string

	// Retries is the number of extra attempts made for a GET failing with a
	// connection error or a 5xx/429 status
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration

	HTTPClient *http.Client
}

// Client reads issues and workflow states of a single Plane project
type Client struct {
	baseURL   string
	token     string
	workspace string
	project   string
	http      *retryablehttp.Client
}

// NewClient creates a new Plane API client
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient.Timeout = timeout

	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpClient
	rc.RetryMax = opts.Retries
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	// Hand the last response back so non-2xx statuses keep their code
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{logrus.WithField("client", "plane")}

	logrus.WithField("base-url", opts.BaseURL).Debug("Plane client initialized")

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		token:     opts.APIToken,
		workspace: opts.Workspace,
		project:   opts.ProjectID,
		http:      rc,
	}
}

func (c *Client) projectURL(parts ...string) string {
	segments := []string{c.baseURL, "workspaces", url.PathEscape(c.workspace), "projects", url.PathEscape(c.project)}
	for _, p := range parts {
		segments = append(segments, url.PathEscape(p))
	}
	return strings.Join(segments, "/") + "/"
}

// get performs a GET and returns the body of a 2xx response. notFound is
// returned as true instead of an error for a 404 when allowNotFound is set.
func (c *Client) get(ctx context.Context, op, target string, allowNotFound bool) (body []byte, notFound bool, err error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, syncerr.Transport(op, 0, err)
	}
	req.Header.Set(apiKeyHeader, c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, false, syncerr.Transport(op, 0, err)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, syncerr.Transport(op, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode == http.StatusNotFound && allowNotFound {
		return nil, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false, syncerr.Transport(op, resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}

	return body, false, nil
}

// FetchStates returns the workflow states of the project. Malformed state
// records are skipped; a response that is not a list of states fails the fetch.
func (c *Client) FetchStates(ctx context.Context) ([]State, error) {
	const op = "fetch states"
	logrus.Debug("Fetching states from Plane API")

	body, _, err := c.get(ctx, op, c.projectURL("states"), false)
	if err != nil {
		return nil, err
	}

	result, err := ParseStates(body)
	if err != nil {
		return nil, syncerr.Data(op, err)
	}
	for _, skipped := range result.Skipped {
		logrus.WithError(skipped.Err).WithField("index", skipped.Index).Warn("Skipping malformed state")
	}

	logrus.WithFields(logrus.Fields{"states": len(result.Parsed), "skipped": len(result.Skipped)}).Info("Received states from Plane")
	return result.Parsed, nil
}

// FetchIssues returns the issues of the project. Malformed issue records are skipped.
func (c *Client) FetchIssues(ctx context.Context) ([]Issue, error) {
	const op = "fetch issues"
	logrus.Debug("Fetching issues from Plane API")

	body, _, err := c.get(ctx, op, c.projectURL("issues"), false)
	if err != nil {
		return nil, err
	}

	result, err := ParseIssues(body)
	if err != nil {
		return nil, syncerr.Data(op, err)
	}
	for _, skipped := range result.Skipped {
		logrus.WithError(skipped.Err).WithField("index", skipped.Index).Warn("Skipping malformed issue")
	}
	for _, issue := range result.Parsed {
		logrus.WithFields(logrus.Fields{
			"sequence": issue.SequenceID,
			"priority": issue.Priority,
			"state":    issue.State,
		}).Debugf("Issue #%d: %q", issue.SequenceID, issue.Name)
	}

	logrus.WithFields(logrus.Fields{"issues": len(result.Parsed), "skipped": len(result.Skipped)}).Info("Received issues from Plane")
	return result.Parsed, nil
}

// FetchIssue returns a single issue, or nil when Plane does not know it
func (c *Client) FetchIssue(ctx context.Context, id string) (*Issue, error) {
	op := fmt.Sprintf("fetch issue %s", id)

	body, notFound, err := c.get(ctx, op, c.projectURL("issues", id), true)
	if err != nil {
		return nil, err
	}
	if notFound {
		logrus.WithField("issue", id).Warn("Issue not found")
		return nil, nil
	}

	issue, err := ParseIssue(body)
	if err != nil {
		return nil, syncerr.Data(op, err)
	}
	return &issue, nil
}

// Close releases idle connections held by the client
func (c *Client) Close() {
	c.http.HTTPClient.CloseIdleConnections()
}

// leveledLogger adapts logrus to the retryablehttp logger interface
type leveledLogger struct {
	entry *logrus.Entry
}

func (l leveledLogger) fields(keysAndValues []interface{}) *logrus.Entry {
	entry := l.entry
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		entry = entry.WithField(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1])
	}
	return entry
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Error(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Trace(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Warn(msg)
}
