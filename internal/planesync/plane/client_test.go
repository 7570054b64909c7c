package plane

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petr-muller/planesync/internal/syncerr"
)

const sampleIssue = `{
	"id": "test_id",
	"name": "Test Issue",
	"description_html": "<p>Test</p>",
	"priority": "urgent",
	"state": "state1",
	"created_at": "2024-01-29T08:00:00.123456Z",
	"updated_at": "2024-01-29T09:00:00Z",
	"estimate_point": null,
	"start_date": null,
	"target_date": null,
	"completed_at": null,
	"sequence_id": 1,
	"project": "test_project",
	"labels": [],
	"assignees": ["user-1"]
}`

const sampleState = `{
	"id": "state1",
	"name": "En cours",
	"color": "#ff0000",
	"sequence": 1,
	"group": "started",
	"default": false
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Options{
		BaseURL:   server.URL + "/api/v1",
		APIToken:  "test_token",
		Workspace: "test_workspace",
		ProjectID: "test_project",
		Timeout:   5 * time.Second,
	})
	t.Cleanup(client.Close)
	return client
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestFetchStates(t *testing.T) {
	var gotPath, gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		respond(http.StatusOK, `{"results": [`+sampleState+`]}`)(w, r)
	})

	states, err := client.FetchStates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/workspaces/test_workspace/projects/test_project/states/", gotPath)
	assert.Equal(t, "test_token", gotKey)

	require.Len(t, states, 1)
	assert.Equal(t, State{ID: "state1", Name: "En cours", Color: "#ff0000", Sequence: 1, Group: GroupStarted}, states[0])
}

func TestFetchStatesErrors(t *testing.T) {
	tests := []struct {
		name          string
		handler       http.HandlerFunc
		wantTransport bool
		wantData      bool
		wantStates    int
	}{
		{name: "server error", handler: respond(http.StatusInternalServerError, "Internal Server Error"), wantTransport: true},
		{name: "not found", handler: respond(http.StatusNotFound, "Not Found"), wantTransport: true},
		{name: "invalid top-level shape", handler: respond(http.StatusOK, `{"invalid": "format"}`), wantData: true},
		{name: "not json", handler: respond(http.StatusOK, `<html></html>`), wantData: true},
		{name: "invalid state is skipped", handler: respond(http.StatusOK, `{"results": [{"invalid": "state"}]}`), wantStates: 0},
		{name: "bare list", handler: respond(http.StatusOK, `[`+sampleState+`, {"id": "partial"}]`), wantStates: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			states, err := client.FetchStates(context.Background())
			switch {
			case tt.wantTransport:
				require.Error(t, err)
				assert.True(t, syncerr.IsTransport(err), "expected transport error, got %v", err)
			case tt.wantData:
				require.Error(t, err)
				assert.True(t, syncerr.IsData(err), "expected data error, got %v", err)
				assert.Contains(t, err.Error(), "invalid API response format")
			default:
				require.NoError(t, err)
				assert.Len(t, states, tt.wantStates)
			}
		})
	}
}

func TestFetchIssues(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, `{"results": [`+sampleIssue+`, {"id": "broken"}]}`))

	issues, err := client.FetchIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 1, "the malformed issue is skipped")

	issue := issues[0]
	assert.Equal(t, "test_id", issue.ID)
	assert.Equal(t, "Test Issue", issue.Name)
	assert.Equal(t, PriorityUrgent, issue.Priority)
	assert.Equal(t, "state1", issue.State)
	assert.Equal(t, 1, issue.SequenceID)
	assert.Equal(t, "test_project", issue.ProjectID)
	assert.Equal(t, []string{"user-1"}, issue.Assignees)
	assert.Empty(t, issue.Labels)
	assert.Nil(t, issue.CompletedAt)
	assert.Nil(t, issue.EstimatePoint)
}

func TestFetchIssuesFailure(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusNotFound, http.StatusUnauthorized} {
		client := newTestClient(t, respond(status, "boom"))
		_, err := client.FetchIssues(context.Background())
		require.Error(t, err)

		var te *syncerr.TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, status, te.StatusCode)
	}
}

func TestFetchIssuesObjectWithoutResults(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, `{"count": 0}`))
	issues, err := client.FetchIssues(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestFetchIssue(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		respond(http.StatusOK, sampleIssue)(w, r)
	})

	issue, err := client.FetchIssue(context.Background(), "test_id")
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, "/api/v1/workspaces/test_workspace/projects/test_project/issues/test_id/", gotPath)
	assert.Equal(t, "Test Issue", issue.Name)
}

func TestFetchIssueNotFound(t *testing.T) {
	client := newTestClient(t, respond(http.StatusNotFound, `{"error": "not found"}`))
	issue, err := client.FetchIssue(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, issue)
}

func TestFetchIssueMalformed(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, `{"id": "x"}`))
	_, err := client.FetchIssue(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, syncerr.IsData(err))
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			respond(http.StatusBadGateway, "bad gateway")(w, r)
			return
		}
		respond(http.StatusOK, `[`+sampleState+`]`)(w, r)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Options{
		BaseURL:      server.URL,
		APIToken:     "token",
		Workspace:    "ws",
		ProjectID:    "project",
		Retries:      2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
	t.Cleanup(client.Close)

	states, err := client.FetchStates(context.Background())
	require.NoError(t, err)
	assert.Len(t, states, 1)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFetchUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	client := NewClient(Options{BaseURL: target, Workspace: "ws", ProjectID: "p", Timeout: time.Second})
	_, err := client.FetchStates(context.Background())
	require.Error(t, err)
	assert.True(t, syncerr.IsTransport(err))
}
