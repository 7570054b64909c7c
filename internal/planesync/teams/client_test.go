package teams

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petr-muller/planesync/internal/syncerr"
)

func TestSend(t *testing.T) {
	var gotMethod, gotContentType string
	var gotBody Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("1"))
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, time.Second, nil)
	t.Cleanup(client.Close)

	require.NoError(t, client.Send(context.Background(), samplePayload()))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	require.Len(t, gotBody.Attachments, 1)
	assert.Len(t, gotBody.Attachments[0].Content.Body[1].Items, 3)
}

func TestSendFailures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		timeout    time.Duration
		wantStatus int
	}{
		{
			name:       "server error",
			handler:    func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			timeout:    time.Second,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "bad request",
			handler:    func(w http.ResponseWriter, r *http.Request) { http.Error(w, "Bad payload", http.StatusBadRequest) },
			timeout:    time.Second,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			timeout: 50 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			t.Cleanup(server.Close)

			client := NewClient(server.URL, tt.timeout, nil)
			t.Cleanup(client.Close)

			err := client.Send(context.Background(), samplePayload())
			require.Error(t, err)

			var te *syncerr.TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.wantStatus, te.StatusCode)
		})
	}
}

func TestRender(t *testing.T) {
	client := NewClient("http://unused.invalid", 0, nil)
	data, err := client.Render(samplePayload())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"contentType":"application/vnd.microsoft.card.adaptive"`)
	assert.Contains(t, string(data), "Issue 1 (**En cours**)")
}
