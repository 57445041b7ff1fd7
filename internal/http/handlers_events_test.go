package httpx

import (
	"bufio"
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSSE(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, writeSSE(&sb, SSEEventView, "<div id=\"app\">\r\n  <p>hi</p>\n</div>\n"))

	assert.Equal(t,
		"event: view\n"+
			"data: <div id=\"app\">\n"+
			"data:   <p>hi</p>\n"+
			"data: </div>\n\n",
		sb.String())
}

func TestEvents_NoClient(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, env.registry.Len(), "the event stream never creates a client")
}

func TestEvents_StreamsViewOnChange(t *testing.T) {
	env := newTestEnv(t)
	env.get("/")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := env.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The subscription exists once headers arrive, so this change is streamed.
	env.post("/navigate", url.Values{"page": {"login"}})

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	var event string
	var data []string
	found := ""
	for found == "" && scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event == SSEEventView && strings.Contains(strings.Join(data, "\n"), `data-page="login"`) {
				found = strings.Join(data, "\n")
			}
			event, data = "", nil
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
	}

	require.NotEmpty(t, found, "no view event for the login page")
	assert.Contains(t, found, `id="app"`)
}
