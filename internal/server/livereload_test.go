package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/talky/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectLiveReload(t *testing.T) {
	tests := []struct {
		name     string
		document string
		keep     string
	}{
		{
			name:     "full document",
			document: "<!DOCTYPE html><html><head><title>t</title></head><body><p>content</p></body></html>",
			keep:     "<p>content</p>",
		},
		{
			name:     "fragment",
			document: "<p>fragment</p>",
			keep:     "<p>fragment</p>",
		},
		{
			name:     "empty",
			document: "",
			keep:     "<body>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := InjectLiveReload([]byte(tt.document), "/_talky/livereload")
			require.NoError(t, err)

			html := string(out)
			assert.Contains(t, html, tt.keep)
			assert.Contains(t, html, `location.host+"/_talky/livereload"`)
			assert.True(t, strings.Index(html, "<script>") < strings.Index(html, "</body>"))
		})
	}
}

func TestInjectLiveReloadQuotesEndpoint(t *testing.T) {
	out, err := InjectLiveReload([]byte("<body></body>"), `/x";alert(1);"`)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"/x\";alert(1);\""`)
}

func TestLiveReloadHubBroadcast(t *testing.T) {
	m := metrics.New()
	hub := NewLiveReloadHub(nil, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	ts := httptest.NewServer(hub)
	defer ts.Close()

	dialCtx, dialCancel := context.WithTimeout(ctx, 5*time.Second)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(ReloadMessage{Type: "reload", Paths: []string{"a.html"}, Timestamp: time.Now()})

	_, data, err := conn.Read(dialCtx)
	require.NoError(t, err)

	var msg ReloadMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "reload", msg.Type)
	assert.Equal(t, []string{"a.html"}, msg.Paths)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLiveReloadHubClose(t *testing.T) {
	hub := NewLiveReloadHub(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	ts := httptest.NewServer(hub)
	defer ts.Close()

	dialCtx, dialCancel := context.WithTimeout(ctx, 5*time.Second)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	hub.Close()

	_, _, err = conn.Read(dialCtx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
	assert.Equal(t, 0, hub.ClientCount())

	// Broadcasting after close must not block.
	hub.Broadcast(ReloadMessage{Type: "reload"})
}

func TestLiveReloadHubRejectsPlainHTTP(t *testing.T) {
	hub := NewLiveReloadHub(nil, nil)
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_talky/livereload", nil))

	assert.NotEqual(t, http.StatusSwitchingProtocols, rec.Code)
	assert.Equal(t, 0, hub.ClientCount())
}
