package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/corey/ground/internal/ports"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := New(Config{BaseURL: srv.URL, Model: "test-model", Timeout: 5 * time.Second}, zap.NewNop())
	t.Cleanup(func() {
		c.http.CloseIdleConnections()
		srv.Close()
	})
	return c
}

// writeChunks flushes each chunk separately so the client sees the
// stream arrive piecewise, including frames split across reads.
func writeChunks(w http.ResponseWriter, chunks []string) {
	flusher := w.(http.Flusher)
	for _, c := range chunks {
		fmt.Fprint(w, c)
		flusher.Flush()
	}
}

func userMsg(text string) []ports.ChatMessage {
	return []ports.ChatMessage{{Role: "user", Content: text}}
}

func TestChatStreamReassembly(t *testing.T) {
	chunks := []string{
		`{"message":{"content":"Hel"},"done":false}` + "\n",
		`{"message":{"content":"lo"},"do`,
		`ne":false}` + "\n",
		`{"message":{"content":"!"},"done":true}` + "\n",
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		writeChunks(w, chunks)
	})

	var deltas []string
	full, err := c.ChatStream(context.Background(), userMsg("hi"), func(d string) {
		deltas = append(deltas, d)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", full)
	assert.Equal(t, []string{"Hel", "lo", "!"}, deltas)
}

func TestChatStreamStopsAtDone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeChunks(w, []string{
			`{"message":{"content":"done"},"done":true}` + "\n",
			`{"message":{"content":"IGNORED"},"done":false}` + "\n",
		})
	})

	full, err := c.ChatStream(context.Background(), userMsg("hi"), nil)
	require.NoError(t, err)
	assert.Equal(t, "done", full)
}

func TestChatStreamSkipsMalformedLines(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeChunks(w, []string{
			`{"message":{"content":"a"},"done":false}` + "\n",
			"this is not json\n",
			"\n",
			`{"message":{"content":"b"},"done":true}` + "\n",
		})
	})

	full, err := c.ChatStream(context.Background(), userMsg("hi"), nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", full)
}

func TestChatStreamTrailingFrameWithoutNewline(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeChunks(w, []string{
			`{"message":{"content":"part"},"done":false}` + "\n",
			`{"message":{"content":"ial"},"done":true}`, // no trailing newline
		})
	})

	full, err := c.ChatStream(context.Background(), userMsg("hi"), nil)
	require.NoError(t, err)
	assert.Equal(t, "partial", full)
}

func TestChatStreamEOFWithoutDone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeChunks(w, []string{
			`{"message":{"content":"truncated"},"done":false}` + "\n",
		})
	})

	full, err := c.ChatStream(context.Background(), userMsg("hi"), nil)
	require.NoError(t, err)
	assert.Equal(t, "truncated", full)
}

func TestChatStreamHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	})

	_, err := c.ChatStream(context.Background(), userMsg("hi"), nil)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
	assert.Contains(t, httpErr.Body, "model not found")
}

func TestChatOnce(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"full reply"},"done":true}`)
	})

	text, err := c.ChatOnce(context.Background(), userMsg("hi"))
	require.NoError(t, err)
	assert.Equal(t, "full reply", text)
}

func TestChatOnceMissingContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"role":"assistant"},"done":true}`)
	})

	_, err := c.ChatOnce(context.Background(), userMsg("hi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing message content")
}

func TestChatOnceUnreachable(t *testing.T) {
	// Point at a closed port.
	c := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: 2 * time.Second}, zap.NewNop())

	_, err := c.ChatOnce(context.Background(), userMsg("hi"))
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestChatStreamCallerCancel(t *testing.T) {
	started := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeChunks(w, []string{`{"message":{"content":"a"},"done":false}` + "\n"})
		close(started)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.ChatStream(ctx, userMsg("hi"), nil)
	assert.ErrorIs(t, err, ErrAborted)
}

func TestChatStreamTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeChunks(w, []string{`{"message":{"content":"a"},"done":false}` + "\n"})
		<-r.Context().Done()
	})
	c.timeout = 100 * time.Millisecond

	_, err := c.ChatStream(context.Background(), userMsg("hi"), nil)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestHealthCheckOK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models":[{"name":"qwen2.5-coder:7b"},{"name":"llama3:8b"}]}`)
	})

	h := c.HealthCheck(context.Background())
	assert.True(t, h.OK)
	assert.Equal(t, []string{"qwen2.5-coder:7b", "llama3:8b"}, h.Models)
	assert.Empty(t, h.Reason)
}

func TestHealthCheckUnreachable(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: 2 * time.Second}, zap.NewNop())

	h := c.HealthCheck(context.Background())
	assert.False(t, h.OK)
	assert.Contains(t, h.Reason, "ollama serve")
}

func TestHealthCheckHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	h := c.HealthCheck(context.Background())
	assert.False(t, h.OK)
	assert.Contains(t, h.Reason, "500")
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{}, nil)
	assert.Equal(t, defaultBaseURL, c.BaseURL())
	assert.Equal(t, defaultModel, c.Model())
	assert.Equal(t, defaultTimeout, c.timeout)

	c = New(Config{BaseURL: "http://host:1234///"}, nil)
	assert.Equal(t, "http://host:1234", c.BaseURL())
}

func TestClassify(t *testing.T) {
	bg := context.Background()
	assert.ErrorIs(t, classify(bg, context.DeadlineExceeded), ErrTimeout)
	assert.ErrorIs(t, classify(bg, context.Canceled), ErrAborted)
	assert.ErrorIs(t, classify(bg, errors.New("dial tcp: connection refused")), ErrUnreachable)
}
