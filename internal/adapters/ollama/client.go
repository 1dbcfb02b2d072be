// Package ollama talks to a locally running Ollama server over its
// HTTP API. Chat responses stream back as newline-delimited JSON; the
// client reassembles delta frames into a single reply and surfaces
// partial output through a callback for streaming consumers.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/corey/ground/internal/ports"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "qwen2.5-coder:7b"
	defaultTimeout = 60 * time.Second

	maxErrorBody = 2048
)

var (
	// ErrUnreachable means the server could not be contacted at all.
	ErrUnreachable = errors.New("ollama endpoint unreachable")
	// ErrTimeout means the request deadline elapsed before completion.
	ErrTimeout = errors.New("ollama request timed out")
	// ErrAborted means the caller cancelled the request.
	ErrAborted = errors.New("ollama request aborted")
)

// HTTPError is a non-2xx response from the server.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ollama returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("ollama returned HTTP %d: %s", e.Status, e.Body)
}

// Config holds connection settings for the Ollama server.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client implements ports.ChatClient against an Ollama server.
type Client struct {
	baseURL string
	model   string
	timeout time.Duration
	http    *http.Client
	log     *zap.Logger
}

// New creates a client. Zero-value config fields fall back to the
// local default endpoint and model.
func New(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: base,
		model:   model,
		timeout: timeout,
		// Per-request deadlines come from context so streaming reads
		// are not cut off by a whole-request client timeout. The
		// transport is private so closing idle connections does not
		// affect other clients in the process.
		http: &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		log:  log,
	}
}

// Model reports the model name requests are issued against.
func (c *Client) Model() string { return c.model }

// BaseURL reports the server endpoint the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// HealthCheck probes GET /api/tags. A reachable server yields OK plus
// the installed model names; any failure yields OK=false with a
// human-readable reason.
func (c *Client) HealthCheck(ctx context.Context) ports.Health {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return ports.Health{Reason: err.Error()}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ports.Health{Reason: humanize(classify(ctx, err))}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ports.Health{Reason: fmt.Sprintf("endpoint responded with HTTP %d", resp.StatusCode)}
	}
	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return ports.Health{Reason: "endpoint returned unreadable model list"}
	}
	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, m.Name)
	}
	return ports.Health{OK: true, Models: models}
}

type chatRequest struct {
	Model    string              `json:"model"`
	Messages []ports.ChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type chatFrame struct {
	Message struct {
		Content any `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// ChatOnce sends a non-streaming chat request and returns the full
// reply text.
func (c *Client) ChatOnce(ctx context.Context, messages []ports.ChatMessage) (string, error) {
	resp, err := c.post(ctx, chatRequest{Model: c.model, Messages: messages, Stream: false})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var frame chatFrame
	if err := json.NewDecoder(resp.Body).Decode(&frame); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", classify(ctx, err))
	}
	content, ok := frame.Message.Content.(string)
	if !ok {
		return "", errors.New("chat response missing message content")
	}
	return content, nil
}

// ChatStream sends a streaming chat request. Each content delta is
// passed to onDelta as it arrives; the reassembled full text is
// returned. Malformed frames are skipped, and frames after done:true
// are ignored.
func (c *Client) ChatStream(ctx context.Context, messages []ports.ChatMessage, onDelta func(string)) (string, error) {
	resp, err := c.post(ctx, chatRequest{Model: c.model, Messages: messages, Stream: true})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			done, derr := c.consumeLine(line, &full, onDelta)
			if derr == nil && done {
				return full.String(), nil
			}
		}
		if err != nil {
			if err == io.EOF {
				// Stream ended without a done frame; keep what we have.
				return full.String(), nil
			}
			return full.String(), classify(ctx, err)
		}
	}
}

// consumeLine parses one NDJSON frame, appending its delta. Returns
// whether the frame carried done:true. Unparseable lines are logged
// and skipped.
func (c *Client) consumeLine(line string, full *strings.Builder, onDelta func(string)) (bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false, nil
	}
	var frame chatFrame
	if err := json.Unmarshal([]byte(trimmed), &frame); err != nil {
		c.log.Debug("skipping malformed stream frame", zap.Error(err))
		return false, err
	}
	if delta, ok := frame.Message.Content.(string); ok && delta != "" {
		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	return frame.Done, nil
}

func (c *Client) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	payload, err := json.Marshal(body)
	if err != nil {
		cancel()
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, classify(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		cancel()
		return nil, &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	// The cancel func must outlive the body read for streaming; tie it
	// to body close instead.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// classify maps transport failures onto the client's error taxonomy.
// The context is consulted to distinguish a caller abort from an
// elapsed deadline.
func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return ErrAborted
	default:
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
}

func humanize(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "request timed out; is the server busy?"
	case errors.Is(err, ErrAborted):
		return "request cancelled"
	case errors.Is(err, ErrUnreachable):
		return "cannot reach Ollama; is it running? (try: ollama serve)"
	default:
		return err.Error()
	}
}
