package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/corvyn/toolcore/pkg/tool"
)

// HTTPTool fetches a URL over HTTP/HTTPS.
type HTTPTool struct {
	timeout time.Duration
	client  *http.Client
}

// NewHTTPTool returns an HTTPTool with a 30s default timeout and a client
// carrying modern TLS defaults, connection pooling, and bounded retries on
// idempotent requests (see webFetchTransport).
func NewHTTPTool() *HTTPTool {
	timeout := 30 * time.Second
	return &HTTPTool{
		timeout: timeout,
		client:  newWebFetchClient(timeout),
	}
}

func (t *HTTPTool) Name() string          { return "WebFetch" }
func (t *HTTPTool) DisplayName() string   { return "WebFetch" }
func (t *HTTPTool) Description() string   { return "Fetch content from a URL" }
func (t *HTTPTool) Dependencies() []string { return nil }
func (t *HTTPTool) ResourceTags() []string { return nil }
func (t *HTTPTool) Kind() tool.Kind        { return tool.KindNetwork }

func (t *HTTPTool) Schema() *tool.Schema {
	return &tool.Schema{
		Type: "object",
		Properties: map[string]*tool.Property{
			"url":    {Type: "string", Description: "the URL to fetch"},
			"method": {Type: "string", Description: "HTTP method", Default: "GET"},
		},
		Required: []string{"url"},
	}
}

type httpInvocation struct {
	rawURL string
	host   string
	method string
}

func (i *httpInvocation) AffectedPaths() []string { return nil }

func (i *httpInvocation) ShouldConfirm() *tool.ConfirmationDetails { return nil }

func (t *HTTPTool) Build(args map[string]any) (tool.ToolInvocation, error) {
	raw, _ := args["url"].(string)
	if raw == "" {
		return nil, fmt.Errorf("fetch: url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("fetch: invalid url: %w", err)
	}
	method, _ := args["method"].(string)
	if method == "" {
		method = "GET"
	}
	return &httpInvocation{rawURL: raw, host: parsed.Hostname(), method: method}, nil
}

// Execute performs the HTTP request.
func (t *HTTPTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	inv, err := t.Build(args)
	if err != nil {
		return nil, &tool.ValidationError{Message: err.Error()}
	}
	hi := inv.(*httpInvocation)

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, hi.method, hi.rawURL, nil)
	if err != nil {
		return nil, &tool.ExecutionError{ToolName: t.Name(), Cause: err}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			return nil, &tool.TimeoutError{ToolName: t.Name(), BudgetMs: t.timeout.Milliseconds()}
		}
		return nil, &tool.ExecutionError{ToolName: t.Name(), Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, &tool.ExecutionError{ToolName: t.Name(), Cause: err}
	}

	metadata := map[string]any{"status_code": resp.StatusCode, "host": hi.host}
	if resp.StatusCode >= 400 {
		return tool.NewFailure(&tool.ExecutionError{
			ToolName: t.Name(),
			Cause:    fmt.Errorf("fetch %s: status %d", hi.rawURL, resp.StatusCode),
		}), nil
	}
	return tool.NewSuccess(string(body), "", metadata), nil
}
