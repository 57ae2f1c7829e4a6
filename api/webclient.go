package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"moul.io/http2curl"

	"github.com/subsense/subsense/app"
	"github.com/subsense/subsense/backend"
)

const defaultTimeout = 30 * time.Second

// TokenSource supplies the current bearer token, or "" when the caller is
// anonymous. The web client reads it on every request and never caches the
// value.
type TokenSource func() string

// WebClient is the single network entry point. Every outbound call routes
// through it so that auth-header injection and the error shape stay uniform.
// It does not retry, cache, or touch session state.
type WebClient struct {
	client *resty.Client
}

// Opts configures a WebClient.
type Opts struct {
	// BaseURL is the primary URL the client is configured with.
	BaseURL string
	// HTTPClient is the underlying http.Client the resty client should use.
	HTTPClient *http.Client
	// Timeout bounds every request made by the web client. Zero means the
	// default of 30s; there is no "no timeout" setting.
	Timeout time.Duration
	// Token supplies the bearer token for authenticated calls.
	Token TokenSource
	// DeviceID identifies this installation in request headers.
	DeviceID string
}

func NewWebClient(opts *Opts) *WebClient {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	client := resty.NewWithClient(opts.HTTPClient)
	if opts.BaseURL != "" {
		client.SetBaseURL(opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	client.SetTimeout(timeout)

	// Request middleware: marshal the body to JSON and attach the app headers
	// plus the bearer token when one is present.
	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		if req.Body != nil {
			data, err := json.Marshal(req.Body)
			if err != nil {
				return err
			}
			req.Body = data
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set(backend.AppNameHeader, app.Name)
		req.Header.Set(backend.VersionHeader, app.Version)
		req.Header.Set(backend.PlatformHeader, app.Platform)
		if opts.DeviceID != "" {
			req.Header.Set(backend.DeviceIDHeader, opts.DeviceID)
		}
		if opts.Token != nil {
			if token := opts.Token(); token != "" {
				req.Header.Set(backend.AuthorizationHeader, "Bearer "+token)
			}
		}
		return nil
	})

	// Response middleware: unmarshal successful JSON bodies into the caller's
	// result. Empty bodies are fine; callers that expect none pass a nil result.
	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		if !resp.IsSuccess() || len(resp.Body()) == 0 || resp.Request.Result == nil {
			return nil
		}
		return json.Unmarshal(resp.Body(), resp.Request.Result)
	})
	return &WebClient{client: client}
}

func (wc *WebClient) NewRequest(queryParams, headers map[string]string, body any) *resty.Request {
	return wc.client.NewRequest().SetQueryParams(queryParams).SetHeaders(headers).SetBody(body)
}

func (wc *WebClient) Get(ctx context.Context, path string, req *resty.Request, res any) error {
	return wc.send(ctx, resty.MethodGet, path, req, res)
}

func (wc *WebClient) Post(ctx context.Context, path string, req *resty.Request, res any) error {
	return wc.send(ctx, resty.MethodPost, path, req, res)
}

// errorBody is the structured error shape the backend returns on rejection.
type errorBody struct {
	Detail string `json:"detail"`
}

func (wc *WebClient) send(ctx context.Context, method, path string, req *resty.Request, res any) error {
	if req == nil {
		req = wc.client.NewRequest()
	}
	req.SetContext(ctx)
	if res != nil {
		req.SetResult(res)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		// a response middleware error means we did get a response but could
		// not decode it; only the no-response case is a NetworkError
		if resp != nil && resp.RawResponse != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return &NetworkError{Err: err}
	}
	if command, cerr := http2curl.GetCurlCommand(req.RawRequest); cerr == nil {
		slog.Debug("sent request", "curl", command.String())
	}

	if !resp.IsSuccess() {
		slog.Debug("request rejected", "status", resp.StatusCode(), "body", string(resp.Body()))
		var body errorBody
		if jerr := json.Unmarshal(resp.Body(), &body); jerr != nil || body.Detail == "" {
			body.Detail = fmt.Sprintf("unexpected response: %s", http.StatusText(resp.StatusCode()))
		}
		return &RequestError{Status: resp.StatusCode(), Detail: body.Detail}
	}
	return nil
}
