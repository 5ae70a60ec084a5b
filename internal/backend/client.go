// Package backend talks to the inference service that streams attention
// annotations and audits responses.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/llmxray/internal/model"
	"github.com/ppiankov/llmxray/internal/stream"
	"github.com/ppiankov/llmxray/internal/util"
	"github.com/ppiankov/llmxray/internal/worker"
	"go.uber.org/zap"
)

const (
	attentionStreamPath = "/api/attention-stream"
	factCheckPath       = "/api/factcheck"
	generatePath        = "/api/generate"
	temperatureLabPath  = "/api/temperature-lab"
)

// ErrStatus marks a non-2xx response from the backend
var ErrStatus = errors.New("unexpected backend status")

// Client calls the backend HTTP API
type Client struct {
	baseURL      string
	userAgent    string
	maxBodyBytes int64
	maxFrame     int

	// streaming requests must outlive the plain request timeout
	httpClient   *http.Client
	streamClient *http.Client

	limiter *worker.Limiter
	logger  *zap.Logger
}

// Options configures a Client
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	MaxFrameSize int
	RateLimit    float64
	Burst        int
	HTTPProxy    string
	HTTPSProxy   string
	Logger       *zap.Logger
}

// OptionsFromConfig builds client options from the loaded configuration
func OptionsFromConfig(cfg *model.Config, logger *zap.Logger) Options {
	return Options{
		BaseURL:      cfg.Backend.BaseURL,
		Timeout:      cfg.HTTP.Timeout,
		UserAgent:    cfg.HTTP.UserAgent,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		MaxFrameSize: cfg.Backend.MaxFrameSize,
		RateLimit:    cfg.Backend.RateLimit,
		Burst:        cfg.Backend.Burst,
		HTTPProxy:    cfg.HTTP.HTTPProxy,
		HTTPSProxy:   cfg.HTTP.HTTPSProxy,
		Logger:       logger,
	}
}

// New creates a backend client
func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4_000_000
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}

	transport := &http.Transport{
		Proxy: util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, ""),
	}

	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		userAgent:    opts.UserAgent,
		maxBodyBytes: opts.MaxBodyBytes,
		maxFrame:     opts.MaxFrameSize,
		httpClient:   &http.Client{Timeout: opts.Timeout, Transport: transport},
		streamClient: &http.Client{Transport: transport},
		limiter:      worker.NewLimiter(opts.RateLimit, opts.Burst),
		logger:       opts.Logger,
	}
}

// AttentionStream starts generation for prompt and returns a decoder over
// the annotation stream. The caller must drain or Close the decoder.
func (c *Client) AttentionStream(ctx context.Context, prompt string) (*stream.Decoder, error) {
	resp, err := c.post(ctx, c.streamClient, attentionStreamPath, map[string]string{"prompt": prompt}, "text/event-stream")
	if err != nil {
		return nil, err
	}

	c.logger.Debug("attention stream opened",
		zap.String("content_type", resp.Header.Get("Content-Type")))

	return stream.NewDecoder(resp.Body,
		stream.WithLogger(c.logger),
		stream.WithMaxFrameBytes(c.maxFrame),
	), nil
}

type factCheckResponse struct {
	Claims []model.Claim `json:"claims"`
}

// Check asks the backend to audit responseText. It satisfies
// factcheck.Checker.
func (c *Client) Check(ctx context.Context, responseText string) ([]model.Claim, error) {
	var out factCheckResponse
	if err := c.postJSON(ctx, factCheckPath, map[string]string{"response_text": responseText}, &out); err != nil {
		return nil, err
	}
	if out.Claims == nil {
		out.Claims = []model.Claim{}
	}
	return out.Claims, nil
}

type generateResponse struct {
	Text string `json:"text"`
}

// Generate returns a complete, non-streamed response to prompt
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var out generateResponse
	if err := c.postJSON(ctx, generatePath, map[string]string{"prompt": prompt}, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

type temperatureLabResponse struct {
	Results []model.TemperatureRun `json:"results"`
}

// TemperatureLab generates prompt once per backend temperature, each with
// per-sentence confidence scores. Runs are ordered by temperature.
func (c *Client) TemperatureLab(ctx context.Context, prompt string) ([]model.TemperatureRun, error) {
	var out temperatureLabResponse
	if err := c.postJSON(ctx, temperatureLabPath, map[string]string{"prompt": prompt}, &out); err != nil {
		return nil, err
	}
	sort.SliceStable(out.Results, func(i, j int) bool {
		return out.Results[i].Temperature < out.Results[j].Temperature
	})
	return out.Results, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	resp, err := c.post(ctx, c.httpClient, path, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// post sends body as JSON and returns the response once its status is 2xx
func (c *Client) post(ctx context.Context, client *http.Client, path string, body any, accept string) (*http.Response, error) {
	url := c.baseURL + path

	if err := c.limiter.Wait(ctx, url); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("backend request", zap.String("url", url))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrStatus, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return resp, nil
}
