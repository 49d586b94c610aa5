// Package upstream issues a single request to the upstream generative-
// model provider, in either buffered or streaming mode, against the
// Gemini-shaped contents/parts wire dialect. It is adapted from the
// teacher's Gemini provider, narrowed from a multi-vendor Provider
// interface to the one upstream this gateway speaks to.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/foamcold/gproxy/internal/model"
)

// Failure kinds, mirroring the classification table.
const (
	KindTransport          = "transport"
	KindRateLimited         = "rate_limited"
	KindServerError         = "server_error"
	KindUnauthorized        = "unauthorized"
	KindForbidden           = "forbidden"
	KindPermanentlyInvalid  = "permanently_invalid"
)

// Failure is the typed error Invoke* returns on anything but a clean
// success. Retryable distinguishes the two branches of §4.6's
// classification table.
type Failure struct {
	Retryable  bool
	Kind       string
	HTTPStatus int
	Err        error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("upstream: %s (status=%d, retryable=%v): %v", f.Kind, f.HTTPStatus, f.Retryable, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func retryableFailure(kind string, status int, err error) *Failure {
	return &Failure{Retryable: true, Kind: kind, HTTPStatus: status, Err: err}
}

func fatalFailure(kind string, status int, err error) *Failure {
	return &Failure{Retryable: false, Kind: kind, HTTPStatus: status, Err: err}
}

// Request is one call against the upstream.
type Request struct {
	Model       string
	Messages    []model.Message
	Stream      bool
	Temperature float64
	TopP        float64
	MaxTokens   int
	Credential  string // the leased credential's secret
}

// BufferedResult is the outcome of a non-streaming Invoke.
type BufferedResult struct {
	Content         string
	TokensIn        int64
	TokensOut       int64
	TokensEstimated bool
	FinishReason    string
}

// Delta is one text increment of a streaming response.
type Delta struct {
	Content string
}

// Summary trails the last Delta of a streaming response.
type Summary struct {
	TokensIn        int64
	TokensOut       int64
	TokensEstimated bool
	FinishReason    string
}

// Event is one item of the lazy streaming sequence: exactly one of
// Delta, Summary, or Err is set, with Summary terminating a successful
// stream and Err terminating a failed one.
type Event struct {
	Delta   *Delta
	Summary *Summary
	Err     *Failure
}

// Client issues calls to the upstream. One Client is shared across all
// requests and credentials; it caches one genai.Client per credential
// secret.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*genai.Client
}

// New builds a Client against baseURL, the upstream base URL from
// configuration (§6).
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	base, ver := splitBaseURLAndVersion(baseURL)
	return &Client{
		baseURL:    base,
		apiVersion: ver,
		httpClient: httpClient,
		clients:    make(map[string]*genai.Client),
	}
}

func (c *Client) clientFor(ctx context.Context, apiKey string) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.clients[apiKey]; ok {
		return cl, nil
	}
	cl, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.baseURL, APIVersion: c.apiVersion},
	})
	if err != nil {
		return nil, err
	}
	c.clients[apiKey] = cl
	return cl, nil
}

// InvokeBuffered performs a single buffered call. On failure it returns
// a *Failure.
func (c *Client) InvokeBuffered(ctx context.Context, req *Request) (*BufferedResult, error) {
	client, err := c.clientFor(ctx, req.Credential)
	if err != nil {
		return nil, retryableFailure(KindTransport, 0, err)
	}

	contents, cfg := buildContentsAndConfig(req)

	resp, err := client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, classifyError(err)
	}
	if resp == nil {
		return nil, retryableFailure(KindServerError, 200, errors.New("upstream: empty response body"))
	}

	text := resp.Text()
	var inTok, outTok int64
	estimated := false
	if resp.UsageMetadata != nil {
		inTok = int64(resp.UsageMetadata.PromptTokenCount)
		outTok = int64(resp.UsageMetadata.CandidatesTokenCount)
	} else {
		inTok = estimateTokens(joinMessages(req.Messages))
		outTok = estimateTokens(text)
		estimated = true
	}

	finish := ""
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		finish = string(resp.Candidates[0].FinishReason)
	}

	return &BufferedResult{
		Content:         text,
		TokensIn:        inTok,
		TokensOut:       outTok,
		TokensEstimated: estimated,
		FinishReason:    finish,
	}, nil
}

// InvokeStreaming performs a single streaming call. The returned channel
// yields zero or more Delta events followed by exactly one terminal
// event (Summary on success, Err on failure). Cancelling ctx closes the
// underlying transport promptly; the channel is closed after the
// terminal event.
func (c *Client) InvokeStreaming(ctx context.Context, req *Request) (<-chan Event, error) {
	client, err := c.clientFor(ctx, req.Credential)
	if err != nil {
		return nil, retryableFailure(KindTransport, 0, err)
	}

	contents, cfg := buildContentsAndConfig(req)
	ch := make(chan Event, 64)

	go func() {
		defer close(ch)

		var outText strings.Builder
		var inTok, outTok int64
		estimated := false
		finish := ""
		gotUsage := false

		for resp, err := range client.Models.GenerateContentStream(ctx, req.Model, contents, cfg) {
			if err != nil {
				ch <- Event{Err: classifyError(err)}
				return
			}
			if resp == nil {
				continue
			}
			if resp.UsageMetadata != nil {
				inTok = int64(resp.UsageMetadata.PromptTokenCount)
				outTok = int64(resp.UsageMetadata.CandidatesTokenCount)
				gotUsage = true
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
				continue
			}
			cand := resp.Candidates[0]
			if cand.FinishReason != "" {
				finish = string(cand.FinishReason)
			}
			text := candidateText(cand)
			if text != "" {
				outText.WriteString(text)
				ch <- Event{Delta: &Delta{Content: text}}
			}
		}

		if !gotUsage {
			inTok = estimateTokens(joinMessages(req.Messages))
			outTok = estimateTokens(outText.String())
			estimated = true
		}

		ch <- Event{Summary: &Summary{
			TokensIn:        inTok,
			TokensOut:       outTok,
			TokensEstimated: estimated,
			FinishReason:    finish,
		}}
	}()

	return ch, nil
}

func buildContentsAndConfig(req *Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	var systemPrompt string
	contents := make([]*genai.Content, 0, len(req.Messages))

	for _, m := range req.Messages {
		switch strings.ToLower(m.Role) {
		case "system", "developer":
			if systemPrompt != "" {
				systemPrompt += "\n"
			}
			systemPrompt += m.Content
		case "assistant", "model":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	var cfg *genai.GenerateContentConfig
	if systemPrompt != "" || req.Temperature > 0 || req.TopP > 0 || req.MaxTokens > 0 {
		cfg = &genai.GenerateContentConfig{}
	}
	if cfg != nil && systemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}
	if cfg != nil && req.Temperature > 0 {
		cfg.Temperature = genai.Ptr[float32](float32(req.Temperature))
	}
	if cfg != nil && req.TopP > 0 {
		cfg.TopP = genai.Ptr[float32](float32(req.TopP))
	}
	if cfg != nil && req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	return contents, cfg
}

func candidateText(c *genai.Candidate) string {
	if c == nil || c.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		if p != nil && p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func joinMessages(msgs []model.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		sb.WriteString(m.Content)
	}
	return sb.String()
}

// estimateTokens implements the §9 fallback: UTF-8 codepoint length
// divided by 4, rounded up.
func estimateTokens(s string) int64 {
	n := utf8.RuneCountInString(s)
	return int64(math.Ceil(float64(n) / 4.0))
}

// permanentlyInvalidStatuses are the upstream-declared gRPC-style status
// strings (genai.APIError.Status) that accompany an HTTP 400 when the
// request itself is malformed beyond any chance of succeeding on retry
// (bad model name, malformed schema, out-of-range field). Any other 400
// status — including an empty one the SDK couldn't classify — is treated
// as a transient validation hiccup rather than a declared permanent one.
var permanentlyInvalidStatuses = map[string]bool{
	"INVALID_ARGUMENT": true,
	"OUT_OF_RANGE":     true,
}

// classifyError maps an error from the genai SDK to the §4.6 failure
// classification table.
func classifyError(err error) *Failure {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return retryableFailure(KindTransport, 0, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Code
		switch {
		case status == http.StatusTooManyRequests:
			return retryableFailure(KindRateLimited, status, err)
		case status == http.StatusUnauthorized:
			return fatalFailure(KindUnauthorized, status, err)
		case status == http.StatusForbidden:
			return fatalFailure(KindForbidden, status, err)
		case status == http.StatusBadRequest && permanentlyInvalidStatuses[apiErr.Status]:
			return fatalFailure(KindPermanentlyInvalid, status, err)
		case status >= 500:
			return retryableFailure(KindServerError, status, err)
		default:
			return retryableFailure(KindServerError, status, err)
		}
	}

	// Unclassified transport-level error (DNS, connection refused, etc).
	return retryableFailure(KindTransport, 0, err)
}

func splitBaseURLAndVersion(raw string) (baseURL, apiVersion string) {
	u, err := url.Parse(raw)
	if err != nil {
		return raw, ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		base := u.String()
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		return base, ""
	}
	parts := strings.Split(path, "/")
	last := parts[len(parts)-1]
	if looksLikeAPIVersion(last) {
		apiVersion = last
		parts = parts[:len(parts)-1]
	}
	u.Path = "/" + strings.Join(parts, "/")
	if u.Path == "/" {
		u.Path = ""
	}
	baseURL = u.String()
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL, apiVersion
}

func looksLikeAPIVersion(s string) bool {
	if !strings.HasPrefix(s, "v") || len(s) < 2 {
		return false
	}
	return s[1] >= '0' && s[1] <= '9'
}
