// Package orchestrator implements the end-to-end request handler: the
// Auth → Expand → Dispatch → Relay → Log state machine that ties the
// store, preset expander, regex pipeline, credential pool, upstream
// client, and log recorder into the single /v1/chat/completions and
// /v1/models HTTP handlers. It is grounded in the teacher's
// proxy.Gateway dispatch methods, narrowed from multi-vendor failover
// to a single-upstream credential pool and generalized with the
// preset/regex/variable pipeline this gateway adds in front of it.
package orchestrator

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/foamcold/gproxy/internal/credpool"
	"github.com/foamcold/gproxy/internal/model"
	"github.com/foamcold/gproxy/internal/preset"
	"github.com/foamcold/gproxy/internal/regexpipe"
	"github.com/foamcold/gproxy/internal/store"
	"github.com/foamcold/gproxy/internal/upstream"
	"github.com/foamcold/gproxy/internal/varengine"
	"github.com/foamcold/gproxy/pkg/apierr"
)

const defaultMaxAttemptsCap = 3

// statusClientClosedRequest is nginx's de facto status for "client closed
// the connection before the server could respond" — not in net/http's
// table, but the conventional value log consumers expect for it.
const statusClientClosedRequest = 499

// Options tunes the timeouts and attempt budget the state machine uses.
// Zero values fall back to the §5 defaults.
type Options struct {
	// AttemptTimeout bounds a single upstream call. Default 120s.
	AttemptTimeout time.Duration
	// RequestTimeout bounds the whole request across every attempt.
	// Default 10m.
	RequestTimeout time.Duration
	// Models is the static model list served by GET /v1/models.
	Models []string
	// MaxAttempts caps the per-request credential attempt budget before
	// min(MaxAttempts, enabled credentials) is applied. Default 3.
	MaxAttempts int
	// VarEngineSeed fixes the variable-expansion PRNG seed for every
	// request, so test harnesses can reproduce roll/random output.
	// Zero (default) derives the seed from each request id instead.
	VarEngineSeed int64
}

// Orchestrator wires together every component the request-execution
// pipeline needs. One Orchestrator is shared across all requests.
type Orchestrator struct {
	store    store.Store
	pool     *credpool.Pool
	upstream *upstream.Client
	recorder recorderLike
	log      *slog.Logger

	attemptTimeout time.Duration
	requestTimeout time.Duration
	models         []string
	maxAttemptsCap int
	varEngineSeed  int64
}

// recorderLike is the subset of *logrecorder.Recorder the orchestrator
// needs; kept as an interface so tests can substitute a bare slice
// collector without pulling in the batching goroutine.
type recorderLike interface {
	Append(entry model.LogEntry)
}

// New builds an Orchestrator. logger defaults to slog.Default when nil.
func New(st store.Store, pool *credpool.Pool, up *upstream.Client, rec recorderLike, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	attemptTimeout := opts.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = 120 * time.Second
	}
	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Minute
	}
	maxAttemptsCap := opts.MaxAttempts
	if maxAttemptsCap <= 0 {
		maxAttemptsCap = defaultMaxAttemptsCap
	}
	return &Orchestrator{
		store:          st,
		pool:           pool,
		upstream:       up,
		recorder:       rec,
		log:            logger,
		attemptTimeout: attemptTimeout,
		requestTimeout: requestTimeout,
		models:         opts.Models,
		maxAttemptsCap: maxAttemptsCap,
		varEngineSeed:  opts.VarEngineSeed,
	}
}

// ── inbound / outbound wire shapes ──────────────────────────────────────────

type inboundMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type inboundRequest struct {
	Model            string           `json:"model"`
	Messages         []inboundMessage `json:"messages"`
	Stream           bool             `json:"stream"`
	Temperature      float64          `json:"temperature"`
	TopP             float64          `json:"top_p"`
	N                int              `json:"n"`
	MaxTokens        int              `json:"max_tokens"`
	Stop             json.RawMessage  `json:"stop"`
	PresencePenalty  float64          `json:"presence_penalty"`
	FrequencyPenalty float64          `json:"frequency_penalty"`
	User             string           `json:"user"`
}

type outboundUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

type outboundMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type outboundChoice struct {
	Index        int             `json:"index"`
	Message      outboundMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type outboundResponse struct {
	ID      string           `json:"id"`
	Object  string           `json:"object"`
	Created int64            `json:"created"`
	Model   string           `json:"model"`
	Choices []outboundChoice `json:"choices"`
	Usage   outboundUsage    `json:"usage"`
}

type modelsResponse struct {
	Object string        `json:"object"`
	Data   []modelRecord `json:"data"`
}

type modelRecord struct {
	ID     string `json:"id"`
	Object string `json:"object"`
	Owned  string `json:"owned_by"`
}

// ── HandleModels ─────────────────────────────────────────────────────────

// HandleModels implements GET /v1/models, serving the static model
// identifier list from configuration.
func (o *Orchestrator) HandleModels(ctx *fasthttp.RequestCtx) {
	data := make([]modelRecord, len(o.models))
	for i, m := range o.models {
		data[i] = modelRecord{ID: m, Object: "model", Owned: "upstream"}
	}
	body, _ := json.Marshal(modelsResponse{Object: "list", Data: data})
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(body)
}

// ── HandleChatCompletions ────────────────────────────────────────────────

// requestState carries everything accumulated while walking the state
// machine, so Log can always emit exactly one entry regardless of which
// state terminated the request.
type requestState struct {
	id          string
	start       time.Time
	tenantKeyID string
	model       string
	stream      bool
	httpStatus  int
	status      string // "ok" | "error"
	inputTokens int64
	outputTok   int64
	tokensEst   bool
	ttft        time.Duration
	firstByte   bool

	// committedStream is set once dispatchStreaming hands a winning
	// stream to relayStream; relayStream's SetBodyStreamWriter callback
	// logs the terminal outcome itself when the body actually finishes.
	committedStream bool
}

// HandleChatCompletions implements POST /v1/chat/completions: the Auth →
// Expand → Dispatch → Relay → Log state machine.
func (o *Orchestrator) HandleChatCompletions(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	rs := &requestState{id: uuid.New().String(), start: start, status: "error"}

	reqCtx, cancel := context.WithTimeout(ctx, o.requestTimeout)
	defer cancel()

	// The stream relay writes its own log entry once the body actually
	// drains, since fasthttp invokes a SetBodyStreamWriter callback only
	// after this handler returns — logging here first would race ahead
	// of the real outcome. rs.committedStream flags that hand-off.
	defer func() {
		if rs.committedStream {
			return
		}
		rs.httpStatus = ctx.Response.StatusCode()
		if rs.httpStatus >= 200 && rs.httpStatus < 300 {
			rs.status = "ok"
		}
		o.logRequest(rs)
	}()

	// 1. Auth.
	tk, _, err := o.authenticate(ctx)
	if err != nil {
		apierr.Write(ctx, fasthttp.StatusUnauthorized, "missing or invalid API key",
			apierr.TypeInvalidAPIKey, apierr.CodeInvalidAPIKey)
		return
	}
	rs.tenantKeyID = tk.ID

	var req inboundRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		apierr.Write(ctx, fasthttp.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err.Error()),
			apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
		return
	}
	if req.Model == "" {
		apierr.Write(ctx, fasthttp.StatusBadRequest, "field 'model' is required",
			apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
		return
	}
	rs.model = req.Model
	rs.stream = req.Stream

	inbound := make([]model.Message, len(req.Messages))
	for i, m := range req.Messages {
		inbound[i] = model.Message{Role: m.Role, Content: m.Content}
	}

	// 2. Expand.
	messages, pipeline, err := o.expand(reqCtx, rs.id, tk, inbound)
	if err != nil {
		o.log.ErrorContext(reqCtx, "preset_fault", slog.String("request_id", rs.id), slog.Any("error", err))
		apierr.Write(ctx, fasthttp.StatusInternalServerError, "internal server error",
			apierr.TypeServerError, apierr.CodeInternalError)
		return
	}

	upReq := &upstream.Request{
		Model:       req.Model,
		Messages:    messages,
		Stream:      req.Stream,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	}

	// 3. Dispatch (with in-pipeline failover across credentials).
	// ctx.Done() (RequestCtx satisfies context.Context) is closed once the
	// server starts shutting down; the request then ends with 499 and the
	// upstream is not called. A client that drops its connection during
	// Auth/Expand does not close this channel, so such a request is not
	// detected here and still proceeds to Dispatch.
	select {
	case <-ctx.Done():
		apierr.Write(ctx, statusClientClosedRequest, "client closed request",
			apierr.TypeClientCancelled, apierr.CodeClientCancelled)
		return
	default:
	}

	if req.Stream {
		o.dispatchStreaming(reqCtx, ctx, rs, upReq, pipeline)
		return
	}
	o.dispatchBuffered(reqCtx, ctx, rs, upReq, pipeline)
}

func (o *Orchestrator) authenticate(ctx *fasthttp.RequestCtx) (model.TenantKey, model.Account, error) {
	secret := bearerToken(string(ctx.Request.Header.Peek("Authorization")))
	if secret == "" {
		secret = string(ctx.QueryArgs().Peek("key"))
	}
	if secret == "" {
		return model.TenantKey{}, model.Account{}, store.ErrNotFound
	}
	return o.store.Authenticate(ctx, secret)
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// expand runs PresetExpander then RegexPipeline{pre} and returns the
// compiled pipeline so Relay can apply the post phase later.
func (o *Orchestrator) expand(ctx context.Context, requestID string, tk model.TenantKey, inbound []model.Message) ([]model.Message, *regexpipe.Pipeline, error) {
	var p *model.Preset
	if tk.PresetID != nil {
		fetched, err := o.store.GetPreset(ctx, *tk.PresetID)
		if err != nil {
			return nil, nil, fmt.Errorf("orchestrator: get preset %s: %w", *tk.PresetID, err)
		}
		p = &fetched
	}

	scope := varengine.NewScope(o.varEngineSeedFor(requestID))
	expanded, err := preset.Expand(p, inbound, scope)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: expand preset: %w", err)
	}

	var accountRules, presetRules []model.RegexRule
	if tk.ApplyRegex {
		rules, err := o.store.ListAccountRegex(ctx, tk.AccountID)
		if err != nil {
			return nil, nil, fmt.Errorf("orchestrator: list account regex: %w", err)
		}
		accountRules = rules
	}
	if p != nil {
		presetRules = p.RegexRules
	}

	compiledAccount, accErrs := regexpipe.Compile(accountRules)
	for _, e := range accErrs {
		o.log.Warn("account regex rule rejected at compile", slog.Any("error", e))
	}
	compiledPreset, presErrs := regexpipe.Compile(presetRules)
	for _, e := range presErrs {
		o.log.Warn("preset regex rule rejected at compile", slog.Any("error", e))
	}
	pipeline := regexpipe.New(compiledAccount, compiledPreset)

	for i := range expanded {
		expanded[i].Content = pipeline.ApplyPre(expanded[i].Content)
	}

	return expanded, pipeline, nil
}

// maxAttempts returns min(o.maxAttemptsCap, enabled credentials).
func (o *Orchestrator) maxAttempts() int {
	n := o.pool.EnabledCount()
	if n > o.maxAttemptsCap {
		return o.maxAttemptsCap
	}
	return n
}

// credpoolOutcome maps an upstream.Failure kind to the matching credpool
// outcome kind; the two packages intentionally share vocabulary.
func credpoolOutcome(f *upstream.Failure) credpool.Outcome {
	if f.Retryable {
		return credpool.Retryable(f.Kind)
	}
	return credpool.Fatal(f.Kind)
}

// settle reports a lease outcome to the pool and persists the resulting
// per-credential counters through the Store, satisfying §4.1's
// UpdateCredentialStats contract. The Store write happens off the
// request hot path: Settle itself is in-memory and instant, so only the
// persistence call needs to be pushed to a background goroutine.
func (o *Orchestrator) settle(credID string, outcome credpool.Outcome) {
	cred, ok := o.pool.Settle(credID, outcome)
	if !ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.store.UpdateCredentialStats(ctx, cred); err != nil {
			o.log.Error("update_credential_stats_failed", slog.String("credential_id", credID), slog.Any("error", err))
		}
	}()
}

// varEngineSeedFor resolves the PRNG seed for a request's {{roll}}/
// {{random}} expansion. A configured VarEngineSeed is used as-is so test
// harnesses can reproduce output across repeated runs with the same
// request id; otherwise the seed is derived from the request id itself,
// which keeps a single request's expansion internally deterministic
// (useful for retried attempts within dispatchBuffered/dispatchStreaming)
// without coordinating state across requests.
func (o *Orchestrator) varEngineSeedFor(requestID string) int64 {
	if o.varEngineSeed != 0 {
		return o.varEngineSeed
	}
	h := fnv.New64a()
	h.Write([]byte(requestID))
	return int64(h.Sum64())
}

// dispatchBuffered runs the attempt loop for a non-streaming request and
// writes the final JSON body (Relay + implicit Log via the deferred
// logRequest in the caller).
func (o *Orchestrator) dispatchBuffered(reqCtx context.Context, ctx *fasthttp.RequestCtx, rs *requestState, upReq *upstream.Request, pipeline *regexpipe.Pipeline) {
	max := o.maxAttempts()
	if max == 0 {
		apierr.Write(ctx, fasthttp.StatusBadGateway, "no upstream credentials available",
			apierr.TypeUpstreamError, apierr.CodeUpstreamError)
		return
	}

	excluded := make(map[string]struct{})
	var lastFailure *upstream.Failure

	for attempt := 1; attempt <= max; attempt++ {
		leased, err := o.pool.Lease(reqCtx, excluded)
		if err != nil {
			break
		}
		attemptCtx, cancel := context.WithTimeout(reqCtx, o.attemptTimeout)
		reqCopy := *upReq
		reqCopy.Credential = leased.Credential.Secret
		result, ferr := o.upstream.InvokeBuffered(attemptCtx, &reqCopy)
		cancel()

		if ferr != nil {
			failure := asFailure(ferr)
			lastFailure = failure
			o.settle(leased.Credential.ID, credpoolOutcome(failure))
			excluded[leased.Credential.ID] = struct{}{}
			if failure.Kind == upstream.KindPermanentlyInvalid {
				apierr.Write(ctx, fasthttp.StatusBadRequest, "upstream rejected the request as invalid",
					apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
				return
			}
			continue
		}

		o.settle(leased.Credential.ID, credpool.Ok(result.TokensIn, result.TokensOut))

		content := pipeline.ApplyPost(result.Content)
		body, _ := json.Marshal(outboundResponse{
			ID:      "chatcmpl-" + rs.id,
			Object:  "chat.completion",
			Created: time.Now().Unix(),
			Model:   upReq.Model,
			Choices: []outboundChoice{{
				Index:        0,
				Message:      outboundMessage{Role: "assistant", Content: content},
				FinishReason: result.FinishReason,
			}},
			Usage: outboundUsage{
				PromptTokens:     result.TokensIn,
				CompletionTokens: result.TokensOut,
				TotalTokens:      result.TokensIn + result.TokensOut,
			},
		})
		rs.inputTokens, rs.outputTok, rs.tokensEst = result.TokensIn, result.TokensOut, result.TokensEstimated

		ctx.SetContentType("application/json")
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBody(body)
		return
	}

	writeExhausted(ctx, lastFailure)
}

// dispatchStreaming runs the attempt loop for a streaming request. Per
// §4.7, failover across credentials can only happen before the first
// byte reaches the client; once a stream yields its first delta the
// orchestrator has committed to it.
func (o *Orchestrator) dispatchStreaming(reqCtx context.Context, ctx *fasthttp.RequestCtx, rs *requestState, upReq *upstream.Request, pipeline *regexpipe.Pipeline) {
	max := o.maxAttempts()
	if max == 0 {
		apierr.Write(ctx, fasthttp.StatusBadGateway, "no upstream credentials available",
			apierr.TypeUpstreamError, apierr.CodeUpstreamError)
		return
	}

	excluded := make(map[string]struct{})
	var lastFailure *upstream.Failure

	for attempt := 1; attempt <= max; attempt++ {
		leased, err := o.pool.Lease(reqCtx, excluded)
		if err != nil {
			break
		}
		attemptCtx, cancel := context.WithTimeout(reqCtx, o.attemptTimeout)
		reqCopy := *upReq
		reqCopy.Credential = leased.Credential.Secret

		ch, ferr := o.upstream.InvokeStreaming(attemptCtx, &reqCopy)
		if ferr != nil {
			failure := asFailure(ferr)
			lastFailure = failure
			o.settle(leased.Credential.ID, credpoolOutcome(failure))
			excluded[leased.Credential.ID] = struct{}{}
			cancel()
			continue
		}

		first, ok := <-ch
		if !ok {
			// Channel closed with no event at all: treat as a transport
			// failure, no bytes committed.
			failure := &upstream.Failure{Retryable: true, Kind: upstream.KindTransport, Err: errors.New("orchestrator: empty stream")}
			lastFailure = failure
			o.settle(leased.Credential.ID, credpoolOutcome(failure))
			excluded[leased.Credential.ID] = struct{}{}
			cancel()
			continue
		}

		if first.Err != nil {
			lastFailure = first.Err
			o.settle(leased.Credential.ID, credpoolOutcome(first.Err))
			excluded[leased.Credential.ID] = struct{}{}
			cancel()
			if first.Err.Kind == upstream.KindPermanentlyInvalid {
				apierr.Write(ctx, fasthttp.StatusBadRequest, "upstream rejected the request as invalid",
					apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
				return
			}
			continue
		}

		// Committed: relay this credential's stream to the client. From
		// this point logRequest is the stream writer's responsibility.
		rs.committedStream = true
		o.relayStream(ctx, rs, leased.Credential.ID, upReq.Model, ch, first, pipeline)
		cancel()
		return
	}

	writeExhausted(ctx, lastFailure)
}

// relayStream drains ch to the client as OpenAI SSE chunks, settling the
// credential exactly once when the stream terminates.
func (o *Orchestrator) relayStream(ctx *fasthttp.RequestCtx, rs *requestState, credID, modelName string, ch <-chan upstream.Event, first upstream.Event, pipeline *regexpipe.Pipeline) {
	ctx.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.SetStatusCode(fasthttp.StatusOK)

	chatID := "chatcmpl-" + rs.id

	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() { recover() }() //nolint:errcheck

		settled := false
		settle := func(outcome credpool.Outcome) {
			if settled {
				return
			}
			settled = true
			o.settle(credID, outcome)
		}

		writeDelta := func(text string) {
			if !rs.firstByte {
				rs.firstByte = true
				rs.ttft = time.Since(rs.start)
			}
			chunk := map[string]any{
				"id":      chatID,
				"object":  "chat.completion.chunk",
				"created": time.Now().Unix(),
				"model":   modelName,
				"choices": []map[string]any{{
					"index":         0,
					"delta":         map[string]string{"content": pipeline.ApplyPost(text)},
					"finish_reason": nil,
				}},
			}
			data, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", data)
			w.Flush() //nolint:errcheck
		}

		gotDelta := false
		if first.Delta != nil {
			gotDelta = true
			writeDelta(first.Delta.Content)
		}

		var finalSummary *upstream.Summary
		var finalErr *upstream.Failure
		if first.Summary != nil {
			finalSummary = first.Summary
		}

	drain:
		for finalSummary == nil && finalErr == nil {
			ev, ok := <-ch
			if !ok {
				break drain
			}
			switch {
			case ev.Delta != nil:
				gotDelta = true
				writeDelta(ev.Delta.Content)
			case ev.Summary != nil:
				finalSummary = ev.Summary
			case ev.Err != nil:
				finalErr = ev.Err
			}
		}

		fmt.Fprint(w, "data: [DONE]\n\n")
		w.Flush() //nolint:errcheck

		switch {
		case finalSummary != nil:
			rs.inputTokens, rs.outputTok, rs.tokensEst = finalSummary.TokensIn, finalSummary.TokensOut, finalSummary.TokensEstimated
			settle(credpool.Ok(finalSummary.TokensIn, finalSummary.TokensOut))
			rs.status = "ok"
		case finalErr != nil:
			// A mid-stream failure after bytes were already flushed
			// cannot be upgraded to an HTTP error; §4.7 requires the
			// stream to be truncated and the log marked status=error.
			if gotDelta {
				settle(credpool.Ok(0, 0))
			} else {
				settle(credpoolOutcome(finalErr))
			}
			rs.status = "error"
		default:
			if gotDelta {
				settle(credpool.Ok(0, 0))
				rs.status = "ok"
			} else {
				settle(credpool.Retryable(credpool.RetryableTransport))
				rs.status = "error"
			}
		}

		rs.httpStatus = fasthttp.StatusOK
		o.logRequest(rs)
	})
}

func asFailure(err error) *upstream.Failure {
	var f *upstream.Failure
	if errors.As(err, &f) {
		return f
	}
	return &upstream.Failure{Retryable: true, Kind: upstream.KindTransport, Err: err}
}

func writeExhausted(ctx *fasthttp.RequestCtx, last *upstream.Failure) {
	if last == nil {
		apierr.Write(ctx, fasthttp.StatusBadGateway, "no upstream credentials available",
			apierr.TypeUpstreamError, apierr.CodeUpstreamError)
		return
	}
	status := last.HTTPStatus
	if status < 400 {
		status = fasthttp.StatusBadGateway
	}
	if errors.Is(last.Err, context.DeadlineExceeded) {
		apierr.WriteTimeout(ctx)
		return
	}
	apierr.Write(ctx, status, last.Error(), apierr.TypeUpstreamError, apierr.CodeUpstreamError)
}

func (o *Orchestrator) logRequest(rs *requestState) {
	entry := model.LogEntry{
		ID:                  rs.id,
		TenantKeyID:         rs.tenantKeyID,
		Model:               rs.model,
		HTTPStatus:          rs.httpStatus,
		Status:              rs.status,
		TotalLatencySeconds: time.Since(rs.start).Seconds(),
		Stream:              rs.stream,
		InputTokens:         rs.inputTokens,
		OutputTokens:        rs.outputTok,
		TokensEstimated:     rs.tokensEst,
		CreatedAt:            time.Now().UTC(),
	}
	if rs.firstByte {
		entry.TTFTSeconds = rs.ttft.Seconds()
	}
	if o.recorder != nil {
		o.recorder.Append(entry)
	}
}
