// Package credpool selects, leases, and scores upstream credentials. It
// is the only contested mutable state on the request hot path: score and
// cooldown updates are kept atomic with respect to lease choices via a
// coarse read/write lock around the choose-next scan, the model the
// teacher's circuit breaker used for per-provider health tracking,
// adapted here from a binary open/closed state to a continuous score
// with independent per-failure-kind cooldowns.
package credpool

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/foamcold/gproxy/internal/model"
)

// Retryable failure kinds.
const (
	RetryableRateLimited = "rate_limited"
	RetryableServerError = "server_error"
	RetryableTransport   = "transport"
)

// Fatal failure kinds.
const (
	FatalUnauthorized       = "unauthorized"
	FatalForbidden          = "forbidden"
	FatalPermanentlyInvalid = "permanently_invalid"
)

// Backoff defaults, §4.5.
const (
	backoffRateLimited = 60 * time.Second
	backoffServerError = 10 * time.Second
	backoffTransport   = 5 * time.Second
)

const (
	scoreCeiling    = 100.0
	scoreFloor      = 0.0
	scoreSuccessInc = 1.0
	scoreFailureDec = 10.0
)

// ErrExhausted is returned by Lease when every enabled credential has
// already been excluded for this client request.
var ErrExhausted = errors.New("credpool: exhausted")

// Outcome is the tagged variant passed to Settle. Use the Ok, Retryable,
// or Fatal constructors rather than building one directly.
type Outcome struct {
	kind      string // "ok" | "retryable" | "fatal"
	failKind  string
	tokensIn  int64
	tokensOut int64
}

func Ok(tokensIn, tokensOut int64) Outcome {
	return Outcome{kind: "ok", tokensIn: tokensIn, tokensOut: tokensOut}
}

func Retryable(kind string) Outcome {
	return Outcome{kind: "retryable", failKind: kind}
}

func Fatal(kind string) Outcome {
	return Outcome{kind: "fatal", failKind: kind}
}

type entry struct {
	mu            sync.Mutex
	cred          model.UpstreamCredential
	score         float64
	cooldownUntil time.Time
	leased        bool // true while a Lease on this credential is outstanding
}

// entrySnapshot mirrors entry's non-mutex fields, for taking a lock-free
// copy of an entry's state to compare against after releasing e.mu.
type entrySnapshot struct {
	cred          model.UpstreamCredential
	score         float64
	cooldownUntil time.Time
	leased        bool
}

func (e *entry) snapshot() entrySnapshot {
	return entrySnapshot{cred: e.cred, score: e.score, cooldownUntil: e.cooldownUntil, leased: e.leased}
}

// Pool holds the set of enabled UpstreamCredentials plus per-credential
// volatile score and cooldown state.
type Pool struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	order     []string // stable identity tiebreak
	leaseWait time.Duration
}

// New builds a Pool from the credentials the Store reports as enabled at
// startup. leaseWait bounds how long Lease will block when every
// credential is under cooldown (§4.5 default 2s).
func New(creds []model.UpstreamCredential, leaseWait time.Duration) *Pool {
	p := &Pool{
		entries:   make(map[string]*entry, len(creds)),
		leaseWait: leaseWait,
	}
	for _, c := range creds {
		p.entries[c.ID] = &entry{cred: c, score: scoreCeiling}
		p.order = append(p.order, c.ID)
	}
	sort.Strings(p.order)
	return p
}

// Leased is a credential handed out by Lease. Callers must call Settle
// exactly once per lease.
type Leased struct {
	Credential model.UpstreamCredential
}

// EnabledCount returns how many credentials are currently enabled,
// regardless of cooldown state. Used to compute max_attempts =
// min(configured attempt cap (default 3), |enabled credentials|).
func (p *Pool) EnabledCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, id := range p.order {
		e := p.entries[id]
		e.mu.Lock()
		if e.cred.Enabled {
			n++
		}
		e.mu.Unlock()
	}
	return n
}

// Lease picks one credential with cooldown-until <= now, preferring
// highest score, ties broken by least-recently-used then by stable
// identity. exclude names credentials already attempted by this client
// request; excluded credentials are never returned.
//
// If every eligible credential is under cooldown, Lease blocks up to
// leaseWait; on timeout it falls back to the credential (outside
// exclude) whose cooldown expires soonest, best effort. If every
// enabled credential is excluded, Lease returns ErrExhausted
// immediately without waiting.
func (p *Pool) Lease(ctx context.Context, exclude map[string]struct{}) (*Leased, error) {
	deadline := time.Now().Add(p.leaseWait)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if cred, ok := p.pickReady(exclude); ok {
			return &Leased{Credential: cred}, nil
		}
		if !p.anyEligible(exclude) {
			return nil, ErrExhausted
		}
		if time.Now().After(deadline) {
			if cred, ok := p.pickSoonest(exclude); ok {
				return &Leased{Credential: cred}, nil
			}
			return nil, ErrExhausted
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Pool) anyEligible(exclude map[string]struct{}) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, id := range p.order {
		if _, skip := exclude[id]; skip {
			continue
		}
		e := p.entries[id]
		e.mu.Lock()
		enabled := e.cred.Enabled
		e.mu.Unlock()
		if enabled {
			return true
		}
	}
	return false
}

// pickReady scans for the best eligible credential and, if found, marks it
// leased before returning. The whole scan-and-mark runs under p.mu's write
// lock so two concurrent callers can never both select the same entry —
// the teacher's circuit breaker reserves a half-open probe slot the same
// way via providerCB.probeInflight.
func (p *Pool) pickReady(exclude map[string]struct{}) (model.UpstreamCredential, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	var best *entrySnapshot
	var bestID string
	for _, id := range p.order {
		if _, skip := exclude[id]; skip {
			continue
		}
		e := p.entries[id]
		e.mu.Lock()
		ready := e.cred.Enabled && !e.leased && !e.cooldownUntil.After(now)
		cur := e.snapshot()
		e.mu.Unlock()
		if !ready {
			continue
		}
		if best == nil || betterCandidate(&cur, best, id, bestID) {
			c := cur
			best = &c
			bestID = id
		}
	}
	if best == nil {
		return model.UpstreamCredential{}, false
	}
	chosen := p.entries[bestID]
	chosen.mu.Lock()
	chosen.leased = true
	chosen.mu.Unlock()
	return best.cred, true
}

func betterCandidate(cand, best *entrySnapshot, candID, bestID string) bool {
	if cand.score != best.score {
		return cand.score > best.score
	}
	if !cand.cred.LastUsedAt.Equal(best.cred.LastUsedAt) {
		return cand.cred.LastUsedAt.Before(best.cred.LastUsedAt)
	}
	return candID < bestID
}

// pickSoonest is the best-effort fallback: ignore cooldown, pick the
// enabled non-excluded non-leased credential whose cooldown expires
// soonest. Marks the chosen entry leased for the same reason pickReady
// does.
func (p *Pool) pickSoonest(exclude map[string]struct{}) (model.UpstreamCredential, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var best *entrySnapshot
	var bestID string
	for _, id := range p.order {
		if _, skip := exclude[id]; skip {
			continue
		}
		e := p.entries[id]
		e.mu.Lock()
		eligible := e.cred.Enabled && !e.leased
		cur := e.snapshot()
		e.mu.Unlock()
		if !eligible {
			continue
		}
		if best == nil || cur.cooldownUntil.Before(best.cooldownUntil) {
			c := cur
			best = &c
			bestID = id
		}
	}
	if best == nil {
		return model.UpstreamCredential{}, false
	}
	chosen := p.entries[bestID]
	chosen.mu.Lock()
	chosen.leased = true
	chosen.mu.Unlock()
	return best.cred, true
}

// Settle reports the outcome of exactly one prior lease and returns the
// credential's post-settle state, for callers that persist per-credential
// stats back to the Store.
func (p *Pool) Settle(credID string, o Outcome) (model.UpstreamCredential, bool) {
	p.mu.RLock()
	e, ok := p.entries[credID]
	p.mu.RUnlock()
	if !ok {
		return model.UpstreamCredential{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.leased = false

	switch o.kind {
	case "ok":
		e.cred.TotalUses++
		e.cred.TotalTokens += o.tokensIn + o.tokensOut
		e.cred.LastStatus = model.StatusActive
		e.cred.LastUsedAt = time.Now()
		e.score += scoreSuccessInc
		if e.score > scoreCeiling {
			e.score = scoreCeiling
		}
	case "retryable":
		e.cred.TotalUses++
		e.cred.TotalErrors++
		e.cred.LastUsedAt = time.Now()
		e.cred.LastStatus = o.failKind
		e.score -= scoreFailureDec
		if e.score < scoreFloor {
			e.score = scoreFloor
		}
		e.cooldownUntil = time.Now().Add(backoff(o.failKind))
	case "fatal":
		e.cred.TotalUses++
		e.cred.TotalErrors++
		e.cred.LastUsedAt = time.Now()
		e.cred.Enabled = false
		e.cred.LastStatus = model.StatusAutoDisabled
	}

	return e.cred, true
}

// Enable re-enables a credential previously auto-disabled by a fatal
// settle outcome. Only an administrator action should call this.
func (p *Pool) Enable(credID string) {
	p.mu.RLock()
	e, ok := p.entries[credID]
	p.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cred.Enabled = true
	e.cred.LastStatus = model.StatusActive
	e.score = scoreCeiling
	e.cooldownUntil = time.Time{}
	e.leased = false
}

// Snapshot returns a copy of every credential's current state, for
// ambient observability and admin inspection.
func (p *Pool) Snapshot() []model.UpstreamCredential {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]model.UpstreamCredential, 0, len(p.order))
	for _, id := range p.order {
		e := p.entries[id]
		e.mu.Lock()
		out = append(out, e.cred)
		e.mu.Unlock()
	}
	return out
}

// CredentialState is one credential's current score and cooldown, for
// ambient observability.
type CredentialState struct {
	Credential        model.UpstreamCredential
	Score             float64
	CooldownRemaining time.Duration
}

// SnapshotScores returns every credential's current score and cooldown
// remaining (0 when ready to lease), for metrics export.
func (p *Pool) SnapshotScores() []CredentialState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	now := time.Now()
	out := make([]CredentialState, 0, len(p.order))
	for _, id := range p.order {
		e := p.entries[id]
		e.mu.Lock()
		remaining := e.cooldownUntil.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, CredentialState{
			Credential:        e.cred,
			Score:             e.score,
			CooldownRemaining: remaining,
		})
		e.mu.Unlock()
	}
	return out
}

func backoff(kind string) time.Duration {
	switch kind {
	case RetryableRateLimited:
		return backoffRateLimited
	case RetryableServerError:
		return backoffServerError + jitter(3*time.Second)
	case RetryableTransport:
		return backoffTransport + jitter(2*time.Second)
	default:
		return backoffTransport
	}
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}
