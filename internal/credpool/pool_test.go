package credpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foamcold/gproxy/internal/model"
)

func newTestCreds(n int) []model.UpstreamCredential {
	creds := make([]model.UpstreamCredential, n)
	for i := range creds {
		creds[i] = model.UpstreamCredential{
			ID:      string(rune('a' + i)),
			Secret:  "secret",
			Enabled: true,
		}
	}
	return creds
}

func TestEnabledCount(t *testing.T) {
	p := New(newTestCreds(3), 50*time.Millisecond)
	if got := p.EnabledCount(); got != 3 {
		t.Errorf("got %d", got)
	}
}

func TestLease_ReturnsAnEnabledCredential(t *testing.T) {
	p := New(newTestCreds(1), 50*time.Millisecond)
	leased, err := p.Lease(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leased.Credential.ID != "a" {
		t.Errorf("got %q", leased.Credential.ID)
	}
}

func TestLease_ExhaustedWhenAllExcluded(t *testing.T) {
	p := New(newTestCreds(1), 50*time.Millisecond)
	_, err := p.Lease(context.Background(), map[string]struct{}{"a": {}})
	if err != ErrExhausted {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestSettle_FatalDisablesCredential(t *testing.T) {
	p := New(newTestCreds(1), 50*time.Millisecond)
	p.Settle("a", Fatal(FatalUnauthorized))
	if p.EnabledCount() != 0 {
		t.Errorf("expected the credential to be disabled after a fatal outcome")
	}
	_, err := p.Lease(context.Background(), nil)
	if err != ErrExhausted {
		t.Errorf("expected ErrExhausted after fatal settle, got %v", err)
	}
}

func TestSettle_RetryableAppliesCooldown(t *testing.T) {
	p := New(newTestCreds(2), 20*time.Millisecond)
	p.Settle("a", Retryable(RetryableRateLimited))

	// "a" is under a 60s cooldown now (rate-limited backoff), so with
	// only "a" eligible the lease must fall through to pickSoonest once
	// leaseWait elapses, still returning "a" since it's the only one.
	leased, err := p.Lease(context.Background(), map[string]struct{}{"b": {}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leased.Credential.ID != "a" {
		t.Errorf("got %q", leased.Credential.ID)
	}
}

func TestSettle_RetryablePrefersOtherCredentialOverCooldown(t *testing.T) {
	p := New(newTestCreds(2), 20*time.Millisecond)
	p.Settle("a", Retryable(RetryableRateLimited))

	leased, err := p.Lease(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leased.Credential.ID != "b" {
		t.Errorf("expected the non-cooldown credential to be preferred, got %q", leased.Credential.ID)
	}
}

func TestSettle_OkIncrementsUsageAndTokens(t *testing.T) {
	p := New(newTestCreds(1), 50*time.Millisecond)
	p.Settle("a", Ok(10, 20))
	snap := p.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("got %d entries", len(snap))
	}
	if snap[0].TotalUses != 1 || snap[0].TotalTokens != 30 {
		t.Errorf("got %+v", snap[0])
	}
}

func TestEnable_ReEnablesAndResetsScore(t *testing.T) {
	p := New(newTestCreds(1), 50*time.Millisecond)
	p.Settle("a", Fatal(FatalForbidden))
	if p.EnabledCount() != 0 {
		t.Fatalf("expected disabled after fatal settle")
	}
	p.Enable("a")
	if p.EnabledCount() != 1 {
		t.Errorf("expected re-enabled credential to count as enabled")
	}
	states := p.SnapshotScores()
	if len(states) != 1 || states[0].CooldownRemaining != 0 {
		t.Errorf("expected cooldown cleared after Enable, got %+v", states)
	}
}

func TestLease_ContextCancellationPropagates(t *testing.T) {
	p := New(newTestCreds(1), time.Second)
	// "a" stays enabled but under cooldown, so Lease has to wait and the
	// cancelled context is what ends the wait.
	p.Settle("a", Retryable(RetryableRateLimited))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Lease(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled while waiting out the cooldown, got %v", err)
	}
}

func TestLease_ConcurrentRequestsNeverShareALease(t *testing.T) {
	p := New(newTestCreds(1), 200*time.Millisecond)

	const workers = 20
	var wg sync.WaitGroup
	leased := make(chan struct{}, workers)
	var holders int32

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := p.Lease(context.Background(), nil)
			if err != nil {
				return
			}
			if n := atomic.AddInt32(&holders, 1); n > 1 {
				t.Errorf("credential %q leased to %d holders at once", l.Credential.ID, n)
			}
			leased <- struct{}{}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&holders, -1)
			p.Settle(l.Credential.ID, Ok(1, 1))
		}()
	}
	wg.Wait()
	close(leased)

	// With a single credential, holders counts the goroutines currently
	// holding its lease; it is decremented before Settle frees the
	// credential, so any value above 1 means two requests shared a lease.
	count := 0
	for range leased {
		count++
	}
	if count == 0 {
		t.Fatal("expected at least one successful lease")
	}
}

func TestPickReady_MarksEntryLeasedUntilSettled(t *testing.T) {
	p := New(newTestCreds(1), 50*time.Millisecond)

	first, err := p.Lease(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The only credential is now leased; a second concurrent Lease must
	// not receive it while the first is still outstanding.
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err = p.Lease(ctx, nil)
	if err == nil {
		t.Fatal("expected the second Lease to fail to acquire the in-flight credential")
	}

	p.Settle(first.Credential.ID, Ok(1, 1))

	// Now that it's settled, a fresh Lease must succeed again.
	_, err = p.Lease(context.Background(), nil)
	if err != nil {
		t.Errorf("expected Lease to succeed after Settle, got %v", err)
	}
}
