// Package store defines the abstract persistence contract the request-
// execution pipeline requires (§4.1): tenant-key authentication, preset
// and regex-rule lookup, credential inventory, credential statistics,
// and log emission. Concrete backends live in sub-packages.
package store

import (
	"context"
	"errors"

	"github.com/foamcold/gproxy/internal/model"
)

// ErrNotFound is returned by lookups that find nothing.
var ErrNotFound = errors.New("store: not found")

// Store is the synchronous persistence contract the orchestrator relies
// on. Any method may fail with a transient error that the orchestrator
// treats as a 5xx internal failure to the client, without invoking the
// credential pool's penalty path.
type Store interface {
	// Authenticate resolves a tenant-key secret to its TenantKey and
	// owning Account. Returns ErrNotFound if the key is unknown or
	// disabled.
	Authenticate(ctx context.Context, keySecret string) (model.TenantKey, model.Account, error)

	// GetPreset returns a Preset with its items and preset-scoped
	// regex rules loaded. Returns ErrNotFound if id does not exist.
	GetPreset(ctx context.Context, id string) (model.Preset, error)

	// ListAccountRegex returns the account-level regex rules for
	// accountID, ordered by sort-order.
	ListAccountRegex(ctx context.Context, accountID string) ([]model.RegexRule, error)

	// ListEnabledCredentials returns every currently enabled
	// UpstreamCredential, used to seed the credential pool at startup.
	ListEnabledCredentials(ctx context.Context) ([]model.UpstreamCredential, error)

	// UpdateCredentialStats persists the mutated counters/status of one
	// credential after a pool settle.
	UpdateCredentialStats(ctx context.Context, cred model.UpstreamCredential) error

	// AppendLog writes one completed-request log row.
	AppendLog(ctx context.Context, entry model.LogEntry) error
}
