// Package postgres is the concrete relational Store backend: tables for
// accounts, tenant_keys, upstream_credentials, presets, preset_items,
// regex_rules, and logs (§6's "Persisted state layout"), queried
// directly with pgx — no ORM, in keeping with the pack's preference for
// direct SQL (HanTheDev-multi-tenant-api-gateway, zacharykka-prompt-
// manager) over a heavyweight object-relational layer.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foamcold/gproxy/internal/model"
	"github.com/foamcold/gproxy/internal/store"
)

// Store implements store.Store against a Postgres database reached
// through a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and returns a ready Store. Callers should call
// Close on shutdown.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Authenticate(ctx context.Context, keySecret string) (model.TenantKey, model.Account, error) {
	var k model.TenantKey
	var a model.Account
	row := s.pool.QueryRow(ctx, `
		SELECT tk.id, tk.secret, tk.name, tk.enabled, tk.account_id, tk.preset_id, tk.apply_regex,
		       ac.id, ac.name
		FROM tenant_keys tk
		JOIN accounts ac ON ac.id = tk.account_id
		WHERE tk.secret = $1 AND tk.enabled = true
	`, keySecret)

	if err := row.Scan(&k.ID, &k.Secret, &k.Name, &k.Enabled, &k.AccountID, &k.PresetID, &k.ApplyRegex,
		&a.ID, &a.Name); err != nil {
		if err == pgx.ErrNoRows {
			return model.TenantKey{}, model.Account{}, store.ErrNotFound
		}
		return model.TenantKey{}, model.Account{}, fmt.Errorf("postgres: authenticate: %w", err)
	}
	return k, a, nil
}

func (s *Store) GetPreset(ctx context.Context, id string) (model.Preset, error) {
	var p model.Preset
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, account_id, enabled, sort_order FROM presets WHERE id = $1
	`, id)
	if err := row.Scan(&p.ID, &p.Name, &p.AccountID, &p.Enabled, &p.SortOrder); err != nil {
		if err == pgx.ErrNoRows {
			return model.Preset{}, store.ErrNotFound
		}
		return model.Preset{}, fmt.Errorf("postgres: get preset: %w", err)
	}

	itemRows, err := s.pool.Query(ctx, `
		SELECT id, preset_id, role, type, content, enabled, sort_order
		FROM preset_items WHERE preset_id = $1 ORDER BY sort_order
	`, id)
	if err != nil {
		return model.Preset{}, fmt.Errorf("postgres: list preset items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it model.PresetItem
		if err := itemRows.Scan(&it.ID, &it.PresetID, &it.Role, &it.Type, &it.Content, &it.Enabled, &it.SortOrder); err != nil {
			return model.Preset{}, fmt.Errorf("postgres: scan preset item: %w", err)
		}
		p.Items = append(p.Items, it)
	}

	ruleRows, err := s.pool.Query(ctx, `
		SELECT id, name, pattern, replacement, phase, scope, account_id, preset_id, enabled, sort_order
		FROM regex_rules WHERE scope = 'preset' AND preset_id = $1 ORDER BY sort_order
	`, id)
	if err != nil {
		return model.Preset{}, fmt.Errorf("postgres: list preset regex: %w", err)
	}
	defer ruleRows.Close()
	for ruleRows.Next() {
		var r model.RegexRule
		if err := ruleRows.Scan(&r.ID, &r.Name, &r.Pattern, &r.Replacement, &r.Phase, &r.Scope,
			&r.AccountID, &r.PresetID, &r.Enabled, &r.SortOrder); err != nil {
			return model.Preset{}, fmt.Errorf("postgres: scan preset regex: %w", err)
		}
		p.RegexRules = append(p.RegexRules, r)
	}

	return p, nil
}

func (s *Store) ListAccountRegex(ctx context.Context, accountID string) ([]model.RegexRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, pattern, replacement, phase, scope, account_id, preset_id, enabled, sort_order
		FROM regex_rules WHERE scope = 'account' AND account_id = $1 ORDER BY sort_order
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list account regex: %w", err)
	}
	defer rows.Close()

	var out []model.RegexRule
	for rows.Next() {
		var r model.RegexRule
		if err := rows.Scan(&r.ID, &r.Name, &r.Pattern, &r.Replacement, &r.Phase, &r.Scope,
			&r.AccountID, &r.PresetID, &r.Enabled, &r.SortOrder); err != nil {
			return nil, fmt.Errorf("postgres: scan account regex: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) ListEnabledCredentials(ctx context.Context) ([]model.UpstreamCredential, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, secret, enabled, total_uses, total_errors, total_tokens, last_status, last_used_at
		FROM upstream_credentials WHERE enabled = true
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list credentials: %w", err)
	}
	defer rows.Close()

	var out []model.UpstreamCredential
	for rows.Next() {
		var c model.UpstreamCredential
		if err := rows.Scan(&c.ID, &c.Secret, &c.Enabled, &c.TotalUses, &c.TotalErrors,
			&c.TotalTokens, &c.LastStatus, &c.LastUsedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan credential: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) UpdateCredentialStats(ctx context.Context, cred model.UpstreamCredential) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE upstream_credentials
		SET enabled = $2, total_uses = $3, total_errors = $4, total_tokens = $5,
		    last_status = $6, last_used_at = $7
		WHERE id = $1
	`, cred.ID, cred.Enabled, cred.TotalUses, cred.TotalErrors, cred.TotalTokens,
		cred.LastStatus, cred.LastUsedAt)
	if err != nil {
		return fmt.Errorf("postgres: update credential stats: %w", err)
	}
	return nil
}

func (s *Store) AppendLog(ctx context.Context, e model.LogEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO logs (id, tenant_key_id, model, http_status, status, total_latency_seconds,
		                   ttft_seconds, stream, input_tokens, output_tokens, tokens_estimated, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, e.ID, e.TenantKeyID, e.Model, e.HTTPStatus, e.Status, e.TotalLatencySeconds,
		e.TTFTSeconds, e.Stream, e.InputTokens, e.OutputTokens, e.TokensEstimated, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: append log: %w", err)
	}
	return nil
}
