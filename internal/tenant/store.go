package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound means no tenant matches the looked-up hostname.
	ErrNotFound = errors.New("tenant not found")
	// ErrAmbiguous means a hostname matched more than one tenant. The
	// resolver treats this as a configuration error and never picks one
	// of the candidates silently.
	ErrAmbiguous = errors.New("tenant lookup is ambiguous")
)

// Store looks tenants up by the three hostname kinds the resolver probes
// in order: primary domain, alias, then proxy visitor hostname.
type Store interface {
	ByPrimaryDomain(ctx context.Context, domain string) (*Tenant, error)
	ByAlias(ctx context.Context, domain string) (*Tenant, error)
	ByVisitorHostname(ctx context.Context, host string) (*Tenant, error)
}

const tenantColumns = `id, title, description, language, primary_domain,
	domain_aliases, base_path, deployment_mode, proxy_visitor_hostname,
	post_url_format, created_at, updated_at`

// PGStore is the Postgres-backed tenant store.
type PGStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPGStore creates a tenant store on top of an existing pool.
func NewPGStore(pool *pgxpool.Pool, logger *slog.Logger) *PGStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGStore{pool: pool, logger: logger}
}

// ByPrimaryDomain finds the tenant whose primary domain equals the given
// hostname.
func (s *PGStore) ByPrimaryDomain(ctx context.Context, domain string) (*Tenant, error) {
	return s.one(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE primary_domain = $1`,
		NormalizeHost(domain))
}

// ByAlias finds the tenant whose alias list contains the given hostname.
func (s *PGStore) ByAlias(ctx context.Context, domain string) (*Tenant, error) {
	return s.one(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE $1 = ANY(domain_aliases)`,
		NormalizeHost(domain))
}

// ByVisitorHostname finds the reverse-proxy tenant configured for the
// given visitor-facing hostname. Standalone tenants never match here.
func (s *PGStore) ByVisitorHostname(ctx context.Context, host string) (*Tenant, error) {
	return s.one(ctx,
		`SELECT `+tenantColumns+` FROM tenants
		 WHERE deployment_mode = $2 AND proxy_visitor_hostname = $1`,
		NormalizeHost(host), string(ModeReverseProxy))
}

// Create persists a new tenant. The tenant is normalized and validated
// first; its ID and timestamps are filled in when absent.
func (s *PGStore) Create(ctx context.Context, t *Tenant) error {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO tenants (`+tenantColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.Title, t.Description, t.Language, t.PrimaryDomain,
		t.DomainAliases, t.BasePath, string(t.DeploymentMode),
		t.ProxyVisitorHostname, string(t.PostURLFormat), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create tenant %q: %w", t.Title, err)
	}
	return nil
}

// one runs a lookup query and enforces the exactly-one contract: zero
// rows is ErrNotFound, more than one is ErrAmbiguous.
func (s *PGStore) one(ctx context.Context, query string, args ...any) (*Tenant, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tenant lookup: %w", err)
	}
	defer rows.Close()

	var found *Tenant
	for rows.Next() {
		if found != nil {
			rows.Close()
			return nil, ErrAmbiguous
		}
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("tenant scan: %w", err)
		}
		found = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tenant lookup: %w", err)
	}
	if found == nil {
		return nil, ErrNotFound
	}
	found.Normalize()
	return found, nil
}

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Language, &t.PrimaryDomain,
		&t.DomainAliases, &t.BasePath, &t.DeploymentMode, &t.ProxyVisitorHostname,
		&t.PostURLFormat, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
