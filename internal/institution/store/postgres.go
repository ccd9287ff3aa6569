package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"credentry/internal/institution/models"
	"credentry/pkg/domain"
	"credentry/pkg/platform/sentinel"
	txcontext "credentry/pkg/platform/tx"
)

// Postgres persists institutions in PostgreSQL. Mutating methods expect to
// run inside a ledger gate submission, joining its transaction through
// pkg/platform/tx; row locks (FOR UPDATE) keep validate-then-mutate atomic.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Postgres) q(ctx context.Context) queryer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const institutionColumns = "address, name, description, website, role, active, registered_at, updated_at"

func scanInstitution(row interface{ Scan(...any) error }) (*models.Institution, error) {
	var (
		inst    models.Institution
		address string
		role    string
	)
	if err := row.Scan(&address, &inst.Name, &inst.Description, &inst.Website, &role, &inst.Active, &inst.RegisteredAt, &inst.UpdatedAt); err != nil {
		return nil, err
	}
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return nil, fmt.Errorf("corrupt institution address %q: %w", address, err)
	}
	inst.Address = addr
	inst.Role = models.Role(role)
	return &inst, nil
}

func (s *Postgres) Create(ctx context.Context, inst *models.Institution) error {
	query := `
		INSERT INTO institutions (` + institutionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (address) DO NOTHING
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		inst.Address.String(), inst.Name, inst.Description, inst.Website,
		string(inst.Role), inst.Active, inst.RegisteredAt, inst.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert institution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert institution: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, addr domain.Address) (*models.Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM institutions WHERE address = $1`
	inst, err := scanInstitution(s.q(ctx).QueryRowContext(ctx, query, addr.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find institution: %w", err)
	}
	return inst, nil
}

func (s *Postgres) findForUpdate(ctx context.Context, q queryer, addr domain.Address) (*models.Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM institutions WHERE address = $1 FOR UPDATE`
	inst, err := scanInstitution(q.QueryRowContext(ctx, query, addr.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock institution: %w", err)
	}
	return inst, nil
}

func (s *Postgres) update(ctx context.Context, q queryer, inst *models.Institution) error {
	query := `
		UPDATE institutions
		SET name = $2, description = $3, website = $4, role = $5, active = $6, updated_at = $7
		WHERE address = $1
	`
	if _, err := q.ExecContext(ctx, query,
		inst.Address.String(), inst.Name, inst.Description, inst.Website,
		string(inst.Role), inst.Active, inst.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update institution: %w", err)
	}
	return nil
}

// Execute locks the row, validates, mutates, and writes back.
func (s *Postgres) Execute(ctx context.Context, addr domain.Address, validate func(*models.Institution) error, mutate func(*models.Institution)) (*models.Institution, error) {
	q := s.q(ctx)
	inst, err := s.findForUpdate(ctx, q, addr)
	if err != nil {
		return nil, err
	}
	if err := validate(inst); err != nil {
		return nil, err
	}
	mutate(inst)
	if err := s.update(ctx, q, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// Swap locks both rows in address order (stable lock ordering), validates,
// mutates, writes both back, and moves the super-admin pointer to next.
func (s *Postgres) Swap(ctx context.Context, current, next domain.Address, validate func(cur, nxt *models.Institution) error, mutate func(cur, nxt *models.Institution)) error {
	q := s.q(ctx)

	first, second := current, next
	if second.String() < first.String() {
		first, second = second, first
	}
	a, err := s.findForUpdate(ctx, q, first)
	if err != nil {
		return err
	}
	b, err := s.findForUpdate(ctx, q, second)
	if err != nil {
		return err
	}
	cur, nxt := a, b
	if cur.Address != current {
		cur, nxt = b, a
	}

	if err := validate(cur, nxt); err != nil {
		return err
	}
	mutate(cur, nxt)
	if err := s.update(ctx, q, cur); err != nil {
		return err
	}
	if err := s.update(ctx, q, nxt); err != nil {
		return err
	}
	return s.setSuperAdmin(ctx, q, next)
}

func (s *Postgres) SuperAdmin(ctx context.Context) (domain.Address, error) {
	var address string
	err := s.q(ctx).QueryRowContext(ctx, `SELECT super_admin FROM registry_meta WHERE id = TRUE`).Scan(&address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ZeroAddress, sentinel.ErrNotFound
		}
		return domain.ZeroAddress, fmt.Errorf("load super admin pointer: %w", err)
	}
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return domain.ZeroAddress, fmt.Errorf("corrupt super admin pointer %q: %w", address, err)
	}
	return addr, nil
}

func (s *Postgres) SetSuperAdmin(ctx context.Context, addr domain.Address) error {
	return s.setSuperAdmin(ctx, s.q(ctx), addr)
}

func (s *Postgres) setSuperAdmin(ctx context.Context, q queryer, addr domain.Address) error {
	query := `
		INSERT INTO registry_meta (id, super_admin) VALUES (TRUE, $1)
		ON CONFLICT (id) DO UPDATE SET super_admin = EXCLUDED.super_admin
	`
	if _, err := q.ExecContext(ctx, query, addr.String()); err != nil {
		return fmt.Errorf("set super admin pointer: %w", err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM institutions ORDER BY registered_at, address`
	rows, err := s.q(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	defer rows.Close()

	var out []*models.Institution
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// Stats recomputes the aggregates from the authoritative set. COUNT queries
// keep the cached-counter consistency problem out of the durable store.
func (s *Postgres) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE role = 'issuer' AND active)
		FROM institutions
	`
	if err := s.q(ctx).QueryRowContext(ctx, query).Scan(&stats.TotalInstitutions, &stats.ActiveIssuers); err != nil {
		return models.Stats{}, fmt.Errorf("count institutions: %w", err)
	}
	return stats, nil
}
