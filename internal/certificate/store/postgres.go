package store

import (
	"context"
	"database/sql"
	"fmt"

	"credentry/internal/certificate/models"
	"credentry/pkg/domain"
	"credentry/pkg/platform/sentinel"
	txcontext "credentry/pkg/platform/tx"
)

// Postgres persists certificates in PostgreSQL. Mutating methods expect to
// run inside a ledger gate submission, joining its transaction through
// pkg/platform/tx. IDs are assigned inside the transaction, so the serialized
// gate keeps them sequential and gap-free.
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

const certificateColumns = "id, issuer, holder, document_hash, content_ref, certificate_type, issued_at, revoked, revoked_at"

func scanCertificate(row interface{ Scan(...any) error }) (*models.Certificate, error) {
	var (
		cert   models.Certificate
		id     int64
		issuer string
		holder string
		hash   string
	)
	if err := row.Scan(&id, &issuer, &holder, &hash, &cert.ContentRef, &cert.Type, &cert.IssuedAt, &cert.Revoked, &cert.RevokedAt); err != nil {
		return nil, err
	}
	cert.ID = domain.CertificateID(id)
	var err error
	if cert.Issuer, err = domain.ParseAddress(issuer); err != nil {
		return nil, fmt.Errorf("corrupt certificate issuer %q: %w", issuer, err)
	}
	if cert.Holder, err = domain.ParseAddress(holder); err != nil {
		return nil, fmt.Errorf("corrupt certificate holder %q: %w", holder, err)
	}
	if cert.DocumentHash, err = domain.ParseHash256(hash); err != nil {
		return nil, fmt.Errorf("corrupt certificate hash %q: %w", hash, err)
	}
	return &cert, nil
}

// Append assigns the next sequential ID and inserts the certificate.
func (s *Postgres) Append(ctx context.Context, cert *models.Certificate) (domain.CertificateID, error) {
	query := `
		INSERT INTO certificates (` + certificateColumns + `)
		SELECT COALESCE(MAX(id) + 1, 0), $1, $2, $3, $4, $5, $6, $7, $8 FROM certificates
		RETURNING id
	`
	var id int64
	err := s.q(ctx).QueryRowContext(ctx, query,
		cert.Issuer.String(), cert.Holder.String(), cert.DocumentHash.String(),
		cert.ContentRef, cert.Type, cert.IssuedAt, cert.Revoked, cert.RevokedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert certificate: %w", err)
	}
	cert.ID = domain.CertificateID(id)
	return cert.ID, nil
}

// Find returns the certificate, or sentinel.ErrNotFound.
func (s *Postgres) Find(ctx context.Context, id domain.CertificateID) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE id = $1`
	cert, err := scanCertificate(s.q(ctx).QueryRowContext(ctx, query, int64(id)))
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return cert, nil
}

func (s *Postgres) findForUpdate(ctx context.Context, id domain.CertificateID) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE id = $1 FOR UPDATE`
	cert, err := scanCertificate(s.q(ctx).QueryRowContext(ctx, query, int64(id)))
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock certificate: %w", err)
	}
	return cert, nil
}

// Execute locks the certificate row, validates, mutates, and writes the
// mutable fields back.
func (s *Postgres) Execute(ctx context.Context, id domain.CertificateID, validate func(*models.Certificate) error, mutate func(*models.Certificate)) (*models.Certificate, error) {
	cert, err := s.findForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validate(cert); err != nil {
		return nil, err
	}
	mutate(cert)

	query := `UPDATE certificates SET revoked = $2, revoked_at = $3 WHERE id = $1`
	if _, err := s.q(ctx).ExecContext(ctx, query, int64(cert.ID), cert.Revoked, cert.RevokedAt); err != nil {
		return nil, fmt.Errorf("update certificate: %w", err)
	}
	return cert, nil
}

// ListByHolder returns the holder's certificates in issuance order.
func (s *Postgres) ListByHolder(ctx context.Context, holder domain.Address) ([]*models.Certificate, error) {
	return s.list(ctx, "holder", holder)
}

// ListByIssuer returns the issuer's certificates in issuance order.
func (s *Postgres) ListByIssuer(ctx context.Context, issuer domain.Address) ([]*models.Certificate, error) {
	return s.list(ctx, "issuer", issuer)
}

func (s *Postgres) list(ctx context.Context, column string, addr domain.Address) ([]*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE ` + column + ` = $1 ORDER BY id`
	rows, err := s.q(ctx).QueryContext(ctx, query, addr.String())
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var out []*models.Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("list certificates: %w", err)
		}
		out = append(out, cert)
	}
	return out, rows.Err()
}

// Stats recounts the registry aggregates.
func (s *Postgres) Stats(ctx context.Context) (models.Stats, error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE revoked) FROM certificates`
	var stats models.Stats
	if err := s.q(ctx).QueryRowContext(ctx, query).Scan(&stats.TotalIssued, &stats.TotalRevoked); err != nil {
		return models.Stats{}, fmt.Errorf("count certificates: %w", err)
	}
	return stats, nil
}
