// Package service implements certificate issuance, revocation, and
// verification. Mutations share the institution registry's ledger gate, so
// issuer authorization checks and certificate writes never interleave with
// governance changes.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"credentry/internal/certificate/metrics"
	"credentry/internal/certificate/models"
	"credentry/internal/content"
	"credentry/internal/events"
	"credentry/internal/ledger"
	"credentry/pkg/domain"
	dErrors "credentry/pkg/domain-errors"
	"credentry/pkg/hasher"
	"credentry/pkg/platform/sentinel"
	"credentry/pkg/requestcontext"
)

// Store is the certificate persistence contract.
type Store interface {
	Append(ctx context.Context, cert *models.Certificate) (domain.CertificateID, error)
	Find(ctx context.Context, id domain.CertificateID) (*models.Certificate, error)
	Execute(ctx context.Context, id domain.CertificateID, validate func(*models.Certificate) error, mutate func(*models.Certificate)) (*models.Certificate, error)
	ListByHolder(ctx context.Context, holder domain.Address) ([]*models.Certificate, error)
	ListByIssuer(ctx context.Context, issuer domain.Address) ([]*models.Certificate, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// Authorizer answers the issuer-standing questions the certificate registry
// delegates to the institution registry.
type Authorizer interface {
	CanIssue(ctx context.Context, addr domain.Address) (bool, error)
	IsSuperAdmin(ctx context.Context, addr domain.Address) (bool, error)
}

// EventPublisher delivers domain events inside the gate submission.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// VerifyCache memoizes snapshots of non-revoked certificates. Implementations
// must treat their own failures as misses.
type VerifyCache interface {
	Get(ctx context.Context, id domain.CertificateID) (models.VerifySnapshot, bool)
	Put(ctx context.Context, id domain.CertificateID, snap models.VerifySnapshot) error
	Invalidate(ctx context.Context, id domain.CertificateID) error
}

// Service orchestrates the certificate registry.
type Service struct {
	store     Store
	authz     Authorizer
	gate      ledger.Gate
	publisher EventPublisher
	contents  content.Store
	cache     VerifyCache
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithContentStore enables document submission alongside issuance.
func WithContentStore(store content.Store) Option {
	return func(s *Service) {
		s.contents = store
	}
}

// WithVerifyCache enables the verification cache.
func WithVerifyCache(cache VerifyCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// New constructs the service. The gate must be the same instance the
// institution service mutates through.
func New(store Store, authz Authorizer, gate ledger.Gate, publisher EventPublisher, opts ...Option) *Service {
	s := &Service{
		store:     store,
		authz:     authz,
		gate:      gate,
		publisher: publisher,
		logger:    slog.Default(),
		tracer:    otel.Tracer("credentry/certificate"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueParams carries the boundary-validated issuance input. Either
// DocumentHash or Content must be provided; when both are present the hash
// must match the content. ContentRef is an opaque pointer into an external
// content store; storing Content derives it instead.
type IssueParams struct {
	Holder       domain.Address
	DocumentHash domain.Hash256
	Content      []byte
	ContentRef   string
	Type         string
}

// Issue records a new certificate for the holder. The caller must be an
// active issuer at the moment the mutation applies.
func (s *Service) Issue(ctx context.Context, caller domain.Address, params IssueParams) (*models.Certificate, ledger.Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.issue")
	defer span.End()

	hash := params.DocumentHash
	contentRef := params.ContentRef
	if len(params.Content) > 0 {
		computed := hasher.Sum(params.Content)
		if hash != (domain.Hash256{}) && hash != computed {
			return nil, ledger.Confirmation{}, dErrors.New(dErrors.CodeValidation, "document hash does not match submitted content")
		}
		hash = computed
		if s.contents != nil {
			ref, err := s.contents.Put(ctx, params.Content)
			if err != nil {
				return nil, ledger.Confirmation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store document content")
			}
			contentRef = ref
		}
	}
	if hash == (domain.Hash256{}) {
		return nil, ledger.Confirmation{}, dErrors.New(dErrors.CodeValidation, "document hash or content must be provided")
	}

	var cert *models.Certificate
	conf, err := s.gate.Submit(ctx, "certificate.issue", func(ctx context.Context) error {
		can, err := s.authz.CanIssue(ctx, caller)
		if err != nil {
			return err
		}
		if !can {
			return dErrors.New(dErrors.CodeUnauthorized, "caller is not an active issuer")
		}

		created, err := models.NewCertificate(caller, params.Holder, hash, contentRef, params.Type, requestcontext.Now(ctx))
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, err.Error())
		}
		if _, err := s.store.Append(ctx, created); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record certificate")
		}
		cert = created
		return s.publisher.Emit(ctx, events.NewCertificateIssued(created.ID, created.Issuer, created.Holder, created.DocumentHash, created.ContentRef, created.IssuedAt))
	})
	if err != nil {
		return nil, ledger.Confirmation{}, err
	}

	s.logger.InfoContext(ctx, "certificate issued",
		"certificate_id", uint64(cert.ID),
		"issuer", cert.Issuer,
		"holder", cert.Holder,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.CertificatesIssued.Inc()
	}
	return cert, conf, nil
}

// Revoke permanently invalidates a certificate. Permitted for the original
// issuer regardless of its current standing, and for the current super admin.
func (s *Service) Revoke(ctx context.Context, caller domain.Address, id domain.CertificateID) (ledger.Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.revoke")
	defer span.End()

	conf, err := s.gate.Submit(ctx, "certificate.revoke", func(ctx context.Context) error {
		isSuperAdmin, err := s.authz.IsSuperAdmin(ctx, caller)
		if err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		cert, err := s.store.Execute(ctx, id,
			func(c *models.Certificate) error {
				return c.CanRevoke(caller, isSuperAdmin)
			},
			func(c *models.Certificate) {
				c.ApplyRevocation(now)
			},
		)
		if err != nil {
			return wrapCertificateErr(err)
		}
		return s.publisher.Emit(ctx, events.NewCertificateRevoked(cert.ID, cert.Issuer, caller, now))
	})
	if err != nil {
		return ledger.Confirmation{}, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate verify cache",
				"certificate_id", uint64(id),
				"error", err.Error(),
			)
		}
	}
	s.logger.InfoContext(ctx, "certificate revoked",
		"certificate_id", uint64(id),
		"by", caller,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.CertificatesRevoked.Inc()
	}
	return conf, nil
}

// Verify checks a presented document hash against the certificate record.
// Anyone may verify; the result depends only on the record, never on the
// caller or the issuer's current standing.
func (s *Service) Verify(ctx context.Context, id domain.CertificateID, hash domain.Hash256) (models.Verification, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.verify")
	defer span.End()

	if s.cache != nil {
		if snap, ok := s.cache.Get(ctx, id); ok {
			if s.metrics != nil {
				s.metrics.VerifyCacheHits.Inc()
			}
			v := snap.Verify(id, hash)
			s.observeVerification(v)
			return v, nil
		}
		if s.metrics != nil {
			s.metrics.VerifyCacheMisses.Inc()
		}
	}

	cert, err := s.store.Find(ctx, id)
	if err != nil {
		return models.Verification{}, wrapCertificateErr(err)
	}

	if s.cache != nil && !cert.Revoked {
		if err := s.cache.Put(ctx, id, cert.Snapshot()); err != nil {
			s.logger.WarnContext(ctx, "failed to populate verify cache",
				"certificate_id", uint64(id),
				"error", err.Error(),
			)
		}
	}
	v := cert.Verify(hash)
	s.observeVerification(v)
	return v, nil
}

// Get returns a certificate by ID.
func (s *Service) Get(ctx context.Context, id domain.CertificateID) (*models.Certificate, error) {
	cert, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, wrapCertificateErr(err)
	}
	return cert, nil
}

// ListByHolder returns the holder's certificates in issuance order.
func (s *Service) ListByHolder(ctx context.Context, holder domain.Address) ([]*models.Certificate, error) {
	list, err := s.store.ListByHolder(ctx, holder)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}
	return list, nil
}

// ListByIssuer returns the issuer's certificates in issuance order.
func (s *Service) ListByIssuer(ctx context.Context, issuer domain.Address) ([]*models.Certificate, error) {
	list, err := s.store.ListByIssuer(ctx, issuer)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}
	return list, nil
}

// Stats returns the registry aggregates.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate stats")
	}
	return stats, nil
}

func (s *Service) observeVerification(v models.Verification) {
	if s.metrics != nil {
		s.metrics.ObserveVerification(v.Valid)
	}
}

// wrapCertificateErr translates store sentinels into domain errors.
func wrapCertificateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "certificate store failure")
}
