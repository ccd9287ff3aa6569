// Package service implements the institution governance operations. Every
// mutation is submitted through the ledger gate, so precondition checks,
// state changes, counter updates, and event emission apply atomically or not
// at all.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"credentry/internal/events"
	"credentry/internal/institution/metrics"
	"credentry/internal/institution/models"
	"credentry/internal/ledger"
	"credentry/pkg/domain"
	dErrors "credentry/pkg/domain-errors"
	"credentry/pkg/platform/sentinel"
	"credentry/pkg/requestcontext"
)

// Store is the institution persistence contract. Mutating methods are called
// inside a gate submission; Execute and Swap hold the row/store lock across
// both validation and mutation.
type Store interface {
	Create(ctx context.Context, inst *models.Institution) error
	Find(ctx context.Context, addr domain.Address) (*models.Institution, error)
	Execute(ctx context.Context, addr domain.Address, validate func(*models.Institution) error, mutate func(*models.Institution)) (*models.Institution, error)
	Swap(ctx context.Context, current, next domain.Address, validate func(cur, nxt *models.Institution) error, mutate func(cur, nxt *models.Institution)) error
	SuperAdmin(ctx context.Context) (domain.Address, error)
	List(ctx context.Context) ([]*models.Institution, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// EventPublisher delivers domain events. Emission happens inside the gate
// submission: a failed emit aborts the mutation.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service orchestrates institution governance.
type Service struct {
	store     Store
	gate      ledger.Gate
	publisher EventPublisher
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

// New constructs the service. publisher must not be nil; pass a publisher
// over a discarding sink when events are not consumed.
func New(store Store, gate ledger.Gate, publisher EventPublisher, opts ...Option) *Service {
	s := &Service{
		store:     store,
		gate:      gate,
		publisher: publisher,
		logger:    slog.Default(),
		tracer:    otel.Tracer("credentry/institution"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterParams carries the boundary-validated registration input.
type RegisterParams struct {
	Address     domain.Address
	Name        string
	Description string
	Website     string
	Role        models.Role
}

// Register creates a new institution. Caller must be the current super admin.
// Registering with the super_admin role is forbidden: the admin bit moves
// exclusively through TransferSuperAdmin, which keeps it single-holder.
func (s *Service) Register(ctx context.Context, caller domain.Address, params RegisterParams) (*models.Institution, ledger.Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "institution.register")
	defer span.End()
	start := time.Now()

	if params.Role == models.RoleSuperAdmin {
		return nil, ledger.Confirmation{}, dErrors.New(dErrors.CodeForbidden, "cannot register a super admin, use transfer")
	}

	params.Name = strings.TrimSpace(params.Name)
	var inst *models.Institution
	conf, err := s.gate.Submit(ctx, "institution.register", func(ctx context.Context) error {
		if err := s.requireSuperAdmin(ctx, caller); err != nil {
			return err
		}

		created, err := models.NewInstitution(params.Address, params.Name, params.Description, params.Website, params.Role, requestcontext.Now(ctx))
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeValidation, err.Error())
			}
			return err
		}

		if err := s.store.Create(ctx, created); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "institution already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register institution")
		}
		inst = created
		return s.publisher.Emit(ctx, events.NewInstitutionRegistered(created.Address, created.Name, string(created.Role), caller))
	})
	if err != nil {
		return nil, ledger.Confirmation{}, err
	}

	s.logger.InfoContext(ctx, "institution registered",
		"institution", inst.Address,
		"role", inst.Role,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.InstitutionsRegistered.Inc()
		s.metrics.ObserveRegister(start)
	}
	s.refreshIssuerGauge(ctx)
	return inst, conf, nil
}

// Revoke deactivates an active issuer. Super admin accounts cannot be revoked
// through this path.
func (s *Service) Revoke(ctx context.Context, caller, target domain.Address, reason string) (ledger.Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "institution.revoke")
	defer span.End()

	conf, err := s.gate.Submit(ctx, "institution.revoke", func(ctx context.Context) error {
		if err := s.requireSuperAdmin(ctx, caller); err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		_, err := s.store.Execute(ctx, target,
			func(inst *models.Institution) error {
				if inst.Role != models.RoleIssuer {
					return dErrors.New(dErrors.CodeForbidden, "only issuers can be revoked")
				}
				if !inst.Active {
					return dErrors.New(dErrors.CodeConflict, "institution is already inactive")
				}
				return nil
			},
			func(inst *models.Institution) {
				inst.ApplyDeactivation(now)
			},
		)
		if err != nil {
			return wrapInstitutionErr(err)
		}

		if err := s.publisher.Emit(ctx, events.NewInstitutionStatusChanged(target, false, caller)); err != nil {
			return err
		}
		return s.publisher.Emit(ctx, events.NewInstitutionRevoked(target, reason, caller))
	})
	if err != nil {
		return ledger.Confirmation{}, err
	}

	s.logger.InfoContext(ctx, "issuer revoked",
		"institution", target,
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IssuersRevoked.Inc()
	}
	s.refreshIssuerGauge(ctx)
	return conf, nil
}

// Reactivate re-enables a previously revoked issuer.
func (s *Service) Reactivate(ctx context.Context, caller, target domain.Address) (ledger.Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "institution.reactivate")
	defer span.End()

	conf, err := s.gate.Submit(ctx, "institution.reactivate", func(ctx context.Context) error {
		if err := s.requireSuperAdmin(ctx, caller); err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		_, err := s.store.Execute(ctx, target,
			func(inst *models.Institution) error {
				if inst.Role != models.RoleIssuer {
					return dErrors.New(dErrors.CodeForbidden, "only issuers can be reactivated")
				}
				if inst.Active {
					return dErrors.New(dErrors.CodeConflict, "institution is already active")
				}
				return nil
			},
			func(inst *models.Institution) {
				inst.ApplyReactivation(now)
			},
		)
		if err != nil {
			return wrapInstitutionErr(err)
		}
		return s.publisher.Emit(ctx, events.NewInstitutionStatusChanged(target, true, caller))
	})
	if err != nil {
		return ledger.Confirmation{}, err
	}

	s.refreshIssuerGauge(ctx)
	return conf, nil
}

// SetActive is the generalized status toggle. The requested state must differ
// from the current one.
func (s *Service) SetActive(ctx context.Context, caller, target domain.Address, active bool) (ledger.Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "institution.set_active")
	defer span.End()

	conf, err := s.gate.Submit(ctx, "institution.set_active", func(ctx context.Context) error {
		if err := s.requireSuperAdmin(ctx, caller); err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		_, err := s.store.Execute(ctx, target,
			func(inst *models.Institution) error {
				if inst.Active == active {
					return dErrors.New(dErrors.CodeConflict, "institution already in requested status")
				}
				if !active {
					if err := inst.CanDeactivate(); err != nil {
						return translateGuardErr(err)
					}
				}
				return nil
			},
			func(inst *models.Institution) {
				if active {
					inst.ApplyReactivation(now)
				} else {
					inst.ApplyDeactivation(now)
				}
			},
		)
		if err != nil {
			return wrapInstitutionErr(err)
		}
		return s.publisher.Emit(ctx, events.NewInstitutionStatusChanged(target, active, caller))
	})
	if err != nil {
		return ledger.Confirmation{}, err
	}

	s.refreshIssuerGauge(ctx)
	return conf, nil
}

// UpdateRole changes a registered institution's role. The super-admin role
// moves only through TransferSuperAdmin, so granting or removing it here is
// rejected: that is the single path that can keep the one-admin invariant.
// With the current two-variant role set the only accepted transition is
// issuer to issuer; the operation stays on the API for contract parity and
// for roles added later.
func (s *Service) UpdateRole(ctx context.Context, caller, target domain.Address, newRole models.Role) (ledger.Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "institution.update_role")
	defer span.End()

	conf, err := s.gate.Submit(ctx, "institution.update_role", func(ctx context.Context) error {
		if err := s.requireSuperAdmin(ctx, caller); err != nil {
			return err
		}
		if newRole == models.RoleSuperAdmin {
			return dErrors.New(dErrors.CodeForbidden, "super admin role is granted only through transfer")
		}

		now := requestcontext.Now(ctx)
		var previous models.Role
		inst, err := s.store.Execute(ctx, target,
			func(inst *models.Institution) error {
				if inst.Role == models.RoleSuperAdmin {
					return dErrors.New(dErrors.CodeForbidden, "super admin role is removed only through transfer")
				}
				previous = inst.Role
				return nil
			},
			func(inst *models.Institution) {
				inst.ApplyRole(newRole, now)
			},
		)
		if err != nil {
			return wrapInstitutionErr(err)
		}
		return s.publisher.Emit(ctx, events.NewInstitutionUpdated(target, inst.Name, string(previous), string(newRole), caller))
	})
	if err != nil {
		return ledger.Confirmation{}, err
	}

	s.refreshIssuerGauge(ctx)
	return conf, nil
}

// TransferSuperAdmin hands governance to another registered institution. The
// outgoing admin becomes an active issuer; the incoming one is activated if
// it was revoked, because the super admin is always active.
func (s *Service) TransferSuperAdmin(ctx context.Context, caller, next domain.Address) (ledger.Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "institution.transfer_super_admin")
	defer span.End()

	conf, err := s.gate.Submit(ctx, "institution.transfer_super_admin", func(ctx context.Context) error {
		if err := s.requireSuperAdmin(ctx, caller); err != nil {
			return err
		}
		if caller == next {
			return dErrors.New(dErrors.CodeConflict, "institution is already the super admin")
		}

		now := requestcontext.Now(ctx)
		var curName, nxtName string
		err := s.store.Swap(ctx, caller, next,
			func(cur, nxt *models.Institution) error {
				if nxt.Role == models.RoleSuperAdmin {
					return dErrors.New(dErrors.CodeConflict, "institution is already the super admin")
				}
				curName, nxtName = cur.Name, nxt.Name
				return nil
			},
			func(cur, nxt *models.Institution) {
				cur.ApplyRole(models.RoleIssuer, now)
				nxt.ApplyRole(models.RoleSuperAdmin, now)
				if !nxt.Active {
					nxt.ApplyReactivation(now)
				}
			},
		)
		if err != nil {
			return wrapInstitutionErr(err)
		}

		if err := s.publisher.Emit(ctx, events.NewInstitutionUpdated(caller, curName, string(models.RoleSuperAdmin), string(models.RoleIssuer), caller)); err != nil {
			return err
		}
		if err := s.publisher.Emit(ctx, events.NewInstitutionUpdated(next, nxtName, string(models.RoleIssuer), string(models.RoleSuperAdmin), caller)); err != nil {
			return err
		}
		return s.publisher.Emit(ctx, events.NewSuperAdminTransferred(caller, next))
	})
	if err != nil {
		return ledger.Confirmation{}, err
	}

	s.logger.InfoContext(ctx, "super admin transferred",
		"previous", caller,
		"new", next,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.AdminTransfers.Inc()
	}
	s.refreshIssuerGauge(ctx)
	return conf, nil
}

// Get returns an institution by address.
func (s *Service) Get(ctx context.Context, addr domain.Address) (*models.Institution, error) {
	inst, err := s.store.Find(ctx, addr)
	if err != nil {
		return nil, wrapInstitutionErr(err)
	}
	return inst, nil
}

// List returns all registered institutions.
func (s *Service) List(ctx context.Context) ([]*models.Institution, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list institutions")
	}
	return list, nil
}

// Stats returns the derived registry aggregates.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institution stats")
	}
	return stats, nil
}

// CanIssue reports whether addr is a registered, active issuer. True exactly
// when an issue call from addr would pass authorization.
func (s *Service) CanIssue(ctx context.Context, addr domain.Address) (bool, error) {
	inst, err := s.store.Find(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institution")
	}
	return inst.CanIssue(), nil
}

// IsSuperAdmin reports whether addr is the current super admin.
func (s *Service) IsSuperAdmin(ctx context.Context, addr domain.Address) (bool, error) {
	pointer, err := s.store.SuperAdmin(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load super admin pointer")
	}
	return pointer == addr, nil
}

// IsRevoked reports whether addr is registered and currently inactive.
func (s *Service) IsRevoked(ctx context.Context, addr domain.Address) (bool, error) {
	inst, err := s.store.Find(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institution")
	}
	return inst.IsRevoked(), nil
}

// requireSuperAdmin authorizes governance mutations. Re-evaluated inside
// every submission, never cached across one.
func (s *Service) requireSuperAdmin(ctx context.Context, caller domain.Address) error {
	pointer, err := s.store.SuperAdmin(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeInternal, "registry has no super admin")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load super admin pointer")
	}
	if caller != pointer {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the super admin")
	}
	return nil
}

func (s *Service) refreshIssuerGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if stats, err := s.store.Stats(ctx); err == nil {
		s.metrics.ActiveIssuers.Set(float64(stats.ActiveIssuers))
	}
}

// translateGuardErr converts model invariant guards into the error kinds the
// operation contract names.
func translateGuardErr(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeConflict, err.Error())
	}
	return err
}

// wrapInstitutionErr translates store sentinels into domain errors.
func wrapInstitutionErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "institution not registered")
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return dErrors.New(dErrors.CodeConflict, err.Error())
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "institution store failure")
}
