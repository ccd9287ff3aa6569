package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"credentry/internal/certificate/models"
	"credentry/internal/certificate/service/mocks"
	"credentry/internal/ledger"
	"credentry/pkg/domain"
	dErrors "credentry/pkg/domain-errors"
	"credentry/pkg/hasher"
	"credentry/pkg/platform/sentinel"
)

// VerifyCacheSuite pins the cache interaction contract: a hit never touches
// the store, a miss populates the cache only for non-revoked certificates,
// and revocation invalidates the entry.
type VerifyCacheSuite struct {
	suite.Suite
	ctx       context.Context
	ctrl      *gomock.Controller
	store     *mocks.MockStore
	authz     *mocks.MockAuthorizer
	publisher *mocks.MockEventPublisher
	cache     *mocks.MockVerifyCache
	svc       *Service
	issuer    domain.Address
}

func (s *VerifyCacheSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.authz = mocks.NewMockAuthorizer(s.ctrl)
	s.publisher = mocks.NewMockEventPublisher(s.ctrl)
	s.cache = mocks.NewMockVerifyCache(s.ctrl)
	s.issuer = domain.Address{0x01}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = New(s.store, s.authz, ledger.NewMemoryGate(), s.publisher,
		WithLogger(logger),
		WithVerifyCache(s.cache),
	)
}

func (s *VerifyCacheSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestVerifyCacheSuite(t *testing.T) {
	suite.Run(t, new(VerifyCacheSuite))
}

func (s *VerifyCacheSuite) certificate(id domain.CertificateID, doc string) *models.Certificate {
	return &models.Certificate{
		ID:           id,
		Issuer:       s.issuer,
		Holder:       domain.Address{0x02},
		DocumentHash: hasher.Sum([]byte(doc)),
		IssuedAt:     time.Now(),
	}
}

func (s *VerifyCacheSuite) TestCacheHitSkipsStore() {
	cert := s.certificate(7, "diploma")
	s.cache.EXPECT().Get(gomock.Any(), domain.CertificateID(7)).Return(cert.Snapshot(), true)

	v, err := s.svc.Verify(s.ctx, 7, cert.DocumentHash)
	s.Require().NoError(err)
	s.True(v.Valid)
	s.Equal(s.issuer, v.Issuer)
}

func (s *VerifyCacheSuite) TestCacheMissPopulatesCache() {
	cert := s.certificate(7, "diploma")
	s.cache.EXPECT().Get(gomock.Any(), domain.CertificateID(7)).Return(models.VerifySnapshot{}, false)
	s.store.EXPECT().Find(gomock.Any(), domain.CertificateID(7)).Return(cert, nil)
	s.cache.EXPECT().Put(gomock.Any(), domain.CertificateID(7), cert.Snapshot()).Return(nil)

	v, err := s.svc.Verify(s.ctx, 7, cert.DocumentHash)
	s.Require().NoError(err)
	s.True(v.Valid)
}

func (s *VerifyCacheSuite) TestRevokedCertificateIsNeverCached() {
	cert := s.certificate(7, "diploma")
	cert.ApplyRevocation(time.Now())

	s.cache.EXPECT().Get(gomock.Any(), domain.CertificateID(7)).Return(models.VerifySnapshot{}, false)
	s.store.EXPECT().Find(gomock.Any(), domain.CertificateID(7)).Return(cert, nil)

	v, err := s.svc.Verify(s.ctx, 7, cert.DocumentHash)
	s.Require().NoError(err)
	s.False(v.Valid)
	s.True(v.Revoked)
}

func (s *VerifyCacheSuite) TestCachePutFailureIsNonFatal() {
	cert := s.certificate(7, "diploma")
	s.cache.EXPECT().Get(gomock.Any(), domain.CertificateID(7)).Return(models.VerifySnapshot{}, false)
	s.store.EXPECT().Find(gomock.Any(), domain.CertificateID(7)).Return(cert, nil)
	s.cache.EXPECT().Put(gomock.Any(), domain.CertificateID(7), cert.Snapshot()).Return(errors.New("redis down"))

	v, err := s.svc.Verify(s.ctx, 7, cert.DocumentHash)
	s.Require().NoError(err)
	s.True(v.Valid)
}

func (s *VerifyCacheSuite) TestUnknownIDBypassesCachePopulation() {
	s.cache.EXPECT().Get(gomock.Any(), domain.CertificateID(404)).Return(models.VerifySnapshot{}, false)
	s.store.EXPECT().Find(gomock.Any(), domain.CertificateID(404)).Return(nil, sentinel.ErrNotFound)

	_, err := s.svc.Verify(s.ctx, 404, hasher.Sum([]byte("anything")))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *VerifyCacheSuite) TestRevokeInvalidatesCache() {
	cert := s.certificate(7, "diploma")
	s.authz.EXPECT().IsSuperAdmin(gomock.Any(), s.issuer).Return(false, nil)
	s.store.EXPECT().Execute(gomock.Any(), domain.CertificateID(7), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.CertificateID, validate func(*models.Certificate) error, mutate func(*models.Certificate)) (*models.Certificate, error) {
			if err := validate(cert); err != nil {
				return nil, err
			}
			mutate(cert)
			return cert, nil
		})
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	s.cache.EXPECT().Invalidate(gomock.Any(), domain.CertificateID(7)).Return(nil)

	_, err := s.svc.Revoke(s.ctx, s.issuer, 7)
	s.Require().NoError(err)
	s.True(cert.Revoked)
}
