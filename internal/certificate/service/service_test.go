package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Authorizer,EventPublisher,VerifyCache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	certstore "credentry/internal/certificate/store"
	"credentry/internal/content"
	"credentry/internal/events"
	instmodels "credentry/internal/institution/models"
	instservice "credentry/internal/institution/service"
	inststore "credentry/internal/institution/store"
	"credentry/internal/ledger"
	"credentry/pkg/domain"
	dErrors "credentry/pkg/domain-errors"
	"credentry/pkg/hasher"
)

// CertificateServiceSuite exercises the certificate registry against a real
// institution registry, a shared gate, and in-memory stores, so authorization
// reflects live governance state.
type CertificateServiceSuite struct {
	suite.Suite
	ctx    context.Context
	gate   ledger.Gate
	log    *events.InMemoryStore
	insts  *instservice.Service
	svc    *Service
	admin  domain.Address
	issuer domain.Address
	holder domain.Address
}

func (s *CertificateServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.gate = ledger.NewMemoryGate()
	s.log = events.NewInMemoryStore()
	publisher := events.NewPublisher(s.log)

	instStore := inststore.NewInMemory()
	s.insts = instservice.New(instStore, s.gate, publisher)

	s.admin = s.addr(0xAD)
	_, err := inststore.SeedGenesisAdmin(s.ctx, instStore, s.admin, "Registry Operator")
	s.Require().NoError(err)

	s.svc = New(certstore.NewInMemory(), s.insts, s.gate, publisher,
		WithContentStore(content.NewInMemory()),
	)

	s.issuer = s.addr(0x01)
	_, _, err = s.insts.Register(s.ctx, s.admin, instservice.RegisterParams{
		Address: s.issuer,
		Name:    "University A",
		Role:    instmodels.RoleIssuer,
	})
	s.Require().NoError(err)

	s.holder = s.addr(0x99)
}

func TestCertificateServiceSuite(t *testing.T) {
	suite.Run(t, new(CertificateServiceSuite))
}

func (s *CertificateServiceSuite) addr(last byte) domain.Address {
	var a domain.Address
	a[0] = 0x01
	a[19] = last
	return a
}

func (s *CertificateServiceSuite) issue(by domain.Address, doc string) domain.CertificateID {
	cert, _, err := s.svc.Issue(s.ctx, by, IssueParams{
		Holder:  s.holder,
		Content: []byte(doc),
	})
	s.Require().NoError(err)
	return cert.ID
}

func (s *CertificateServiceSuite) TestIssue() {
	s.Run("active issuer issues a certificate", func() {
		cert, conf, err := s.svc.Issue(s.ctx, s.issuer, IssueParams{
			Holder:  s.holder,
			Content: []byte("diploma"),
		})
		s.Require().NoError(err)
		s.Equal(domain.CertificateID(0), cert.ID)
		s.Equal(s.issuer, cert.Issuer)
		s.Equal(hasher.Sum([]byte("diploma")), cert.DocumentHash)
		s.NotEmpty(cert.ContentRef)
		s.False(cert.Revoked)
		s.Equal("certificate.issue", conf.Op)
	})

	s.Run("ids are sequential", func() {
		s.Equal(domain.CertificateID(1), s.issue(s.issuer, "transcript"))
		s.Equal(domain.CertificateID(2), s.issue(s.issuer, "award"))
	})

	s.Run("unregistered caller cannot issue", func() {
		_, _, err := s.svc.Issue(s.ctx, s.addr(0xEE), IssueParams{
			Holder:  s.holder,
			Content: []byte("forged"),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("revoked issuer cannot issue", func() {
		_, err := s.insts.Revoke(s.ctx, s.admin, s.issuer, "audit")
		s.Require().NoError(err)

		_, _, err = s.svc.Issue(s.ctx, s.issuer, IssueParams{
			Holder:  s.holder,
			Content: []byte("late diploma"),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		_, err = s.insts.Reactivate(s.ctx, s.admin, s.issuer)
		s.Require().NoError(err)
	})

	s.Run("super admin is not an issuer", func() {
		_, _, err := s.svc.Issue(s.ctx, s.admin, IssueParams{
			Holder:  s.holder,
			Content: []byte("admin diploma"),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("mismatched hash and content is rejected", func() {
		_, _, err := s.svc.Issue(s.ctx, s.issuer, IssueParams{
			Holder:       s.holder,
			DocumentHash: hasher.Sum([]byte("other document")),
			Content:      []byte("diploma"),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("hash only issuance works", func() {
		cert, _, err := s.svc.Issue(s.ctx, s.issuer, IssueParams{
			Holder:       s.holder,
			DocumentHash: hasher.Sum([]byte("external document")),
		})
		s.Require().NoError(err)
		s.Empty(cert.ContentRef)
	})

	s.Run("missing hash and content is rejected", func() {
		_, _, err := s.svc.Issue(s.ctx, s.issuer, IssueParams{Holder: s.holder})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("issuing to oneself is rejected", func() {
		_, _, err := s.svc.Issue(s.ctx, s.issuer, IssueParams{
			Holder:  s.issuer,
			Content: []byte("self-awarded diploma"),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("type and content ref are recorded", func() {
		cert, _, err := s.svc.Issue(s.ctx, s.issuer, IssueParams{
			Holder:       s.holder,
			DocumentHash: hasher.Sum([]byte("archived document")),
			ContentRef:   "s3://archive/doc-17",
			Type:         "Bachelor of Science",
		})
		s.Require().NoError(err)
		s.Equal("Bachelor of Science", cert.Type)
		s.Equal("s3://archive/doc-17", cert.ContentRef)
	})

	s.Run("issuance emits an event", func() {
		list, err := s.log.ListBySubject(s.ctx, s.issuer.String(), 0)
		s.Require().NoError(err)
		found := false
		for _, e := range list {
			if e.Name == events.CertificateIssued {
				found = true
			}
		}
		s.True(found)
	})
}

func (s *CertificateServiceSuite) TestConcurrentIssuanceAssignsUniqueIDs() {
	const n = 50
	ids := make(chan domain.CertificateID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cert, _, err := s.svc.Issue(s.ctx, s.issuer, IssueParams{
				Holder:       s.holder,
				DocumentHash: hasher.Sum([]byte{byte(i)}),
			})
			if err == nil {
				ids <- cert.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[domain.CertificateID]bool)
	count := 0
	for id := range ids {
		s.False(seen[id], "duplicate certificate id %d", id)
		seen[id] = true
		count++
	}
	s.Equal(n, count)

	stats, err := s.svc.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(n, stats.TotalIssued)
}

func (s *CertificateServiceSuite) TestRevoke() {
	id := s.issue(s.issuer, "diploma")

	s.Run("holder cannot revoke", func() {
		_, err := s.svc.Revoke(s.ctx, s.holder, id)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("issuer revokes own certificate", func() {
		_, err := s.svc.Revoke(s.ctx, s.issuer, id)
		s.Require().NoError(err)

		cert, err := s.svc.Get(s.ctx, id)
		s.Require().NoError(err)
		s.True(cert.Revoked)
		s.NotNil(cert.RevokedAt)
	})

	s.Run("double revocation conflicts", func() {
		_, err := s.svc.Revoke(s.ctx, s.issuer, id)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "already revoked")
	})

	s.Run("super admin revokes any certificate", func() {
		other := s.issue(s.issuer, "transcript")
		_, err := s.svc.Revoke(s.ctx, s.admin, other)
		s.Require().NoError(err)
	})

	s.Run("unknown certificate is not found", func() {
		_, err := s.svc.Revoke(s.ctx, s.issuer, domain.CertificateID(9999))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestDeactivatedIssuerKeepsRevocationRights covers the lifecycle where an
// issuer is deactivated after issuing: it can no longer issue, but still
// revokes its own certificates.
func (s *CertificateServiceSuite) TestDeactivatedIssuerKeepsRevocationRights() {
	id := s.issue(s.issuer, "diploma")

	_, err := s.insts.Revoke(s.ctx, s.admin, s.issuer, "under investigation")
	s.Require().NoError(err)

	_, _, err = s.svc.Issue(s.ctx, s.issuer, IssueParams{
		Holder:  s.holder,
		Content: []byte("new diploma"),
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.svc.Revoke(s.ctx, s.issuer, id)
	s.Require().NoError(err, "deactivation must not strip revocation rights over own certificates")
}

func (s *CertificateServiceSuite) TestVerify() {
	doc := []byte("diploma")
	id := s.issue(s.issuer, string(doc))

	s.Run("matching hash verifies", func() {
		v, err := s.svc.Verify(s.ctx, id, hasher.Sum(doc))
		s.Require().NoError(err)
		s.True(v.Valid)
		s.True(v.HashMatch)
		s.False(v.Revoked)
		s.Equal(s.issuer, v.Issuer)
		s.Equal(s.holder, v.Holder)
	})

	s.Run("wrong hash fails verification", func() {
		v, err := s.svc.Verify(s.ctx, id, hasher.Sum([]byte("tampered")))
		s.Require().NoError(err)
		s.False(v.Valid)
		s.False(v.HashMatch)
		s.Equal(s.issuer, v.Issuer)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.svc.Verify(s.ctx, domain.CertificateID(9999), hasher.Sum(doc))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("issuer deactivation does not invalidate issued certificates", func() {
		_, err := s.insts.Revoke(s.ctx, s.admin, s.issuer, "audit")
		s.Require().NoError(err)

		v, err := s.svc.Verify(s.ctx, id, hasher.Sum(doc))
		s.Require().NoError(err)
		s.True(v.Valid, "verification depends on the record, not on issuer standing")

		_, err = s.insts.Reactivate(s.ctx, s.admin, s.issuer)
		s.Require().NoError(err)
	})

	s.Run("revocation invalidates", func() {
		_, err := s.svc.Revoke(s.ctx, s.issuer, id)
		s.Require().NoError(err)

		v, err := s.svc.Verify(s.ctx, id, hasher.Sum(doc))
		s.Require().NoError(err)
		s.False(v.Valid)
		s.True(v.Revoked)
		s.True(v.HashMatch)
	})
}

func (s *CertificateServiceSuite) TestListAndStats() {
	holderB := s.addr(0x98)
	first := s.issue(s.issuer, "diploma one")

	cert, _, err := s.svc.Issue(s.ctx, s.issuer, IssueParams{
		Holder:  holderB,
		Content: []byte("diploma two"),
	})
	s.Require().NoError(err)

	byHolder, err := s.svc.ListByHolder(s.ctx, s.holder)
	s.Require().NoError(err)
	s.Require().Len(byHolder, 1)
	s.Equal(first, byHolder[0].ID)

	byIssuer, err := s.svc.ListByIssuer(s.ctx, s.issuer)
	s.Require().NoError(err)
	s.Len(byIssuer, 2)

	_, err = s.svc.Revoke(s.ctx, s.issuer, cert.ID)
	s.Require().NoError(err)

	stats, err := s.svc.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.TotalIssued)
	s.Equal(1, stats.TotalRevoked)
}
