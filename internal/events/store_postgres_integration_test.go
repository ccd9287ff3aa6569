//go:build integration

package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"credentry/internal/events"
	"credentry/pkg/domain"
	"credentry/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *events.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = events.NewPostgresStore(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "registry_events"))
}

func (s *PostgresStoreSuite) TestAppendAndListBySubject() {
	var inst, admin domain.Address
	inst[19] = 0x01
	admin[19] = 0x02

	base := time.Now().UTC().Truncate(time.Microsecond)
	registered := events.NewInstitutionRegistered(inst, "Example University", "issuer", admin)
	registered.ID = uuid.New()
	registered.Timestamp = base
	revoked := events.NewInstitutionRevoked(inst, "fraud", admin)
	revoked.ID = uuid.New()
	revoked.Timestamp = base.Add(time.Second)

	s.Require().NoError(s.store.Append(s.ctx, registered))
	s.Require().NoError(s.store.Append(s.ctx, revoked))

	listed, err := s.store.ListBySubject(s.ctx, inst.String(), 10)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)

	// Newest first.
	s.Equal(events.InstitutionRevoked, listed[0].Name)
	s.Equal("fraud", listed[0].Reason)
	s.Equal(events.InstitutionRegistered, listed[1].Name)
	s.Equal("Example University", listed[1].InstitutionName)
	s.Equal(admin.String(), listed[1].Actor)
}

func (s *PostgresStoreSuite) TestListHonorsLimit() {
	var inst domain.Address
	inst[19] = 0x03

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		event := events.NewInstitutionStatusChanged(inst, i%2 == 0, inst)
		event.ID = uuid.New()
		event.Timestamp = base.Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.store.Append(s.ctx, event))
	}

	listed, err := s.store.ListBySubject(s.ctx, inst.String(), 2)
	s.Require().NoError(err)
	s.Len(listed, 2)
}

func (s *PostgresStoreSuite) TestUnknownSubjectReturnsEmpty() {
	var unknown domain.Address
	unknown[19] = 0x7f

	listed, err := s.store.ListBySubject(s.ctx, unknown.String(), 10)
	s.Require().NoError(err)
	s.Empty(listed)
}
