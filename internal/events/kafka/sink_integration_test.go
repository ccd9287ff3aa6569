//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"credentry/internal/events"
	"credentry/internal/events/kafka"
	"credentry/pkg/domain"
	"credentry/pkg/testutil/containers"
)

type SinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	ctx      context.Context
}

func TestSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SinkSuite))
}

func (s *SinkSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	s.ctx = context.Background()
}

func (s *SinkSuite) TestAppendProducesKeyedRecord() {
	topic := "sink-test-" + uuid.NewString()
	sink, err := kafka.New(s.ctx, s.redpanda.Brokers, kafka.WithTopic(topic))
	s.Require().NoError(err)
	defer sink.Close()

	var inst, admin domain.Address
	inst[19] = 0x01
	admin[19] = 0x02

	event := events.NewInstitutionRevoked(inst, "fraud", admin)
	event.ID = uuid.New()
	event.Timestamp = time.Now().UTC()
	s.Require().NoError(sink.Append(s.ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	s.Require().NoError(fetches.Err())

	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal(inst.String(), string(records[0].Key))

	var decoded events.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &decoded))
	s.Equal(events.InstitutionRevoked, decoded.Name)
	s.Equal("fraud", decoded.Reason)
	s.Equal(event.ID, decoded.ID)
}

func (s *SinkSuite) TestNewIsIdempotentOnExistingTopic() {
	topic := "sink-idempotent-" + uuid.NewString()

	first, err := kafka.New(s.ctx, s.redpanda.Brokers, kafka.WithTopic(topic))
	s.Require().NoError(err)
	first.Close()

	second, err := kafka.New(s.ctx, s.redpanda.Brokers, kafka.WithTopic(topic))
	s.Require().NoError(err)
	second.Close()
}
