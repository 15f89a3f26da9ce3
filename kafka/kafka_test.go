package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/internal/catalog/usecase/command"
)

func TestPublishCatalogSynced(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event CatalogSyncedEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.ProviderID != "vip" || event.ProductsRetired != 2 || event.Skipped != 1 {
			return errors.New("unexpected event payload")
		}
		if event.EventType != EventTypeCatalogSynced || event.EventID == "" {
			return errors.New("missing event metadata")
		}
		return nil
	})

	p := NewPublisherWithProducer(producer, Topics{})
	result := domain.NewSyncResult("vip", time.Now())
	result.Status = domain.SyncCompleted
	result.ProductsRetired = 2
	result.Skipped = []domain.SkippedService{{ExternalID: "x", Reason: "bad"}}

	require.NoError(t, p.PublishCatalogSynced(context.Background(), result))
	require.NoError(t, p.Close())
}

func TestPublishCatalogSyncedFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewPublisherWithProducer(producer, Topics{Synced: "custom"})
	err := p.PublishCatalogSynced(context.Background(), domain.NewSyncResult("vip", time.Now()))
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestPublishSyncRequested(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event SyncRequestedEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.ProviderID != "digi" {
			return errors.New("wrong provider")
		}
		return nil
	})

	p := NewPublisherWithProducer(producer, Topics{})
	id, err := p.PublishSyncRequested(context.Background(), "digi")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NoError(t, p.Close())
}

type fakeRunner struct {
	calls  []command.RunSyncCommand
	result *domain.SyncResult
	err    error
}

func (f *fakeRunner) Handle(_ context.Context, cmd command.RunSyncCommand) (*domain.SyncResult, error) {
	f.calls = append(f.calls, cmd)
	return f.result, f.err
}

func syncRequestMessage(t *testing.T, providerID string) *sarama.ConsumerMessage {
	t.Helper()
	payload, err := json.Marshal(SyncRequestedEvent{EventID: "evt-1", EventType: EventTypeSyncRequested, ProviderID: providerID})
	require.NoError(t, err)
	return &sarama.ConsumerMessage{
		Topic: TopicSyncRequested,
		Value: payload,
		Headers: []*sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(EventTypeSyncRequested)},
			{Key: []byte("event_id"), Value: []byte("evt-1")},
		},
	}
}

func newTestConsumer(runner SyncRunner) *consumerGroupHandler {
	c := &Consumer{handlers: make(map[string]EventHandler)}
	c.RegisterHandler(EventTypeSyncRequested, SyncRequestHandler(runner))
	return &consumerGroupHandler{consumer: c}
}

func TestSyncRequestRunsSync(t *testing.T) {
	runner := &fakeRunner{result: &domain.SyncResult{ProviderID: "vip", Status: domain.SyncInProgress}}
	h := newTestConsumer(runner)

	require.NoError(t, h.handleMessage(context.Background(), syncRequestMessage(t, "vip")))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "vip", runner.calls[0].ProviderID)
	assert.Equal(t, "kafka:evt-1", runner.calls[0].TriggeredBy)
}

func TestSyncRequestForUnknownProviderIsDropped(t *testing.T) {
	runner := &fakeRunner{err: domain.ErrUnknownProvider}
	h := newTestConsumer(runner)

	assert.NoError(t, h.handleMessage(context.Background(), syncRequestMessage(t, "ghost")))
}

func TestSyncRequestFailureIsReported(t *testing.T) {
	runner := &fakeRunner{err: domain.ErrUpstreamUnavailable}
	h := newTestConsumer(runner)

	err := h.handleMessage(context.Background(), syncRequestMessage(t, "vip"))
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestMessageWithoutHandler(t *testing.T) {
	h := newTestConsumer(&fakeRunner{})

	msg := syncRequestMessage(t, "vip")
	msg.Headers = nil
	assert.Error(t, h.handleMessage(context.Background(), msg))

	msg.Headers = []*sarama.RecordHeader{{Key: []byte("event_type"), Value: []byte("other.event")}}
	assert.Error(t, h.handleMessage(context.Background(), msg))
}
