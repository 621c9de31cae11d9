package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"stockflow/internal/events"
	"stockflow/internal/events/kafka"
	"stockflow/internal/model"

	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stockEvent() events.StockEvent {
	p := &model.Product{Name: "Widget", SKU: "GEN-001", Quantity: 7}
	p.ID = uuid.New()
	t := &model.Transaction{Type: model.TxOut, Quantity: 3}
	t.ID = uuid.New()
	return events.NewStockEvent(events.ActionTransactionCreated, t, p, "staff@example.com")
}

func TestPublisher_Notify(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	event := stockEvent()

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var got events.StockEvent
		if err := json.Unmarshal(value, &got); err != nil {
			return err
		}
		if got.EventID != event.EventID || got.NewQuantity != 7 || got.SKU != "GEN-001" {
			return errors.New("unexpected event body")
		}
		return nil
	})

	publisher := kafka.NewPublisherWithProducer(producer, "stock-movements")
	require.NoError(t, publisher.Notify(context.Background(), event))
	require.NoError(t, publisher.Close())
}

func TestPublisher_NotifyFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(errors.New("leader not available"))

	publisher := kafka.NewPublisherWithProducer(producer, "stock-movements")
	err := publisher.Notify(context.Background(), stockEvent())
	assert.ErrorContains(t, err, "leader not available")
	require.NoError(t, publisher.Close())
}
