package rabbitmq

import (
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
)

type ackRecorder struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func TestHandleDelivery(t *testing.T) {
	tests := []struct {
		name        string
		handlerErr  error
		wantAck     bool
		wantNack    bool
		wantRequeue bool
	}{
		{
			name:    "успешная обработка подтверждает сообщение",
			wantAck: true,
		},
		{
			name:        "ошибка обработчика возвращает сообщение в очередь",
			handlerErr:  errors.New("database unavailable"),
			wantNack:    true,
			wantRequeue: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &ackRecorder{}
			delivery := amqp.Delivery{
				Acknowledger: rec,
				DeliveryTag:  1,
				Body:         []byte(`{"dispute_id":"dispute-1"}`),
			}

			var gotBody []byte
			handleDelivery(delivery, func(body []byte) error {
				gotBody = body
				return tt.handlerErr
			})

			assert.Equal(t, delivery.Body, gotBody)
			assert.Equal(t, tt.wantAck, rec.acked)
			assert.Equal(t, tt.wantNack, rec.nacked)
			assert.Equal(t, tt.wantRequeue, rec.requeue)
		})
	}
}
