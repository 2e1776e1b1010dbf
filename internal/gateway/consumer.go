package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"mon-resto/internal/gateway/hub"
	"mon-resto/internal/metrics"
	"mon-resto/internal/mylogger"
	"mon-resto/internal/order/adapter/broker"
	"mon-resto/internal/xpkg/config"
	xerrors "mon-resto/internal/xpkg/errors"

	"mon-resto/internal/order/domain/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer pumps status events from the fanout exchange into the hub.
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	hub   *hub.Hub
	mylog mylogger.Logger
}

func NewConsumer(cfg config.RabbitMQ, h *hub.Hub, mylog mylogger.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, xerrors.ErrMBConn
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, xerrors.ErrMBCh
	}

	err = ch.ExchangeDeclare(broker.StatusExchange, "fanout", true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Queue per gateway instance, dropped on disconnect: a gateway that
	// was down has nothing useful to say about the past, observers
	// resynchronize through snapshots.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.QueueBind(q.Name, "", broker.StatusExchange, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, ch: ch, queue: q.Name, hub: h, mylog: mylog}, nil
}

// Run consumes until the context is cancelled or the delivery channel
// closes.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume: %w", err)
	}
	c.mylog.Action("consumer_started").Info("Consuming status events", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			c.mylog.Action("consumer_stopped").Info("Stopping message consumption due to context cancel")
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return xerrors.ErrMBCh
			}
			c.handle(msg)
		}
	}
}

// handle unpacks one delivery. Malformed payloads are logged and dropped,
// never crash the channel.
func (c *Consumer) handle(msg amqp.Delivery) {
	var event models.StatusEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		metrics.EventsDropped.Inc()
		c.mylog.Action("event_malformed").Warn("Dropping malformed status event", "error", err.Error())
		_ = msg.Ack(false)
		return
	}
	status, err := models.ParseStatus(string(event.NewStatus))
	if err != nil || event.OrderID == "" {
		metrics.EventsDropped.Inc()
		c.mylog.Action("event_malformed").Warn("Dropping status event with bad fields", "order_id", event.OrderID)
		_ = msg.Ack(false)
		return
	}
	event.NewStatus = status

	frame, err := EventFrame(event)
	if err != nil {
		metrics.EventsDropped.Inc()
		_ = msg.Ack(false)
		return
	}

	c.hub.Broadcast(frame, event.OrderID)
	c.mylog.Debug("Status event relayed", "order_id", event.OrderID, "new_status", string(event.NewStatus), "sequence", event.Sequence)

	if err := msg.Ack(false); err != nil {
		c.mylog.Action("ack_failed").Error("Failed to ack delivery", err)
	}
}

func (c *Consumer) Close() error {
	if c.ch != nil && !c.ch.IsClosed() {
		if err := c.ch.Close(); err != nil {
			return fmt.Errorf("close channel: %w", err)
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("close connection: %w", err)
		}
	}
	return nil
}
