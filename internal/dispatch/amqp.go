// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// BrokerConfig locates the message broker the compute-node agents listen
// on.
type BrokerConfig struct {
	Host     string
	Port     int
	Login    string
	Password string

	// ConnectTimeout bounds the initial TCP/AMQP handshake.
	ConnectTimeout time.Duration
}

// agentQueue is the per-node command queue an agent consumes. Agents
// declare their own queues; the dispatcher only publishes to them.
func agentQueue(computeID string) string {
	return "fleetadm.agent." + computeID
}

// AMQPTransport talks to compute-node agents over an AMQP 0-9-1 broker
// using the reply-to/correlation-id pattern: one exclusive reply queue for
// the whole process, replies demultiplexed by correlation id.
type AMQPTransport struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	replyQueue string

	mu      sync.Mutex
	pending map[string]chan *Reply
	closed  error
}

var _ Transport = (*AMQPTransport)(nil)

// DialBroker connects to the broker and starts the reply consumer.
func DialBroker(cfg BrokerConfig) (*AMQPTransport, error) {
	uri := amqp.URI{
		Scheme:   "amqp",
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Login,
		Password: cfg.Password,
		Vhost:    "/",
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	conn, err := amqp.DialConfig(uri.String(), amqp.Config{
		Dial: amqp.DefaultDial(connectTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to broker at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	// server-named exclusive queue; deleted when the connection drops
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring reply queue: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("consuming replies: %w", err)
	}

	t := &AMQPTransport{
		conn:       conn,
		ch:         ch,
		replyQueue: q.Name,
		pending:    make(map[string]chan *Reply),
	}
	go t.demux(deliveries, conn.NotifyClose(make(chan *amqp.Error, 1)))
	return t, nil
}

// Close tears down the broker connection. Outstanding Exec calls fail.
func (t *AMQPTransport) Close() error {
	return t.conn.Close()
}

// Exec publishes one request on the target's agent queue and waits for the
// correlated reply or the context deadline.
func (t *AMQPTransport) Exec(ctx context.Context, target Target, req *Request) (*Reply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	correlationID := uuid.NewString()
	replyCh := make(chan *Reply, 1)
	t.mu.Lock()
	if t.closed != nil {
		t.mu.Unlock()
		return nil, t.closed
	}
	t.pending[correlationID] = replyCh
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, correlationID)
		t.mu.Unlock()
	}()

	publishing := amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: correlationID,
		ReplyTo:       t.replyQueue,
		Body:          body,
	}
	// expire undelivered requests at the deadline so a dead agent's queue
	// does not accumulate them
	if deadline, ok := ctx.Deadline(); ok {
		if ms := time.Until(deadline).Milliseconds(); ms > 0 {
			publishing.Expiration = strconv.FormatInt(ms, 10)
		}
	}
	err = t.ch.PublishWithContext(ctx, "", agentQueue(target.ComputeID), false, false, publishing)
	if err != nil {
		return nil, fmt.Errorf("publishing to %s: %w", agentQueue(target.ComputeID), err)
	}

	select {
	case rep := <-replyCh:
		if rep == nil {
			t.mu.Lock()
			err := t.closed
			t.mu.Unlock()
			return nil, err
		}
		return rep, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// demux routes reply deliveries to their waiting Exec calls. Unmatched
// correlation ids (a reply arriving after its deadline) are dropped.
func (t *AMQPTransport) demux(deliveries <-chan amqp.Delivery, connClosed <-chan *amqp.Error) {
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				t.failPending(fmt.Errorf("broker connection closed"))
				return
			}
			var rep Reply
			if err := json.Unmarshal(d.Body, &rep); err != nil {
				continue
			}
			t.mu.Lock()
			ch, ok := t.pending[d.CorrelationId]
			if ok {
				delete(t.pending, d.CorrelationId)
			}
			t.mu.Unlock()
			if ok {
				ch <- &rep
			}
		case amqpErr := <-connClosed:
			err := fmt.Errorf("broker connection closed")
			if amqpErr != nil {
				err = fmt.Errorf("broker connection closed: %s", amqpErr)
			}
			t.failPending(err)
			return
		}
	}
}

// failPending marks the transport dead and wakes every waiting Exec.
func (t *AMQPTransport) failPending(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = err
	for id, ch := range t.pending {
		close(ch)
		delete(t.pending, id)
	}
}
