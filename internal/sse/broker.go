package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/pairsync/sync-server/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
	clientBufferSize  = 32
)

// Event types pushed to paired devices.
const (
	EventVersion  = "version"
	EventPaired   = "paired"
	EventUnlinked = "unlinked"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	PairID string
	Events chan Event
	Done   chan struct{}
}

// subscription is the single Redis channel listener shared by a pair's clients.
type subscription struct {
	cancel context.CancelFunc
	ready  chan struct{}
}

// Broker fans pair events out to local SSE clients. Publishing goes through
// Redis pub/sub so every server instance sees every event.
type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // pairID -> set of clients
	subs    map[string]*subscription
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		subs:    make(map[string]*subscription),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(pairID string) *Client {
	client := &Client{
		PairID: pairID,
		Events: make(chan Event, clientBufferSize),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	sub := b.subs[pairID]
	if sub == nil {
		b.clients[pairID] = make(map[*Client]bool)
		subCtx, subCancel := context.WithCancel(b.ctx)
		sub = &subscription{cancel: subCancel, ready: make(chan struct{})}
		b.subs[pairID] = sub
		go b.subscribeToRedis(subCtx, pairID, sub.ready)
	}
	b.clients[pairID][client] = true
	clientCount := len(b.clients[pairID])
	b.mu.Unlock()

	// Wait for the Redis confirmation without holding the lock.
	<-sub.ready

	log.Info().
		Str("pairId", pairID).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, ok := b.clients[client.PairID]
	if !ok || !clients[client] {
		return
	}

	delete(clients, client)
	close(client.Done)

	if len(clients) == 0 {
		delete(b.clients, client.PairID)
		if sub := b.subs[client.PairID]; sub != nil {
			sub.cancel()
			delete(b.subs, client.PairID)
		}
	}

	log.Info().
		Str("pairId", client.PairID).
		Int("clientCount", len(clients)).
		Msg("sse client unsubscribed")
}

func (b *Broker) Publish(ctx context.Context, pairID string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.redis.Publish(ctx, redisclient.EventChannel(pairID), data).Err()
}

// PublishJSON marshals payload as the event data.
func (b *Broker) PublishJSON(ctx context.Context, pairID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.Publish(ctx, pairID, Event{Type: eventType, Data: data})
}

func (b *Broker) subscribeToRedis(ctx context.Context, pairID string, ready chan<- struct{}) {
	channel := redisclient.EventChannel(pairID)
	pubsub := b.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Wait for the subscription confirmation so events published right after
	// Subscribe returns are not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("redis pubsub subscribe failed")
	}
	close(ready)

	log.Debug().
		Str("pairId", pairID).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(pairID, event)
		}
	}
}

func (b *Broker) broadcast(pairID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients[pairID] {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("pairId", pairID).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
	b.subs = make(map[string]*subscription)
}

func (b *Broker) ClientCount(pairID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[pairID])
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}
