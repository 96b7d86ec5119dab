package sse

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/pairsync/sync-server/internal/redis"
	"github.com/pairsync/sync-server/internal/redis/redistest"
)

func TestBroker(t *testing.T) {
	client, _ := redistest.New(t)
	broker := NewBroker(client)
	defer broker.Close()

	t.Run("delivers published events to subscribers of the pair", func(t *testing.T) {
		sub := broker.Subscribe("pair-1")
		defer broker.Unsubscribe(sub)

		require.NoError(t, broker.PublishJSON(context.Background(), "pair-1", EventVersion, map[string]int{"version": 3}))

		select {
		case ev := <-sub.Events:
			assert.Equal(t, EventVersion, ev.Type)
			assert.JSONEq(t, `{"version":3}`, string(ev.Data))
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered")
		}
	})

	t.Run("tracks client counts", func(t *testing.T) {
		a := broker.Subscribe("pair-2")
		b := broker.Subscribe("pair-2")
		assert.Equal(t, 2, broker.ClientCount("pair-2"))

		broker.Unsubscribe(a)
		assert.Equal(t, 1, broker.ClientCount("pair-2"))

		broker.Unsubscribe(b)
		assert.Equal(t, 0, broker.ClientCount("pair-2"))

		// double unsubscribe is harmless
		broker.Unsubscribe(b)
	})
}

func TestBrokerSubscribeWaitsOutsideTheLock(t *testing.T) {
	// a listener that never answers stalls the pub/sub confirmation
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	stalled := &redisclient.Client{Client: redis.NewClient(&redis.Options{
		Addr:        ln.Addr().String(),
		DialTimeout: time.Second,
		ReadTimeout: time.Second,
		MaxRetries:  -1,
	})}
	defer stalled.Close()

	broker := NewBroker(stalled)
	defer broker.Close()

	subscribed := make(chan *Client, 1)
	go func() { subscribed <- broker.Subscribe("slow") }()

	// with the lock held across the round trip these reads would block
	require.Eventually(t, func() bool {
		return broker.ClientCount("slow") == 1 && broker.TotalClients() == 1
	}, 500*time.Millisecond, 10*time.Millisecond)

	select {
	case <-subscribed:
		t.Fatal("subscribe returned before the subscription was confirmed or failed")
	default:
	}

	select {
	case client := <-subscribed:
		broker.Unsubscribe(client)
		assert.Equal(t, 0, broker.ClientCount("slow"))
	case <-time.After(10 * time.Second):
		t.Fatal("subscribe never returned")
	}
}

func TestBrokerConcurrentSubscribers(t *testing.T) {
	client, _ := redistest.New(t)
	broker := NewBroker(client)
	defer broker.Close()

	const n = 8
	clients := make(chan *Client, n)
	for i := 0; i < n; i++ {
		go func() { clients <- broker.Subscribe("pair-c") }()
	}

	subs := make([]*Client, 0, n)
	for i := 0; i < n; i++ {
		select {
		case c := <-clients:
			subs = append(subs, c)
		case <-time.After(2 * time.Second):
			t.Fatal("subscribe did not return")
		}
	}
	assert.Equal(t, n, broker.ClientCount("pair-c"))

	require.NoError(t, broker.PublishJSON(context.Background(), "pair-c", EventUnlinked, map[string]string{"pairId": "pair-c"}))
	for _, sub := range subs {
		select {
		case ev := <-sub.Events:
			assert.Equal(t, EventUnlinked, ev.Type)
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered to every subscriber")
		}
		broker.Unsubscribe(sub)
	}
	assert.Equal(t, 0, broker.TotalClients())
}
