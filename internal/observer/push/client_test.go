package push_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mon-resto/internal/gateway"
	"mon-resto/internal/mylogger"
	"mon-resto/internal/observer/push"
	"mon-resto/internal/observer/store"
	"mon-resto/internal/order/domain/models"
)

// fakeGateway accepts websocket connections and lets the test script
// frames per connection.
type fakeGateway struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	queries []string
	conns   []*websocket.Conn
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	g.mu.Lock()
	g.queries = append(g.queries, r.URL.RawQuery)
	g.conns = append(g.conns, conn)
	g.mu.Unlock()

	// Keep the read side alive so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (g *fakeGateway) waitForConn(t *testing.T, n int) *websocket.Conn {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		g.mu.Lock()
		if len(g.conns) >= n {
			conn := g.conns[n-1]
			g.mu.Unlock()
			return conn
		}
		g.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("connection %d never arrived", n)
	return nil
}

func newClient(t *testing.T, url string, st *store.Store) *push.Client {
	t.Helper()
	return push.New(push.Config{
		GatewayURL:   url,
		Filter:       push.Filter{OrderID: "ord-1", Role: "customer"},
		Backoff:      10 * time.Millisecond,
		PingInterval: 500 * time.Millisecond,
	}, st, mylogger.Discard())
}

func TestClientAppliesPushedEvents(t *testing.T) {
	t.Parallel()

	g := &fakeGateway{}
	srv := httptest.NewServer(g)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	st := store.New(mylogger.Discard())
	t.Cleanup(st.Close)
	st.LoadSnapshot([]models.Order{{ID: "ord-1", Status: models.StatusPending, StatusSeq: 1}})

	updates := make(chan store.Update, 4)
	defer st.Subscribe("ord-1", func(u store.Update) { updates <- u })()

	client := newClient(t, wsURL, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	conn := g.waitForConn(t, 1)

	frame, err := gateway.EventFrame(models.StatusEvent{
		OrderID: "ord-1", NewStatus: models.StatusConfirmed, Sequence: 2,
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))

	select {
	case u := <-updates:
		assert.Equal(t, models.StatusConfirmed, u.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("pushed event never reached the store")
	}

	// The subscription filter travels in the connect URL.
	g.mu.Lock()
	query := g.queries[0]
	g.mu.Unlock()
	assert.Contains(t, query, "order_id=ord-1")
	assert.Contains(t, query, "role=customer")
}

func TestClientReconnectsWithSameFilter(t *testing.T) {
	t.Parallel()

	g := &fakeGateway{}
	srv := httptest.NewServer(g)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	st := store.New(mylogger.Discard())
	t.Cleanup(st.Close)
	st.LoadSnapshot(nil)

	client := newClient(t, wsURL, st)

	var mu sync.Mutex
	var states []push.ConnState
	client.OnStateChange(func(s push.ConnState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	first := g.waitForConn(t, 1)
	first.Close()

	g.waitForConn(t, 2)

	g.mu.Lock()
	assert.Equal(t, g.queries[0], g.queries[1], "reconnect resends the identical filter")
	g.mu.Unlock()

	// The client surfaced the outage before re-establishing.
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(states)
		mu.Unlock()
		if n >= 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(states), 3)
	assert.Equal(t, push.StateConnecting, states[0])
	assert.Equal(t, push.StateConnected, states[1])
	assert.Equal(t, push.StateConnecting, states[2])
}

func TestClientIgnoresMalformedFrames(t *testing.T) {
	t.Parallel()

	g := &fakeGateway{}
	srv := httptest.NewServer(g)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	st := store.New(mylogger.Discard())
	t.Cleanup(st.Close)
	st.LoadSnapshot([]models.Order{{ID: "ord-1", Status: models.StatusPending, StatusSeq: 1}})

	client := newClient(t, wsURL, st)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	conn := g.waitForConn(t, 1)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{garbage")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"status_event","payload":"notanevent"}`)))

	frame, err := gateway.EventFrame(models.StatusEvent{
		OrderID: "ord-1", NewStatus: models.StatusPreparing, Sequence: 2,
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if order, _ := st.Order("ord-1"); order.Status == models.StatusPreparing {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("valid event after garbage was not applied")
}
