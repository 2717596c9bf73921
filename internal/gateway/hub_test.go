package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"groww-scanner/internal/metrics"
	"groww-scanner/internal/model"
)

// One registry per test binary; NewMetrics registers into the default
// Prometheus registry and would panic if called twice.
var testMetrics = metrics.NewMetrics()

func TestPublishReachesOnlyMatchingTimeframe(t *testing.T) {
	h := NewHub(testMetrics)
	c5 := newClient(h, nil, model.TF5m)
	c1h := newClient(h, nil, model.TF1h)
	h.register(c5)
	h.register(c1h)

	h.Publish(model.TF5m, []byte(`{"timeframe":"5m","rows":[]}`))

	select {
	case msg := <-c5.send:
		require.JSONEq(t, `{"timeframe":"5m","rows":[]}`, string(msg))
	default:
		t.Fatal("5m client received nothing")
	}
	select {
	case msg := <-c1h.send:
		t.Fatalf("1h client unexpectedly received %s", msg)
	default:
	}
}

func TestRegisterReplaysLatestSnapshot(t *testing.T) {
	h := NewHub(testMetrics)
	h.Publish(model.TF15m, []byte(`{"ts":"first"}`))
	h.Publish(model.TF15m, []byte(`{"ts":"second"}`))

	c := newClient(h, nil, model.TF15m)
	h.register(c)

	select {
	case msg := <-c.send:
		require.JSONEq(t, `{"ts":"second"}`, string(msg))
	default:
		t.Fatal("no replay on register")
	}
}

func TestPublishDropsClientWithFullBuffer(t *testing.T) {
	h := NewHub(testMetrics)
	c := newClient(h, nil, model.TF5m)
	h.register(c)

	for i := 0; i < sendBuffer; i++ {
		c.send <- []byte("backlog")
	}
	h.Publish(model.TF5m, []byte("fresh"))

	require.Equal(t, 0, h.ClientCount())

	// The backlog drains, then the channel reports closed.
	for i := 0; i < sendBuffer; i++ {
		<-c.send
	}
	_, open := <-c.send
	require.False(t, open)
}

func TestRemoveClientIsIdempotent(t *testing.T) {
	h := NewHub(testMetrics)
	c := newClient(h, nil, model.TF1d)
	h.register(c)
	require.Equal(t, 1, h.ClientCount())

	h.RemoveClient(c)
	require.Equal(t, 0, h.ClientCount())
	require.NotPanics(t, func() { h.RemoveClient(c) })
}

func TestPublishToEmptyHubKeepsLatest(t *testing.T) {
	h := NewHub(testMetrics)
	require.NotPanics(t, func() {
		h.Publish(model.TF1h, []byte(`{"rows":[]}`))
	})

	c := newClient(h, nil, model.TF1h)
	h.register(c)
	select {
	case msg := <-c.send:
		require.JSONEq(t, `{"rows":[]}`, string(msg))
	default:
		t.Fatal("latest payload not replayed")
	}
}
