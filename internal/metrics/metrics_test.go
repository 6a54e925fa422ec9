package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAllInstruments(t *testing.T) {
	m := New()
	m.FilesIndexed.Inc()
	m.ParseFailures.WithLabelValues("go").Inc()
	m.ResolverConfidence.Observe(0.9)
	m.ObservePackDuration("repomap", 10*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.FilesIndexed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ParseFailures.WithLabelValues("go")))
}

func TestServe_ShutsDownOnContextCancel(t *testing.T) {
	m := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not shut down after context cancellation")
	}
}
