package connectivity

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	s := NewStatic(false)
	require.False(t, s.IsOnline())
	s.Set(true)
	require.True(t, s.IsOnline())
}

func TestProbeReusesAnswerWithinInterval(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/healthz", r.URL.Path)
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	probe := NewProbe(server.URL+"/", time.Hour, time.Second)
	require.True(t, probe.IsOnline())
	require.True(t, probe.IsOnline())
	require.Equal(t, int32(1), hits.Load())
}

func TestProbeOfflineWhenUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	probe := NewProbe(url, time.Hour, 200*time.Millisecond)
	require.False(t, probe.IsOnline())
}

func TestProbeOfflineOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	require.False(t, NewProbe(server.URL, time.Hour, time.Second).IsOnline())
}
