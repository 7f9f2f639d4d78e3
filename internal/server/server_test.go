package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/marketstats/internal/manager"
	"github.com/xtxerr/marketstats/internal/store"
	testutil "github.com/xtxerr/marketstats/internal/testing"
)

func TestServer_RunAndShutdown(t *testing.T) {
	s, err := store.New(store.Config{Driver: store.DriverDuckDB})
	require.NoError(t, err)
	mgr := manager.NewWithRepository(s, nil)

	srv := New(&Config{
		Manager:         mgr,
		Listen:          "127.0.0.1:0",
		ShutdownTimeout: time.Second,
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.Run() }()

	select {
	case <-srv.Ready():
	case err := <-errc:
		t.Fatalf("run failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	srv.Shutdown()
	srv.Shutdown()

	err = testutil.WithTimeout(5*time.Second, func() error { return <-errc })
	assert.NoError(t, err, "run returns cleanly after shutdown")

	assert.Error(t, mgr.Health(context.Background()), "store closed on shutdown")
}

func TestServer_Defaults(t *testing.T) {
	cfg := &Config{}
	New(cfg)

	assert.NotEmpty(t, cfg.Listen)
	assert.NotZero(t, cfg.ReadTimeout)
	assert.NotZero(t, cfg.WriteTimeout)
	assert.NotZero(t, cfg.ShutdownTimeout)
}

func TestServer_BadListen(t *testing.T) {
	s, err := store.New(store.Config{Driver: store.DriverDuckDB})
	require.NoError(t, err)
	mgr := manager.NewWithRepository(s, nil)
	t.Cleanup(func() { mgr.Stop() })

	srv := New(&Config{Manager: mgr, Listen: "127.0.0.1:-1"})
	assert.Error(t, srv.Run())
}
