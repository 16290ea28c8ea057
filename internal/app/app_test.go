package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RichardoC/dehost/internal/config"
	"github.com/RichardoC/dehost/internal/deploy"
	"github.com/RichardoC/dehost/internal/ipfs"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "app.db")
	cfg.Server.WebDir = ""
	return cfg
}

func TestNew_WiresServices(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), WithKeySource(ipfs.StaticKey("key")))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	require.NotNil(t, a.Deployer)
	require.NotNil(t, a.Sharer)
	require.NotNil(t, a.Chat)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.Level = "loud"
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

func TestNew_DeployFlagReachesStore(t *testing.T) {
	var notes []deploy.Notification
	a, err := New(context.Background(), testConfig(t),
		WithKeySource(ipfs.StaticKey("")),
		WithNotifier(deploy.NotifierFunc(func(n deploy.Notification) { notes = append(notes, n) })))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	events, cancel := a.Store.Subscribe(8)
	defer cancel()

	_, err = a.Deployer.Deploy(context.Background(), 0, nil)
	require.ErrorIs(t, err, deploy.ErrNoContent)
	require.Len(t, notes, 1)
	require.Equal(t, deploy.LevelError, notes[0].Level)

	initial := <-events
	require.False(t, initial.State.Deploying)
	first := <-events
	require.True(t, first.State.Deploying)
	second := <-events
	require.False(t, second.State.Deploying)
}

func TestKeySource(t *testing.T) {
	logger := zap.NewNop()

	keys, err := keySource(context.Background(), config.LighthouseConfig{APIKey: "abc"}, logger)
	require.NoError(t, err)
	key, err := keys.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc", key)

	keys, err = keySource(context.Background(), config.LighthouseConfig{}, logger)
	require.NoError(t, err)
	_, err = keys.APIKey(context.Background())
	require.ErrorIs(t, err, ipfs.ErrMissingCredential)
}
