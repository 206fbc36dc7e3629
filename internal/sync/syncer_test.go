package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mohsinsiddi/quarkcheck/internal/config"
	"github.com/Mohsinsiddi/quarkcheck/internal/scripts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	transferAddr = "0x00000000000000000000000000000000000000A1"
	paycallAddr  = "0x00000000000000000000000000000000000000B2"
	codeJarAddr  = "0x00000000000000000000000000000000000000C3"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func testSyncer(t *testing.T) (*Syncer, *config.Config) {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	return New(cfg, zaptest.NewLogger(t)), cfg
}

func manifestServer(t *testing.T, m Manifest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(m))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sampleManifest() Manifest {
	return Manifest{
		CodeJar: codeJarAddr,
		Contracts: map[string]ManifestEntry{
			"TransferActions": {Address: transferAddr},
			"Paycall":         {Address: paycallAddr},
		},
	}
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRunFromURL(t *testing.T) {
	s, cfg := testSyncer(t)
	srv := manifestServer(t, sampleManifest())

	changes, err := s.Run(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, changes, 3)
	assert.Equal(t, "code_jar", changes[0].Key)
	assert.Equal(t, "deployments.Paycall", changes[1].Key)
	assert.Equal(t, "deployments.TransferActions", changes[2].Key)

	assert.Equal(t, codeJarAddr, cfg.CodeJar)
	assert.Equal(t, transferAddr, cfg.Deployments["TransferActions"])
	assert.NotEmpty(t, cfg.LastSynced)

	reloaded, err := config.Load(cfg.Dir())
	require.NoError(t, err)
	assert.Equal(t, paycallAddr, reloaded.Deployments["Paycall"], "sync saves the config")
}

func TestRunIsIdempotent(t *testing.T) {
	s, _ := testSyncer(t)
	srv := manifestServer(t, sampleManifest())

	_, err := s.Run(context.Background(), srv.URL)
	require.NoError(t, err)
	changes, err := s.Run(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestRunFromYAMLFile(t *testing.T) {
	s, cfg := testSyncer(t)
	path := filepath.Join(t.TempDir(), "deployments.yaml")
	require.NoError(t, os.WriteFile(path, []byte("contracts:\n  TransferActions:\n    address: "+transferAddr+"\n"), 0o600))

	changes, err := s.Run(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, transferAddr, cfg.Deployments["TransferActions"])
}

func TestRunUsesConfiguredSource(t *testing.T) {
	s, cfg := testSyncer(t)
	srv := manifestServer(t, sampleManifest())
	require.NoError(t, cfg.Set("sync_source", srv.URL))

	_, err := s.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, codeJarAddr, cfg.CodeJar)
}

func TestRunNoSource(t *testing.T) {
	s, _ := testSyncer(t)
	_, err := s.Run(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestRunRejectsUnknownScript(t *testing.T) {
	s, cfg := testSyncer(t)
	m := sampleManifest()
	m.Contracts["MysteryActions"] = ManifestEntry{Address: transferAddr}
	srv := manifestServer(t, m)

	_, err := s.Run(context.Background(), srv.URL)
	assert.ErrorIs(t, err, scripts.ErrUnknownScript)
	assert.Empty(t, cfg.Deployments, "nothing applied from an invalid manifest")
}

func TestRunRejectsBadAddress(t *testing.T) {
	s, cfg := testSyncer(t)
	m := sampleManifest()
	m.Contracts["Quotecall"] = ManifestEntry{Address: "0x1234"}
	srv := manifestServer(t, m)

	_, err := s.Run(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.NotEqual(t, codeJarAddr, cfg.CodeJar)
}

func TestRunRejectsEmptyManifest(t *testing.T) {
	s, _ := testSyncer(t)
	srv := manifestServer(t, Manifest{})

	_, err := s.Run(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "no code_jar or contracts")
}

func TestRunHTTPError(t *testing.T) {
	s, _ := testSyncer(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := s.Run(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "404")
}

func TestRunBadJSON(t *testing.T) {
	s, _ := testSyncer(t)
	path := filepath.Join(t.TempDir(), "deployments.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := s.Run(context.Background(), path)
	assert.ErrorContains(t, err, "parsing manifest")
}

// ---------------------------------------------------------------------------
// Watch
// ---------------------------------------------------------------------------

func TestWatchStopsOnCancel(t *testing.T) {
	s, _ := testSyncer(t)
	srv := manifestServer(t, sampleManifest())

	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, srv.URL, 10*time.Millisecond, func([]Change) { calls++ })
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
	assert.Equal(t, 1, calls, "unchanged manifests do not report again")
}

func TestWatchFirstRunError(t *testing.T) {
	s, _ := testSyncer(t)
	err := s.Watch(context.Background(), "", time.Second, func([]Change) {})
	assert.ErrorIs(t, err, ErrNoSource)
}
