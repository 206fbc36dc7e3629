// Package sync pulls script deployment addresses from a published manifest
// into the config, so decoded calls name scripts deployed outside the
// default CodeJar.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Mohsinsiddi/quarkcheck/internal/config"
	"github.com/Mohsinsiddi/quarkcheck/internal/scripts"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrNoSource is returned when neither an argument nor sync_source names a
// manifest.
var ErrNoSource = errors.New("no sync source configured; run: quarkcheck config set sync_source <url or file>")

// Manifest is the structure of a deployments manifest (JSON, or YAML when
// the source ends in .yaml/.yml).
type Manifest struct {
	CodeJar   string                   `json:"code_jar" yaml:"code_jar"`
	Contracts map[string]ManifestEntry `json:"contracts" yaml:"contracts"`
}

// ManifestEntry is a single script deployment.
type ManifestEntry struct {
	Address string `json:"address" yaml:"address"`
}

// Change is one config key a sync rewrote.
type Change struct {
	Key, Old, New string
}

// Syncer fetches manifests and applies them to a config.
type Syncer struct {
	cfg    *config.Config
	log    *zap.Logger
	client *http.Client
}

// New creates a Syncer writing into cfg.
func New(cfg *config.Config, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{
		cfg:    cfg,
		log:    log,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Run fetches the manifest at source (sync_source when empty), applies it
// and saves the config. Nothing is written when the manifest is invalid.
func (s *Syncer) Run(ctx context.Context, source string) ([]Change, error) {
	if source == "" {
		source = s.cfg.SyncSource
	}
	if source == "" {
		return nil, ErrNoSource
	}

	m, err := s.fetchManifest(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}
	updates, err := m.settings()
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", source, err)
	}

	var changes []Change
	for _, kv := range updates {
		old, _ := s.cfg.Get(kv[0])
		if strings.EqualFold(old, kv[1]) {
			continue
		}
		if err := s.cfg.Set(kv[0], kv[1]); err != nil {
			return nil, err
		}
		changes = append(changes, Change{Key: kv[0], Old: old, New: kv[1]})
	}

	s.cfg.LastSynced = time.Now().UTC().Format(time.RFC3339)
	if err := s.cfg.Save(); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}
	s.log.Info("deployments synced", zap.String("source", source), zap.Int("changes", len(changes)))
	return changes, nil
}

// Watch runs Run on a ticker until ctx is cancelled. Only the first run's
// error is returned; later failures are logged.
func (s *Syncer) Watch(ctx context.Context, source string, interval time.Duration, onChange func([]Change)) error {
	changes, err := s.Run(ctx, source)
	if err != nil {
		return err
	}
	onChange(changes)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			changes, err := s.Run(ctx, source)
			if err != nil {
				s.log.Warn("sync failed", zap.String("source", source), zap.Error(err))
				continue
			}
			if len(changes) > 0 {
				onChange(changes)
			}
		}
	}
}

// settings validates the manifest and returns the config keys it sets,
// code_jar first, then scripts by name.
func (m *Manifest) settings() ([][2]string, error) {
	var out [][2]string
	if m.CodeJar != "" {
		out = append(out, [2]string{"code_jar", m.CodeJar})
	}
	names := make([]string, 0, len(m.Contracts))
	for name := range m.Contracts {
		if _, err := scripts.Get(name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if m.Contracts[name].Address == "" {
			return nil, fmt.Errorf("%s: missing address", name)
		}
		out = append(out, [2]string{"deployments." + name, m.Contracts[name].Address})
	}
	if len(out) == 0 {
		return nil, errors.New("no code_jar or contracts")
	}

	// Validate every value before any is applied.
	probe := &config.Config{}
	for _, kv := range out {
		if err := probe.Set(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Syncer) fetchManifest(ctx context.Context, source string) (*Manifest, error) {
	var body []byte
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GET %s: %s", source, resp.Status)
		}
		if body, err = io.ReadAll(resp.Body); err != nil {
			return nil, err
		}
	} else {
		var err error
		if body, err = os.ReadFile(source); err != nil {
			return nil, err
		}
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(source)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("parsing manifest: %w", err)
		}
	default:
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("parsing manifest: %w", err)
		}
	}
	return &m, nil
}
