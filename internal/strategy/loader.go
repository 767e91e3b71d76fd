package strategy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wonny/screener/backend/internal/contracts"
)

// Load reads one strategy YAML file and validates it.
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates strategy YAML bytes
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&cfg); err != nil {
		return nil, contracts.InvalidStrategyConfig("yaml", err.Error())
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Hash generates the SHA256 fingerprint of a Config (canonical JSON).
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// Registry holds named strategies: built-in presets plus any YAML files
// found in the strategy directory. A file whose name matches a preset
// overrides it.
type Registry struct {
	byName map[string]*Config
}

// NewRegistry builds a registry from the presets and the given directory.
// dir may be empty or missing; presets alone are fine.
func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{byName: map[string]*Config{}}
	for _, preset := range []*Config{Default(), VolumeBreakout()} {
		r.byName[preset.Name] = preset
	}

	if dir == "" {
		return r, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		cfg, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("strategy file %s: %w", e.Name(), err)
		}
		r.byName[cfg.Name] = cfg
	}
	return r, nil
}

// Get returns the named strategy
func (r *Registry) Get(name string) (*Config, error) {
	cfg, ok := r.byName[name]
	if !ok {
		return nil, contracts.InvalidStrategyConfig("name", fmt.Sprintf("unknown strategy %q", name))
	}
	return cfg, nil
}

// Names returns registered strategy names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
