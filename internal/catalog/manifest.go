package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/nodeflow/internal/versioning"
	"github.com/shaiso/nodeflow/internal/xjson"
)

// ErrInvalidManifest — манифест расширений не прошёл проверку.
var ErrInvalidManifest = errors.New("invalid extension manifest")

// Manifest — файл с описаниями нод-расширений.
//
// Пример:
//
//	nodes:
//	  - id: slack-post
//	    name: Slack Message
//	    description: Post a message to a channel
//	    category: http
//	    iconGlyph: 💬
//	    version: 1.2.0
//	    tags: [chat]
//	    minSdkVersion: 1.0.0
type Manifest struct {
	Nodes []ManifestNode `json:"nodes" yaml:"nodes"`
}

// ManifestNode — описание расширения вместе с ограничениями версий.
type ManifestNode struct {
	Entry             `yaml:",inline"`
	versioning.Bounds `yaml:",inline"`
}

// ParseManifest читает манифест в формате YAML (JSON — частный случай YAML).
func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifestFile читает манифест из файла. Файлы .json разбираются
// JSON-декодером, остальные — YAML.
func LoadManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var m Manifest
		if err := xjson.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
		}
		if err := m.validate(); err != nil {
			return nil, err
		}
		return &m, nil
	}
	return ParseManifest(bytes.NewReader(data))
}

func (m *Manifest) validate() error {
	seen := make(map[string]struct{}, len(m.Nodes))
	for i, n := range m.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node #%d has no id", ErrInvalidManifest, i)
		}
		if n.Name == "" {
			return fmt.Errorf("%w: node %q has no name", ErrInvalidManifest, n.ID)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %q", ErrInvalidManifest, n.ID)
		}
		seen[n.ID] = struct{}{}

		if n.Version != "" && !versioning.IsSemver(n.Version) {
			return fmt.Errorf("%w: node %q has invalid version %q", ErrInvalidManifest, n.ID, n.Version)
		}
	}
	return nil
}

// Entries превращает манифест в описания расширений.
// Для нод с ограничениями версий вычисляется совместимость с vctx.
func (m *Manifest) Entries(vctx versioning.Context) []Entry {
	if vctx.SDKVersion == "" {
		vctx.SDKVersion = versioning.DefaultNodeSDKVersion
	}

	out := make([]Entry, 0, len(m.Nodes))
	for _, n := range m.Nodes {
		e := n.Entry
		e.Source = SourceExtension
		e.Compatibility = nil
		if !n.Bounds.IsZero() {
			compat := versioning.CheckNodeCompatibility(n.Bounds, vctx)
			e.Compatibility = &compat
		}
		out = append(out, e)
	}
	return out
}

// LoadExtensions читает манифест и регистрирует его ноды в каталоге.
// Возвращает число принятых описаний.
func (c *Catalog) LoadExtensions(path string, vctx versioning.Context) (int, error) {
	m, err := LoadManifestFile(path)
	if err != nil {
		return 0, err
	}
	entries := m.Entries(vctx)
	accepted := c.RegisterAll(entries)
	if skipped := len(entries) - accepted; skipped > 0 {
		c.logger.Warn("extensions skipped", "path", path, "skipped", skipped)
	}
	c.logger.Info("extensions loaded", "path", path, "count", accepted)
	return accepted, nil
}
