package confloader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix prefixes every environment variable the loader reads.
const DefaultEnvPrefix = "MESHP2P_"

// Loader merges configuration layers into a struct with koanf tags.
// Later layers win: file, then environment, then overrides.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides map[string]any
	loaded    bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix replaces DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile adds a YAML file as the lowest layer.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// WithOverrides adds values on top of every other layer, keyed by dotted
// path ("mesh.rpc_addr"). Command line flags arrive this way.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) { l.overrides = values }
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the file layer, or "".
func (l *Loader) FilePath() string { return l.filePath }

// IsLoaded reports whether Load has succeeded at least once.
func (l *Loader) IsLoaded() bool { return l.loaded }

type layer struct {
	name     string
	provider koanf.Provider
	parser   koanf.Parser
}

func (l *Loader) layers() []layer {
	var out []layer
	if l.filePath != "" {
		out = append(out, layer{"file " + l.filePath, file.Provider(l.filePath), yaml.Parser()})
	}
	out = append(out, layer{"env", l.envProvider(), nil})
	if len(l.overrides) > 0 {
		out = append(out, layer{"overrides", mapProvider(l.overrides), nil})
	}
	return out
}

// Load builds the merged configuration and decodes it into target.
// Fields no layer mentions keep the value target already holds. On error
// the previously loaded state is left untouched.
func (l *Loader) Load(target any) error {
	k := koanf.New(".")
	for _, ly := range l.layers() {
		if err := k.Load(ly.provider, ly.parser); err != nil {
			return fmt.Errorf("load %s: %w", ly.name, err)
		}
	}
	if err := k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	l.k = k
	l.loaded = true
	return nil
}

// Reload rereads every layer into target. It is Load under the name the
// config watcher uses.
func (l *Loader) Reload(target any) error {
	return l.Load(target)
}

// LoadFile merges a single YAML file into the current state.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadMap merges dotted-key values into the current state.
func (l *Loader) LoadMap(data map[string]any) error {
	return l.k.Load(mapProvider(data), nil)
}

// envProvider maps MESHP2P_SECTION_SOME_KEY to section.some_key. Values
// holding a comma decode as lists.
func (l *Loader) envProvider() koanf.Provider {
	return env.ProviderWithValue(l.envPrefix, ".", func(name, value string) (string, any) {
		key := EnvKey(l.envPrefix, name)
		if !strings.Contains(value, ",") {
			return key, value
		}
		items := strings.Split(value, ",")
		for i, item := range items {
			items[i] = strings.TrimSpace(item)
		}
		return key, items
	})
}

// EnvKey maps an environment variable name to its dotted key. Only the
// first underscore after the prefix splits, so keys keep theirs.
func EnvKey(prefix, name string) string {
	section, key, ok := strings.Cut(strings.ToLower(strings.TrimPrefix(name, prefix)), "_")
	if !ok {
		return section
	}
	return section + "." + key
}

func (l *Loader) GetString(key string) string { return l.k.String(key) }

func (l *Loader) GetInt(key string) int { return l.k.Int(key) }

func (l *Loader) Keys() []string { return l.k.Keys() }

// mapProvider serves an in-memory map of dotted keys.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("confloader: map provider has no byte form")
}

func (m mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(m, "."), nil
}
