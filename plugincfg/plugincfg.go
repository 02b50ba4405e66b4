// Package plugincfg reads the JSON configuration blobs the host exposes
// during plugin startup. The VM configuration is read during the VM start
// event and the plugin configuration during the configure event; outside
// those events the host may not expose the buffers.
package plugincfg

import (
	"github.com/tidwall/gjson"

	"github.com/wasmgate/proxyguest/host"
	"github.com/wasmgate/proxyguest/types"
)

// Config wraps a configuration payload for path-based lookups. Paths use
// dotted syntax ("limits.max_connections", "upstreams.0.name").
type Config struct {
	raw []byte
}

// LoadPlugin reads the plugin configuration buffer. size is the length
// announced by the configure event. A host with no configuration for the
// plugin yields an empty Config, not an error.
func LoadPlugin(c *host.Calls, size int) (*Config, error) {
	return load(c, types.BufferTypePluginConfiguration, size)
}

// LoadVM reads the VM-wide configuration buffer. size is the length
// announced by the VM start event.
func LoadVM(c *host.Calls, size int) (*Config, error) {
	return load(c, types.BufferTypeVMConfiguration, size)
}

func load(c *host.Calls, bufferType types.BufferType, size int) (*Config, error) {
	if size == 0 {
		return &Config{}, nil
	}
	data, err := c.GetBuffer(bufferType, 0, size)
	if err != nil {
		return nil, err
	}
	return &Config{raw: data.Bytes()}, nil
}

// Parse wraps an already-fetched payload.
func Parse(raw []byte) *Config {
	return &Config{raw: raw}
}

// Raw returns the unparsed payload.
func (c *Config) Raw() []byte { return c.raw }

// IsEmpty reports whether the host supplied any configuration at all.
func (c *Config) IsEmpty() bool { return len(c.raw) == 0 }

// Valid reports whether the payload parses as JSON.
func (c *Config) Valid() bool { return gjson.ValidBytes(c.raw) }

// Get resolves a path to its raw result for callers that need types
// beyond the shorthand accessors.
func (c *Config) Get(path string) gjson.Result {
	return gjson.GetBytes(c.raw, path)
}

// Exists reports whether a path is present.
func (c *Config) Exists(path string) bool {
	return c.Get(path).Exists()
}

// String returns the string at path, or fallback when absent.
func (c *Config) String(path, fallback string) string {
	if r := c.Get(path); r.Exists() {
		return r.String()
	}
	return fallback
}

// Int returns the integer at path, or fallback when absent.
func (c *Config) Int(path string, fallback int64) int64 {
	if r := c.Get(path); r.Exists() {
		return r.Int()
	}
	return fallback
}

// Bool returns the boolean at path, or fallback when absent.
func (c *Config) Bool(path string, fallback bool) bool {
	if r := c.Get(path); r.Exists() {
		return r.Bool()
	}
	return fallback
}

// Strings returns the array of strings at path. Missing paths and
// non-array values yield nil.
func (c *Config) Strings(path string) []string {
	r := c.Get(path)
	if !r.IsArray() {
		return nil
	}
	items := r.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}
