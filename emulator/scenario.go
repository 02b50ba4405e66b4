package emulator

import (
	"fmt"
	"sort"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/wasmgate/proxyguest/bytestring"
	"github.com/wasmgate/proxyguest/types"
)

// Scenario describes host state to preload before driving a plugin,
// declared in YAML. Keys in header and property maps are applied in
// sorted order so runs are deterministic.
type Scenario struct {
	VMConfig     string            `koanf:"vm_config"`
	PluginConfig string            `koanf:"plugin_config"`
	Properties   map[string]string `koanf:"properties"`
	SharedData   map[string]string `koanf:"shared_data"`
	Queues       []string          `koanf:"queues"`
	Request      MessageState      `koanf:"request"`
	Response     MessageState      `koanf:"response"`
}

// MessageState is one direction of an HTTP exchange.
type MessageState struct {
	Headers  map[string]string `koanf:"headers"`
	Trailers map[string]string `koanf:"trailers"`
	Body     string            `koanf:"body"`
}

// LoadScenario parses a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	var s Scenario
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("decode scenario %s: %w", path, err)
	}
	return &s, nil
}

// Apply loads the scenario's state into h.
func (s *Scenario) Apply(h *Host) {
	if s.VMConfig != "" {
		h.SetBuffer(types.BufferTypeVMConfiguration, []byte(s.VMConfig))
	}
	if s.PluginConfig != "" {
		h.SetBuffer(types.BufferTypePluginConfiguration, []byte(s.PluginConfig))
	}
	for _, key := range sortedKeys(s.Properties) {
		h.SetPropertyPath(key, []byte(s.Properties[key]))
	}
	for _, key := range sortedKeys(s.SharedData) {
		h.shared[key] = &sharedEntry{value: []byte(s.SharedData[key]), cas: 1}
	}
	for _, name := range s.Queues {
		h.ProxyRegisterSharedQueue([]byte(name))
	}
	applyMessage(h, s.Request,
		types.MapTypeHTTPRequestHeaders, types.MapTypeHTTPRequestTrailers, types.BufferTypeHTTPRequestBody)
	applyMessage(h, s.Response,
		types.MapTypeHTTPResponseHeaders, types.MapTypeHTTPResponseTrailers, types.BufferTypeHTTPResponseBody)
}

func applyMessage(h *Host, m MessageState, headers, trailers types.MapType, body types.BufferType) {
	if len(m.Headers) > 0 {
		h.SetMapPairs(headers, pairsOf(m.Headers))
	}
	if len(m.Trailers) > 0 {
		h.SetMapPairs(trailers, pairsOf(m.Trailers))
	}
	if m.Body != "" {
		h.SetBuffer(body, []byte(m.Body))
	}
}

func pairsOf(m map[string]string) []bytestring.Pair {
	pairs := make([]bytestring.Pair, 0, len(m))
	for _, k := range sortedKeys(m) {
		pairs = append(pairs, bytestring.Pair{
			Key:   bytestring.FromString(k),
			Value: bytestring.FromString(m[k]),
		})
	}
	return pairs
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
