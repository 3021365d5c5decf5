package providers

import (
	"sort"

	"github.com/ncecere/model_router/internal/catalog"
	"github.com/ncecere/model_router/internal/providers/providererr"
)

// Definition captures the metadata required to register a provider builder.
type Definition struct {
	Name               string
	DisplayName        string
	Description        string
	Capabilities       []string
	DefaultTemperature float64
	// RequireMaxTokens marks wire formats where max_tokens is mandatory.
	RequireMaxTokens bool
	Builder          Builder
}

var defaultDefinitions = map[string]Definition{}

// RegisterDefinition stores a provider definition so factories can resolve builders by name.
func RegisterDefinition(def Definition) {
	if def.Builder == nil {
		panic("providers: definition builder required")
	}
	def.Name = catalog.NormalizeProviderSlug(def.Name)
	if def.Name == "" {
		panic("providers: definition name required")
	}
	if def.DisplayName == "" {
		def.DisplayName = def.Name
	}
	if def.Description == "" {
		def.Description = def.DisplayName
	}
	if len(def.Capabilities) > 0 {
		caps := make([]string, len(def.Capabilities))
		copy(caps, def.Capabilities)
		sort.Strings(caps)
		def.Capabilities = caps
	}
	defaultDefinitions[def.Name] = def
	providererr.RegisterDisplayName(def.Name, def.DisplayName)
}

// DefaultDefinitions returns the registered provider definitions sorted by name.
func DefaultDefinitions() []Definition {
	defs := make([]Definition, 0, len(defaultDefinitions))
	for _, def := range defaultDefinitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs
}

// Lookup resolves a definition by name or alias ("azure", "open-router", ...).
func Lookup(name string) (Definition, bool) {
	def, ok := defaultDefinitions[catalog.NormalizeProviderSlug(name)]
	return def, ok
}

func cloneDefaultDefinitions() map[string]Definition {
	defs := make(map[string]Definition, len(defaultDefinitions))
	for name, def := range defaultDefinitions {
		defs[name] = def
	}
	return defs
}
