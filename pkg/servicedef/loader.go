package servicedef

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/morezero/jsonrpc11/pkg/registry"
)

const logPrefix = "servicedef:loader"

// DefaultPaths are tried after any explicit paths.
var DefaultPaths = []string{"config/service.yaml", "service.yaml", "config/service.json", "service.json"}

// Load returns the first readable and parseable declaration among paths and
// DefaultPaths. When none is found it returns Default(fallbackName).
func Load(fallbackName string, paths ...string) (*Definition, error) {
	all := make([]string, 0, len(paths)+len(DefaultPaths))
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	all = append(all, DefaultPaths...)

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		def, err := Parse(p, data)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse service file %s: %v", logPrefix, p, err))
			continue
		}
		slog.Info(fmt.Sprintf("%s - Loaded service definition from %s", logPrefix, p))
		return def, nil
	}

	slog.Info(fmt.Sprintf("%s - Using default service definition", logPrefix))
	return Default(fallbackName), nil
}

// Parse decodes a declaration. Files ending in .json are decoded as JSON,
// everything else as YAML.
func Parse(path string, data []byte) (*Definition, error) {
	var def Definition
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("%s - invalid JSON: %w", logPrefix, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("%s - invalid YAML: %w", logPrefix, err)
		}
	}
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return nil, fmt.Errorf("%s - service name is required", logPrefix)
	}
	return &def, nil
}

// Default returns a declaration carrying only a name.
func Default(name string) *Definition {
	return &Definition{Name: name}
}

// StableID derives a service id from its name, stable across restarts and hosts.
func StableID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("jsonrpc:"+name)).URN()
}

// Merge returns base with every non-empty field of override applied.
func Merge(base, override *Definition) *Definition {
	merged := *base
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.ID != "" {
		merged.ID = override.ID
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	if override.Summary != "" {
		merged.Summary = override.Summary
	}
	if override.Help != "" {
		merged.Help = override.Help
	}
	if override.Address != "" {
		merged.Address = override.Address
	}
	merged.Disabled = base.Disabled || override.Disabled

	merged.Procedures = make(map[string]ProcedureDoc, len(base.Procedures)+len(override.Procedures))
	for name, doc := range base.Procedures {
		merged.Procedures[name] = doc
	}
	for name, doc := range override.Procedures {
		merged.Procedures[name] = doc
	}
	return &merged
}

// ServiceOptions converts the declaration to registry options, deriving an id
// from the name when none was declared.
func (d *Definition) ServiceOptions() registry.ServiceOptions {
	id := d.ID
	if id == "" {
		id = StableID(d.Name)
	}
	return registry.ServiceOptions{
		Name:     d.Name,
		ID:       id,
		Version:  d.Version,
		Summary:  d.Summary,
		Help:     d.Help,
		Address:  d.Address,
		Disabled: d.Disabled,
	}
}

// Document applies declared documentation to opts.
func (d *Definition) Document(opts registry.ProcedureOptions) registry.ProcedureOptions {
	doc, ok := d.Procedures[opts.Name]
	if !ok {
		return opts
	}
	if doc.Summary != "" {
		opts.Summary = doc.Summary
	}
	if doc.Help != "" {
		opts.Help = doc.Help
	}
	return opts
}
