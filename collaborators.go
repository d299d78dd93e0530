package vapor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FormCompiler is the external collaborator from spec.md section 4.10:
// given a typed record description, it produces a render root that emits
// inputs consistent with the field types, honors validation annotations,
// and dispatches a typed submission callback. It interacts with the core
// only through the builder surface, never by reaching into the tree or
// arenas directly.
type FormCompiler interface {
	// Compile returns a RenderRoot that builds the form's inputs and wires
	// their on_event_ctx submission handlers, given a schema (field name
	// to a kind-appropriate placeholder/validation description) and a
	// callback invoked with the submitted field values.
	Compile(schema []FormField, onSubmit func(values Object) error) RenderRoot
}

// FormField describes one input the FormCompiler must emit.
type FormField struct {
	Name        string
	InputType   string
	Placeholder string
	Required    bool
}

// MarkdownCompiler is the external collaborator from spec.md section 4.10:
// it parses a string into a sequence of builder calls (headings,
// paragraphs, lists, code, and placeholders for embedded components),
// interacting only through the builder surface.
type MarkdownCompiler interface {
	Compile(source string) RenderRoot
}

// ThemeDef is one entry of the `themes: [(name, colors, default?)]` config
// shape from spec.md section 6.
type ThemeDef struct {
	Name    string
	Colors  map[string]string
	Default bool
}

// ThemeRegistry resolves semantic style tokens against the active theme
// (spec.md section 4.10: "style field resolution consults the active
// theme when a field is a token"), persist-arena-backed in spirit — the
// reference implementation below keeps its table in a plain map since Go
// structs already live on the GC heap, and documents the persist-arena
// relationship through its lifetime (constructed once at Engine
// construction, never reset).
type ThemeRegistry interface {
	Resolve(token string) (string, bool)
	Active() string
	SetActive(name string) error
	Names() []string
}

// yamlThemeRegistry is the bundled reference ThemeRegistry, backed by
// gopkg.in/yaml.v3 for loading designer-authored theme files — themes are
// realistically hand-edited data, not Go literals, the same reasoning that
// leads src.elv.sh to reach for yaml.v3 for its own configuration surface.
type yamlThemeRegistry struct {
	themes map[string]map[string]string
	order  []string
	active string
}

// NewThemeRegistry builds a registry from literal ThemeDefs (spec.md
// section 6's Config.themes), selecting the last theme marked Default, or
// the first registered theme if none is.
func NewThemeRegistry(defs ...ThemeDef) ThemeRegistry {
	r := &yamlThemeRegistry{themes: make(map[string]map[string]string)}
	for _, d := range defs {
		r.themes[d.Name] = d.Colors
		r.order = append(r.order, d.Name)
		if d.Default || r.active == "" {
			r.active = d.Name
		}
	}
	return r
}

// LoadThemeRegistryYAML parses a YAML document of the shape
//
//	themes:
//	  light:
//	    background: "#ffffff"
//	    text: "#111111"
//	  dark:
//	    default: true
//	    background: "#111111"
//	    text: "#eeeeee"
//
// into a ThemeRegistry, for hosts that keep theme definitions in a file on
// disk rather than as Go literals.
func LoadThemeRegistryYAML(path string) (ThemeRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vapor: reading theme file: %w", err)
	}
	var doc struct {
		Themes map[string]map[string]string `yaml:"themes"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("vapor: parsing theme file: %w", err)
	}
	r := &yamlThemeRegistry{themes: make(map[string]map[string]string)}
	for name, fields := range doc.Themes {
		colors := make(map[string]string, len(fields))
		isDefault := false
		for k, v := range fields {
			if k == "default" && v == "true" {
				isDefault = true
				continue
			}
			colors[k] = v
		}
		r.themes[name] = colors
		r.order = append(r.order, name)
		if isDefault || r.active == "" {
			r.active = name
		}
	}
	return r, nil
}

func (r *yamlThemeRegistry) Resolve(token string) (string, bool) {
	fields, ok := r.themes[r.active]
	if !ok {
		return "", false
	}
	v, ok := fields[token]
	return v, ok
}

func (r *yamlThemeRegistry) Active() string { return r.active }

func (r *yamlThemeRegistry) SetActive(name string) error {
	if _, ok := r.themes[name]; !ok {
		return fmt.Errorf("%w: theme %q", ErrRouteNotFound, name)
	}
	r.active = name
	return nil
}

func (r *yamlThemeRegistry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// IconRegistry maps semantic icon tokens to concrete values (spec.md
// section 4.10), the icon analogue of ThemeRegistry.
type IconRegistry interface {
	Icon(token string) (Value, bool)
}

// MapIconRegistry is a minimal IconRegistry backed by a plain map, enough
// for tests and hosts that do not need file-backed icon definitions.
type MapIconRegistry map[string]Value

func (m MapIconRegistry) Icon(token string) (Value, bool) {
	v, ok := m[token]
	return v, ok
}
