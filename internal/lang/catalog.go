package lang

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed en.yaml
var englishYAML []byte

// Catalog maps string keys to templates with {name} placeholders.
type Catalog struct {
	strings map[string]string
}

// Parse builds a Catalog from YAML mapping keys to templates.
func Parse(data []byte) (*Catalog, error) {
	m := make(map[string]string)
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse string catalog: %w", err)
	}
	return &Catalog{strings: m}, nil
}

// Load reads a catalog file and layers it over the English defaults, so a
// partial translation falls back to English for missing keys. Keys English
// does not define are rejected.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read string catalog: %w", err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c := English()
	for k, v := range override.strings {
		if !c.Has(k) {
			return nil, fmt.Errorf("string catalog %s: unknown key %q", path, k)
		}
		c.strings[k] = v
	}
	return c, nil
}

// English returns the built-in English catalog.
func English() *Catalog {
	c, err := Parse(englishYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Format renders key with args. Unknown keys render as [[key]] so missing
// strings are visible rather than silently empty.
func (c *Catalog) Format(key string, args map[string]string) string {
	tmpl, ok := c.strings[key]
	if !ok {
		return "[[" + key + "]]"
	}
	if len(args) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(args)*2)
	for name, val := range args {
		pairs = append(pairs, "{"+name+"}", val)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Has reports whether key is defined.
func (c *Catalog) Has(key string) bool {
	_, ok := c.strings[key]
	return ok
}
