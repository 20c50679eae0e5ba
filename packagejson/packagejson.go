/*
Copyright © 2026 TTalkPro

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package packagejson provides parsing, normalization and caching for
// package.json files.
package packagejson

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
)

// Logger is the minimal logging interface the parser reports
// non-fatal conditions through.
type Logger interface {
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

// Package is the normalized in-memory view of a package.json and its
// location on disk. It is immutable after construction; the With*
// helpers return stamped shallow copies so cached records can be shared
// between resolutions.
type Package struct {
	// Name is the "name" field. It may not uniquely identify the
	// package on disk when the same package is installed several times.
	Name string

	// ID is "<absolute-package-dir>@<version>", unique across nested
	// installs. It is the only reliable equality key for "same package
	// instance".
	ID string

	// Dir is the absolute directory containing the package.json.
	Dir string

	// Version is the "version" field.
	Version string

	// JSON is the full parsed object. When "browser" is an object it is
	// stripped from here so it is never consulted as a main entry.
	JSON map[string]any

	// Dependencies holds the keys of "dependencies".
	Dependencies map[string]struct{}

	// Browser is the "browser" field when it is a string (main override).
	Browser string

	// BrowserOverrides is the "browser" field when it is an object.
	// Values are either a replacement string or false (disabled).
	BrowserOverrides map[string]any

	// ExportsExact maps exact subpaths (".", "./foo") to their match value.
	ExportsExact map[string]Value

	// ExportsPrefix holds entries whose key ends with "/", sorted by
	// descending prefix length.
	ExportsPrefix []PrefixExport

	// ExportsWildcard holds entries whose key contains a single "*",
	// sorted by descending prefix length.
	ExportsWildcard []WildcardExport

	// HasExports is true when any of the three exports tables is
	// non-empty. Such a package is closed to external callers.
	HasExports bool

	// Imports maps "#name" keys of the "imports" field to their value.
	Imports map[string]Value

	// JsPackageDir is the configured package root this record was
	// discovered under. Nested packages inherit it.
	JsPackageDir string

	// Parent links a nested package.json record back to the enclosing
	// package. Upward-only lookup relation.
	Parent *Package

	// MatchName is the require prefix that located this record, set by
	// the package locator.
	MatchName string
}

// PrefixExport is an exports entry whose key ends with "/".
type PrefixExport struct {
	Prefix string
	Match  Value
}

// WildcardExport is an exports entry whose key contains "*". Suffix is
// only meaningful when HasSuffix is set; HasSuffix is false iff the "*"
// was the final character of the key.
type WildcardExport struct {
	Prefix    string
	Suffix    string
	HasSuffix bool
	Match     Value
}

// WithMatchName returns a copy of the package stamped with the require
// prefix that located it.
func (p *Package) WithMatchName(name string) *Package {
	c := *p
	c.MatchName = name
	return &c
}

// WithContext returns a copy of the package stamped with a parent link
// and the package root it should be associated with.
func (p *Package) WithContext(parent *Package, jsPackageDir string) *Package {
	c := *p
	c.Parent = parent
	c.JsPackageDir = jsPackageDir
	return &c
}

// SameInstance reports whether two records refer to the same package
// install. Compares IDs, never names.
func (p *Package) SameInstance(other *Package) bool {
	return other != nil && p.ID == other.ID
}

// Entry returns the string value of a package.json key, for entry-key
// lookups like "main" or "module". Non-string values are treated as
// absent.
func (p *Package) Entry(key string) (string, bool) {
	v, ok := p.JSON[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Parse parses package.json bytes found in dir. The bytes are passed
// through a JSONC filter first so commented manifests in the wild do not
// fail the whole build. Exports and imports are walked in document order
// off the raw JSON because conditional maps are order-sensitive.
func Parse(dir string, data []byte, logger Logger) (*Package, error) {
	clean := jsonc.ToJSON(data)

	var obj map[string]any
	if err := json.Unmarshal(clean, &obj); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Join(dir, "package.json"), err)
	}

	pkg := &Package{
		Dir:          dir,
		JSON:         obj,
		Dependencies: map[string]struct{}{},
		ExportsExact: map[string]Value{},
		Imports:      map[string]Value{},
	}

	if name, ok := obj["name"].(string); ok {
		pkg.Name = name
	}
	if version, ok := obj["version"].(string); ok {
		pkg.Version = version
	}
	pkg.ID = pkg.Dir + "@" + pkg.Version

	if deps, ok := obj["dependencies"].(map[string]any); ok {
		for name := range deps {
			pkg.Dependencies[name] = struct{}{}
		}
	}

	switch browser := obj["browser"].(type) {
	case string:
		pkg.Browser = browser
	case map[string]any:
		// An object-form "browser" is only an override table; strip it
		// so entry-key resolution never mistakes it for a main.
		pkg.BrowserOverrides = browser
		delete(obj, "browser")
	}

	root := gjson.ParseBytes(clean)
	mergeExports(pkg, root.Get("exports"), logger)
	mergeImports(pkg, root.Get("imports"))

	return pkg, nil
}
