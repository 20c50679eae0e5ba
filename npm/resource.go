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

package npm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/TTalkPro/shadow-npm/packagejson"
)

// ResolverCacheKey identifies this resolver implementation. It is a
// component of every JS resource cache key so a resolver upgrade
// invalidates downstream caches.
const ResolverCacheKey = "shadow.npm/resolver/v2"

// ResourceKind tags the origin of a resource.
type ResourceKind string

const (
	// KindResource is a file resolved inside a package or the project.
	KindResource ResourceKind = "resource"
	// KindAsset is a non-JS file referenced from JS.
	KindAsset ResourceKind = "asset"
	// KindEmpty is the disabled-by-override placeholder.
	KindEmpty ResourceKind = "empty"
	// KindGlobal is a synthesized binding to a browser global.
	KindGlobal ResourceKind = "global"
)

// ResourceID uniquely tags a resource within a build.
type ResourceID struct {
	Kind ResourceKind `json:"kind"`
	Name string       `json:"name"`
}

// Resource describes a single resolved file in the form the downstream
// compiler consumes.
type Resource struct {
	ID           ResourceID           `json:"resource_id"`
	Name         string               `json:"resource_name"`
	OutputName   string               `json:"output_name"`
	NS           string               `json:"ns"`
	File         string               `json:"file,omitempty"`
	LastModified time.Time            `json:"last_modified,omitzero"`
	Source       []byte               `json:"-"`
	FastHash     uint64               `json:"-"`
	CacheKey     []string             `json:"cache_key"`
	Provides     []string             `json:"provides"`
	Requires     []string             `json:"requires"`
	Deps         []string             `json:"deps"`
	JSDeps       []string             `json:"js_deps,omitempty"`
	Package      *packagejson.Package `json:"-"`
	Globals      []string             `json:"globals,omitempty"`
	Type         string               `json:"type"`
	JSON         bool                 `json:"json,omitempty"`
}

// EmptyResource is returned whenever resolution is deliberately
// disabled by an override. Shared singleton; never mutate.
var EmptyResource = &Resource{
	ID:         ResourceID{Kind: KindEmpty, Name: "shadow$empty"},
	Name:       "shadow$empty.js",
	OutputName: "shadow$empty.js",
	NS:         "shadow$empty",
	Source:     []byte{},
	CacheKey:   []string{},
	Provides:   []string{"shadow$empty"},
	Requires:   []string{},
	Deps:       []string{},
	Type:       "js",
}

// JsResourceForGlobal synthesizes a resource that wires require(name)
// to an existing browser global, e.g. "jquery" to window.jQuery.
func (s *Service) JsResourceForGlobal(require string, global string) *Resource {
	ns := ModuleNameForResource("global$" + DisambiguateModuleName(require))
	return &Resource{
		ID:         ResourceID{Kind: KindGlobal, Name: require},
		Name:       ns + ".js",
		OutputName: ns + ".js",
		NS:         ns,
		Source:     []byte(fmt.Sprintf("module.exports=(%s);", global)),
		CacheKey:   []string{ResolverCacheKey, s.inspectorCacheKey()},
		Provides:   []string{ns},
		Requires:   []string{},
		Deps:       []string{},
		Globals:    []string{global},
		Type:       "js",
	}
}

// JsResourceForFile resolves a require that is pinned to a concrete
// file, preferring the minified variant in release mode.
func (s *Service) JsResourceForFile(require string, file, fileMin string) (*Resource, error) {
	picked := file
	if s.opts.Mode == ModeRelease && fileMin != "" {
		picked = fileMin
	}
	return s.FileInfo(picked)
}

// ShadowJsRequire renders the loader call for a resource, e.g.
//
//	shadow.js.require("module$node_modules$react$index", {"globals":[]})
func ShadowJsRequire(rc *Resource, semicolon bool) string {
	name := rc.NS
	if name == "" {
		name = rc.ID.Name
	}
	globals := rc.Globals
	if globals == nil {
		globals = []string{}
	}
	encoded, _ := json.Marshal(globals)
	out := fmt.Sprintf("shadow.js.require(%q, {\"globals\":%s})", name, encoded)
	if semicolon {
		out += ";"
	}
	return out
}
