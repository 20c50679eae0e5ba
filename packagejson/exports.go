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

package packagejson

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// ValueKind discriminates the shapes an exports/imports value can take.
type ValueKind int

const (
	// ValueInvalid marks shapes that cannot resolve (numbers, booleans, null).
	ValueInvalid ValueKind = iota
	// ValueString is a plain replacement path.
	ValueString
	// ValueArray is a fallback list of candidate values.
	ValueArray
	// ValueMap is a condition map, in authored key order.
	ValueMap
)

// Value is a normalized exports or imports value. Condition maps keep
// their authored order; hash iteration order would be incorrect here.
type Value struct {
	Kind ValueKind
	Str  string
	Arr  []Value
	Cond []Condition
}

// Condition is one entry of a condition map.
type Condition struct {
	Name  string
	Value Value
}

// valueOf converts a raw JSON result into a Value, preserving the
// document order of object keys.
func valueOf(r gjson.Result) Value {
	switch {
	case r.Type == gjson.String:
		return Value{Kind: ValueString, Str: r.String()}
	case r.IsArray():
		var arr []Value
		for _, item := range r.Array() {
			arr = append(arr, valueOf(item))
		}
		return Value{Kind: ValueArray, Arr: arr}
	case r.IsObject():
		var cond []Condition
		r.ForEach(func(key, value gjson.Result) bool {
			cond = append(cond, Condition{Name: key.String(), Value: valueOf(value)})
			return true
		})
		return Value{Kind: ValueMap, Cond: cond}
	default:
		return Value{Kind: ValueInvalid}
	}
}

// Get returns the condition map entry for name.
func (v Value) Get(name string) (Value, bool) {
	for _, c := range v.Cond {
		if c.Name == name {
			return c.Value, true
		}
	}
	return Value{}, false
}

// FindReplacement resolves an exports value against the configured
// condition list.
//
//   - strings resolve to themselves
//   - arrays resolve to the first element that recursively yields a
//     string; existence of the referenced file is not verified
//   - condition maps commit to the first configured condition present
//     and recurse on its value
//
// The second return is false when nothing matched.
func FindReplacement(v Value, conditions []string) (string, bool) {
	switch v.Kind {
	case ValueString:
		return v.Str, true
	case ValueArray:
		for _, item := range v.Arr {
			if s, ok := FindReplacement(item, conditions); ok {
				return s, true
			}
		}
		return "", false
	case ValueMap:
		for _, cond := range conditions {
			if inner, ok := v.Get(cond); ok {
				return FindReplacement(inner, conditions)
			}
		}
		return "", false
	default:
		return "", false
	}
}

// mergeExports normalizes the "exports" field into the three match
// tables on pkg. Invalid shapes are logged and ignored.
func mergeExports(pkg *Package, exports gjson.Result, logger Logger) {
	if !exports.Exists() {
		return
	}

	switch {
	case exports.Type == gjson.String || exports.IsArray():
		pkg.ExportsExact["."] = valueOf(exports)

	case exports.IsObject():
		firstKey := ""
		exports.ForEach(func(key, _ gjson.Result) bool {
			firstKey = key.String()
			return false
		})

		if !strings.HasPrefix(firstKey, ".") {
			// Root-level condition map for the main entry.
			pkg.ExportsExact["."] = valueOf(exports)
			break
		}

		exports.ForEach(func(key, value gjson.Result) bool {
			k := key.String()
			match := valueOf(value)
			switch {
			case strings.HasSuffix(k, "/"):
				pkg.ExportsPrefix = append(pkg.ExportsPrefix, PrefixExport{Prefix: k, Match: match})
			case strings.Contains(k, "*"):
				star := strings.Index(k, "*")
				if strings.Contains(k[star+1:], "*") {
					// Only a single * is supported; an entry like this
					// never matches any request.
					if logger != nil {
						logger.Warning("ignoring exports key with multiple wildcards in %s: %q", pkg.Dir, k)
					}
					return true
				}
				pkg.ExportsWildcard = append(pkg.ExportsWildcard, WildcardExport{
					Prefix:    k[:star],
					Suffix:    k[star+1:],
					HasSuffix: star != len(k)-1,
					Match:     match,
				})
			default:
				pkg.ExportsExact[k] = match
			}
			return true
		})

	default:
		if logger != nil {
			logger.Warning("ignoring invalid exports shape in %s/package.json", pkg.Dir)
		}
		return
	}

	// Longest-match-first for both ordered tables.
	sort.SliceStable(pkg.ExportsPrefix, func(i, j int) bool {
		return len(pkg.ExportsPrefix[i].Prefix) > len(pkg.ExportsPrefix[j].Prefix)
	})
	sort.SliceStable(pkg.ExportsWildcard, func(i, j int) bool {
		return len(pkg.ExportsWildcard[i].Prefix) > len(pkg.ExportsWildcard[j].Prefix)
	})

	pkg.HasExports = len(pkg.ExportsExact) > 0 ||
		len(pkg.ExportsPrefix) > 0 ||
		len(pkg.ExportsWildcard) > 0
}

// mergeImports captures the "imports" field ("#name" keys) with
// order-preserving values.
func mergeImports(pkg *Package, imports gjson.Result) {
	if !imports.IsObject() {
		return
	}
	imports.ForEach(func(key, value gjson.Result) bool {
		pkg.Imports[key.String()] = valueOf(value)
		return true
	})
}
