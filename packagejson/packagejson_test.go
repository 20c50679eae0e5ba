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

package packagejson_test

import (
	"testing"

	"github.com/TTalkPro/shadow-npm/packagejson"
	"github.com/TTalkPro/shadow-npm/testutil"
)

func TestParseFixture(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "packagejson/kitchen-sink", "/test/node_modules/kitchen-sink")

	data, err := mfs.ReadFile("/test/node_modules/kitchen-sink/package.json")
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}

	pkg, err := packagejson.Parse("/test/node_modules/kitchen-sink", data, nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if pkg.Name != "kitchen-sink" || pkg.Version != "2.1.0" {
		t.Errorf("Name/Version = %q/%q", pkg.Name, pkg.Version)
	}
	if !pkg.HasExports {
		t.Fatal("Expected exports")
	}
	if _, ok := pkg.ExportsExact["./package.json"]; !ok {
		t.Error("Expected exact ./package.json entry")
	}
	if len(pkg.ExportsPrefix) != 1 || pkg.ExportsPrefix[0].Prefix != "./utils/" {
		t.Errorf("ExportsPrefix = %+v", pkg.ExportsPrefix)
	}
	if len(pkg.ExportsWildcard) != 1 {
		t.Errorf("ExportsWildcard = %+v", pkg.ExportsWildcard)
	}
	if got := pkg.BrowserOverrides["fs"]; got != "memfs" {
		t.Errorf("BrowserOverrides[fs] = %v", got)
	}
	if _, ok := pkg.Imports["#io"]; !ok {
		t.Error("Expected #io import")
	}

	root := pkg.ExportsExact["."]
	target, ok := packagejson.FindReplacement(root, []string{"browser", "require", "default"})
	if !ok || target != "./lib/browser.js" {
		t.Errorf("Root export = %q, %v", target, ok)
	}
}

func TestParseBasics(t *testing.T) {
	pkg, err := packagejson.Parse("/test/node_modules/demo", []byte(`{
		"name": "demo",
		"version": "1.2.3",
		"main": "lib/index.js",
		"dependencies": {"react": "^18.0.0", "lodash": "^4.0.0"}
	}`), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if pkg.Name != "demo" {
		t.Errorf("Name = %q, want demo", pkg.Name)
	}
	if pkg.Version != "1.2.3" {
		t.Errorf("Version = %q, want 1.2.3", pkg.Version)
	}
	if pkg.ID != "/test/node_modules/demo@1.2.3" {
		t.Errorf("ID = %q", pkg.ID)
	}
	if _, ok := pkg.Dependencies["react"]; !ok {
		t.Error("Expected react in dependencies")
	}
	if main, ok := pkg.Entry("main"); !ok || main != "lib/index.js" {
		t.Errorf("Entry(main) = %q, %v", main, ok)
	}
	if pkg.HasExports {
		t.Error("Expected no exports")
	}
}

func TestParseBrowserString(t *testing.T) {
	pkg, err := packagejson.Parse("/p", []byte(`{"name":"p","browser":"browser.js"}`), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if pkg.Browser != "browser.js" {
		t.Errorf("Browser = %q", pkg.Browser)
	}
	if pkg.BrowserOverrides != nil {
		t.Error("Expected no browser overrides")
	}
}

func TestParseBrowserObject(t *testing.T) {
	pkg, err := packagejson.Parse("/p", []byte(`{
		"name": "p",
		"browser": {"fs": "memfs", "./debug.js": false}
	}`), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if pkg.Browser != "" {
		t.Errorf("Browser = %q, want empty", pkg.Browser)
	}
	if got := pkg.BrowserOverrides["fs"]; got != "memfs" {
		t.Errorf("BrowserOverrides[fs] = %v", got)
	}
	if got := pkg.BrowserOverrides["./debug.js"]; got != false {
		t.Errorf("BrowserOverrides[./debug.js] = %v", got)
	}
	// The object form must never be consulted as a main entry.
	if _, ok := pkg.Entry("browser"); ok {
		t.Error("browser key should be stripped from JSON when it is an object")
	}
}

func TestExportsString(t *testing.T) {
	pkg, err := packagejson.Parse("/p", []byte(`{"name":"p","exports":"./index.js"}`), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !pkg.HasExports {
		t.Fatal("Expected exports")
	}
	value, ok := pkg.ExportsExact["."]
	if !ok {
		t.Fatal("Expected exact entry for .")
	}
	if value.Kind != packagejson.ValueString || value.Str != "./index.js" {
		t.Errorf("Unexpected value %+v", value)
	}
}

func TestExportsPathMap(t *testing.T) {
	pkg, err := packagejson.Parse("/p", []byte(`{
		"name": "p",
		"exports": {
			".": "./index.js",
			"./lib/": "./src/",
			"./lib/deep/": "./src/deep/",
			"./feat/*.js": "./src/feat/*.js",
			"./raw/*": "./src/raw/*"
		}
	}`), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if _, ok := pkg.ExportsExact["."]; !ok {
		t.Error("Expected exact entry for .")
	}

	if len(pkg.ExportsPrefix) != 2 {
		t.Fatalf("Expected 2 prefix entries, got %d", len(pkg.ExportsPrefix))
	}
	// Longest prefix first.
	if pkg.ExportsPrefix[0].Prefix != "./lib/deep/" {
		t.Errorf("Prefix order wrong: %q first", pkg.ExportsPrefix[0].Prefix)
	}

	if len(pkg.ExportsWildcard) != 2 {
		t.Fatalf("Expected 2 wildcard entries, got %d", len(pkg.ExportsWildcard))
	}
	feat := pkg.ExportsWildcard[0]
	if feat.Prefix != "./feat/" || !feat.HasSuffix || feat.Suffix != ".js" {
		t.Errorf("Unexpected wildcard entry %+v", feat)
	}
	raw := pkg.ExportsWildcard[1]
	if raw.Prefix != "./raw/" || raw.HasSuffix {
		t.Errorf("Wildcard with trailing * should have no suffix: %+v", raw)
	}
}

func TestExportsRootConditionMap(t *testing.T) {
	pkg, err := packagejson.Parse("/p", []byte(`{
		"name": "p",
		"exports": {"browser": "./browser.js", "require": "./cjs.js", "default": "./esm.js"}
	}`), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	value, ok := pkg.ExportsExact["."]
	if !ok || value.Kind != packagejson.ValueMap {
		t.Fatalf("Expected root condition map at ., got %+v", value)
	}
	// Authored order must be preserved.
	if value.Cond[0].Name != "browser" || value.Cond[2].Name != "default" {
		t.Errorf("Condition order not preserved: %+v", value.Cond)
	}
}

func TestExportsInvalidShape(t *testing.T) {
	pkg, err := packagejson.Parse("/p", []byte(`{"name":"p","exports":42}`), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if pkg.HasExports {
		t.Error("Invalid exports shape should be ignored")
	}
}

func TestImports(t *testing.T) {
	pkg, err := packagejson.Parse("/p", []byte(`{
		"name": "p",
		"imports": {"#dep": {"browser": "./shim.js", "default": "./dep.js"}}
	}`), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	value, ok := pkg.Imports["#dep"]
	if !ok {
		t.Fatal("Expected #dep import")
	}
	got, ok := packagejson.FindReplacement(value, []string{"browser", "default"})
	if !ok || got != "./shim.js" {
		t.Errorf("FindReplacement = %q, %v", got, ok)
	}
}

func TestFindReplacement(t *testing.T) {
	conditions := []string{"browser", "require", "default"}

	t.Run("string", func(t *testing.T) {
		got, ok := packagejson.FindReplacement(packagejson.Value{Kind: packagejson.ValueString, Str: "./a.js"}, conditions)
		if !ok || got != "./a.js" {
			t.Errorf("got %q, %v", got, ok)
		}
	})

	t.Run("array returns first string", func(t *testing.T) {
		value := packagejson.Value{Kind: packagejson.ValueArray, Arr: []packagejson.Value{
			{Kind: packagejson.ValueInvalid},
			{Kind: packagejson.ValueString, Str: "./b.js"},
			{Kind: packagejson.ValueString, Str: "./c.js"},
		}}
		got, ok := packagejson.FindReplacement(value, conditions)
		if !ok || got != "./b.js" {
			t.Errorf("got %q, %v", got, ok)
		}
	})

	t.Run("condition map picks configured order", func(t *testing.T) {
		value := packagejson.Value{Kind: packagejson.ValueMap, Cond: []packagejson.Condition{
			{Name: "import", Value: packagejson.Value{Kind: packagejson.ValueString, Str: "./esm.js"}},
			{Name: "require", Value: packagejson.Value{Kind: packagejson.ValueString, Str: "./cjs.js"}},
		}}
		got, ok := packagejson.FindReplacement(value, conditions)
		if !ok || got != "./cjs.js" {
			t.Errorf("got %q, %v", got, ok)
		}
	})

	t.Run("nested condition map", func(t *testing.T) {
		value := packagejson.Value{Kind: packagejson.ValueMap, Cond: []packagejson.Condition{
			{Name: "browser", Value: packagejson.Value{Kind: packagejson.ValueMap, Cond: []packagejson.Condition{
				{Name: "default", Value: packagejson.Value{Kind: packagejson.ValueString, Str: "./nested.js"}},
			}}},
		}}
		got, ok := packagejson.FindReplacement(value, conditions)
		if !ok || got != "./nested.js" {
			t.Errorf("got %q, %v", got, ok)
		}
	})

	t.Run("no condition matches", func(t *testing.T) {
		value := packagejson.Value{Kind: packagejson.ValueMap, Cond: []packagejson.Condition{
			{Name: "node", Value: packagejson.Value{Kind: packagejson.ValueString, Str: "./node.js"}},
		}}
		if _, ok := packagejson.FindReplacement(value, conditions); ok {
			t.Error("Expected no match")
		}
	})
}

func TestParseJSONC(t *testing.T) {
	pkg, err := packagejson.Parse("/p", []byte(`{
		// commented manifest
		"name": "p",
	}`), nil)
	if err != nil {
		t.Fatalf("Parse failed on JSONC input: %v", err)
	}
	if pkg.Name != "p" {
		t.Errorf("Name = %q", pkg.Name)
	}
}
