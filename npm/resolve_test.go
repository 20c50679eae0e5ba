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

package npm_test

import (
	"testing"

	"github.com/TTalkPro/shadow-npm/internal/mapfs"
	"github.com/TTalkPro/shadow-npm/npm"
)

// stubInspector reports no dependencies; resolver tests only care
// about file locations.
type stubInspector struct {
	report *npm.Inspect
	err    error
}

func (s stubInspector) Inspect(file string, source []byte) (*npm.Inspect, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.report != nil {
		return s.report, nil
	}
	return &npm.Inspect{JsLanguage: "ecmascript"}, nil
}

func (s stubInspector) CacheKey() string {
	return "stub/v1"
}

func newService(t *testing.T, mfs *mapfs.MapFileSystem, cfg npm.Config) *npm.Service {
	t.Helper()
	if cfg.ProjectDir == "" {
		cfg.ProjectDir = "/root"
	}
	service, err := npm.NewService(mfs, nil, stubInspector{}, cfg)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return service
}

func addPackage(mfs *mapfs.MapFileSystem, dir, manifest string, files map[string]string) {
	mfs.AddFile(dir+"/package.json", manifest, 0644)
	for name, content := range files {
		mfs.AddFile(dir+"/"+name, content, 0644)
	}
}

func TestBareMainResolution(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/pkg-a",
		`{"name":"pkg-a","version":"1.0.0","main":"lib/index.js"}`,
		map[string]string{"lib/index.js": "module.exports = 1;"})

	service := newService(t, mfs, npm.Config{})

	rc, err := service.FindResource(nil, "pkg-a")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.Name != "node_modules/pkg-a/lib/index.js" {
		t.Errorf("Name = %q", rc.Name)
	}
	if rc.NS != "module$node_modules$pkg_a$lib$index" {
		t.Errorf("NS = %q", rc.NS)
	}
	if rc.File != "/root/node_modules/pkg-a/lib/index.js" {
		t.Errorf("File = %q", rc.File)
	}
	if len(rc.Provides) != 1 || rc.Provides[0] != rc.NS {
		t.Errorf("Provides = %v", rc.Provides)
	}
	if rc.Package == nil || rc.Package.Name != "pkg-a" {
		t.Error("Expected package back-reference")
	}
}

func TestSubpathExtensionSearch(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/pkg-a",
		`{"name":"pkg-a","version":"1.0.0","main":"lib/index.js"}`,
		map[string]string{
			"lib/index.js": "",
			"util.js":      "",
		})

	service := newService(t, mfs, npm.Config{})

	rc, err := service.FindResource(nil, "pkg-a/util")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/pkg-a/util.js" {
		t.Errorf("File = %q", rc.File)
	}
}

func TestNameDisambiguation(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/object.assign",
		`{"name":"object.assign","version":"1.0.0","main":"index.js"}`,
		map[string]string{"index.js": ""})
	addPackage(mfs, "/root/node_modules/object-assign",
		`{"name":"object-assign","version":"1.0.0","main":"index.js"}`,
		map[string]string{"index.js": ""})

	service := newService(t, mfs, npm.Config{})

	dotted, err := service.FindResource(nil, "object.assign")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	dashed, err := service.FindResource(nil, "object-assign")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}

	if dotted.Name != "node_modules/object_DOT_assign/index.js" {
		t.Errorf("dotted Name = %q", dotted.Name)
	}
	if dashed.Name != "node_modules/object-assign/index.js" {
		t.Errorf("dashed Name = %q", dashed.Name)
	}
	if dotted.Name == dashed.Name || dotted.NS == dashed.NS {
		t.Error("Distinct files must get distinct names")
	}
}

func TestExportsWildcard(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/p",
		`{"name":"p","version":"1.0.0","exports":{"./feat/*.js":"./src/feat/*.js"}}`,
		map[string]string{"src/feat/alpha.js": ""})

	service := newService(t, mfs, npm.Config{})

	rc, err := service.FindResource(nil, "p/feat/alpha.js")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/p/src/feat/alpha.js" {
		t.Errorf("File = %q", rc.File)
	}

	// Without the .js suffix the wildcard does not match, and the
	// package is closed to external callers.
	_, err = service.FindResource(nil, "p/feat/alpha")
	if !npm.IsKind(err, npm.ErrExportsResolutionFailed) {
		t.Errorf("Expected exports-resolution-failed, got %v", err)
	}
}

func TestExportsBypass(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/p",
		`{"name":"p","version":"1.0.0","exports":{"./feat/*.js":"./src/feat/*.js"}}`,
		map[string]string{"src/feat/alpha.js": ""})

	service := newService(t, mfs, npm.Config{
		JsOptions: npm.Options{ExportsBypass: true},
	})

	rc, err := service.FindResource(nil, "p/src/feat/alpha")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/p/src/feat/alpha.js" {
		t.Errorf("File = %q", rc.File)
	}
}

func TestExportsConditionMap(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/q",
		`{"name":"q","version":"1.0.0","exports":{"browser":"./b.js","default":"./d.js"}}`,
		map[string]string{"b.js": "", "d.js": ""})

	service := newService(t, mfs, npm.Config{})

	rc, err := service.FindResource(nil, "q")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/q/b.js" {
		t.Errorf("File = %q, want browser condition", rc.File)
	}
}

func TestExportsSkipMissingTarget(t *testing.T) {
	mfs := mapfs.New()
	// The exact entry points at a file that does not exist; the prefix
	// entry still gets a chance.
	addPackage(mfs, "/root/node_modules/p",
		`{"name":"p","version":"1.0.0","exports":{"./x.js":"./gone.js","./":"./src/"}}`,
		map[string]string{"src/x.js": ""})

	service := newService(t, mfs, npm.Config{})

	rc, err := service.FindResource(nil, "p/x.js")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/p/src/x.js" {
		t.Errorf("File = %q", rc.File)
	}
}

func TestClosedPackageInternalRequest(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/p",
		`{"name":"p","version":"1.0.0","main":"index.js","exports":{".":"./index.js"}}`,
		map[string]string{
			"index.js":    "",
			"internal.js": "",
		})

	service := newService(t, mfs, npm.Config{})

	from, err := service.LocateFile("/root/node_modules/p/index.js")
	if err != nil {
		t.Fatalf("LocateFile failed: %v", err)
	}

	// Not exported, but the request originates inside the package.
	rc, err := service.FindResource(from, "./internal.js")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/p/internal.js" {
		t.Errorf("File = %q", rc.File)
	}
}

func TestBrowserOverrideToOtherPackage(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/consumer",
		`{"name":"consumer","version":"1.0.0","main":"index.js","browser":{"fs":"memfs"}}`,
		map[string]string{"index.js": "require('fs');"})
	addPackage(mfs, "/root/node_modules/memfs",
		`{"name":"memfs","version":"3.0.0","main":"lib/index.js"}`,
		map[string]string{"lib/index.js": ""})

	service := newService(t, mfs, npm.Config{})

	from, err := service.LocateFile("/root/node_modules/consumer/index.js")
	if err != nil {
		t.Fatalf("LocateFile failed: %v", err)
	}

	rc, err := service.FindResource(from, "fs")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/memfs/lib/index.js" {
		t.Errorf("File = %q, want memfs main", rc.File)
	}
}

func TestBrowserOverrideDisables(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/consumer",
		`{"name":"consumer","version":"1.0.0","main":"index.js","browser":{"fs":false}}`,
		map[string]string{"index.js": ""})

	service := newService(t, mfs, npm.Config{})

	from, err := service.LocateFile("/root/node_modules/consumer/index.js")
	if err != nil {
		t.Fatalf("LocateFile failed: %v", err)
	}

	rc, err := service.FindResource(from, "fs")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc != npm.EmptyResource {
		t.Errorf("Expected the empty resource, got %+v", rc)
	}
}

func TestFileOverrideRedirect(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/pkg-a",
		`{"name":"pkg-a","version":"1.0.0","main":"index.js"}`,
		map[string]string{"index.js": "", "a.js": "", "b.js": ""})

	service := newService(t, mfs, npm.Config{
		JsOptions: npm.Options{
			PackageOverrides: map[string]map[string]any{
				"pkg-a": {"./a.js": "./b.js"},
			},
		},
	})

	overridden, err := service.FindResource(nil, "pkg-a/a")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	direct, err := service.FindResource(nil, "pkg-a/b")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if overridden != direct {
		t.Errorf("Override should yield the same resource as requesting the target: %q vs %q", overridden.File, direct.File)
	}
}

func TestFileOverrideDisables(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/pkg-a",
		`{"name":"pkg-a","version":"1.0.0","main":"index.js","browser":{"./debug.js":false}}`,
		map[string]string{"index.js": "", "debug.js": ""})

	service := newService(t, mfs, npm.Config{})

	rc, err := service.FindResource(nil, "pkg-a/debug")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc != npm.EmptyResource {
		t.Errorf("Expected the empty resource, got %+v", rc)
	}
}

func TestIdentityOverrideDoesNotLoop(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/pkg-a",
		`{"name":"pkg-a","version":"1.0.0","main":"index.js","browser":{"./x.js":"./x.js"}}`,
		map[string]string{"index.js": "", "x.js": ""})

	service := newService(t, mfs, npm.Config{})

	rc, err := service.FindResource(nil, "pkg-a/x.js")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/pkg-a/x.js" {
		t.Errorf("File = %q", rc.File)
	}
}

func TestRelativeWithParentWalk(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/outer",
		`{"name":"outer","version":"1.0.0","main":"index.js"}`,
		map[string]string{"index.js": "", "shared.js": ""})
	addPackage(mfs, "/root/node_modules/outer/widget",
		`{"name":"outer-widget","version":"0.1.0","main":"lib.js"}`,
		map[string]string{"lib.js": ""})

	service := newService(t, mfs, npm.Config{})

	// Resolving the nested directory produces a resource owned by the
	// nested package record, parent-linked to outer.
	widget, err := service.FindResource(nil, "outer/widget")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if widget.File != "/root/node_modules/outer/widget/lib.js" {
		t.Fatalf("File = %q", widget.File)
	}
	if widget.Package == nil || widget.Package.Parent == nil {
		t.Fatal("Expected nested package with parent link")
	}

	// ../shared.js escapes the nested package; the walk ascends to outer.
	rc, err := service.FindResource(widget, "../shared.js")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/outer/shared.js" {
		t.Errorf("File = %q", rc.File)
	}
}

func TestRelativeOutsidePackage(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/pkg-a",
		`{"name":"pkg-a","version":"1.0.0","main":"index.js"}`,
		map[string]string{"index.js": ""})

	service := newService(t, mfs, npm.Config{})

	from, err := service.LocateFile("/root/node_modules/pkg-a/index.js")
	if err != nil {
		t.Fatalf("LocateFile failed: %v", err)
	}

	_, err = service.FindResource(from, "../../outside.js")
	if !npm.IsKind(err, npm.ErrRelativeOutsidePackage) {
		t.Errorf("Expected relative-outside-package, got %v", err)
	}
}

func TestNestedInstall(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/a",
		`{"name":"a","version":"1.0.0","main":"index.js"}`,
		map[string]string{"index.js": ""})
	addPackage(mfs, "/root/node_modules/a/node_modules/b",
		`{"name":"b","version":"2.0.0","main":"index.js"}`,
		map[string]string{"index.js": ""})
	addPackage(mfs, "/root/node_modules/b",
		`{"name":"b","version":"9.9.9","main":"index.js"}`,
		map[string]string{"index.js": ""})

	service := newService(t, mfs, npm.Config{})

	from, err := service.LocateFile("/root/node_modules/a/index.js")
	if err != nil {
		t.Fatalf("LocateFile failed: %v", err)
	}

	rc, err := service.FindResource(from, "b")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/a/node_modules/b/index.js" {
		t.Errorf("File = %q, want the nested install", rc.File)
	}

	// Without a requester the global root wins.
	global, err := service.FindResource(nil, "b")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if global.File != "/root/node_modules/b/index.js" {
		t.Errorf("File = %q, want the root install", global.File)
	}
}

func TestScopedPackageNameDiscovery(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/@scope/pkg",
		`{"name":"@scope/pkg","version":"1.0.0","main":"index.js"}`,
		map[string]string{"index.js": "", "util.js": ""})

	service := newService(t, mfs, npm.Config{})

	rc, err := service.FindResource(nil, "@scope/pkg/util")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/@scope/pkg/util.js" {
		t.Errorf("File = %q", rc.File)
	}
}

func TestDirectoryWithNestedPackageJSON(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/pkg-a",
		`{"name":"pkg-a","version":"1.0.0","main":"index.js"}`,
		map[string]string{"index.js": ""})
	addPackage(mfs, "/root/node_modules/pkg-a/dist",
		`{"main":"./here.js"}`,
		map[string]string{"here.js": ""})

	service := newService(t, mfs, npm.Config{})

	rc, err := service.FindResource(nil, "pkg-a/dist")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/pkg-a/dist/here.js" {
		t.Errorf("File = %q", rc.File)
	}
}

func TestFileBesideDirectoryWins(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/pkg-a",
		`{"name":"pkg-a","version":"1.0.0","main":"index.js"}`,
		map[string]string{
			"index.js":      "",
			"feat.js":       "",
			"feat/index.js": "",
		})

	service := newService(t, mfs, npm.Config{})

	rc, err := service.FindResource(nil, "pkg-a/feat")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/pkg-a/feat.js" {
		t.Errorf("File = %q, want feat.js beside the directory", rc.File)
	}
}

func TestDirectoryIndexFallback(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/pkg-a",
		`{"name":"pkg-a","version":"1.0.0","main":"index.js"}`,
		map[string]string{
			"index.js":     "",
			"lib/index.js": "",
		})

	service := newService(t, mfs, npm.Config{})

	rc, err := service.FindResource(nil, "pkg-a/lib")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/pkg-a/lib/index.js" {
		t.Errorf("File = %q", rc.File)
	}
}

func TestIndexFallbackWithoutEntryKeys(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/plain",
		`{"name":"plain","version":"1.0.0"}`,
		map[string]string{"index.js": ""})

	service := newService(t, mfs, npm.Config{})

	rc, err := service.FindResource(nil, "plain")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/plain/index.js" {
		t.Errorf("File = %q", rc.File)
	}
}

func TestMissingEntries(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/broken",
		`{"name":"broken","version":"1.0.0","main":"gone.js"}`,
		nil)

	service := newService(t, mfs, npm.Config{})

	_, err := service.FindResource(nil, "broken")
	if !npm.IsKind(err, npm.ErrMissingEntries) {
		t.Errorf("Expected missing-entries, got %v", err)
	}
}

func TestAbsoluteRequireRejected(t *testing.T) {
	mfs := mapfs.New()
	service := newService(t, mfs, npm.Config{})

	_, err := service.FindResource(nil, "/usr/lib/foo.js")
	if !npm.IsKind(err, npm.ErrAbsolutePath) {
		t.Errorf("Expected absolute-path, got %v", err)
	}
}

func TestUnknownPackageIsNotFatal(t *testing.T) {
	mfs := mapfs.New()
	service := newService(t, mfs, npm.Config{})

	rc, err := service.FindResource(nil, "no-such-package")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rc != nil {
		t.Errorf("Expected nothing, got %+v", rc)
	}
}

func TestSubpathImports(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/pkg-a",
		`{"name":"pkg-a","version":"1.0.0","main":"index.js",
		  "imports":{"#dep":{"browser":"./shim.js","default":"./dep.js"}}}`,
		map[string]string{"index.js": "", "shim.js": "", "dep.js": ""})

	service := newService(t, mfs, npm.Config{})

	from, err := service.LocateFile("/root/node_modules/pkg-a/index.js")
	if err != nil {
		t.Fatalf("LocateFile failed: %v", err)
	}

	rc, err := service.FindResource(from, "#dep")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/pkg-a/shim.js" {
		t.Errorf("File = %q, want the browser shim", rc.File)
	}

	_, err = service.FindResource(from, "#missing")
	if !npm.IsKind(err, npm.ErrNoImport) {
		t.Errorf("Expected no-import, got %v", err)
	}
}

func TestSubpathImportToPackage(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/pkg-a",
		`{"name":"pkg-a","version":"1.0.0","main":"index.js","imports":{"#fetch":"cross-fetch"}}`,
		map[string]string{"index.js": ""})
	addPackage(mfs, "/root/node_modules/cross-fetch",
		`{"name":"cross-fetch","version":"4.0.0","main":"index.js"}`,
		map[string]string{"index.js": ""})

	service := newService(t, mfs, npm.Config{})

	from, err := service.LocateFile("/root/node_modules/pkg-a/index.js")
	if err != nil {
		t.Fatalf("LocateFile failed: %v", err)
	}

	rc, err := service.FindResource(from, "#fetch")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if rc.File != "/root/node_modules/cross-fetch/index.js" {
		t.Errorf("File = %q", rc.File)
	}
}

func TestRelativeWithoutOrigin(t *testing.T) {
	mfs := mapfs.New()
	service := newService(t, mfs, npm.Config{})

	_, err := service.FindResource(nil, "./foo.js")
	if !npm.IsKind(err, npm.ErrNoRequireFrom) {
		t.Errorf("Expected no-require-from, got %v", err)
	}
}

func TestDeterministicResolution(t *testing.T) {
	mfs := mapfs.New()
	addPackage(mfs, "/root/node_modules/pkg-a",
		`{"name":"pkg-a","version":"1.0.0","main":"lib/index.js"}`,
		map[string]string{"lib/index.js": ""})

	service := newService(t, mfs, npm.Config{})

	first, err := service.FindResource(nil, "pkg-a")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	second, err := service.FindResource(nil, "pkg-a")
	if err != nil {
		t.Fatalf("FindResource failed: %v", err)
	}
	if first != second {
		t.Error("Repeated resolution should observe the cached record")
	}
}
