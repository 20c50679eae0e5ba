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
	"crypto/sha1"
	"encoding/hex"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/TTalkPro/shadow-npm/fs"
	"github.com/TTalkPro/shadow-npm/packagejson"
)

// InspectIssue is one diagnostic reported by the inspector.
type InspectIssue struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// Inspect is the report the JS inspector produces for one source file.
type Inspect struct {
	JsRequires        []string       `json:"js_requires"`
	JsImports         []string       `json:"js_imports"`
	JsDynamicImports  []string       `json:"js_dynamic_imports"`
	JsInvalidRequires []InspectIssue `json:"js_invalid_requires"`
	JsErrors          []InspectIssue `json:"js_errors"`
	JsWarnings        []InspectIssue `json:"js_warnings"`
	JsLanguage        string         `json:"js_language"`
	UsesGlobalBuffer  bool           `json:"uses_global_buffer"`
	UsesGlobalProcess bool           `json:"uses_global_process"`
}

// Inspector reports the requires and global uses of a JS source file.
// CacheKey captures the inspector's identity; it contributes to every
// file's cache key so a tool upgrade invalidates all caches.
type Inspector interface {
	Inspect(file string, source []byte) (*Inspect, error)
	CacheKey() string
}

// jsExtensions are treated as inspectable JavaScript; anything else
// that is not .json resolves as an asset.
var jsExtensions = map[string]bool{
	".js":  true,
	".mjs": true,
	".cjs": true,
	".jsx": true,
	".ts":  true,
	".tsx": true,
}

// FileInfo returns the resource record for a file without a package
// association, e.g. for project files outside node_modules.
func (s *Service) FileInfo(file string) (*Resource, error) {
	return s.fileResource(nil, AbsoluteFile(file))
}

// LocateFile returns the resource record for a file with its owning
// package attached, found by walking up to the nearest package.json.
// Requires that originate from this resource can then resolve
// relative and nested requires.
func (s *Service) LocateFile(file string) (*Resource, error) {
	file = AbsoluteFile(file)

	for dir := filepath.Dir(file); ; {
		pjFile := filepath.Join(dir, "package.json")
		if fs.IsFile(s.fs, pjFile) {
			pkg, err := s.reader.Read(pjFile)
			if err != nil {
				return nil, err
			}
			root := ""
			for _, candidate := range s.packageRoots {
				if strings.HasPrefix(dir, candidate+string(filepath.Separator)) {
					root = candidate
					break
				}
			}
			return s.fileResource(pkg.WithContext(nil, root), file)
		}
		parent := filepath.Dir(dir)
		if parent == dir || dir == s.projectDir {
			break
		}
		dir = parent
	}

	return s.fileResource(nil, file)
}

// fileResource returns the cached record for an absolute file or
// builds one. Entries are never invalidated here; callers that care
// about staleness compare LastModified themselves and discard.
func (s *Service) fileResource(pkg *packagejson.Package, file string) (*Resource, error) {
	s.mu.Lock()
	if rc, ok := s.files[file]; ok {
		s.mu.Unlock()
		return rc, nil
	}
	s.mu.Unlock()

	rc, err := s.buildFileResource(pkg, file)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// Two concurrent misses may both build; keep the first stored value
	// so every caller observes the same record.
	if existing, ok := s.files[file]; ok {
		rc = existing
	} else {
		s.files[file] = rc
	}
	s.mu.Unlock()
	return rc, nil
}

func (s *Service) buildFileResource(pkg *packagejson.Package, file string) (*Resource, error) {
	name, err := s.resourceNameForFile(file)
	if err != nil {
		return nil, err
	}

	source, err := s.fs.ReadFile(file)
	if err != nil {
		return nil, wrapErr(ErrFileInfoFailed, map[string]any{"file": file}, err)
	}
	mtime := fs.ModTime(s.fs, file)
	ns := ModuleNameForResource(name)

	rc := &Resource{
		Name:         name,
		NS:           ns,
		File:         file,
		LastModified: mtime,
		Source:       source,
		FastHash:     xxhash.Sum64(source),
		Provides:     []string{ns},
		Requires:     []string{},
		Deps:         []string{},
		Package:      pkg,
	}

	ext := path.Ext(name)
	switch {
	case ext == ".json":
		rc.ID = ResourceID{Kind: KindResource, Name: name}
		rc.OutputName = OutputNameForResource(name)
		rc.Type = "js"
		rc.JSON = true
		rc.CacheKey = []string{ResolverCacheKey, s.inspectorCacheKey(), sha1Hex(source)}

	case jsExtensions[ext]:
		rc.ID = ResourceID{Kind: KindResource, Name: name}
		rc.OutputName = OutputNameForResource(name)
		rc.Type = "js"
		rc.CacheKey = []string{ResolverCacheKey, s.inspectorCacheKey(), sha1Hex(source)}
		if err := s.inspectInto(rc, file, source); err != nil {
			return nil, err
		}

	default:
		rc.ID = ResourceID{Kind: KindAsset, Name: name}
		rc.OutputName = AssetOutputName(name)
		rc.Type = "shadow-js"
		rc.CacheKey = []string{file, strconv.FormatInt(mtime.UnixMilli(), 10)}
	}

	return rc, nil
}

// inspectInto runs the inspector and folds its report into the
// resource's dependency lists.
func (s *Service) inspectInto(rc *Resource, file string, source []byte) error {
	if s.inspector == nil {
		return nil
	}

	report, err := s.inspector.Inspect(file, source)
	if err != nil {
		return wrapErr(ErrFileInfoFailed, map[string]any{"file": file}, err)
	}

	if len(report.JsErrors) > 0 {
		return resolveErr(ErrFileInfoErrors, map[string]any{
			"file":   file,
			"errors": report.JsErrors,
		})
	}

	for _, invalid := range report.JsInvalidRequires {
		s.infof("invalid require in %s at %d:%d", file, invalid.Line, invalid.Col)
	}

	deps := make([]string, 0, len(report.JsRequires)+len(report.JsImports)+len(report.JsDynamicImports))
	seen := make(map[string]struct{})
	add := func(dep string) {
		// goog:some.ns requires address closure namespaces directly.
		dep = strings.TrimPrefix(dep, "goog:")
		if _, dup := seen[dep]; dup {
			return
		}
		seen[dep] = struct{}{}
		deps = append(deps, dep)
	}
	for _, dep := range report.JsRequires {
		add(dep)
	}
	for _, dep := range report.JsImports {
		add(dep)
	}
	for _, dep := range report.JsDynamicImports {
		add(dep)
	}
	if report.UsesGlobalBuffer {
		add("buffer")
	}
	if report.UsesGlobalProcess {
		add("process")
	}

	rc.Deps = deps
	rc.JSDeps = deps
	return nil
}

func (s *Service) inspectorCacheKey() string {
	if s.inspector == nil {
		return "none"
	}
	return s.inspector.CacheKey()
}

func sha1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
