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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/TTalkPro/shadow-npm/fs"
	"github.com/TTalkPro/shadow-npm/packagejson"
)

// FindResource resolves a require string from the perspective of an
// optional requesting resource. It returns (nil, nil) when nothing was
// found but the miss is not fatal, EmptyResource when an override
// disabled the require, and a classified error otherwise.
func (s *Service) FindResource(from *Resource, require string) (*Resource, error) {
	switch {
	case IsAbsolute(require):
		return nil, resolveErr(ErrAbsolutePath, map[string]any{"require": require})

	case strings.HasPrefix(require, "#"):
		if from == nil || from.Package == nil {
			return nil, resolveErr(ErrNoRequireFrom, map[string]any{"require": require})
		}
		return s.findImport(from, require)

	case IsRelative(require):
		return s.findRelative(from, require)

	default:
		return s.findBare(from, require)
	}
}

// findImport resolves a "#name" subpath import against the requesting
// package's "imports" field.
func (s *Service) findImport(from *Resource, require string) (*Resource, error) {
	pkg := from.Package
	value, ok := pkg.Imports[require]
	if !ok {
		return nil, resolveErr(ErrNoImport, map[string]any{
			"require": require,
			"package": pkg.Name,
		})
	}

	replacement, ok := packagejson.FindReplacement(value, s.opts.ExportConditions)
	if !ok {
		return nil, resolveErr(ErrNoImport, map[string]any{
			"require": require,
			"package": pkg.Name,
		})
	}

	if IsRelative(replacement) {
		return s.findResourceInPackage(pkg, from, replacement)
	}
	// The import maps to another package specifier.
	return s.FindResource(from, replacement)
}

// findRelative resolves "./x" and "../x" requires. The requesting file
// may sit in a nested package; when the target escapes it, the walk
// ascends the parent chain until some enclosing package contains it.
func (s *Service) findRelative(from *Resource, require string) (*Resource, error) {
	if from == nil || from.File == "" {
		return nil, resolveErr(ErrNoRequireFrom, map[string]any{"require": require})
	}
	if from.Package == nil {
		return nil, resolveErr(ErrNoPackageRequireFrom, map[string]any{
			"require": require,
			"file":    from.File,
		})
	}

	target := filepath.Clean(filepath.Join(filepath.Dir(from.File), filepath.FromSlash(require)))

	for pkg := from.Package; pkg != nil; pkg = pkg.Parent {
		rel, err := filepath.Rel(pkg.Dir, target)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if rel == ".." || strings.HasPrefix(rel, "../") {
			continue
		}
		if rel == "." {
			rel = ""
		}
		return s.findResourceInPackage(pkg, from, "./"+rel)
	}

	return nil, resolveErr(ErrRelativeOutsidePackage, map[string]any{
		"require": require,
		"file":    from.File,
	})
}

// findBare resolves a bare specifier: browser overrides of the
// requesting package first, then the package locator.
func (s *Service) findBare(from *Resource, require string) (*Resource, error) {
	if !s.opts.DisableBrowserOverrides && from != nil && from.Package != nil {
		if override, ok := from.Package.BrowserOverrides[require]; ok {
			rc, done, err := s.applyBareOverride(from, require, override)
			if done {
				return rc, err
			}
		}
	}

	pkg, err := s.findPackageForRequire(from, require)
	if err != nil || pkg == nil {
		return nil, err
	}

	relRequire := "./"
	if require != pkg.MatchName {
		relRequire = "." + require[len(pkg.MatchName):]
	}
	return s.findResourceInPackage(pkg, from, relRequire)
}

// applyBareOverride interprets a browser-override value for a bare
// require. done is false when resolution should proceed normally.
func (s *Service) applyBareOverride(from *Resource, require string, override any) (*Resource, bool, error) {
	switch o := override.(type) {
	case bool:
		if !o {
			return EmptyResource, true, nil
		}
	case string:
		if IsRelative(o) {
			rc, err := s.findResourceInPackage(from.Package, from, o)
			return rc, true, err
		}
		if o != require {
			rc, err := s.FindResource(from, o)
			return rc, true, err
		}
		// Identity mapping: not an override.
		return nil, false, nil
	}
	return nil, true, resolveErr(ErrInvalidOverride, map[string]any{
		"require":  require,
		"package":  from.Package.Name,
		"override": override,
	})
}

// pkgMatch is a classical resolution hit: the file plus the package it
// was found in, which may be a nested package.json record.
type pkgMatch struct {
	pkg  *packagejson.Package
	file string
}

// findResourceInPackage resolves a package-relative require
// (starting with "./") inside pkg.
//
// A package with exports is closed: external requests must match an
// export or fail. Internal requests and bypass configurations may use
// exports as a shortcut but fall through to classical resolution.
func (s *Service) findResourceInPackage(pkg *packagejson.Package, from *Resource, relRequire string) (*Resource, error) {
	if !strings.HasPrefix(relRequire, "./") {
		return nil, fmt.Errorf("package-relative require must start with ./, got %q in %s", relRequire, pkg.Dir)
	}

	useExports := pkg.HasExports && !s.opts.IgnoreExports
	internal := from != nil && from.Package != nil && pkg.SameInstance(from.Package)

	if useExports {
		rc, err := s.findExportsMatch(pkg, relRequire)
		if err != nil {
			return nil, err
		}
		if rc != nil {
			return rc, nil
		}
		if !internal && !s.opts.ExportsBypass {
			return nil, resolveErr(ErrExportsResolutionFailed, map[string]any{
				"require": relRequire,
				"package": pkg.Name,
				"dir":     pkg.Dir,
			})
		}
	}

	match, err := s.findMatchInPackage(pkg, relRequire)
	if err != nil || match == nil {
		return nil, err
	}
	return s.applyFileOverride(match, from)
}

// findExportsMatch evaluates the three exports tables in order: exact,
// prefix, wildcard. Entries whose target file is missing or a
// directory are skipped, not failed, so later entries or the classical
// path still get a chance.
func (s *Service) findExportsMatch(pkg *packagejson.Package, relRequire string) (*Resource, error) {
	key := relRequire
	if key == "./" {
		key = "."
	}
	if value, ok := pkg.ExportsExact[key]; ok {
		if target, ok := packagejson.FindReplacement(value, s.opts.ExportConditions); ok {
			if rc, err := s.exportsTarget(pkg, target); rc != nil || err != nil {
				return rc, err
			}
		}
	}

	// Longest prefix first.
	for _, pe := range pkg.ExportsPrefix {
		if !strings.HasPrefix(relRequire, pe.Prefix) {
			continue
		}
		target, ok := packagejson.FindReplacement(pe.Match, s.opts.ExportConditions)
		if !ok {
			continue
		}
		suffix := relRequire[len(pe.Prefix):]
		if rc, err := s.exportsTarget(pkg, target+suffix); rc != nil || err != nil {
			return rc, err
		}
	}

	for _, we := range pkg.ExportsWildcard {
		if !strings.HasPrefix(relRequire, we.Prefix) {
			continue
		}
		fill := relRequire[len(we.Prefix):]
		if we.HasSuffix {
			if !strings.HasSuffix(relRequire, we.Suffix) || len(relRequire) < len(we.Prefix)+len(we.Suffix) {
				continue
			}
			fill = relRequire[len(we.Prefix) : len(relRequire)-len(we.Suffix)]
		}
		target, ok := packagejson.FindReplacement(we.Match, s.opts.ExportConditions)
		if !ok {
			continue
		}
		replaced := strings.ReplaceAll(target, "*", fill)
		if rc, err := s.exportsTarget(pkg, replaced); rc != nil || err != nil {
			return rc, err
		}
	}

	return nil, nil
}

// exportsTarget materializes an exports replacement if it names an
// existing regular file; (nil, nil) means skip this entry.
func (s *Service) exportsTarget(pkg *packagejson.Package, target string) (*Resource, error) {
	file := filepath.Clean(filepath.Join(pkg.Dir, filepath.FromSlash(target)))
	if !fs.IsFile(s.fs, file) {
		return nil, nil
	}
	return s.fileResource(pkg, file)
}

// findMatchInPackage is classical (pre-exports) resolution: entry keys
// at the package root, exact files, extension search, directory index
// fallback, and nested package.json recursion.
func (s *Service) findMatchInPackage(pkg *packagejson.Package, relRequire string) (*pkgMatch, error) {
	if relRequire == "./" {
		anyPresent := false
		for _, key := range s.opts.EntryKeys {
			entry, ok := pkg.Entry(key)
			if !ok {
				continue
			}
			anyPresent = true
			if !IsRelative(entry) {
				entry = "./" + entry
			}
			// An entry of "" or "./" would recurse right back here.
			if entry == "./" {
				continue
			}
			match, err := s.findMatchInPackage(pkg, entry)
			if err != nil {
				return nil, err
			}
			if match != nil {
				return match, nil
			}
		}
		if anyPresent {
			return nil, resolveErr(ErrMissingEntries, map[string]any{
				"package":    pkg.Name,
				"dir":        pkg.Dir,
				"entry-keys": s.opts.EntryKeys,
			})
		}
		index := filepath.Join(pkg.Dir, "index.js")
		if fs.IsFile(s.fs, index) {
			return &pkgMatch{pkg: pkg, file: index}, nil
		}
		return nil, nil
	}

	file := filepath.Clean(filepath.Join(pkg.Dir, filepath.FromSlash(strings.TrimPrefix(relRequire, "./"))))

	info, err := s.fs.Stat(file)
	if err == nil && info.Mode().IsRegular() {
		return &pkgMatch{pkg: pkg, file: file}, nil
	}

	if err != nil {
		// No file and no directory of that name: extension search.
		for _, ext := range s.opts.Extensions {
			if candidate := file + ext; fs.IsFile(s.fs, candidate) {
				return &pkgMatch{pkg: pkg, file: candidate}, nil
			}
		}
		return nil, nil
	}

	if info.IsDir() {
		// foo.js beside a foo/ directory wins over the directory.
		for _, ext := range s.opts.Extensions {
			if candidate := file + ext; fs.IsFile(s.fs, candidate) {
				return &pkgMatch{pkg: pkg, file: candidate}, nil
			}
		}

		nestedPJ := filepath.Join(file, "package.json")
		if file != pkg.Dir && fs.IsFile(s.fs, nestedPJ) {
			nested, err := s.reader.Read(nestedPJ)
			if err != nil {
				return nil, err
			}
			nested = nested.WithContext(pkg, pkg.JsPackageDir)
			return s.findMatchInPackage(nested, "./")
		}

		for _, ext := range s.opts.Extensions {
			if candidate := filepath.Join(file, "index"+ext); fs.IsFile(s.fs, candidate) {
				return &pkgMatch{pkg: pkg, file: candidate}, nil
			}
		}
	}

	return nil, nil
}

// applyFileOverride consults user package overrides and the package's
// browser overrides for a classically matched file, then materializes
// the resource. A string override equal to the matched path means no
// override; that rule keeps "./x.js": "./x.js" from looping forever.
func (s *Service) applyFileOverride(match *pkgMatch, from *Resource) (*Resource, error) {
	pkg := match.pkg
	rel, err := filepath.Rel(pkg.Dir, match.file)
	if err != nil {
		return nil, err
	}
	relPath := "./" + filepath.ToSlash(rel)

	override, ok := s.lookupOverride(pkg, relPath)
	if !ok {
		return s.fileResource(pkg, match.file)
	}

	switch o := override.(type) {
	case bool:
		if !o {
			return EmptyResource, nil
		}
	case string:
		if o == relPath {
			return s.fileResource(pkg, match.file)
		}
		if IsRelative(o) {
			return s.findResourceInPackage(pkg, from, o)
		}
		// A non-relative override replaces one package with another.
		return s.FindResource(from, o)
	}

	return nil, resolveErr(ErrInvalidOverride, map[string]any{
		"package":  pkg.Name,
		"path":     relPath,
		"override": override,
	})
}

// lookupOverride checks user overrides before the package's own
// browser table, then repeats both lookups with ".js" trimmed.
func (s *Service) lookupOverride(pkg *packagejson.Package, relPath string) (any, bool) {
	userOverrides := s.opts.PackageOverrides[pkg.Name]

	if v, ok := userOverrides[relPath]; ok {
		return v, true
	}
	if v, ok := pkg.BrowserOverrides[relPath]; ok {
		return v, true
	}
	if trimmed := strings.TrimSuffix(relPath, ".js"); trimmed != relPath {
		if v, ok := userOverrides[trimmed]; ok {
			return v, true
		}
		if v, ok := pkg.BrowserOverrides[trimmed]; ok {
			return v, true
		}
	}
	return nil, false
}
