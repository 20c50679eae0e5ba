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
	"path/filepath"
	"strings"

	"github.com/TTalkPro/shadow-npm/fs"
	"github.com/TTalkPro/shadow-npm/packagejson"
)

// FindPackage looks a bare package name up in the configured package
// roots, first hit wins. Results are cached by name, including the
// negative case; (nil, nil) means known-absent.
func (s *Service) FindPackage(name string) (*packagejson.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pkg, ok := s.packages[name]; ok {
		return pkg, nil
	}

	for _, root := range s.packageRoots {
		pjFile := filepath.Join(root, filepath.FromSlash(name), "package.json")
		if !fs.IsFile(s.fs, pjFile) {
			continue
		}
		pkg, err := s.reader.Read(pjFile)
		if err != nil {
			return nil, err
		}
		pkg = pkg.WithContext(nil, root)
		s.packages[name] = pkg
		return pkg, nil
	}

	s.packages[name] = nil
	return nil, nil
}

// findPackageForRequire locates the package owning a bare require.
// Package names may contain "/" (scoped names always do), so require
// prefixes are tried successively longer until one resolves; the
// matched prefix is stamped as MatchName on the returned record.
func (s *Service) findPackageForRequire(from *Resource, require string) (*packagejson.Package, error) {
	parts := strings.Split(require, "/")
	for i := 1; i <= len(parts); i++ {
		name := strings.Join(parts[:i], "/")
		pkg, err := s.findPackageNamed(from, name)
		if err != nil {
			return nil, err
		}
		if pkg != nil {
			return pkg.WithMatchName(name), nil
		}
	}
	return nil, nil
}

// findPackageNamed tries the nested-install walk for a single
// candidate name, then the global package roots.
func (s *Service) findPackageNamed(from *Resource, name string) (*packagejson.Package, error) {
	if !s.opts.DisableNestedPackages && from != nil && from.Package != nil {
		root := from.Package.JsPackageDir
		dir := from.Package.Dir
		for dir != "" && dir != root {
			// node_modules segments themselves never own installs.
			if filepath.Base(dir) == "node_modules" {
				parent := parentDir(dir)
				if parent == dir {
					break
				}
				dir = parent
				continue
			}
			pjFile := filepath.Join(dir, "node_modules", filepath.FromSlash(name), "package.json")
			if fs.IsFile(s.fs, pjFile) {
				pkg, err := s.reader.Read(pjFile)
				if err != nil {
					return nil, err
				}
				// Nested installs stay associated with the root their
				// requester started under.
				return pkg.WithContext(nil, root), nil
			}
			parent := parentDir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return s.FindPackage(name)
}

func parentDir(dir string) string {
	return filepath.Dir(dir)
}
