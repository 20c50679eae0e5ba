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
	iofs "io/fs"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/jsonc"

	"github.com/TTalkPro/shadow-npm/fs"
)

// npmDepsManifest is the shape of an npm-deps manifest found on the
// classpath: {"npm-deps": {"react": "^18.0.0"}}.
type npmDepsManifest struct {
	NpmDeps map[string]string `json:"npm-deps"`
}

// scanNpmDeps globs the project for npm-deps manifests and aggregates
// the declared names. Failures are logged, never fatal; a missing
// manifest only means DeclaredDep answers false.
func (s *Service) scanNpmDeps(patterns []string) {
	fsys := rootedFS{fs: s.fs, root: s.projectDir}
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			s.warnf("npm-deps glob %q failed: %v", pattern, err)
			continue
		}
		for _, match := range matches {
			data, err := s.fs.ReadFile(filepath.Join(s.projectDir, filepath.FromSlash(match)))
			if err != nil {
				s.warnf("reading npm-deps manifest %s: %v", match, err)
				continue
			}
			var manifest npmDepsManifest
			if err := json.Unmarshal(jsonc.ToJSON(data), &manifest); err != nil {
				s.warnf("parsing npm-deps manifest %s: %v", match, err)
				continue
			}
			s.mu.Lock()
			for name := range manifest.NpmDeps {
				s.npmDeps[name] = struct{}{}
			}
			s.mu.Unlock()
		}
	}
}

// DeclaredDep reports whether a require name was declared in any
// npm-deps manifest on the classpath. It does not affect resolution.
func (s *Service) DeclaredDep(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.npmDeps[name]
	return ok
}

// NpmDeps returns the aggregated declared dependency names.
func (s *Service) NpmDeps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.npmDeps))
	for name := range s.npmDeps {
		names = append(names, name)
	}
	return names
}

// rootedFS adapts a FileSystem rooted at dir to io/fs.FS for glob
// matching.
type rootedFS struct {
	fs   fs.FileSystem
	root string
}

func (r rootedFS) Open(name string) (iofs.File, error) {
	return r.fs.Open(filepath.Join(r.root, filepath.FromSlash(name)))
}

func (r rootedFS) ReadDir(name string) ([]iofs.DirEntry, error) {
	return r.fs.ReadDir(filepath.Join(r.root, filepath.FromSlash(name)))
}

func (r rootedFS) Stat(name string) (iofs.FileInfo, error) {
	return r.fs.Stat(filepath.Join(r.root, filepath.FromSlash(name)))
}
