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

// Package npm resolves Node-style requires to on-disk files and
// extracts the metadata the downstream compiler needs. A single
// Service instance holds the caches and is shared by all build
// threads.
package npm

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/TTalkPro/shadow-npm/fs"
	"github.com/TTalkPro/shadow-npm/packagejson"
)

// Logger is the logging interface the resolver reports non-fatal
// conditions through.
type Logger interface {
	Warning(format string, args ...any)
	Info(format string, args ...any)
	Debug(format string, args ...any)
}

// Service is the package resolver and file-info indexer. All methods
// are safe for concurrent use; the caches fill idempotently on miss.
type Service struct {
	fs        fs.FileSystem
	logger    Logger
	inspector Inspector

	projectDir   string
	packageRoots []string
	opts         Options

	reader *packagejson.Reader

	mu       sync.Mutex
	packages map[string]*packagejson.Package // bare name -> record, nil = known absent
	files    map[string]*Resource            // absolute file -> record
	npmDeps  map[string]struct{}

	// RequireCache is reserved for callers; the resolver never touches it.
	RequireCache sync.Map
}

// NewService constructs a resolver service. logger and inspector may be
// nil; a nil inspector disables dependency extraction for JS files and
// is only useful in tests that never touch JS sources.
func NewService(fsys fs.FileSystem, logger Logger, inspector Inspector, cfg Config) (*Service, error) {
	projectDir := cfg.ProjectDir
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		projectDir = wd
	}
	projectDir = AbsoluteFile(projectDir)

	var roots []string
	if cfg.NodeModulesDir == "" && len(cfg.JsPackageDirs) == 0 {
		roots = []string{filepath.Join(projectDir, "node_modules")}
	} else {
		if cfg.NodeModulesDir != "" {
			roots = append(roots, AbsoluteFile(cfg.NodeModulesDir))
		}
		for _, dir := range cfg.JsPackageDirs {
			roots = append(roots, AbsoluteFile(dir))
		}
	}

	s := &Service{
		fs:           fsys,
		logger:       logger,
		inspector:    inspector,
		projectDir:   projectDir,
		packageRoots: roots,
		opts:         defaultOptions(cfg.JsOptions),
		reader:       packagejson.NewReader(fsys, logger),
		packages:     make(map[string]*packagejson.Package),
		files:        make(map[string]*Resource),
		npmDeps:      make(map[string]struct{}),
	}

	if len(cfg.NpmDepsPatterns) > 0 {
		s.scanNpmDeps(cfg.NpmDepsPatterns)
	}

	return s, nil
}

// ProjectDir returns the normalized project root.
func (s *Service) ProjectDir() string {
	return s.projectDir
}

// PackageRoots returns the effective package roots in configured order.
func (s *Service) PackageRoots() []string {
	return s.packageRoots
}

// ReadPackageJSON reads a package.json through the mtime-validated
// cache.
func (s *Service) ReadPackageJSON(file string) (*packagejson.Package, error) {
	return s.reader.Read(file)
}

func (s *Service) warnf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Warning(format, args...)
	}
}

func (s *Service) infof(format string, args ...any) {
	if s.logger != nil {
		s.logger.Info(format, args...)
	}
}
