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
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/TTalkPro/shadow-npm/fs"
)

// Reader reads package.json files through a FileSystem with a
// per-path cache validated against the file's modification time. A
// stale mtime causes a reparse; an unchanged mtime returns the
// identical cached record.
type Reader struct {
	fs     fs.FileSystem
	logger Logger

	mu    sync.Mutex
	cache map[string]*readerEntry
}

type readerEntry struct {
	pkg          *Package
	lastModified time.Time
}

// NewReader creates a Reader over the given filesystem. logger may be
// nil; parse warnings are dropped in that case.
func NewReader(fsys fs.FileSystem, logger Logger) *Reader {
	return &Reader{
		fs:     fsys,
		logger: logger,
		cache:  make(map[string]*readerEntry),
	}
}

// Read returns the Package for the package.json at file. Concurrent
// reads of the same path are serialized; both observe the same record.
func (r *Reader) Read(file string) (*Package, error) {
	mtime := fs.ModTime(r.fs, file)

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.cache[file]; ok && entry.lastModified.Equal(mtime) {
		return entry.pkg, nil
	}

	data, err := r.fs.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}

	pkg, err := Parse(filepath.Dir(file), data, r.logger)
	if err != nil {
		return nil, err
	}

	r.cache[file] = &readerEntry{pkg: pkg, lastModified: mtime}
	return pkg, nil
}
