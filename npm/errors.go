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
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies resolution failures. Every fatal failure the
// resolver reports carries one of these kinds plus a context payload.
type ErrorKind string

const (
	// ErrAbsolutePath - absolute requires are rejected.
	ErrAbsolutePath ErrorKind = "absolute-path"
	// ErrNoImport - "#name" not declared in package.json "imports".
	ErrNoImport ErrorKind = "no-import"
	// ErrNoRequireFrom - relative require with no origin file.
	ErrNoRequireFrom ErrorKind = "no-require-from"
	// ErrNoPackageRequireFrom - relative require whose origin has no package.
	ErrNoPackageRequireFrom ErrorKind = "no-package-require-from"
	// ErrRelativeOutsidePackage - a ../ walk left all parent packages.
	ErrRelativeOutsidePackage ErrorKind = "relative-outside-package"
	// ErrExportsResolutionFailed - closed package and no export matched.
	ErrExportsResolutionFailed ErrorKind = "exports-resolution-failed"
	// ErrMissingEntries - package root has entry keys but none resolved.
	ErrMissingEntries ErrorKind = "missing-entries"
	// ErrFilesOutsideProject - file outside package roots and project root.
	ErrFilesOutsideProject ErrorKind = "files-outside-project"
	// ErrInvalidOverride - override value was neither false, a string, nor absent.
	ErrInvalidOverride ErrorKind = "invalid-override"
	// ErrFileInfoErrors - the inspector reported parse errors.
	ErrFileInfoErrors ErrorKind = "file-info-errors"
	// ErrFileInfoFailed - wrapper for any inspector exception.
	ErrFileInfoFailed ErrorKind = "file-info-failed"
)

// ResolveError is a classified resolution failure with a structured
// context payload.
type ResolveError struct {
	Kind    ErrorKind
	Context map[string]any
	Err     error
}

// Error formats the kind plus the context payload with stable key order.
func (e *ResolveError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		sb.WriteString(" (")
		sb.WriteString(strings.Join(parts, " "))
		sb.WriteString(")")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

func resolveErr(kind ErrorKind, ctx map[string]any) *ResolveError {
	return &ResolveError{Kind: kind, Context: ctx}
}

func wrapErr(kind ErrorKind, ctx map[string]any, err error) *ResolveError {
	return &ResolveError{Kind: kind, Context: ctx, Err: err}
}

// IsKind reports whether err is a ResolveError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *ResolveError
	return errors.As(err, &re) && re.Kind == kind
}
