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
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// maxOutputName is the byte budget for generated module file names.
// Longer names are replaced with a digest-based form so deeply nested
// installs cannot blow filesystem limits downstream.
const maxOutputName = 127

// AbsoluteFile normalizes a path to absolute form with "." and ".."
// segments removed syntactically. Symbolic links are not dereferenced.
func AbsoluteFile(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return filepath.Clean(abs)
}

// IsAbsolute reports whether a require string is an absolute path.
func IsAbsolute(require string) bool {
	return strings.HasPrefix(require, "/") || filepath.IsAbs(require)
}

// IsRelative reports whether a require string is relative
// (leading "./" or "../").
func IsRelative(require string) bool {
	return strings.HasPrefix(require, "./") || strings.HasPrefix(require, "../")
}

// DisambiguateModuleName rewrites every "." in the first path segment
// to "_DOT_" so that object.assign/index.js and object-assign/index.js
// yield distinct module names after munging.
func DisambiguateModuleName(name string) string {
	head, rest, found := strings.Cut(name, "/")
	head = strings.ReplaceAll(head, ".", "_DOT_")
	if !found {
		return head
	}
	return head + "/" + rest
}

// FlatName flattens a resource name into a single path segment. Used
// only for asset output names.
func FlatName(name string) string {
	return strings.ReplaceAll(name, "/", ".")
}

// ModuleNameForResource derives the namespace symbol for a resource
// name: the ".js" suffix is dropped, "/" becomes "$", "#" becomes
// "_HASH_", and any remaining character outside [A-Za-z0-9$_] becomes
// "_".
func ModuleNameForResource(name string) string {
	n := strings.TrimSuffix(name, ".js")
	var sb strings.Builder
	sb.Grow(len(n) + len("module$"))
	sb.WriteString("module$")
	for _, r := range n {
		switch {
		case r == '/':
			sb.WriteRune('$')
		case r == '#':
			sb.WriteString("_HASH_")
		case r == '$' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

// OutputNameForResource derives the emitted file name for a resource:
// the namespace plus ".js", or a digest form when the name is over the
// byte budget.
func OutputNameForResource(name string) string {
	out := ModuleNameForResource(name) + ".js"
	if len(name) > maxOutputName || len(out) > maxOutputName {
		return tooLongName(name)
	}
	return out
}

// AssetOutputName derives the emitted name for an asset resource from
// its flattened resource name, with the same byte budget.
func AssetOutputName(name string) string {
	out := FlatName(name)
	if len(out) > maxOutputName {
		return tooLongName(name)
	}
	return out
}

func tooLongName(name string) string {
	sum := md5.Sum([]byte(name))
	return "module$too_long_" + hex.EncodeToString(sum[:]) + ".js"
}

// resourceNameForFile maps an absolute file to its resource name.
// Files under a configured package root become
// "node_modules/<disambiguated relative path>"; other files are named
// relative to the project root. Files outside both fail.
func (s *Service) resourceNameForFile(file string) (string, error) {
	// Longest package root wins so nested root configurations behave.
	bestRoot := ""
	for _, root := range s.packageRoots {
		if root != file && strings.HasPrefix(file, root+string(filepath.Separator)) && len(root) > len(bestRoot) {
			bestRoot = root
		}
	}
	if bestRoot != "" {
		rel, err := filepath.Rel(bestRoot, file)
		if err != nil {
			return "", err
		}
		return "node_modules/" + DisambiguateModuleName(filepath.ToSlash(rel)), nil
	}

	rel, err := filepath.Rel(s.projectDir, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", resolveErr(ErrFilesOutsideProject, map[string]any{
			"file":        file,
			"project-dir": s.projectDir,
		})
	}
	return filepath.ToSlash(rel), nil
}
