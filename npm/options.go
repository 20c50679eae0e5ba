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

// Build modes consumed by JsResourceForFile.
const (
	ModeDev     = "dev"
	ModeRelease = "release"
)

// Defaults for Options fields left zero.
var (
	DefaultExtensions       = []string{".js", ".mjs", ".json"}
	DefaultEntryKeys        = []string{"browser", "main", "module"}
	DefaultExportConditions = []string{"browser", "require", "default", "module", "import"}
)

// Options tunes how requires are resolved inside packages.
type Options struct {
	// Extensions tried in order when a require has no match as-is.
	Extensions []string

	// DisableNestedPackages turns off the upward node_modules walk from
	// the requesting package. Nested installs are honored by default.
	DisableNestedPackages bool

	// Target names the build target; informational.
	Target string

	// DisableBrowserOverrides stops consulting the requesting package's
	// "browser" object for bare requires. Overrides apply by default.
	DisableBrowserOverrides bool

	// EntryKeys tried in order against package.json when resolving a
	// package root.
	EntryKeys []string

	// ExportConditions is the ordered condition list used to select a
	// branch of a condition map.
	ExportConditions []string

	// IgnoreExports disables "exports" matching entirely.
	IgnoreExports bool

	// ExportsBypass lets requests that fail exports matching fall
	// through to classical resolution instead of failing.
	ExportsBypass bool

	// PackageOverrides maps package name to a per-file override table,
	// consulted before the package's own browser overrides.
	PackageOverrides map[string]map[string]any

	// Mode is ModeDev or ModeRelease; consumed only by JsResourceForFile.
	Mode string
}

// Config carries the construction inputs for a Service.
type Config struct {
	// ProjectDir is the project root; defaults to the process working
	// directory.
	ProjectDir string

	// NodeModulesDir is an optional single package root.
	NodeModulesDir string

	// JsPackageDirs is an optional explicit list of package roots. The
	// effective roots are [NodeModulesDir?] ++ JsPackageDirs, or
	// [<ProjectDir>/node_modules] when neither is set.
	JsPackageDirs []string

	// NpmDepsPatterns are doublestar globs, relative to ProjectDir,
	// locating npm-deps manifest files on the classpath.
	NpmDepsPatterns []string

	// JsOptions tunes resolution.
	JsOptions Options
}

func defaultOptions(o Options) Options {
	if len(o.Extensions) == 0 {
		o.Extensions = DefaultExtensions
	}
	if len(o.EntryKeys) == 0 {
		o.EntryKeys = DefaultEntryKeys
	}
	if len(o.ExportConditions) == 0 {
		o.ExportConditions = DefaultExportConditions
	}
	if o.Target == "" {
		o.Target = "browser"
	}
	if o.Mode == "" {
		o.Mode = ModeDev
	}
	return o
}
