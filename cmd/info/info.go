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

// Package info provides the info command for shadow-npm.
package info

import (
	"github.com/spf13/cobra"

	"github.com/TTalkPro/shadow-npm/cmd/resolve"
	"github.com/TTalkPro/shadow-npm/fs"
	"github.com/TTalkPro/shadow-npm/internal/output"
)

// Cmd is the info cobra command that prints the file-info record for a
// source file.
var Cmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print the file-info record for a source file",
	Long: `Inspect a JavaScript source file and print its resource record:
namespace, output name, cache key and discovered dependencies.`,
	Example: `  shadow-npm info src/app.js
  shadow-npm info node_modules/react/index.js`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()
	service, err := resolve.NewService(osfs)
	if err != nil {
		return err
	}

	rc, err := service.LocateFile(args[0])
	if err != nil {
		return err
	}

	return output.JSON(osfs, rc)
}
