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

// Package resolve provides the resolve command for shadow-npm.
package resolve

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TTalkPro/shadow-npm/fs"
	"github.com/TTalkPro/shadow-npm/inspector"
	"github.com/TTalkPro/shadow-npm/internal/log"
	"github.com/TTalkPro/shadow-npm/internal/output"
	"github.com/TTalkPro/shadow-npm/npm"
)

// Cmd is the resolve cobra command that resolves a require string to a
// resource record.
var Cmd = &cobra.Command{
	Use:   "resolve <require>",
	Short: "Resolve a require string to a file",
	Long: `Resolve a require string the way the bundled module compiler would,
printing the resulting resource record as JSON.`,
	Example: `  # Resolve a package main
  shadow-npm resolve react

  # Resolve a subpath from the perspective of a source file
  shadow-npm resolve ./util --from src/app.js

  # Resolve against an explicit package root
  shadow-npm resolve lodash/merge --package-root vendor/node_modules`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().String("from", "", "Source file the require originates from")
	Cmd.Flags().StringSlice("package-root", nil, "Package roots to search (default: <project>/node_modules)")
	Cmd.Flags().StringSlice("conditions", nil, "Export condition priority (e.g. browser,require,default)")
	Cmd.Flags().StringSlice("entry-keys", nil, "package.json entry keys tried for package roots")
	Cmd.Flags().Bool("ignore-exports", false, "Ignore package.json exports entirely")
	Cmd.Flags().Bool("exports-bypass", false, "Let failed exports matches fall back to classical resolution")

	_ = viper.BindPFlag("from", Cmd.Flags().Lookup("from"))
	_ = viper.BindPFlag("package-root", Cmd.Flags().Lookup("package-root"))
	_ = viper.BindPFlag("conditions", Cmd.Flags().Lookup("conditions"))
	_ = viper.BindPFlag("entry-keys", Cmd.Flags().Lookup("entry-keys"))
	_ = viper.BindPFlag("ignore-exports", Cmd.Flags().Lookup("ignore-exports"))
	_ = viper.BindPFlag("exports-bypass", Cmd.Flags().Lookup("exports-bypass"))
}

// NewService builds a resolver service from the bound flags. Shared
// with the info command.
func NewService(osfs fs.FileSystem) (*npm.Service, error) {
	return npm.NewService(osfs, log.Default(), inspector.New(), npm.Config{
		ProjectDir:    viper.GetString("project-dir"),
		JsPackageDirs: viper.GetStringSlice("package-root"),
		JsOptions: npm.Options{
			Target:           viper.GetString("target"),
			Mode:             viper.GetString("mode"),
			ExportConditions: viper.GetStringSlice("conditions"),
			EntryKeys:        viper.GetStringSlice("entry-keys"),
			IgnoreExports:    viper.GetBool("ignore-exports"),
			ExportsBypass:    viper.GetBool("exports-bypass"),
		},
	})
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()
	service, err := NewService(osfs)
	if err != nil {
		return err
	}

	var from *npm.Resource
	if fromFile := viper.GetString("from"); fromFile != "" {
		from, err = service.LocateFile(fromFile)
		if err != nil {
			return fmt.Errorf("reading --from file: %w", err)
		}
	}

	rc, err := service.FindResource(from, args[0])
	if err != nil {
		return err
	}
	if rc == nil {
		return fmt.Errorf("not found: %s", args[0])
	}

	return output.JSON(osfs, rc)
}
