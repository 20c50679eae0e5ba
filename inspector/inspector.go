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

// Package inspector reports the requires, imports and global uses of
// JavaScript and TypeScript sources using tree-sitter.
package inspector

import (
	"fmt"
	"path"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/TTalkPro/shadow-npm/npm"
)

// CacheKey identifies this inspector implementation and its query set.
// It contributes to every file cache key, so bump the version when the
// queries change.
const CacheKey = "shadow.npm/inspector/tree-sitter/v1"

// TreeSitter is the default npm.Inspector implementation.
type TreeSitter struct{}

// New creates a TreeSitter inspector.
func New() *TreeSitter {
	return &TreeSitter{}
}

// CacheKey implements npm.Inspector.
func (t *TreeSitter) CacheKey() string {
	return CacheKey
}

// Inspect parses the source and reports its dependency edges.
func (t *TreeSitter) Inspect(file string, source []byte) (*npm.Inspect, error) {
	ext := path.Ext(file)
	jsx := ext == ".jsx" || ext == ".tsx"

	language := "ecmascript"
	if ext == ".ts" || ext == ".tsx" {
		language = "typescript"
	}

	qm, err := GetQueryManager()
	if err != nil {
		return nil, err
	}

	parser, put := getParser(jsx)
	defer put()

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s", file)
	}
	defer tree.Close()

	report := &npm.Inspect{
		JsRequires:        []string{},
		JsImports:         []string{},
		JsDynamicImports:  []string{},
		JsInvalidRequires: []npm.InspectIssue{},
		JsErrors:          []npm.InspectIssue{},
		JsWarnings:        []npm.InspectIssue{},
		JsLanguage:        language,
	}

	root := tree.RootNode()

	if err := t.collectImports(qm, jsx, root, source, report); err != nil {
		return nil, err
	}
	if err := t.collectRequires(qm, jsx, root, source, report); err != nil {
		return nil, err
	}
	if err := t.collectGlobals(qm, jsx, root, source, report); err != nil {
		return nil, err
	}
	if err := t.collectErrors(qm, jsx, root, source, report); err != nil {
		return nil, err
	}

	return report, nil
}

func (t *TreeSitter) collectImports(qm *QueryManager, jsx bool, root *ts.Node, source []byte, report *npm.Inspect) error {
	query, err := qm.Query("imports", jsx)
	if err != nil {
		return err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	matches := cursor.Matches(query, root, source)
	captureNames := query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, capture := range match.Captures {
			text := capture.Node.Utf8Text(source)
			switch captureNames[capture.Index] {
			case "import.spec", "reexport.spec":
				report.JsImports = append(report.JsImports, text)
			case "dynamicImport.spec":
				report.JsDynamicImports = append(report.JsDynamicImports, text)
			}
		}
	}
	return nil
}

func (t *TreeSitter) collectRequires(qm *QueryManager, jsx bool, root *ts.Node, source []byte, report *npm.Inspect) error {
	query, err := qm.Query("requires", jsx)
	if err != nil {
		return err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	matches := cursor.Matches(query, root, source)
	captureNames := query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		var fn string
		var call *ts.Node
		for _, capture := range match.Captures {
			switch captureNames[capture.Index] {
			case "require.fn":
				fn = capture.Node.Utf8Text(source)
			case "require.call":
				call = &capture.Node
			}
		}
		if fn != "require" || call == nil {
			continue
		}

		args := call.ChildByFieldName("arguments")
		if args == nil || args.NamedChildCount() == 0 {
			continue
		}
		arg := args.NamedChild(0)
		if arg.Kind() == "string" {
			report.JsRequires = append(report.JsRequires, stringText(arg, source))
			continue
		}
		report.JsInvalidRequires = append(report.JsInvalidRequires, issueAt(arg, source, "non-literal require argument"))
	}
	return nil
}

func (t *TreeSitter) collectGlobals(qm *QueryManager, jsx bool, root *ts.Node, source []byte, report *npm.Inspect) error {
	query, err := qm.Query("globals", jsx)
	if err != nil {
		return err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	matches := cursor.Matches(query, root, source)

	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, capture := range match.Captures {
			switch capture.Node.Utf8Text(source) {
			case "process":
				report.UsesGlobalProcess = true
			case "Buffer":
				report.UsesGlobalBuffer = true
			}
		}
	}
	return nil
}

func (t *TreeSitter) collectErrors(qm *QueryManager, jsx bool, root *ts.Node, source []byte, report *npm.Inspect) error {
	query, err := qm.Query("errors", jsx)
	if err != nil {
		return err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	matches := cursor.Matches(query, root, source)

	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, capture := range match.Captures {
			report.JsErrors = append(report.JsErrors, issueAt(&capture.Node, source, "parse error"))
		}
	}
	return nil
}

// stringText concatenates the fragments of a string literal node,
// skipping the quotes.
func stringText(node *ts.Node, source []byte) string {
	var sb strings.Builder
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Kind() == "string_fragment" {
			sb.WriteString(child.Utf8Text(source))
		}
	}
	return sb.String()
}

func issueAt(node *ts.Node, source []byte, message string) npm.InspectIssue {
	pos := node.StartPosition()
	snippet := node.Utf8Text(source)
	if len(snippet) > 40 {
		snippet = snippet[:40]
	}
	return npm.InspectIssue{
		Line:    int(pos.Row) + 1,
		Col:     int(pos.Column),
		Message: fmt.Sprintf("%s: %s", message, snippet),
	}
}
