// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package voice

import (
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	markdownParser     goldmark.Markdown
	markdownParserOnce sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParser = goldmark.New()
	})
	return markdownParser
}

// SpeechText reduces model output to the words that should be spoken.
// Markdown structure is dropped and italic spans are removed entirely,
// since models write actions like *sighs* or _leans in_ that way. Bold
// text is kept. Paragraphs and line breaks become single spaces.
func SpeechText(markdown string) string {
	source := []byte(markdown)
	document := getMarkdownParser().Parser().Parse(text.NewReader(source))

	var builder strings.Builder
	space := func() {
		if builder.Len() > 0 {
			builder.WriteByte(' ')
		}
	}
	ast.Walk(document, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := node.(type) {
		case *ast.Emphasis:
			if node.Level == 1 {
				return ast.WalkSkipChildren, nil
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				builder.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					space()
				}
			}
		case *ast.String:
			if entering {
				builder.Write(node.Value)
			}
		default:
			if !entering && node.Type() == ast.TypeBlock {
				space()
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(builder.String()), " ")
}
