// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// FENCED CODE
// =============================================================================

// Segment is one run of an answer: prose, or the body of a fenced block.
type Segment struct {
	Code     bool
	Language string
	Text     string
}

// SplitFences splits text on ``` fences. An unclosed fence runs to the end
// of the text, which is what a streaming answer looks like mid-block.
func SplitFences(text string) []Segment {
	var segs []Segment
	var buf []string
	inCode := false
	lang := ""

	flush := func() {
		if len(buf) == 0 && !inCode {
			return
		}
		segs = append(segs, Segment{Code: inCode, Language: lang, Text: strings.Join(buf, "\n")})
		buf = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			flush()
			if inCode {
				inCode, lang = false, ""
			} else {
				inCode = true
				lang = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
			}
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return segs
}

// highlightCode colors code for a 256-color terminal. Unknown languages are
// guessed from the content; on any failure the code is returned unchanged.
func highlightCode(code, language, styleName string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// codeStyle picks a chroma style readable on the theme background.
func codeStyle(glamourStyle string) string {
	if glamourStyle == "light" {
		return "github"
	}
	return "monokai"
}
