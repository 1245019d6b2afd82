// Package knowledge implements the agent's long-term knowledge engine:
// ingestion (load, preprocess, chunk, embed, dedup-store) and
// embedding-similarity retrieval of knowledge fragments, persisted through
// the runtime's document and fragment memory partitions.
package knowledge

import (
	"regexp"
	"strings"
)

var (
	fencedCodeRe   = regexp.MustCompile("```[\\s\\S]*?```")
	inlineCodeRe   = regexp.MustCompile("`[^`]*`")
	imageRe        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkRe         = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingRe      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	urlRe          = regexp.MustCompile(`https?://([^\s<>"'?#]+)[^\s<>"']*`)
	mentionRe      = regexp.MustCompile(`@[\w-]+`)
	htmlTagRe      = regexp.MustCompile(`<[^>]+>`)
	blockCommentRe = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	lineCommentRe  = regexp.MustCompile(`(?m)//.*$`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// Preprocess normalizes raw text before embedding or matching: code,
// markdown structure, raw URLs, mentions, HTML, and comment syntax are
// stripped, whitespace is collapsed, and the result is lower-cased. The
// function is pure and total: empty input yields "".
func Preprocess(text string) string {
	if text == "" {
		return ""
	}
	text = fencedCodeRe.ReplaceAllString(text, "")
	text = inlineCodeRe.ReplaceAllString(text, "")
	text = imageRe.ReplaceAllString(text, "$1")
	text = linkRe.ReplaceAllString(text, "$1")
	text = headingRe.ReplaceAllString(text, "")
	// Raw URLs reduce before line comments so "//" inside a scheme is not
	// taken for a comment; comments strip before emphasis so the "*" in
	// "/*" and "*/" is still intact when the comment regexes run.
	text = urlRe.ReplaceAllString(text, "$1")
	text = blockCommentRe.ReplaceAllString(text, "")
	text = lineCommentRe.ReplaceAllString(text, "")
	text = stripEmphasis(text)
	text = htmlTagRe.ReplaceAllString(text, "")
	text = mentionRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.ToLower(strings.TrimSpace(text))
}

// stripEmphasis removes bold and italic markers while keeping their text.
func stripEmphasis(text string) string {
	for _, marker := range []string{"**", "__", "*", "_"} {
		text = strings.ReplaceAll(text, marker, "")
	}
	return text
}
