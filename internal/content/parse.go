package content

import (
	"regexp"
	"strings"

	"github.com/jblacklock/beast-blogger/internal/fetch"
)

// excerptMaxLen bounds synthesized excerpts.
const excerptMaxLen = 200

var (
	titleRe   = regexp.MustCompile(`(?s)<title>(.*?)</title>`)
	excerptRe = regexp.MustCompile(`(?s)<excerpt>(.*?)</excerpt>`)
	contentRe = regexp.MustCompile(`(?s)<content>(.*?)</content>`)
)

// ParseAnswer extracts the title, excerpt, and content sections from the
// model's final answer. Title and content are required; a missing excerpt
// is synthesized from the content.
func ParseAnswer(keyword, answer string) (title, excerpt, body string, err error) {
	title = extract(titleRe, answer)
	excerpt = extract(excerptRe, answer)
	body = extract(contentRe, answer)

	if title == "" {
		return "", "", "", &GenerationIncomplete{Keyword: keyword, Reason: "answer missing <title> section"}
	}
	if body == "" {
		return "", "", "", &GenerationIncomplete{Keyword: keyword, Reason: "answer missing <content> section"}
	}
	if excerpt == "" {
		excerpt = SynthesizeExcerpt(body)
	}
	return title, excerpt, body, nil
}

func extract(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// SynthesizeExcerpt builds an excerpt from article content: tags stripped,
// first sentence kept, truncated to 200 characters with an ellipsis.
func SynthesizeExcerpt(body string) string {
	text := fetch.StripTags(body)
	if text == "" {
		return ""
	}

	sentence := text
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		sentence = strings.TrimSpace(text[:i+1])
	}

	runes := []rune(sentence)
	if len(runes) > excerptMaxLen {
		return strings.TrimSpace(string(runes[:excerptMaxLen])) + "…"
	}
	return sentence
}
