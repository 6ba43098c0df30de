// Package image builds illustration prompts and drives an asynchronous
// image generation provider with bounded polling.
package image

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// styleSuffix is appended to every prompt for a consistent look.
const styleSuffix = "digital art style, vibrant neon colors, cinematic lighting, high detail, surreal, no text overlay"

// maxSalientTerms caps how many excerpt terms flavor the prompt.
const maxSalientTerms = 3

// scenarioTemplates are absurdist scene setups parameterized by keyword.
var scenarioTemplates = []string{
	"a colossal monument to %s rising out of a misty ocean at dawn",
	"a crowd of penguins in business suits holding a conference about %s",
	"an astronaut discovering %s on the surface of a candy-colored moon",
	"a renaissance oil painting of royalty presenting %s to a dragon",
	"a neon-lit night market where every stall sells %s",
	"a giant mechanical octopus carefully arranging %s on a beach",
}

var stopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "your": true,
	"have": true, "will": true, "about": true, "they": true, "them": true,
	"their": true, "what": true, "when": true, "where": true, "which": true,
	"into": true, "more": true, "some": true, "also": true, "been": true,
	"post": true, "blog": true,
}

// PromptBuilder composes illustration prompts. The random source is
// injectable so tests can pin template choice.
type PromptBuilder struct {
	rand *rand.Rand
}

// NewPromptBuilder builds a prompt builder over the given random source.
// A nil source gets a time-seeded one.
func NewPromptBuilder(r *rand.Rand) *PromptBuilder {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &PromptBuilder{rand: r}
}

// Build composes a prompt: one absurdist scenario for the keyword, up to
// three salient terms from the excerpt, and the fixed style suffix.
func (b *PromptBuilder) Build(keyword, excerpt string) string {
	template := scenarioTemplates[b.rand.Intn(len(scenarioTemplates))]

	parts := []string{fmt.Sprintf(template, keyword)}
	if terms := SalientTerms(excerpt); len(terms) > 0 {
		parts = append(parts, "featuring "+strings.Join(terms, ", "))
	}
	parts = append(parts, styleSuffix)
	return strings.Join(parts, ", ")
}

// SalientTerms extracts up to three distinctive words from the excerpt's
// first sentence: longer than three characters, not a stop word, not a
// duplicate.
func SalientTerms(excerpt string) []string {
	sentence := excerpt
	if i := strings.IndexAny(excerpt, ".!?"); i >= 0 {
		sentence = excerpt[:i]
	}

	seen := make(map[string]bool)
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(sentence)) {
		word = strings.Trim(word, ",;:\"'()")
		if len(word) <= 3 || stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		terms = append(terms, word)
		if len(terms) == maxSalientTerms {
			break
		}
	}
	return terms
}
