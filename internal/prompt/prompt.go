// Package prompt turns catalog records into model prompts and
// filesystem-safe identifiers.
package prompt

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ivlev/planetreel/internal/catalog"
)

const baseTemplate = "A cinematic, highly detailed landscape of the exoplanet named %s. " +
	"Alien terrain, dramatic sky, vibrant colors, photorealistic"

// frameSuffix nudges consecutive frames apart a little; it is no substitute
// for a temporal model.
const frameSuffix = ", cinematic, ultra-detailed, wide shot, subtle camera movement, frame %d"

// Prompt is what the builder derives from one record.
type Prompt struct {
	Base       string
	Identifier string // sanitized name, may be empty; see Resolver
}

// Build derives the base prompt and sanitized identifier for a record.
func Build(r catalog.Record) Prompt {
	return Prompt{
		Base:       fmt.Sprintf(baseTemplate, r.Name),
		Identifier: Sanitize(r.Name),
	}
}

// FramePrompt returns the prompt for frame i (0-based). The suffix counts
// frames from 1.
func FramePrompt(base string, i int) string {
	return base + fmt.Sprintf(frameSuffix, i+1)
}

// Sanitize keeps letters, digits, spaces, hyphens and underscores, trims the
// result and maps spaces to underscores. Path separators count as word
// breaks so "a/b" becomes "a_b" rather than "ab". Sanitize is idempotent.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), r == '-', r == '_', r == ' ':
			b.WriteRune(r)
		case r == '/', r == '\\':
			b.WriteRune(' ')
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
}
