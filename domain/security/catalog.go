// Package security provides prompt injection detection: an ordered signature
// catalog plus a heuristic scorer for text no signature matches.
// Everything here is pure; counters live in the app layer.
package security

import (
	"fmt"
	"regexp"
	"strings"
)

// Signature pairs a compiled pattern with an attack category (immutable).
type Signature struct {
	Pattern  *regexp.Regexp
	Category string
}

// Verdict is the outcome of checking one piece of text (value type).
type Verdict struct {
	Blocked    bool
	Category   string
	Matched    string  // matching substring, empty for heuristic blocks
	Confidence float64 // 0.0 - 1.0
}

// Confidence assigned to any signature hit.
const SignatureConfidence = 0.9

// CategoryHeuristic marks blocks produced by the scorer rather than a signature.
const CategoryHeuristic = "heuristic"

// rawSignatures is the built-in catalog, ordered: earlier entries win over
// later ones, and all built-ins win over custom signatures.
var rawSignatures = []struct{ pattern, category string }{
	// Direct instruction override
	{`ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`, "instruction_override"},
	{`forget\s+(all\s+)?(your\s+)?(instructions?|prompts?|rules?|training)`, "instruction_override"},
	{`disregard\s+(all\s+)?(previous|prior|your)\s+`, "instruction_override"},
	{`override\s+(your\s+)?(system|instructions?|rules?)`, "instruction_override"},
	{`new\s+instructions?\s*:`, "instruction_override"},

	// System prompt extraction
	{`(show|display|print|reveal|output|repeat)\s+(me\s+)?(your\s+)?(system\s+prompt|instructions?|rules?|config)`, "prompt_extraction"},
	{`what\s+(are|is)\s+your\s+(system\s+prompt|instructions?|rules?|initial\s+prompt)`, "prompt_extraction"},
	{`(copy|paste|dump)\s+(your\s+)?(system|initial)\s+(prompt|message|instructions?)`, "prompt_extraction"},

	// Role manipulation
	{`you\s+are\s+now\s+(a|an|the)\s+`, "role_manipulation"},
	{`act\s+as\s+(if\s+you\s+are\s+)?(a|an|the)?\s*(hacker|admin|root|developer)`, "role_manipulation"},
	{`pretend\s+(you\s+are|to\s+be)\s+(a|an|the)?\s*`, "role_manipulation"},
	{`switch\s+to\s+(developer|admin|debug|god)\s+mode`, "role_manipulation"},
	{`enable\s+(developer|admin|debug|sudo|root)\s+mode`, "role_manipulation"},
	{`enter\s+(DAN|developer|jailbreak)\s+mode`, "role_manipulation"},

	// Data exfiltration
	{`(show|give|tell|send)\s+(me\s+)?(the\s+)?(api|secret)\s*key`, "data_exfiltration"},
	{`(show|give|tell|send)\s+(me\s+)?(the\s+)?password`, "data_exfiltration"},
	{`(show|give|tell|send)\s+(me\s+)?(the\s+)?(previous|other)\s+(user|client|customer)`, "data_exfiltration"},
	{`(what|show)\s+(is|are)\s+(the\s+)?credentials?`, "data_exfiltration"},
	{`(list|show|dump)\s+(all\s+)?(env|environment)\s+variables?`, "data_exfiltration"},

	// Encoding tricks
	{`base64\s*decode`, "encoding_attack"},
	{`\\x[0-9a-f]{2}`, "encoding_attack"},
	{`&#\d+;`, "encoding_attack"},

	// Russian language attacks
	{`забудь\s+(все\s+)?(инструкции|правила|промпт)`, "instruction_override_ru"},
	{`покажи\s+(свой\s+)?(системный\s+промпт|инструкции|правила)`, "prompt_extraction_ru"},
	{`игнорируй\s+(все\s+)?(предыдущие\s+)?(инструкции|правила)`, "instruction_override_ru"},
	{`ты\s+теперь\s+`, "role_manipulation_ru"},
	{`(покажи|дай|выдай)\s+(мне\s+)?(api|секретный)\s*ключ`, "data_exfiltration_ru"},
}

// builtins compiled once at package init.
var builtins = func() []Signature {
	sigs := make([]Signature, 0, len(rawSignatures))
	for _, r := range rawSignatures {
		sigs = append(sigs, Signature{
			Pattern:  regexp.MustCompile(`(?i)` + r.pattern),
			Category: r.category,
		})
	}
	return sigs
}()

// Catalog is an ordered, immutable list of injection signatures.
type Catalog struct {
	signatures []Signature
}

// NewCatalog builds a catalog with custom signatures appended after the
// built-ins, so built-ins always take precedence on overlapping matches.
func NewCatalog(custom ...Signature) *Catalog {
	sigs := make([]Signature, 0, len(builtins)+len(custom))
	sigs = append(sigs, builtins...)
	sigs = append(sigs, custom...)
	return &Catalog{signatures: sigs}
}

// CompileSignature builds a case-insensitive signature from a pattern string.
func CompileSignature(pattern, category string) (Signature, error) {
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return Signature{}, fmt.Errorf("compile signature %q: %w", pattern, err)
	}
	return Signature{Pattern: re, Category: category}, nil
}

// Len returns the number of signatures in the catalog.
func (c *Catalog) Len() int {
	return len(c.signatures)
}

// Match scans text in registration order and returns the first hit.
// Matching is a substring search, not a full match.
func (c *Catalog) Match(text string) (Verdict, bool) {
	for _, sig := range c.signatures {
		if m := sig.Pattern.FindString(text); m != "" {
			return Verdict{
				Blocked:    true,
				Category:   sig.Category,
				Matched:    m,
				Confidence: SignatureConfidence,
			}, true
		}
	}
	return Verdict{}, false
}

// Evaluate runs the full check against one piece of text:
// empty or whitespace-only text passes, signatures are tried first in
// catalog order, and the heuristic scorer decides anything left over.
func Evaluate(c *Catalog, text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{}
	}

	norm := strings.ToLower(strings.TrimSpace(text))

	if v, ok := c.Match(norm); ok {
		return v
	}

	if score := Score(norm); score > BlockThreshold {
		return Verdict{
			Blocked:    true,
			Category:   CategoryHeuristic,
			Confidence: score,
		}
	}

	return Verdict{}
}
