// Package pii implements the PII Anonymizer: regex-driven entity detection
// over extracted text plus a strategy-driven rewrite, producing a per-entity
// audit trail alongside the rewritten text.
//
// Entity detection builds on the same regexp-based redaction idiom the
// logging layer uses for log-line secret scrubbing (internal/observability's
// DefaultRedactPatterns); no NER library exists in the example corpus, so
// the person/location detectors below are heuristic regexes rather than a
// statistical model, the same approach the logger takes to sensitive-data
// matching.
package pii

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

// Strategy selects how a detected span is rewritten.
type Strategy string

const (
	StrategyRedact  Strategy = "redact"
	StrategyReplace Strategy = "replace"
	StrategyMask    Strategy = "mask"
	StrategyHash    Strategy = "hash"
	StrategyKeep    Strategy = "keep"
)

// EntityType categorizes a detected span.
type EntityType string

const (
	EntityEmail      EntityType = "email"
	EntityPhone      EntityType = "phone"
	EntityCreditCard EntityType = "credit_card"
	EntitySSN        EntityType = "ssn"
	EntityPerson     EntityType = "person"
	EntityLocation   EntityType = "location"
	EntityDateTime   EntityType = "date_time"
	EntityIBAN       EntityType = "iban"
	EntityIP         EntityType = "ip"
	EntityURL        EntityType = "url"
)

// Entity is the audit record for one detected span. OriginalText is only
// populated when the applied strategy is StrategyKeep.
type Entity struct {
	Type         EntityType
	Score        float64
	Start        int
	End          int
	OriginalText string
}

// Result is the outcome of an Anonymize call.
type Result struct {
	Text     string
	Entities []Entity
}

// detector pairs an entity type with its matcher and a fixed confidence
// score (these patterns are deterministic, so "confidence" is really a
// precision estimate for that pattern class).
type detector struct {
	entityType EntityType
	pattern    *regexp.Regexp
	score      float64
}

// builtinDetectors covers the supported entity types. Order matters
// only for readability; overlapping matches are deduplicated by offset in
// detectAll.
var builtinDetectors = []detector{
	{EntityEmail, regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), 0.95},
	{EntityIBAN, regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`), 0.9},
	{EntityCreditCard, regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`), 0.85},
	{EntitySSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), 0.9},
	{EntityIP, regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|[01]?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|[01]?\d?\d)\b`), 0.9},
	{EntityURL, regexp.MustCompile(`\bhttps?://[^\s)>\]]+`), 0.9},
	{EntityPhone, regexp.MustCompile(`\+?\d{1,3}[ .\-]?\(?\d{3}\)?[ .\-]?\d{3}[ .\-]?\d{4}\b`), 0.75},
	{EntityDateTime, regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2})?)?\b`), 0.8},
	// Person: a bare two-or-three-word capitalized run ("Jane Doe"),
	// heuristic and deliberately low-confidence so it only fires above a
	// caller-raised minScore.
	{EntityPerson, regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+){1,2}\b`), 0.55},
	// Location: capitalized word immediately followed by a comma and a
	// two-letter region code ("Austin, TX"), common in address-shaped text.
	{EntityLocation, regexp.MustCompile(`\b[A-Z][a-zA-Z]+, [A-Z]{2}\b`), 0.6},
}

// Anonymize detects PII spans in text and rewrites every span whose
// detection score is >= minScore according to strategy. Entities are
// applied right-to-left by offset so earlier offsets stay valid as later
// (higher-offset) spans are rewritten first. The returned entities list
// never carries OriginalText unless strategy is StrategyKeep.
func Anonymize(text string, strategy Strategy, placeholder string, minScore float64) Result {
	spans := detectAll(text)

	var kept []Entity
	for _, e := range spans {
		if e.Score >= minScore {
			kept = append(kept, e)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start > kept[j].Start })

	out := text
	for i := range kept {
		e := &kept[i]
		original := out[e.Start:e.End]
		replacement := rewrite(original, strategy, placeholder)
		out = out[:e.Start] + replacement + out[e.End:]
		if strategy == StrategyKeep {
			e.OriginalText = original
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return Result{Text: out, Entities: kept}
}

// detectAll runs every builtin detector over text and removes
// lower-precedence matches that overlap a higher-precedence one (e.g. a
// credit-card digit run that also matches inside a phone-number span).
func detectAll(text string) []Entity {
	var all []Entity
	for _, d := range builtinDetectors {
		for _, loc := range d.pattern.FindAllStringIndex(text, -1) {
			all = append(all, Entity{Type: d.entityType, Score: d.score, Start: loc[0], End: loc[1]})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return (all[i].End - all[i].Start) > (all[j].End - all[j].Start)
	})

	var out []Entity
	lastEnd := -1
	for _, e := range all {
		if e.Start < lastEnd {
			continue
		}
		out = append(out, e)
		lastEnd = e.End
	}
	return out
}

func rewrite(original string, strategy Strategy, placeholder string) string {
	switch strategy {
	case StrategyRedact:
		return ""
	case StrategyReplace:
		return placeholder
	case StrategyMask:
		return maskPreservingSeparators(original)
	case StrategyHash:
		sum := sha256.Sum256([]byte(original))
		return "h_" + hex.EncodeToString(sum[:])[:12]
	case StrategyKeep:
		return original
	default:
		return original
	}
}

// maskPreservingSeparators replaces every letter/digit with '*' while
// leaving common separators (space, dash, dot, @, parentheses) intact, so
// a masked phone number or email still reads as shaped.
func maskPreservingSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '-', '.', '@', '(', ')', '+', '_', ',':
			b.WriteRune(r)
		default:
			b.WriteByte('*')
		}
	}
	return b.String()
}
