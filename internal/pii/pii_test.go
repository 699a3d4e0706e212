package pii

import (
	"strings"
	"testing"
)

func TestAnonymizeReplace(t *testing.T) {
	text := "Contact jane@example.com for details."
	res := Anonymize(text, StrategyReplace, "[REDACTED]", 0.6)
	if !strings.Contains(res.Text, "[REDACTED]") {
		t.Fatalf("expected placeholder in output, got %q", res.Text)
	}
	if strings.Contains(res.Text, "jane@example.com") {
		t.Fatalf("original email leaked into output: %q", res.Text)
	}
	if len(res.Entities) != 1 || res.Entities[0].Type != EntityEmail {
		t.Fatalf("expected one email entity, got %+v", res.Entities)
	}
	if res.Entities[0].OriginalText != "" {
		t.Fatalf("replace strategy must not retain original text in audit record")
	}
}

func TestAnonymizeRedactRemovesSpan(t *testing.T) {
	text := "call 555-123-4567 now"
	res := Anonymize(text, StrategyRedact, "", 0.5)
	if strings.Contains(res.Text, "4567") {
		t.Fatalf("redact strategy left span text behind: %q", res.Text)
	}
}

func TestAnonymizeMaskPreservesSeparators(t *testing.T) {
	text := "ssn 123-45-6789 end"
	res := Anonymize(text, StrategyMask, "", 0.5)
	if !strings.Contains(res.Text, "***-**-****") {
		t.Fatalf("expected masked ssn with separators preserved, got %q", res.Text)
	}
}

func TestAnonymizeHashDeterministic(t *testing.T) {
	text := "email a@b.com"
	r1 := Anonymize(text, StrategyHash, "", 0.5)
	r2 := Anonymize(text, StrategyHash, "", 0.5)
	if r1.Text != r2.Text {
		t.Fatalf("hash strategy must be deterministic: %q vs %q", r1.Text, r2.Text)
	}
	if strings.Contains(r1.Text, "a@b.com") {
		t.Fatalf("hash strategy leaked original text: %q", r1.Text)
	}
}

func TestAnonymizeKeepRetainsOriginalInAudit(t *testing.T) {
	text := "email a@b.com"
	res := Anonymize(text, StrategyKeep, "", 0.5)
	if res.Text != text {
		t.Fatalf("keep strategy must not alter text, got %q", res.Text)
	}
	if len(res.Entities) != 1 || res.Entities[0].OriginalText != "a@b.com" {
		t.Fatalf("keep strategy must retain original text in audit record, got %+v", res.Entities)
	}
}

func TestAnonymizeRespectsMinScore(t *testing.T) {
	text := "Jane Doe lives here"
	high := Anonymize(text, StrategyRedact, "", 0.99)
	if len(high.Entities) != 0 {
		t.Fatalf("expected no entities above an unreachable min score, got %+v", high.Entities)
	}
	low := Anonymize(text, StrategyRedact, "", 0.4)
	if len(low.Entities) == 0 {
		t.Fatalf("expected the person heuristic to fire at a low min score")
	}
}

func TestAnonymizeOverlappingSpansDeduplicated(t *testing.T) {
	// A long digit run that could match both phone and credit-card
	// detectors; only one entity should be emitted for the span.
	text := "card 4111111111111111 used"
	res := Anonymize(text, StrategyMask, "", 0.6)
	if len(res.Entities) != 1 {
		t.Fatalf("expected overlapping detections to collapse to one entity, got %d: %+v", len(res.Entities), res.Entities)
	}
}

func TestAnonymizerDisabledIsNoop(t *testing.T) {
	a := New(false, "redact", "", 0.6)
	text := "email a@b.com"
	out, entities := a.Run(text)
	if out != text || entities != nil {
		t.Fatalf("disabled anonymizer must pass text through unchanged, got %q, %+v", out, entities)
	}
}

func TestAnonymizerEnabledAppliesStrategy(t *testing.T) {
	a := New(true, "replace", "[REDACTED]", 0.6)
	out, entities := a.Run("email a@b.com")
	if !strings.Contains(out, "[REDACTED]") {
		t.Fatalf("expected placeholder, got %q", out)
	}
	if len(entities) != 1 {
		t.Fatalf("expected one PII entity, got %+v", entities)
	}
}
