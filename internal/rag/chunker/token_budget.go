package chunker

import (
	"github.com/finqa/ragqa/pkg/models"
)

// TokenBudgetConfig configures a token-budget-aware chunker.
type TokenBudgetConfig struct {
	// TargetTokens is the chunk size the splitter aims for. Default: 1000.
	TargetTokens int

	// OverlapTokens is the overlap carried between consecutive chunks.
	// Default: 200.
	OverlapTokens int

	// Markdown selects the Markdown-aware separator hierarchy
	// (heading-first) instead of the plain-text one.
	Markdown bool

	// TokenCounter estimates token counts; defaults to SimpleTokenCounter.
	TokenCounter TokenCounter
}

// DefaultTokenBudgetConfig returns the default token budget: 1000
// target tokens, 200 token overlap.
func DefaultTokenBudgetConfig() TokenBudgetConfig {
	return TokenBudgetConfig{
		TargetTokens:  1000,
		OverlapTokens: 200,
		TokenCounter:  &SimpleTokenCounter{CharsPerToken: 4},
	}
}

// ceilingFactor is the hard ceiling over TargetTokens a chunk may never
// exceed; any chunk the character splitter produces above this is forced
// through a second, unconditional character-boundary split.
const ceilingFactor = 1.5

// TokenBudgetSplitter generalizes RecursiveCharacterTextSplitter from a
// character budget to a token budget: it converts the configured token
// target/overlap into an approximate character budget for the underlying
// splitter, then enforces a hard ceiling of 1.5x the token target on every
// resulting chunk by force-splitting any chunk the heuristic conversion
// left oversized.
type TokenBudgetSplitter struct {
	cfg     TokenBudgetConfig
	inner   *RecursiveCharacterTextSplitter
	counter TokenCounter
}

// NewTokenBudgetSplitter creates a token-budget splitter.
func NewTokenBudgetSplitter(cfg TokenBudgetConfig) *TokenBudgetSplitter {
	if cfg.TargetTokens <= 0 {
		cfg.TargetTokens = DefaultTokenBudgetConfig().TargetTokens
	}
	if cfg.OverlapTokens < 0 || cfg.OverlapTokens >= cfg.TargetTokens {
		cfg.OverlapTokens = DefaultTokenBudgetConfig().OverlapTokens
	}
	counter := cfg.TokenCounter
	if counter == nil {
		counter = &SimpleTokenCounter{CharsPerToken: 4}
	}
	charsPerToken := 4
	if c, ok := counter.(*SimpleTokenCounter); ok && c.CharsPerToken > 0 {
		charsPerToken = c.CharsPerToken
	}

	charCfg := Config{
		ChunkSize:      cfg.TargetTokens * charsPerToken,
		ChunkOverlap:   cfg.OverlapTokens * charsPerToken,
		MinChunkSize:   DefaultConfig().MinChunkSize,
		KeepSeparators: true,
	}

	var inner *RecursiveCharacterTextSplitter
	if cfg.Markdown {
		inner = NewMarkdownSplitter(charCfg)
	} else {
		inner = NewRecursiveCharacterTextSplitter(charCfg)
	}
	inner.WithTokenCounter(counter)

	return &TokenBudgetSplitter{cfg: cfg, inner: inner, counter: counter}
}

// Name returns the chunker name.
func (s *TokenBudgetSplitter) Name() string {
	return "token_budget"
}

// Chunk splits a document on a token budget, enforcing a hard 1.5x ceiling
// over the target on every produced chunk.
func (s *TokenBudgetSplitter) Chunk(doc *models.Document, parseResult *ParseResult) ([]*models.DocumentChunk, error) {
	chunks, err := s.inner.Chunk(doc, parseResult)
	if err != nil {
		return nil, err
	}

	ceiling := int(float64(s.cfg.TargetTokens) * ceilingFactor)
	out := make([]*models.DocumentChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.TokenCount <= ceiling {
			out = append(out, c)
			continue
		}
		out = append(out, s.forceSplit(c, ceiling)...)
	}
	for i, c := range out {
		c.Index = i
	}
	return out, nil
}

// forceSplit breaks a single oversized chunk into ceiling-sized pieces on
// a plain character boundary, bypassing the separator hierarchy. This is
// the backstop for content with no natural break points (e.g. one
// enormous unbroken line) that the recursive splitter couldn't shrink.
func (s *TokenBudgetSplitter) forceSplit(c *models.DocumentChunk, ceilingTokens int) []*models.DocumentChunk {
	charsPerToken := 4
	if sc, ok := s.counter.(*SimpleTokenCounter); ok && sc.CharsPerToken > 0 {
		charsPerToken = sc.CharsPerToken
	}
	maxChars := ceilingTokens * charsPerToken
	if maxChars <= 0 {
		return []*models.DocumentChunk{c}
	}

	runes := []rune(c.Content)
	var out []*models.DocumentChunk
	for start := 0; start < len(runes); start += maxChars {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		piece := string(runes[start:end])
		out = append(out, &models.DocumentChunk{
			ID:          c.ID + "-" + itoa(len(out)),
			DocumentID:  c.DocumentID,
			Content:     piece,
			StartOffset: c.StartOffset + start,
			EndOffset:   c.StartOffset + end,
			Metadata:    c.Metadata,
			TokenCount:  s.counter.Count(piece),
			CreatedAt:   c.CreatedAt,
		})
	}
	if len(out) == 0 {
		return []*models.DocumentChunk{c}
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
