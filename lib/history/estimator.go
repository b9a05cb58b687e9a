// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEstimator sizes one message for budget enforcement. Estimates
// must be deterministic and should not decrease as text grows. History
// estimates each message once, at Append, and keeps that cost.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// DefaultCharactersPerToken overestimates slightly for English prose;
// BPE tokenizers average 3.5 to 4.5 characters per token.
const DefaultCharactersPerToken = 4.0

// DefaultMessageOverhead is the framing cost of one message, in
// characters (role markers and separators the provider adds).
const DefaultMessageOverhead = 20

// CharEstimator estimates tokens from a fixed characters-per-token
// ratio. The ratio never adapts, so an appended message keeps the
// estimate it was given.
type CharEstimator struct {
	charactersPerToken float64
	overhead           int
}

// NewCharEstimator creates a CharEstimator. A non-positive ratio
// selects DefaultCharactersPerToken; a negative overhead selects
// DefaultMessageOverhead.
func NewCharEstimator(charactersPerToken float64, overhead int) *CharEstimator {
	if charactersPerToken <= 0 {
		charactersPerToken = DefaultCharactersPerToken
	}
	if overhead < 0 {
		overhead = DefaultMessageOverhead
	}
	return &CharEstimator{
		charactersPerToken: charactersPerToken,
		overhead:           overhead,
	}
}

// EstimateTokens counts runes plus the framing overhead and divides
// by the ratio, rounding up.
func (estimator *CharEstimator) EstimateTokens(text string) int {
	characters := utf8.RuneCountInString(text) + estimator.overhead
	return int(math.Ceil(float64(characters) / estimator.charactersPerToken))
}

// runesPerTokenCeiling bounds how many runes one BPE token is assumed
// to cover when flooring a count.
const runesPerTokenCeiling = 8

// messageTokenOverhead is the per-message framing cost in tokens for
// chat-formatted prompts (<|start|>role\n ... <|end|>\n).
const messageTokenOverhead = 4

// TiktokenEstimator counts BPE tokens with an OpenAI encoding. For
// non-OpenAI models the count is an approximation that is still far
// closer than a character ratio for non-English text.
type TiktokenEstimator struct {
	encoding string
	encoder  *tiktoken.Tiktoken
}

// NewTiktokenEstimator loads the encoding for model, falling back to
// cl100k_base for models tiktoken does not know. Loading may fetch
// the BPE ranks on first use; callers fall back to a CharEstimator
// when it fails.
func NewTiktokenEstimator(model string) (*TiktokenEstimator, error) {
	encoding := encodingForModel(model)
	encoder, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("history: loading tiktoken encoding %s: %w", encoding, err)
	}
	return &TiktokenEstimator{encoding: encoding, encoder: encoder}, nil
}

// Encoding returns the tiktoken encoding name in use.
func (estimator *TiktokenEstimator) Encoding() string {
	return estimator.encoding
}

// EstimateTokens returns the BPE token count plus the framing overhead.
//
// A BPE count is not monotonic in the text: appending characters can
// merge existing tokens and lower the count by a few. The count is
// floored at one token per runesPerTokenCeiling runes, so it never
// falls far below the text's size, but a longer text may still
// estimate slightly lower than its prefix.
func (estimator *TiktokenEstimator) EstimateTokens(text string) int {
	return flooredTokens(len(estimator.encoder.Encode(text, nil, nil)), text) + messageTokenOverhead
}

// flooredTokens raises a tokenizer's count to the rune-based floor.
func flooredTokens(count int, text string) int {
	runes := utf8.RuneCountInString(text)
	return max(count, (runes+runesPerTokenCeiling-1)/runesPerTokenCeiling)
}

func encodingForModel(model string) string {
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "gpt-4.1"),
		strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return "o200k_base"
	default:
		return "cl100k_base"
	}
}
