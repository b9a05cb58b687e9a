// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"strings"
	"sync"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// noneAnswer is the narrator's way of choosing nobody.
const noneAnswer = "none"

// selector maps a narrator answer to a candidate name.
type selector struct {
	fuzzy bool

	// slab is fzf's scratch memory, reused across matches.
	mu   sync.Mutex
	slab *util.Slab
}

func newSelector(fuzzy bool) *selector {
	s := &selector{fuzzy: fuzzy}
	if fuzzy {
		s.slab = util.MakeSlab(16*1024, 2048)
	}
	return s
}

// normalizeName lowercases s and strips surrounding whitespace and
// punctuation, so "Ana." and " ana " both compare equal to "Ana".
func normalizeName(s string) string {
	return strings.ToLower(strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
}

// match returns the candidate the answer names. An answer of NONE
// returns ("", true). An answer that names no candidate, or (in fuzzy
// mode) names several equally well, returns ("", false).
func (s *selector) match(answer string, candidates []string) (string, bool) {
	normalized := normalizeName(answer)
	if normalized == noneAnswer {
		return "", true
	}
	for _, candidate := range candidates {
		if normalizeName(candidate) == normalized {
			return candidate, true
		}
	}
	if s.fuzzy && normalized != "" {
		return s.fuzzyMatch(answer, candidates)
	}
	return "", false
}

// fuzzyMatch scores every candidate name as an fzf pattern against the
// answer and accepts the best only when no other candidate ties it.
func (s *selector) fuzzyMatch(answer string, candidates []string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	input := util.ToChars([]byte(answer))
	best, bestScore, tied := "", 0, false
	for _, candidate := range candidates {
		pattern := []rune(strings.ToLower(candidate))
		result, _ := algo.FuzzyMatchV2(false, true, true, &input, pattern, false, s.slab)
		if result.Start < 0 || result.Score <= 0 {
			continue
		}
		switch {
		case result.Score > bestScore:
			best, bestScore, tied = candidate, result.Score, false
		case result.Score == bestScore:
			tied = true
		}
	}
	if best == "" || tied {
		return "", false
	}
	return best, true
}
