// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Setup is a story generated from a one-line prompt: the cast and the
// opening scene that seed a conversation when no scene file is given.
type Setup struct {
	Title        string           `json:"title"`
	OpeningScene string           `json:"opening_scene"`
	Characters   []SetupCharacter `json:"characters"`
}

// SetupCharacter is one generated cast member.
type SetupCharacter struct {
	Name      string `json:"name"`
	Backstory string `json:"backstory"`

	// VoiceDescription describes how the character sounds, for voice
	// search or voice design.
	VoiceDescription string `json:"voice_description"`
}

// Validate reports every missing or duplicate field.
func (setup Setup) Validate() error {
	var errs []error
	if strings.TrimSpace(setup.Title) == "" {
		errs = append(errs, errors.New("title is empty"))
	}
	if strings.TrimSpace(setup.OpeningScene) == "" {
		errs = append(errs, errors.New("opening scene is empty"))
	}
	if len(setup.Characters) == 0 {
		errs = append(errs, errors.New("no characters"))
	}
	seen := make(map[string]bool)
	for i, character := range setup.Characters {
		name := normalizeName(character.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("character %d has no name", i+1))
		case name == noneAnswer || strings.EqualFold(strings.TrimSpace(character.Name), "narrator"):
			errs = append(errs, fmt.Errorf("character %d uses reserved name %q", i+1, character.Name))
		case seen[name]:
			errs = append(errs, fmt.Errorf("character name %q appears twice", character.Name))
		}
		seen[name] = true
	}
	return errors.Join(errs...)
}

const setupInstruction = `Create a story from this prompt:

%s

Reply with a single JSON object and nothing else:
{
  "title": "short title",
  "opening_scene": "two or three sentences setting the scene",
  "characters": [
    {"name": "first name only", "backstory": "who they are and how they talk", "voice_description": "age, accent, and tone of voice"}
  ]
}
Use between two and four characters.`

// GenerateSetup asks the narrator to invent a title, an opening scene,
// and a cast for storyPrompt. A reply wrapped in a Markdown code fence
// is accepted.
func (n *Narrator) GenerateSetup(ctx context.Context, storyPrompt string) (Setup, error) {
	reply, err := n.call(ctx, OperationSetup, CallRequest{
		Role:        n.role(),
		Instruction: fmt.Sprintf(setupInstruction, strings.TrimSpace(storyPrompt)),
		MaxTokens:   n.limits.Setup,
	})
	if err != nil {
		return Setup{}, err
	}

	var setup Setup
	if err := json.Unmarshal([]byte(extractJSONObject(reply)), &setup); err != nil {
		return Setup{}, &AgentCallError{
			Agent:     n.name,
			Operation: OperationSetup,
			Err:       fmt.Errorf("parsing story setup: %w", err),
		}
	}
	if err := setup.Validate(); err != nil {
		return Setup{}, &AgentCallError{
			Agent:     n.name,
			Operation: OperationSetup,
			Err:       fmt.Errorf("incomplete story setup: %w", err),
		}
	}
	for i := range setup.Characters {
		setup.Characters[i].Name = strings.TrimSpace(setup.Characters[i].Name)
	}
	return setup, nil
}

// extractJSONObject returns the text from the first '{' to the last
// '}', which drops code fences and any prose around the object.
func extractJSONObject(reply string) string {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return reply
	}
	return reply[start : end+1]
}
