// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Mode selects how a conversation is presented.
type Mode string

const (
	// ModePlain writes styled text to stdout.
	ModePlain Mode = "plain"
	// ModeTUI runs the full-screen terminal interface.
	ModeTUI Mode = "tui"
	// ModeHeadless produces no output besides logs.
	ModeHeadless Mode = "headless"
)

// Provider names an LLM wire protocol.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Estimator names a token estimation strategy for the history budget.
type Estimator string

const (
	// EstimatorChars divides character counts by a fixed ratio.
	EstimatorChars Estimator = "chars"
	// EstimatorTiktoken counts BPE tokens for the configured model.
	EstimatorTiktoken Estimator = "tiktoken"
)

// Config describes one conversation: the scene, the cast, and the
// settings of every collaborator.
type Config struct {
	// Title names the story. Shown in the presenter and the transcript.
	Title string `yaml:"title" json:"title"`

	// OpeningScene is the first narrator message.
	OpeningScene string `yaml:"opening_scene" json:"opening_scene"`

	Narrator   NarratorConfig    `yaml:"narrator" json:"narrator"`
	Characters []CharacterConfig `yaml:"characters" json:"characters"`
	Run        RunConfig         `yaml:"run" json:"run"`
	LLM        LLMConfig         `yaml:"llm" json:"llm"`
	History    HistoryConfig     `yaml:"history" json:"history"`
	Selection  SelectionConfig   `yaml:"selection" json:"selection"`
	Voice      VoiceConfig       `yaml:"voice" json:"voice"`
	Transcript TranscriptConfig  `yaml:"transcript" json:"transcript"`
}

// NarratorConfig configures the narrator.
type NarratorConfig struct {
	// Guide steers tone, pacing, and plot.
	Guide string `yaml:"guide" json:"guide"`

	// GuideFile, when set, replaces Guide with the file's contents.
	// Relative paths resolve against the config file's directory.
	GuideFile string `yaml:"guide_file" json:"guide_file"`
}

// CharacterConfig is one cast member.
type CharacterConfig struct {
	Name string `yaml:"name" json:"name"`

	// Persona is free text: who the character is and how they talk.
	Persona string `yaml:"persona" json:"persona"`

	// PersonaFile, when set, replaces Persona with the file's contents.
	PersonaFile string `yaml:"persona_file" json:"persona_file"`

	// VoiceID is the ElevenLabs voice. Empty means silent unless
	// VoiceDescription finds one.
	VoiceID string `yaml:"voice_id" json:"voice_id"`

	// VoiceDescription is a voice search query, used when VoiceID is
	// empty.
	VoiceDescription string `yaml:"voice_description" json:"voice_description"`
}

// RunConfig bounds and paces the conversation loop.
type RunConfig struct {
	// MaxTurns is the number of turns to run.
	// Default: 20
	MaxTurns int `yaml:"max_turns" json:"max_turns"`

	// TokenBudget bounds the history given to agents. Zero disables
	// truncation.
	// Default: 8000
	TokenBudget int `yaml:"token_budget" json:"token_budget"`

	// QuietTurnLimit stops the run after that many consecutive turns in
	// which nobody wanted to speak. Zero disables it.
	// Default: 3
	QuietTurnLimit int `yaml:"quiet_turn_limit" json:"quiet_turn_limit"`

	// Mode is plain, tui, or headless.
	// Default: plain
	Mode Mode `yaml:"mode" json:"mode"`

	// Pace is the pause after each presented turn, as a Go duration.
	// Default: 0s
	Pace string `yaml:"pace" json:"pace"`

	// Stream shows narration and dialogue as they are generated.
	// Default: true
	Stream bool `yaml:"stream" json:"stream"`
}

// LLMConfig selects the model backend.
type LLMConfig struct {
	// Provider is anthropic or openai (any OpenAI-compatible server).
	// Default: anthropic
	Provider Provider `yaml:"provider" json:"provider"`

	// Model is sent with every request.
	// Default: claude-sonnet-4-20250514
	Model string `yaml:"model" json:"model"`

	// BaseURL overrides the provider's API root.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// APIKey authenticates requests. When empty after expansion,
	// ANTHROPIC_API_KEY or OPENAI_API_KEY is used.
	APIKey string `yaml:"api_key" json:"api_key"`

	// MaxTokens caps each operation's reply. Zero uses the built-in
	// limit for that operation.
	MaxTokens TokenLimitsConfig `yaml:"max_tokens" json:"max_tokens"`
}

// TokenLimitsConfig caps reply lengths per operation.
type TokenLimitsConfig struct {
	Poll    int `yaml:"poll" json:"poll"`
	Select  int `yaml:"select" json:"select"`
	Narrate int `yaml:"narrate" json:"narrate"`
	Speak   int `yaml:"speak" json:"speak"`
	Setup   int `yaml:"setup" json:"setup"`
}

// Reply caps the conversation engine applies when a limit is zero.
const (
	defaultNarrateTokens = 300
	defaultSpeakTokens   = 500
)

// turnTokens is the most one turn can add to the history: a narration
// and a line. The budget never evicts the current turn, so it must
// hold at least this much.
func (limits TokenLimitsConfig) turnTokens() int {
	narrate, speak := limits.Narrate, limits.Speak
	if narrate == 0 {
		narrate = defaultNarrateTokens
	}
	if speak == 0 {
		speak = defaultSpeakTokens
	}
	return narrate + speak
}

// HistoryConfig selects the token estimator.
type HistoryConfig struct {
	// Estimator is chars or tiktoken.
	// Default: chars
	Estimator Estimator `yaml:"estimator" json:"estimator"`

	// CharactersPerToken is the chars estimator's ratio. Zero uses 4.
	CharactersPerToken float64 `yaml:"characters_per_token" json:"characters_per_token"`
}

// SelectionConfig tunes speaker selection.
type SelectionConfig struct {
	// Fuzzy accepts a narrator answer that fuzzily names exactly one
	// candidate.
	Fuzzy bool `yaml:"fuzzy" json:"fuzzy"`
}

// VoiceConfig configures ElevenLabs speech.
type VoiceConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// APIKey authenticates requests. When empty after expansion,
	// ELEVENLABS_API_KEY is used.
	APIKey string `yaml:"api_key" json:"api_key"`

	// BaseURL overrides https://api.elevenlabs.io.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Model is the ElevenLabs model_id.
	// Default: eleven_multilingual_v2
	Model string `yaml:"model" json:"model"`

	// NarratorVoiceID is the narrator's voice.
	NarratorVoiceID string `yaml:"narrator_voice_id" json:"narrator_voice_id"`

	// CacheSize is the number of synthesized clips kept in memory.
	// Default: 50
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	// Player is the audio player command; the clip's path is appended.
	// Empty means the first of ffplay, mpv, and afplay found in PATH.
	Player []string `yaml:"player" json:"player"`
}

// TranscriptConfig configures the session log and run archive.
type TranscriptConfig struct {
	// Path is the JSONL session log. Empty disables it.
	Path string `yaml:"path" json:"path"`

	// ArchivePath is the compressed CBOR run archive. Empty disables it.
	ArchivePath string `yaml:"archive_path" json:"archive_path"`

	// Compression is zstd, lz4, or none.
	// Default: zstd
	Compression string `yaml:"compression" json:"compression"`
}

// Default returns the configuration used as the base for every file.
// It has no scene and no cast; those must come from a file or from a
// generated story.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			MaxTurns:       20,
			TokenBudget:    8000,
			QuietTurnLimit: 3,
			Mode:           ModePlain,
			Pace:           "0s",
			Stream:         true,
		},
		LLM: LLMConfig{
			Provider: ProviderAnthropic,
			Model:    "claude-sonnet-4-20250514",
		},
		History: HistoryConfig{
			Estimator: EstimatorChars,
		},
		Voice: VoiceConfig{
			Model:           "eleven_multilingual_v2",
			NarratorVoiceID: "rPZcDAY6w7P5W4oOXZYc",
			CacheSize:       50,
		},
		Transcript: TranscriptConfig{
			Compression: "zstd",
		},
	}
}

// Load loads configuration from the ENSEMBLE_CONFIG environment
// variable. There is no discovery: if the variable is unset, this
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv("ENSEMBLE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("ENSEMBLE_CONFIG environment variable not set; " +
			"set it to the path of a scene file, or use --config")
	}
	return LoadFile(configPath)
}

// LoadFile loads a scene file. YAML is read from .yaml and .yml files;
// JSON with comments and trailing commas from .json and .jsonc files.
// After decoding, ${VAR} references are expanded, persona and guide
// files are read, and missing API keys are taken from the environment.
// The result is not validated; call [Config.Validate].
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(path)
	cfg.expandVariables(baseDir)
	if err := cfg.readTextFiles(baseDir); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.ResolveAPIKeys()

	return cfg, nil
}

// loadFile decodes one file over the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	switch extension := strings.ToLower(filepath.Ext(path)); extension {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%s: unsupported extension %q (use .yaml, .yml, .json, or .jsonc)", path, extension)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in paths, URLs,
// and secrets. ${CONFIG_DIR} is the directory holding the file.
func (c *Config) expandVariables(baseDir string) {
	vars := map[string]string{
		"CONFIG_DIR": baseDir,
		"HOME":       os.Getenv("HOME"),
	}

	c.Narrator.GuideFile = expandVars(c.Narrator.GuideFile, vars)
	for i := range c.Characters {
		c.Characters[i].PersonaFile = expandVars(c.Characters[i].PersonaFile, vars)
	}
	c.LLM.BaseURL = expandVars(c.LLM.BaseURL, vars)
	c.LLM.APIKey = expandVars(c.LLM.APIKey, vars)
	c.Voice.BaseURL = expandVars(c.Voice.BaseURL, vars)
	c.Voice.APIKey = expandVars(c.Voice.APIKey, vars)
	for i := range c.Voice.Player {
		c.Voice.Player[i] = expandVars(c.Voice.Player[i], vars)
	}
	c.Transcript.Path = expandVars(c.Transcript.Path, vars)
	c.Transcript.ArchivePath = expandVars(c.Transcript.ArchivePath, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Provided vars first, then the environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// readTextFiles replaces inline persona and guide text with the
// contents of persona_file and guide_file.
func (c *Config) readTextFiles(baseDir string) error {
	if c.Narrator.GuideFile != "" {
		text, err := readText(baseDir, c.Narrator.GuideFile)
		if err != nil {
			return fmt.Errorf("narrator.guide_file: %w", err)
		}
		c.Narrator.Guide = text
	}
	for i := range c.Characters {
		character := &c.Characters[i]
		if character.PersonaFile == "" {
			continue
		}
		text, err := readText(baseDir, character.PersonaFile)
		if err != nil {
			return fmt.Errorf("characters[%d].persona_file: %w", i, err)
		}
		character.Persona = text
	}
	return nil
}

func readText(baseDir, path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ResolveAPIKeys fills empty API keys from the provider's standard
// environment variable.
func (c *Config) ResolveAPIKeys() {
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case ProviderAnthropic:
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case ProviderOpenAI:
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if c.Voice.APIKey == "" {
		c.Voice.APIKey = os.Getenv("ELEVENLABS_API_KEY")
	}
}

// PaceDuration returns Run.Pace parsed.
func (c *Config) PaceDuration() (time.Duration, error) {
	if c.Run.Pace == "" {
		return 0, nil
	}
	pace, err := time.ParseDuration(c.Run.Pace)
	if err != nil {
		return 0, fmt.Errorf("run.pace: %w", err)
	}
	if pace < 0 {
		return 0, fmt.Errorf("run.pace %s is negative", pace)
	}
	return pace, nil
}

// Validate checks the whole configuration, including the scene and
// cast, and reports every problem at once.
func (c *Config) Validate() error {
	errs := c.validateScene()
	if err := c.ValidateSettings(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateSettings checks everything except the scene and cast. A run
// that generates its story from a prompt validates settings first and
// the generated scene afterwards.
func (c *Config) ValidateSettings() error {
	var errs []error

	if c.Run.MaxTurns < 1 {
		errs = append(errs, fmt.Errorf("run.max_turns must be at least 1, got %d", c.Run.MaxTurns))
	}
	if c.Run.TokenBudget < 0 {
		errs = append(errs, fmt.Errorf("run.token_budget must not be negative, got %d", c.Run.TokenBudget))
	}
	if turn := c.LLM.MaxTokens.turnTokens(); c.Run.TokenBudget > 0 && c.Run.TokenBudget < turn {
		errs = append(errs, fmt.Errorf("run.token_budget must be 0 or at least %d (llm.max_tokens.narrate + speak), got %d", turn, c.Run.TokenBudget))
	}
	if c.Run.QuietTurnLimit < 0 {
		errs = append(errs, fmt.Errorf("run.quiet_turn_limit must not be negative, got %d", c.Run.QuietTurnLimit))
	}
	modes := []Mode{ModePlain, ModeTUI, ModeHeadless}
	if !slices.Contains(modes, c.Run.Mode) {
		errs = append(errs, fmt.Errorf("run.mode must be one of: %v", modes))
	}
	if _, err := c.PaceDuration(); err != nil {
		errs = append(errs, err)
	}

	providers := []Provider{ProviderAnthropic, ProviderOpenAI}
	if !slices.Contains(providers, c.LLM.Provider) {
		errs = append(errs, fmt.Errorf("llm.provider must be one of: %v", providers))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if c.LLM.Provider == ProviderAnthropic && c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key is required for anthropic (or set ANTHROPIC_API_KEY)"))
	}
	limits := c.LLM.MaxTokens
	if limits.Poll < 0 || limits.Select < 0 || limits.Narrate < 0 || limits.Speak < 0 || limits.Setup < 0 {
		errs = append(errs, errors.New("llm.max_tokens values must not be negative"))
	}

	estimators := []Estimator{EstimatorChars, EstimatorTiktoken}
	if !slices.Contains(estimators, c.History.Estimator) {
		errs = append(errs, fmt.Errorf("history.estimator must be one of: %v", estimators))
	}
	if c.History.CharactersPerToken < 0 {
		errs = append(errs, errors.New("history.characters_per_token must not be negative"))
	}

	if c.Voice.Enabled && c.Voice.APIKey == "" {
		errs = append(errs, errors.New("voice.api_key is required when voice is enabled (or set ELEVENLABS_API_KEY)"))
	}
	if c.Voice.CacheSize < 0 {
		errs = append(errs, errors.New("voice.cache_size must not be negative"))
	}

	compressions := []string{"zstd", "lz4", "none"}
	if !slices.Contains(compressions, c.Transcript.Compression) {
		errs = append(errs, fmt.Errorf("transcript.compression must be one of: %v", compressions))
	}

	return errors.Join(errs...)
}

// reservedNames may not be used for characters: "narrator" labels
// narration and "none" is how the narrator picks nobody.
var reservedNames = []string{"narrator", "none"}

func (c *Config) validateScene() []error {
	var errs []error
	if strings.TrimSpace(c.OpeningScene) == "" {
		errs = append(errs, errors.New("opening_scene is required"))
	}
	if len(c.Characters) == 0 {
		errs = append(errs, errors.New("at least one character is required"))
	}
	seen := make(map[string]bool)
	for i, character := range c.Characters {
		name := strings.ToLower(strings.TrimSpace(character.Name))
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("characters[%d].name is required", i))
		case slices.Contains(reservedNames, name):
			errs = append(errs, fmt.Errorf("characters[%d].name %q is reserved", i, character.Name))
		case seen[name]:
			errs = append(errs, fmt.Errorf("characters[%d].name %q is used more than once", i, character.Name))
		}
		seen[name] = true
	}
	return errs
}

// CharacterNames returns the cast in file order.
func (c *Config) CharacterNames() []string {
	names := make([]string, len(c.Characters))
	for i, character := range c.Characters {
		names[i] = strings.TrimSpace(character.Name)
	}
	return names
}
