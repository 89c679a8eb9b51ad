/*
Package config manages TOML config for langserve.

	[profile]
	top = 100
	sizes = [2, 3]
	fold_diacritics = false
	parallel = true

	[[languages]]
	code = "en"
	name = "English"
	corpus = "english.txt"

	[eval]
	file = "sentences.txt"
	on_malformed = "abort"
	per_label = false

	[server]
	max_text_len = 4096

	[cli]
	exit_word = "exit"
	show_scores = true

The order of [[languages]] is the classifier's tie-break order.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bastiangx/langserve/internal/utils"
	"github.com/bastiangx/langserve/pkg/eval"
	"github.com/bastiangx/langserve/pkg/identify"
	"github.com/bastiangx/langserve/pkg/ngram"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Profile   ProfileConfig    `toml:"profile"`
	Languages []LanguageConfig `toml:"languages"`
	Eval      EvalConfig       `toml:"eval"`
	Server    ServerConfig     `toml:"server"`
	CLI       CliConfig        `toml:"cli"`
}

// ProfileConfig holds profile building options.
type ProfileConfig struct {
	Top            int   `toml:"top"`
	Sizes          []int `toml:"sizes"`
	FoldDiacritics bool  `toml:"fold_diacritics"`
	Parallel       bool  `toml:"parallel"`
}

// LanguageConfig is one candidate language and its reference corpus.
// Relative corpus paths are resolved against the corpus dir.
type LanguageConfig struct {
	Code   string `toml:"code"`
	Name   string `toml:"name"`
	Corpus string `toml:"corpus"`
}

// EvalConfig holds evaluation harness options.
type EvalConfig struct {
	File        string `toml:"file"`
	OnMalformed string `toml:"on_malformed"`
	PerLabel    bool   `toml:"per_label"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	MaxTextLen int `toml:"max_text_len"`
}

// CliConfig holds interactive loop options.
type CliConfig struct {
	ExitWord   string `toml:"exit_word"`
	ShowScores bool   `toml:"show_scores"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Profile: ProfileConfig{
			Top:            ngram.DefaultTop,
			Sizes:          []int{2, 3},
			FoldDiacritics: false,
			Parallel:       true,
		},
		Languages: []LanguageConfig{
			{Code: "en", Name: "English", Corpus: "english.txt"},
			{Code: "de", Name: "German", Corpus: "german.txt"},
			{Code: "fr", Name: "French", Corpus: "french.txt"},
		},
		Eval: EvalConfig{
			File:        "sentences.txt",
			OnMalformed: "abort",
			PerLabel:    false,
		},
		Server: ServerConfig{
			MaxTextLen: 4096,
		},
		CLI: CliConfig{
			ExitWord:   "exit",
			ShowScores: true,
		},
	}
}

// Validate checks the config for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Profile.Top < 1 {
		errs = append(errs, fmt.Errorf("profile.top must be >= 1, got %d", c.Profile.Top))
	}
	if len(c.Profile.Sizes) == 0 {
		errs = append(errs, errors.New("profile.sizes must not be empty"))
	}
	for _, n := range c.Profile.Sizes {
		if n < 1 {
			errs = append(errs, fmt.Errorf("profile.sizes entries must be >= 1, got %d", n))
		}
	}
	if len(c.Languages) == 0 {
		errs = append(errs, errors.New("at least one [[languages]] entry is required"))
	}
	seen := make(map[string]bool, len(c.Languages))
	for i, l := range c.Languages {
		switch {
		case l.Code == "":
			errs = append(errs, fmt.Errorf("languages[%d]: code is required", i))
		case strings.Contains(l.Code, ","):
			errs = append(errs, fmt.Errorf("languages[%d]: code %q must not contain ','", i, l.Code))
		case seen[l.Code]:
			errs = append(errs, fmt.Errorf("languages[%d]: duplicate code %q", i, l.Code))
		}
		seen[l.Code] = true
		if l.Corpus == "" {
			errs = append(errs, fmt.Errorf("languages[%d]: corpus is required", i))
		}
	}
	if _, err := eval.ParsePolicy(c.Eval.OnMalformed); err != nil {
		errs = append(errs, err)
	}
	if c.Server.MaxTextLen < 1 {
		errs = append(errs, fmt.Errorf("server.max_text_len must be >= 1, got %d", c.Server.MaxTextLen))
	}
	return errors.Join(errs...)
}

// Normalizer returns the text normalizer described by the profile section.
func (c *Config) Normalizer() ngram.Normalizer {
	return ngram.Normalizer{FoldDiacritics: c.Profile.FoldDiacritics}
}

// BuildOptions returns the profile build options described by the config.
func (c *Config) BuildOptions() identify.BuildOptions {
	opts := identify.BuildOptions{
		Sizes:      c.Profile.Sizes,
		Top:        c.Profile.Top,
		Normalizer: c.Normalizer(),
	}
	if !c.Profile.Parallel {
		opts.Jobs = 1
	}
	return opts
}

// Corpora returns the configured languages with corpus paths resolved
// against corpusDir.
func (c *Config) Corpora(corpusDir string) []identify.Corpus {
	corpora := make([]identify.Corpus, len(c.Languages))
	for i, l := range c.Languages {
		path := l.Corpus
		if !filepath.IsAbs(path) && corpusDir != "" {
			path = filepath.Join(corpusDir, path)
		}
		corpora[i] = identify.Corpus{
			Language: identify.Language{Code: l.Code, Name: l.Name},
			Path:     path,
		}
	}
	return corpora
}

// EvalOptions returns the evaluation options described by the config.
func (c *Config) EvalOptions() (eval.Options, error) {
	policy, err := eval.ParsePolicy(c.Eval.OnMalformed)
	if err != nil {
		return eval.Options{}, err
	}
	return eval.Options{OnMalformed: policy, PerLabel: c.Eval.PerLabel}, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file, keeping whatever sections parse.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("failed to stat config %s: %w", configPath, err)
	}

	config := DefaultConfig()
	// arrays are replaced, not merged, when the file sets them
	config.Languages = nil
	config.Profile.Sizes = nil
	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	fillDefaults(config)
	return config, nil
}

func fillDefaults(config *Config) {
	defaults := DefaultConfig()
	if len(config.Languages) == 0 {
		config.Languages = defaults.Languages
	}
	if len(config.Profile.Sizes) == 0 {
		config.Profile.Sizes = defaults.Profile.Sizes
	}
}

// tryPartialParse recovers the sections of a TOML file that still decode
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "profile"); ok {
		extractProfileConfig(section, &config.Profile)
	}
	if tables, ok := utils.ExtractTables(tempConfig, "languages"); ok {
		if langs := extractLanguages(tables); len(langs) > 0 {
			config.Languages = langs
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "eval"); ok {
		extractEvalConfig(section, &config.Eval)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractProfileConfig(data map[string]any, profile *ProfileConfig) {
	if val, ok := utils.ExtractInt64(data, "top"); ok {
		profile.Top = val
	}
	if val, ok := utils.ExtractIntSlice(data, "sizes"); ok && len(val) > 0 {
		profile.Sizes = val
	}
	if val, ok := utils.ExtractBool(data, "fold_diacritics"); ok {
		profile.FoldDiacritics = val
	}
	if val, ok := utils.ExtractBool(data, "parallel"); ok {
		profile.Parallel = val
	}
}

func extractLanguages(tables []map[string]any) []LanguageConfig {
	var langs []LanguageConfig
	for _, t := range tables {
		var l LanguageConfig
		l.Code, _ = utils.ExtractString(t, "code")
		l.Name, _ = utils.ExtractString(t, "name")
		l.Corpus, _ = utils.ExtractString(t, "corpus")
		if l.Code == "" || l.Corpus == "" {
			log.Warnf("Ignoring incomplete [[languages]] entry: %v", t)
			continue
		}
		langs = append(langs, l)
	}
	return langs
}

func extractEvalConfig(data map[string]any, e *EvalConfig) {
	if val, ok := utils.ExtractString(data, "file"); ok {
		e.File = val
	}
	if val, ok := utils.ExtractString(data, "on_malformed"); ok {
		e.OnMalformed = val
	}
	if val, ok := utils.ExtractBool(data, "per_label"); ok {
		e.PerLabel = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_text_len"); ok {
		server.MaxTextLen = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractString(data, "exit_word"); ok {
		cli.ExitWord = val
	}
	if val, ok := utils.ExtractBool(data, "show_scores"); ok {
		cli.ShowScores = val
	}
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
