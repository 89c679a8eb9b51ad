/*
Package main implements the langserve language identifier [DBG] application.

LangServe identifies the language of a sentence from character n-gram
profiles. Every candidate language gets a bigram and a trigram profile built
from a reference corpus at startup; a sentence scores one point per gram found
in a language's profiles and the highest score wins. On a tie, the language
listed first in the config wins.

# Usage

Start the msgpack IPC server with corpora from the current directory:

	langserve

Measure accuracy on a labeled file, then keep classifying interactively:

	langserve -eval sentences.txt -c

Use another corpus directory, profile size and debug logging:

	langserve -corpus /path/to/corpora -top 300 -d

# Configuration

Runtime configuration is a TOML file created with defaults on first run:

	[profile]
	top = 100
	sizes = [2, 3]

	[[languages]]
	code = "en"
	name = "English"
	corpus = "english.txt"

See pkg/config for every option.

# Command Line Flags

	-config string
	    Config file (default: user config dir)
	-corpus string
	    Directory containing the language corpora (default ".")
	-eval string
	    Labeled "sentence,label" file to measure accuracy on
	-c  Interactive mode, after -eval if both are given
	-d  Enable debug mode with detailed logging
	-top int
	    Grams kept per profile (default from config)
	-fold
	    Fold diacritics (é -> e) instead of dropping accented letters
	-per-label
	    Print accuracy per label
	-skip-malformed
	    Skip lines without a label instead of aborting
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/langserve/internal/cli"
	"github.com/bastiangx/langserve/internal/utils"
	"github.com/bastiangx/langserve/pkg/config"
	"github.com/bastiangx/langserve/pkg/eval"
	"github.com/bastiangx/langserve/pkg/identify"
	"github.com/bastiangx/langserve/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/fatih/color"
)

const (
	Version = "0.1.0-beta"
	AppName = "langserve"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main loads config, builds the profiles once and hands them to the
// requested modes. It does not implement logic for them.
func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	configPath := flag.String("config", "", "Config file (default: user config dir)")
	corpusDir := flag.String("corpus", ".", "Directory containing the language corpora")
	evalFile := flag.String("eval", "", "Labeled 'sentence,label' file to measure accuracy on")
	cliMode := flag.Bool("c", false, "Interactive mode -- runs after -eval if both are set")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	top := flag.Int("top", 0, "Grams kept per profile (0 uses the config value)")
	fold := flag.Bool("fold", false, "Fold diacritics instead of dropping accented letters")
	perLabel := flag.Bool("per-label", false, "Print accuracy per label")
	skipMalformed := flag.Bool("skip-malformed", false, "Skip lines without a label instead of aborting")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	log.Debug("runtime", "info", pathResolver.GetRuntimeInfo())

	cfg, err := loadConfig(pathResolver, *configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *top > 0 {
		cfg.Profile.Top = *top
	}
	if *fold {
		cfg.Profile.FoldDiacritics = true
	}
	if *perLabel {
		cfg.Eval.PerLabel = true
	}
	if *skipMalformed {
		cfg.Eval.OnMalformed = eval.MalformedSkip.String()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	resolvedCorpusDir := pathResolver.GetCorpusDir(*corpusDir)
	log.Debugf("Using corpus dir at: %s", resolvedCorpusDir)

	// built once, shared read-only by every mode below
	profiles, err := identify.BuildProfiles(context.Background(), cfg.Corpora(resolvedCorpusDir), cfg.BuildOptions())
	if err != nil {
		log.Fatalf("Failed to build profiles: %v", err)
	}
	classifier := identify.NewClassifier(profiles, cfg.Normalizer())
	log.Debug("Profiles ready", "languages", len(profiles), "top", cfg.Profile.Top, "sizes", cfg.Profile.Sizes)

	if *evalFile != "" {
		if err := runEval(*evalFile, classifier, cfg); err != nil {
			log.Fatalf("Evaluation failed: %v", err)
		}
	}

	if *cliMode {
		log.SetReportTimestamp(false)
		inputHandler := cli.NewInputHandler(classifier, cfg.CLI.ExitWord, cfg.CLI.ShowScores)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}
	if *evalFile != "" {
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(classifier, cfg)
	showStartupInfo(resolvedCorpusDir, classifier.Languages())
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// loadConfig reads an explicit config file, or creates/loads the default one.
func loadConfig(pr *utils.PathResolver, customPath string) (*config.Config, error) {
	if customPath != "" {
		log.Debugf("Using config file: (%s)", utils.GetAbsolutePath(customPath))
		return config.LoadConfig(customPath)
	}
	path, err := pr.GetConfigPath("config.toml")
	if err != nil {
		return nil, err
	}
	log.Debugf("Using config file: (%s)", path)
	return config.InitConfig(path)
}

// runEval measures accuracy on path and prints the report to stdout.
func runEval(path string, classifier identify.IClassifier, cfg *config.Config) error {
	opts, err := cfg.EvalOptions()
	if err != nil {
		return err
	}
	report, err := eval.EvaluateFile(path, classifier, opts)
	if err != nil {
		return err
	}

	accColor := color.New(color.FgGreen, color.Bold)
	fmt.Printf("Accuracy: %s (%d/%d)\n", accColor.Sprintf("%.2f", report.Accuracy), report.Correct, report.Total)
	if report.Skipped > 0 {
		fmt.Printf("Skipped: %d malformed lines\n", report.Skipped)
	}
	for _, s := range report.PerLabel {
		fmt.Printf("  %-6s correct=%-5d wrong=%-5d accuracy=%.2f\n", s.Label, s.Correct, s.Wrong, s.Accuracy)
	}
	log.Debugf("Evaluation took [ %v ]", report.Elapsed)
	return nil
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ LangServe ] n-gram language identification")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
}

// showStartupInfo displays some basic info about the init process.
// It goes to stderr, stdout carries the IPC stream.
func showStartupInfo(corpusDir string, languages []identify.Language) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	log.Infof("%s %s", AppName, Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("corpus dir: ( %s )", corpusDir)
	for _, l := range languages {
		log.Info("language", "code", l.Code, "name", l.Name)
	}
	log.Info("status: ready")

	log.SetLevel(currentLevel)
}
