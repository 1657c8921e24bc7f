package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"basemap/internal/airtable"
	"basemap/internal/analysis"
	"basemap/internal/credentials"
	"basemap/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cli := kingpin.New("basemap", "Inspect an Airtable base schema and explain it with Gemini.")
	debug := cli.Flag("debug", "Run in debug mode.").Bool()
	credsPath := cli.Flag("credentials", "Path to the credentials file.").Default(credentials.DefaultPath()).Envar("BASEMAP_CREDENTIALS").String()
	airtableURL := cli.Flag("airtable-url", "Airtable API endpoint.").Default(airtable.DefaultBaseURL).Envar("BASEMAP_AIRTABLE_URL").String()
	geminiURL := cli.Flag("gemini-url", "Gemini API endpoint.").Default(analysis.DefaultGeminiBaseURL).Envar("BASEMAP_GEMINI_URL").String()
	geminiModel := cli.Flag("gemini-model", "Gemini model.").Default(analysis.DefaultModel).Envar("BASEMAP_GEMINI_MODEL").String()
	patFlag := cli.Flag("pat", "Airtable personal access token (overrides the stored one).").Envar("BASEMAP_PAT").String()
	baseFlag := cli.Flag("base", "Airtable base id (overrides the stored one).").Envar("BASEMAP_BASE_ID").String()

	creds := cli.Command("creds", "Manage stored credentials.")
	credsSet := creds.Command("set", "Store credentials. Only the given values change.")
	credsSetPAT := credsSet.Flag("pat", "Airtable personal access token.").String()
	credsSetBase := credsSet.Flag("base", "Airtable base id.").String()
	credsSetGemini := credsSet.Flag("gemini-key", "Gemini API key.").String()
	credsShow := creds.Command("show", "Show stored credentials, masked.")
	credsPurge := creds.Command("purge", "Remove every stored credential.")

	prompt := cli.Command("prompt", "Manage the analysis prompt.")
	promptSet := prompt.Command("set", "Store a custom prompt.")
	promptSetText := promptSet.Arg("text", "Prompt text.").Required().String()
	promptReset := prompt.Command("reset", "Restore the default prompt.")
	promptShow := prompt.Command("show", "Print the current prompt.")

	schemaCmd := cli.Command("schema", "Fetch and print the base schema.")
	schemaFilter := schemaCmd.Flag("filter", "Only show fields whose name contains this term.").String()
	schemaJSON := schemaCmd.Flag("json", "Print JSON instead of a summary.").Short('j').Bool()
	schemaOut := schemaCmd.Flag("out", "Also save the JSON export in this directory.").String()

	lintCmd := cli.Command("lint", "Report broken fields and dangling links.")

	exploreCmd := cli.Command("explore", "Search fields interactively.")

	analyzeCmd := cli.Command("analyze", "Explain the schema with Gemini.")
	analyzePrompt := analyzeCmd.Flag("prompt", "Prompt to use instead of the stored one.").String()
	analyzeFilter := analyzeCmd.Flag("filter", "Analyze only fields whose name contains this term.").String()
	analyzeOut := analyzeCmd.Flag("out", "Also save the Markdown export in this directory.").String()
	analyzeRaw := analyzeCmd.Flag("raw", "Print Markdown without terminal rendering.").Bool()

	cmd := kingpin.MustParse(cli.Parse(os.Args[1:]))

	level := "warn"
	if *debug {
		level = "debug"
	}
	logger, err := logging.New(level, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	httpClient := &http.Client{Timeout: 2 * time.Minute}
	app := &app{
		out:      os.Stdout,
		errOut:   os.Stderr,
		in:       os.Stdin,
		store:    credentials.Open(*credsPath, logger.Named("credentials")),
		airtable: airtable.NewClient(*airtableURL, httpClient, logger.Named("airtable")),
		analyzer: analysis.NewAnalyzer(analysis.NewGeminiClient(*geminiURL, *geminiModel, httpClient), logger.Named("analysis")),
		pat:      *patFlag,
		baseID:   *baseFlag,
		now:      time.Now,
	}

	switch cmd {
	case credsSet.FullCommand():
		err = app.credsSet(*credsSetPAT, *credsSetBase, *credsSetGemini)
	case credsShow.FullCommand():
		err = app.credsShow()
	case credsPurge.FullCommand():
		err = app.credsPurge()
	case promptSet.FullCommand():
		err = app.promptSet(*promptSetText)
	case promptReset.FullCommand():
		err = app.promptReset()
	case promptShow.FullCommand():
		err = app.promptShow()
	case schemaCmd.FullCommand():
		err = app.schema(ctx, *schemaFilter, *schemaJSON, *schemaOut)
	case lintCmd.FullCommand():
		err = app.lint(ctx)
	case exploreCmd.FullCommand():
		err = app.explore(ctx)
	case analyzeCmd.FullCommand():
		err = app.analyze(ctx, *analyzePrompt, *analyzeFilter, *analyzeOut, *analyzeRaw)
	}
	if err != nil {
		logger.Debug("command failed", zap.String("command", cmd), zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
