package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"basemap/internal/airtable"
	"basemap/internal/analysis"
	"basemap/internal/credentials"
	"basemap/internal/export"
	"basemap/internal/schema"
)

type app struct {
	out    io.Writer
	errOut io.Writer
	in     io.Reader

	store    credentials.Store
	airtable *airtable.Client
	analyzer *analysis.Analyzer

	// flag overrides for the stored credentials
	pat    string
	baseID string

	now func() time.Time
}

func (a *app) creds() credentials.Credentials {
	c := credentials.Load(a.store)
	if a.pat != "" {
		c.PAT = a.pat
	}
	if a.baseID != "" {
		c.BaseID = a.baseID
	}
	return c
}

func (a *app) credsSet(pat, baseID, geminiKey string) error {
	set := 0
	for key, v := range map[string]string{
		credentials.KeyPAT:          pat,
		credentials.KeyBaseID:       baseID,
		credentials.KeyGeminiAPIKey: geminiKey,
	} {
		if v = strings.TrimSpace(v); v != "" {
			a.store.Set(key, v)
			set++
		}
	}
	if set == 0 {
		return errors.New("nothing to store: pass --pat, --base or --gemini-key")
	}
	fmt.Fprintf(a.out, "Stored %s.\n", english.Plural(set, "credential", ""))
	return nil
}

func (a *app) credsShow() error {
	c := credentials.Load(a.store)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "pat\t%s\n", orNone(credentials.Mask(c.PAT)))
	fmt.Fprintf(tw, "baseId\t%s\n", orNone(c.BaseID))
	fmt.Fprintf(tw, "geminiApiKey\t%s\n", orNone(credentials.Mask(c.GeminiAPIKey)))
	custom := "default"
	if c.GeminiPrompt != analysis.DefaultPrompt {
		custom = "custom"
	}
	fmt.Fprintf(tw, "geminiPrompt\t%s\n", custom)
	return tw.Flush()
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func (a *app) credsPurge() error {
	a.store.Purge()
	fmt.Fprintln(a.out, "All stored credentials removed.")
	return nil
}

func (a *app) promptSet(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("prompt is empty")
	}
	a.store.Set(credentials.KeyGeminiPrompt, text)
	fmt.Fprintln(a.out, "Prompt saved.")
	return nil
}

func (a *app) promptReset() error {
	credentials.ResetPrompt(a.store)
	fmt.Fprintln(a.out, "Prompt reset to default.")
	return nil
}

func (a *app) promptShow() error {
	fmt.Fprintln(a.out, credentials.Load(a.store).GeminiPrompt)
	return nil
}

func (a *app) fetch(ctx context.Context) (schema.Schema, credentials.Credentials, error) {
	c := a.creds()
	sch, err := a.airtable.FetchSchema(ctx, c.PAT, c.BaseID)
	return sch, c, err
}

func (a *app) save(dir, name string, body []byte) error {
	store := &export.LocalStore{Root: dir}
	art, err := store.Put(name, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("save export: %w", err)
	}
	fmt.Fprintf(a.errOut, "Saved %s (%s)\n", art.Path, humanize.Bytes(uint64(art.Size)))
	return nil
}

func (a *app) schema(ctx context.Context, filter string, asJSON bool, outDir string) error {
	sch, _, err := a.fetch(ctx)
	if err != nil {
		return err
	}
	sch = schema.Filter(sch, filter)

	body, err := export.JSON(sch)
	if err != nil {
		return err
	}
	if asJSON {
		fmt.Fprintln(a.out, string(body))
	} else {
		printSchema(a.out, sch)
	}
	if outDir != "" {
		return a.save(outDir, export.SchemaFilename(a.now()), body)
	}
	return nil
}

func printSchema(w io.Writer, sch schema.Schema) {
	st := sch.Stats()
	fmt.Fprintf(w, "%s, %s, %s\n\n",
		english.Plural(st.Tables, "table", ""),
		english.Plural(st.Fields, "field", ""),
		english.Plural(st.Relationships, "relationship", ""))

	for _, t := range sch.Tables {
		fmt.Fprintf(w, "%s  %s (%s)\n", t.Name, t.ID, english.Plural(len(t.Fields), "field", ""))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, f := range schema.SortFields(t.Fields) {
			mark := " "
			if f.ID == t.PrimaryFieldID {
				mark = "*"
			}
			target := ""
			if f.LinkedTableID != "" {
				if lt, ok := sch.Table(f.LinkedTableID); ok {
					target = "-> " + lt.Name
				} else {
					target = "-> " + f.LinkedTableID + " (missing)"
				}
			} else if schema.IsLinkAdjacent(f.Type) {
				target = "(lookup)"
			}
			fmt.Fprintf(tw, "  %s %s\t%s\t%s\n", mark, f.Name, f.Type, target)
		}
		_ = tw.Flush()
		for _, l := range sch.RelationshipsFor(t.ID) {
			dir := "<-"
			if l.Outgoing {
				dir = "->"
			}
			fmt.Fprintf(w, "    %s %s via %s (%s)\n", dir, l.OtherTable, l.ViaField, l.Type)
		}
		fmt.Fprintln(w)
	}
}

func (a *app) lint(ctx context.Context) error {
	sch, c, err := a.fetch(ctx)
	if err != nil {
		return err
	}
	issues := sch.Lint()
	broken := sch.BrokenFields(c.BaseID)
	if len(issues) == 0 {
		fmt.Fprintln(a.out, "No issues found.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, is := range issues {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", is.Table, is.Field, is.Code, is.Message)
	}
	_ = tw.Flush()
	if len(broken) > 0 {
		fmt.Fprintf(a.out, "\nFix %s in Airtable:\n", english.Plural(len(broken), "broken field", ""))
		for _, b := range broken {
			fmt.Fprintf(a.out, "  %s.%s  %s\n", b.TableName, b.FieldName, b.FixURL)
		}
	}
	return nil
}

// explore reads search terms from stdin. A line submits a term, ":clear" drops
// the filter, ":q" quits.
func (a *app) explore(ctx context.Context) error {
	sch, _, err := a.fetch(ctx)
	if err != nil {
		return err
	}
	var search schema.SearchState
	printSchema(a.out, sch)

	sc := bufio.NewScanner(a.in)
	for {
		fmt.Fprintf(a.out, "[%s] search> ", search.Phase())
		if !sc.Scan() {
			fmt.Fprintln(a.out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case ":q", ":quit":
			return nil
		case ":clear":
			search.Clear()
		default:
			search.Type(line)
			search.Submit()
		}
		printSchema(a.out, search.Apply(sch))
	}
}

func (a *app) analyze(ctx context.Context, prompt, filter, outDir string, raw bool) error {
	sch, c, err := a.fetch(ctx)
	if err != nil {
		return err
	}
	sch = schema.Filter(sch, filter)
	if strings.TrimSpace(prompt) == "" {
		prompt = c.GeminiPrompt
	}

	text, err := a.runWithProgress(func() (string, error) {
		return a.analyzer.Analyze(ctx, c.GeminiAPIKey, prompt, sch)
	})
	if err != nil {
		return err
	}

	if raw {
		fmt.Fprintln(a.out, text)
	} else {
		rendered, err := export.RenderMarkdown(text, 100)
		if err != nil {
			rendered = text
		}
		fmt.Fprint(a.out, rendered)
	}
	if outDir != "" {
		return a.save(outDir, export.AnalysisFilename(a.now()), []byte(text))
	}
	return nil
}

// runWithProgress shows elapsed seconds on errOut while fn runs.
func (a *app) runWithProgress(fn func() (string, error)) (string, error) {
	timer := analysis.NewTimer()
	timer.Start()
	defer timer.Stop()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := fn()
		done <- result{text, err}
	}()

	tk := time.NewTicker(250 * time.Millisecond)
	defer tk.Stop()
	for {
		select {
		case r := <-done:
			if r.err == nil {
				fmt.Fprintf(a.errOut, "\rAnalyzed in %ds.            \n", timer.Seconds())
			} else {
				fmt.Fprintln(a.errOut)
			}
			return r.text, r.err
		case <-tk.C:
			fmt.Fprintf(a.errOut, "\rAnalyzing schema... %ds", timer.Seconds())
		}
	}
}
