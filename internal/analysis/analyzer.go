package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultPrompt = "Analyze the following airtable base schema. Provide me an elegant and succinct explanation of the tables, how they relate to eachother, and their purpose. Focus on maximally meaningful insights for someone looking to truly make sense of the base"

var (
	ErrNoSchema = errors.New("No schema available to analyze")
	ErrNoAPIKey = errors.New("Gemini API key is required")
	ErrFailed   = errors.New("Failed to analyze schema")
)

// Analyzer sends a schema to a Generator and returns its answer verbatim.
type Analyzer struct {
	Gen Generator
	Log *zap.Logger
}

func NewAnalyzer(gen Generator, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{Gen: gen, Log: log}
}

// Analyze asks the model about sch. sch may be a schema.Schema or any JSON value
// standing in for one. Missing schema or key fail locally without a request.
func (a *Analyzer) Analyze(ctx context.Context, apiKey, prompt string, sch any) (string, error) {
	if isNil(sch) {
		return "", ErrNoSchema
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", ErrNoAPIKey
	}

	text, err := BuildPrompt(prompt, sch)
	if err != nil {
		return "", err
	}

	start := time.Now()
	out, err := a.Gen.Generate(ctx, apiKey, text)
	if err != nil {
		a.Log.Error("gemini analysis error", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		if err.Error() == "" {
			return "", ErrFailed
		}
		return "", err
	}
	a.Log.Info("schema analyzed", zap.Duration("elapsed", time.Since(start)), zap.Int("chars", len(out)))
	return out, nil
}

// BuildPrompt appends the indented schema JSON to prompt. A blank prompt falls back
// to DefaultPrompt.
func BuildPrompt(prompt string, sch any) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	b, err := json.MarshalIndent(sch, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode schema: %w", err)
	}
	return prompt + "\n\nSchema JSON:\n" + string(b), nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	if raw, ok := v.(json.RawMessage); ok {
		return len(raw) == 0 || string(raw) == "null"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
