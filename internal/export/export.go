package export

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	JSONContentType     = "application/json"
	MarkdownContentType = "text/markdown; charset=utf-8"
)

// SchemaFilename is basemap-schema-<YYYY-MM-DD>.json, dated in UTC.
func SchemaFilename(now time.Time) string {
	return "basemap-schema-" + now.UTC().Format("2006-01-02") + ".json"
}

// AnalysisFilename is schema-analysis-<ISO timestamp>.md with ':' and '.' replaced
// by '-' so the name is safe on every filesystem.
func AnalysisFilename(now time.Time) string {
	ts := now.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return "schema-analysis-" + ts + ".md"
}

// JSON encodes v indented by two spaces, the format of schema downloads.
func JSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
