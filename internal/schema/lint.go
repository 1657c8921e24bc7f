// schema/lint.go
package schema

import (
	"fmt"
	"net/url"
)

type Issue struct {
	Table   string `json:"table"` // table id
	Field   string `json:"field"` // field id
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	IssueRelationshipDangling = "relationship_target_missing"
	IssueLinkTargetEmpty      = "link_target_empty"
	IssueFieldInvalid         = "field_invalid"
)

// Lint reports configuration problems found in the schema. It never fails: an empty
// result means nothing to report.
func (s Schema) Lint() []Issue {
	var issues []Issue

	for _, t := range s.Tables {
		for _, f := range t.Fields {
			// link field without a target table
			if IsLinkType(f.Type) && f.LinkedTableID == "" {
				issues = append(issues, Issue{
					Table:   t.ID,
					Field:   f.ID,
					Code:    IssueLinkTargetEmpty,
					Message: fmt.Sprintf("link field %q has no linked table", f.Name),
				})
			}
			// Airtable marks fields it cannot compute (broken formulas, lookups of deleted fields)
			if f.IsValid != nil && !*f.IsValid {
				issues = append(issues, Issue{
					Table:   t.ID,
					Field:   f.ID,
					Code:    IssueFieldInvalid,
					Message: fmt.Sprintf("%s field %q in table %q has an invalid configuration", f.Type, f.Name, t.Name),
				})
			}
		}
	}

	for _, r := range s.Relationships {
		if !r.Dangling {
			continue
		}
		issues = append(issues, Issue{
			Table:   r.From,
			Field:   r.FieldID,
			Code:    IssueRelationshipDangling,
			Message: fmt.Sprintf("field links to table %s which is not in the base", r.To),
		})
	}
	return issues
}

// BrokenField is a field Airtable reported as invalid.
type BrokenField struct {
	TableID   string `json:"tableId"`
	TableName string `json:"tableName"`
	FieldID   string `json:"fieldId"`
	FieldName string `json:"fieldName"`
	FieldType string `json:"fieldType"`
	FixURL    string `json:"fixUrl"`
}

// BrokenFields lists fields with isValid=false together with the Airtable field
// manager URL where they can be fixed.
func (s Schema) BrokenFields(baseID string) []BrokenField {
	var out []BrokenField
	for _, t := range s.Tables {
		for _, f := range t.Fields {
			if f.IsValid == nil || *f.IsValid {
				continue
			}
			out = append(out, BrokenField{
				TableID:   t.ID,
				TableName: t.Name,
				FieldID:   f.ID,
				FieldName: f.Name,
				FieldType: f.Type,
				FixURL:    FixURL(baseID, t.ID),
			})
		}
	}
	return out
}

// FixURL opens the field manager of a table in the Airtable UI.
func FixURL(baseID, tableID string) string {
	return fmt.Sprintf("https://airtable.com/%s/%s/?blocks=hide&fieldManager=true",
		url.PathEscape(baseID), url.PathEscape(tableID))
}
