package schema

import "encoding/json"

// RawField is a field as it comes from GET /v0/meta/bases/{baseId}/tables.
// Options stay undecoded: their shape depends on the field type.
type RawField struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Options     json.RawMessage `json:"options,omitempty"`
	IsValid     *bool           `json:"isValid,omitempty"`
}

// RawTable is one entry of the metadata response "tables" array.
type RawTable struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	PrimaryFieldID string     `json:"primaryFieldId"`
	Fields         []RawField `json:"fields"`
}

// RawResponse is the whole metadata response body.
type RawResponse struct {
	Tables []RawTable `json:"tables"`
}

type Choice struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Field is a normalized Airtable field. LinkedTableID is projected from the
// options so callers do not have to decode them.
type Field struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Description   string          `json:"description,omitempty"`
	LinkedTableID string          `json:"linkedTableId,omitempty"`
	Choices       []Choice        `json:"choices,omitempty"`
	Options       json.RawMessage `json:"options,omitempty"`
	IsValid       *bool           `json:"isValid,omitempty"`
}

type Table struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	PrimaryFieldID string  `json:"primaryFieldId"`
	Fields         []Field `json:"fields"`
}

type RelationshipType string

const (
	OneToOne  RelationshipType = "oneToOne"
	OneToMany RelationshipType = "oneToMany"
	ManyToOne RelationshipType = "manyToOne"
)

// Relationship is an edge inferred from a link field of table From.
// Dangling is set when To is not one of the schema's tables.
type Relationship struct {
	From     string           `json:"from"`
	To       string           `json:"to"`
	FieldID  string           `json:"fieldId"`
	Type     RelationshipType `json:"type"`
	Dangling bool             `json:"dangling,omitempty"`
}

type Schema struct {
	Tables        []Table        `json:"tables"`
	Relationships []Relationship `json:"relationships"`
}

// linkOptions is the subset of field options used for inference and projection.
type linkOptions struct {
	LinkedTableID           string   `json:"linkedTableId"`
	PrefersSingleRecordLink bool     `json:"prefersSingleRecordLink"`
	IsReversed              bool     `json:"isReversed"`
	Choices                 []Choice `json:"choices"`
}

func decodeOptions(raw json.RawMessage) (linkOptions, bool) {
	var o linkOptions
	if len(raw) == 0 {
		return o, false
	}
	if err := json.Unmarshal(raw, &o); err != nil {
		return linkOptions{}, false
	}
	return o, true
}
