package schema

import "strings"

// Filter returns a new Schema whose tables keep only the fields whose name contains
// term, compared case-insensitively. Tables are never removed and relationships are
// carried over untouched. The source schema is not modified.
func Filter(s Schema, term string) Schema {
	var out Schema
	if s.Relationships != nil {
		out.Relationships = make([]Relationship, len(s.Relationships))
		copy(out.Relationships, s.Relationships)
	}
	if s.Tables != nil {
		out.Tables = make([]Table, 0, len(s.Tables))
	}
	for _, t := range s.Tables {
		nt := t
		nt.Fields = FilterFields(t.Fields, term)
		out.Tables = append(out.Tables, nt)
	}
	return out
}

// FilterFields returns the fields whose name contains term (case-insensitive) in a
// fresh slice. An empty term keeps every field.
func FilterFields(fields []Field, term string) []Field {
	if fields == nil {
		return nil
	}
	needle := strings.ToLower(term)
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if needle == "" || strings.Contains(strings.ToLower(f.Name), needle) {
			out = append(out, f)
		}
	}
	return out
}
