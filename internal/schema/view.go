package schema

import (
	"sort"
	"strings"
)

func (s Schema) Table(id string) (Table, bool) {
	for _, t := range s.Tables {
		if t.ID == id {
			return t, true
		}
	}
	return Table{}, false
}

func (s Schema) Field(tableID, fieldID string) (Field, bool) {
	t, ok := s.Table(tableID)
	if !ok {
		return Field{}, false
	}
	for _, f := range t.Fields {
		if f.ID == fieldID {
			return f, true
		}
	}
	return Field{}, false
}

// TableLink is a relationship seen from one table.
type TableLink struct {
	Relationship
	Outgoing   bool   `json:"outgoing"`
	OtherTable string `json:"otherTable"`
	ViaField   string `json:"viaField"`
}

// RelationshipsFor returns the edges touching tableID, outgoing and incoming, in
// schema order. Dangling edges are skipped: there is no other table to show.
func (s Schema) RelationshipsFor(tableID string) []TableLink {
	var out []TableLink
	for _, r := range s.Relationships {
		if r.Dangling || (r.From != tableID && r.To != tableID) {
			continue
		}
		outgoing := r.From == tableID
		otherID := r.From
		if outgoing {
			otherID = r.To
		}
		other, ok := s.Table(otherID)
		if !ok {
			continue
		}
		// the link field always lives on the From side
		via, _ := s.Field(r.From, r.FieldID)
		out = append(out, TableLink{
			Relationship: r,
			Outgoing:     outgoing,
			OtherTable:   other.Name,
			ViaField:     via.Name,
		})
	}
	return out
}

// SortFields returns the fields ordered by type, then by name.
func SortFields(fields []Field) []Field {
	out := append([]Field(nil), fields...)
	sort.SliceStable(out, func(i, j int) bool {
		if c := strings.Compare(out[i].Type, out[j].Type); c != 0 {
			return c < 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

type Stats struct {
	Tables        int `json:"tables"`
	Fields        int `json:"fields"`
	Relationships int `json:"relationships"`
	Dangling      int `json:"dangling"`
}

func (s Schema) Stats() Stats {
	st := Stats{Tables: len(s.Tables), Relationships: len(s.Relationships)}
	for _, t := range s.Tables {
		st.Fields += len(t.Fields)
	}
	for _, r := range s.Relationships {
		if r.Dangling {
			st.Dangling++
		}
	}
	return st
}
