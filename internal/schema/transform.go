package schema

// InferRelationships walks tables and fields in source order and emits one edge per
// link field that names a target table. Lookup fields never emit: they ride on a
// link field that already produced the edge. Options that fail to decode or lack a
// target are skipped without error.
func InferRelationships(tables []RawTable) []Relationship {
	rels := make([]Relationship, 0)
	for _, t := range tables {
		for _, f := range t.Fields {
			if !IsLinkType(f.Type) {
				continue
			}
			opts, ok := decodeOptions(f.Options)
			if !ok || opts.LinkedTableID == "" {
				continue
			}
			typ := OneToMany
			if opts.PrefersSingleRecordLink {
				typ = OneToOne
			}
			rels = append(rels, Relationship{
				From:    t.ID,
				To:      opts.LinkedTableID,
				FieldID: f.ID,
				Type:    typ,
			})
		}
	}
	return rels
}

// Transform converts the raw metadata tables into a Schema. Tables and fields keep
// the order Airtable returned them in.
func Transform(tables []RawTable) Schema {
	out := Schema{
		Tables: make([]Table, 0, len(tables)),
	}
	known := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		known[t.ID] = struct{}{}

		fields := make([]Field, 0, len(t.Fields))
		for _, f := range t.Fields {
			fields = append(fields, projectField(f))
		}
		out.Tables = append(out.Tables, Table{
			ID:             t.ID,
			Name:           t.Name,
			PrimaryFieldID: t.PrimaryFieldID,
			Fields:         fields,
		})
	}

	out.Relationships = InferRelationships(tables)
	for i := range out.Relationships {
		if _, ok := known[out.Relationships[i].To]; !ok {
			out.Relationships[i].Dangling = true
		}
	}
	return out
}

func projectField(f RawField) Field {
	field := Field{
		ID:          f.ID,
		Name:        f.Name,
		Type:        f.Type,
		Description: f.Description,
		Options:     f.Options,
		IsValid:     f.IsValid,
	}
	if opts, ok := decodeOptions(f.Options); ok {
		field.LinkedTableID = opts.LinkedTableID
		if len(opts.Choices) > 0 {
			field.Choices = opts.Choices
		}
	}
	return field
}
