package schema

// Phase of a SearchState.
type Phase int

const (
	Idle Phase = iota
	Typed
	Applied
)

func (p Phase) String() string {
	switch p {
	case Typed:
		return "typed"
	case Applied:
		return "applied"
	default:
		return "idle"
	}
}

// SearchState separates the term being typed from the filter that is in effect.
// Only Submit changes what Apply returns.
//
//	Idle --Type--> Typed --Submit--> Applied --Clear--> Idle
//
// Typing while Applied keeps the applied filter until the next Submit.
type SearchState struct {
	typed  string
	active string
}

// Type records an in-progress term. It never changes the active filter.
func (s *SearchState) Type(term string) {
	s.typed = term
}

// Submit makes the typed term the active filter. Submitting an empty term is the
// same as clearing the filter.
func (s *SearchState) Submit() {
	s.active = s.typed
}

// Clear drops both the typed term and the active filter.
func (s *SearchState) Clear() {
	s.typed = ""
	s.active = ""
}

func (s *SearchState) TypedTerm() string { return s.typed }

func (s *SearchState) Active() string { return s.active }

func (s *SearchState) Phase() Phase {
	switch {
	case s.active != "":
		return Applied
	case s.typed != "":
		return Typed
	default:
		return Idle
	}
}

// Apply filters sch by the active term. With no active filter the schema is
// returned as is.
func (s *SearchState) Apply(sch Schema) Schema {
	if s.active == "" {
		return sch
	}
	return Filter(sch, s.active)
}
