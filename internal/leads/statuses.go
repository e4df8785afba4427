package leads

// Vocabulary is the fixed, ordered set of statuses a lead may take. The
// first entry is the status assigned to newly reconciled leads; every other
// entry counts as "contacted" for reporting.
type Vocabulary struct {
	ordered []string
	index   map[string]struct{}
}

// NewVocabulary builds a vocabulary from an ordered status list. Falls back
// to the five-value lifecycle when the list is empty.
func NewVocabulary(statuses []string) Vocabulary {
	if len(statuses) == 0 {
		statuses = []string{"pending", "called", "not_interested", "interested", "booked"}
	}
	idx := make(map[string]struct{}, len(statuses))
	for _, s := range statuses {
		idx[s] = struct{}{}
	}
	return Vocabulary{ordered: statuses, index: idx}
}

// Initial returns the status assigned to newly created leads.
func (v Vocabulary) Initial() string { return v.ordered[0] }

// Valid reports whether s belongs to the vocabulary.
func (v Vocabulary) Valid(s string) bool {
	_, ok := v.index[s]
	return ok
}

// All returns the vocabulary in configured order.
func (v Vocabulary) All() []string {
	out := make([]string, len(v.ordered))
	copy(out, v.ordered)
	return out
}

// Contacted returns every status except the initial one.
func (v Vocabulary) Contacted() []string {
	return v.ordered[1:]
}
