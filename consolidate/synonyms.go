package consolidate

import "github.com/memoweave/memoweave/internal/util"

// SynonymTable groups fact keys that name the same semantic slot. It is an
// injectable policy table so other languages or domains can be substituted
// without touching the consolidation algorithm.
type SynonymTable [][]string

// DefaultSynonyms covers the German/English key variants the assistant's
// extractor emits.
func DefaultSynonyms() SynonymTable {
	return SynonymTable{
		{"name", "heißt", "heisst", "genannt", "called"},
		{"lieblingsfarbe", "farbe", "favorite color", "favourite colour"},
		{"lieblingsessen", "essen", "favorite food"},
		{"wohnort", "stadt", "wohnt", "city", "hometown", "lives in"},
		{"arbeitgeber", "firma", "unternehmen", "employer", "company"},
		{"beruf", "job", "arbeit", "occupation", "profession"},
		{"geburtstag", "birthday", "geboren"},
		{"hobby", "hobbys", "hobbies", "freizeit"},
	}
}

// SameGroup reports whether both keys fall into one synonym group.
func (t SynonymTable) SameGroup(keyA, keyB string) bool {
	a, b := util.Normalize(keyA), util.Normalize(keyB)
	if a == b {
		return true
	}
	for _, group := range t {
		foundA, foundB := false, false
		for _, syn := range group {
			if syn == a {
				foundA = true
			}
			if syn == b {
				foundB = true
			}
		}
		if foundA && foundB {
			return true
		}
	}
	return false
}
