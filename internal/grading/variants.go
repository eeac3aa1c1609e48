package grading

import "strings"

// VariantPair is one American/British spelling equivalence.
type VariantPair struct {
	US string
	UK string
}

// DefaultSpellingVariants is the table used unless WithSpellingVariants is
// given. Callers must not modify it; NewMatcher takes its own copy.
var DefaultSpellingVariants = []VariantPair{
	{"color", "colour"},
	{"center", "centre"},
	{"theater", "theatre"},
	{"traveling", "travelling"},
	{"traveled", "travelled"},
	{"traveler", "traveller"},
	{"canceled", "cancelled"},
	{"organize", "organise"},
	{"recognize", "recognise"},
	{"realize", "realise"},
	{"analyze", "analyse"},
	{"favor", "favour"},
	{"neighbor", "neighbour"},
	{"honor", "honour"},
	{"humor", "humour"},
	{"labor", "labour"},
	{"defense", "defence"},
	{"offense", "offence"},
	{"license", "licence"},
	{"practice", "practise"},
	{"catalog", "catalogue"},
	{"dialog", "dialogue"},
	{"program", "programme"},
	{"check", "cheque"},
	{"tire", "tyre"},
	{"gray", "grey"},
	{"jewelry", "jewellery"},
	{"enrollment", "enrolment"},
	{"fulfill", "fulfil"},
	{"skillful", "skilful"},
	{"modeling", "modelling"},
	{"counselor", "counsellor"},
	{"aluminum", "aluminium"},
}

// matchesVariant substitutes each pair into user, in both directions, and
// compares the result with correct. Substitution is plain substring
// replacement, so a pair can also fire inside an unrelated word.
func matchesVariant(pairs []VariantPair, user, correct string) bool {
	for _, p := range pairs {
		if p.US == "" || p.UK == "" {
			continue
		}
		if strings.ReplaceAll(user, p.US, p.UK) == correct {
			return true
		}
		if strings.ReplaceAll(user, p.UK, p.US) == correct {
			return true
		}
	}
	return false
}
