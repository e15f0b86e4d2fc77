package scoring

import "strings"

// nicknameTable maps common given-name nicknames to their formal equivalents.
// Lookups are lowercase.
var nicknameTable = map[string]string{
	"bob":    "robert",
	"rob":    "robert",
	"bobby":  "robert",
	"bill":   "william",
	"billy":  "william",
	"will":   "william",
	"willie": "william",
	"dick":   "richard",
	"rick":   "richard",
	"richie": "richard",
	"mike":   "michael",
	"mickey": "michael",
	"mick":   "michael",
	"jim":    "james",
	"jimmy":  "james",
	"jamie":  "james",
	"tom":    "thomas",
	"tommy":  "thomas",
	"dave":   "david",
	"davie":  "david",
	"dan":    "daniel",
	"danny":  "daniel",
	"chris":  "christopher",
	"steve":  "stephen",
	"stevie": "stephen",
	"matt":   "matthew",
	"tony":   "anthony",
	"joe":    "joseph",
	"joey":   "joseph",
}

// FormalName returns the formal equivalent of a nickname, or the input
// unchanged when no mapping exists.
func FormalName(name string) string {
	if formal, ok := nicknameTable[strings.ToLower(name)]; ok {
		return formal
	}
	return strings.ToLower(name)
}

// ExpandNicknames rewrites every token of a normalized name to its formal
// equivalent.
func ExpandNicknames(name string) string {
	tokens := strings.Fields(name)
	for i, tok := range tokens {
		tokens[i] = FormalName(tok)
	}
	return strings.Join(tokens, " ")
}
