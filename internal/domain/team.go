package domain

// TeamName identifies the requesting team; it selects the approval route.
type TeamName string

const (
	TeamInnovation  TeamName = "INNOVATION"
	TeamEngineering TeamName = "ENGINEERING"
	TeamSales       TeamName = "SALES"
)

// Teams lists every supported team in display order.
var Teams = []TeamName{TeamInnovation, TeamEngineering, TeamSales}

var teamPrefixes = map[TeamName]string{
	TeamInnovation:  "IN",
	TeamEngineering: "EN",
	TeamSales:       "SA",
}

// Valid reports whether t is a known team.
func (t TeamName) Valid() bool {
	_, ok := teamPrefixes[t]
	return ok
}

// RequestIDPrefix returns the fixed two-letter prefix used in request ids.
func (t TeamName) RequestIDPrefix() (string, bool) {
	prefix, ok := teamPrefixes[t]
	return prefix, ok
}
