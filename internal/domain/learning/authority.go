package learning

// AuthorityLevel ranks who taught a learning. Conflicts between overlapping
// learnings are broken by rank, not by string comparison, so new levels slot
// in without silently misordering existing ones.
type AuthorityLevel string

const (
	AuthoritySystem  AuthorityLevel = "system"
	AuthorityUser    AuthorityLevel = "user"
	AuthorityManager AuthorityLevel = "manager"
	AuthorityCEO     AuthorityLevel = "ceo"
)

// Rank returns the total-order position of the level. Higher wins.
// Unknown levels rank below system so a bad value can never outrank real data.
func (a AuthorityLevel) Rank() int {
	switch a {
	case AuthorityCEO:
		return 4
	case AuthorityManager:
		return 3
	case AuthorityUser:
		return 2
	case AuthoritySystem:
		return 1
	default:
		return 0
	}
}

func (a AuthorityLevel) Valid() bool { return a.Rank() > 0 }
