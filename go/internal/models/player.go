package models

// FreeAgentTeam is the team value for players not on any franchise roster.
const FreeAgentTeam = "Free Agent"

// Player represents a canonical roster entry in the system
type Player struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Team    string `json:"team"`
	Overall int    `json:"overall"` // 0..99
	Salary  int    `json:"salary"`
}

// IsFreeAgent reports whether the player is currently unsigned.
func (p *Player) IsFreeAgent() bool {
	return p.Team == FreeAgentTeam
}

// Alias is a learned free-text -> canonical name mapping produced by a
// prior fuzzy-match acceptance.
type Alias struct {
	Alias         string `json:"alias"` // normalized form
	CanonicalName string `json:"canonical_name"`
	UseCount      int    `json:"use_count"`
}
