package league

import "strings"

// TeamEntry configures one franchise: its canonical name plus the
// aliases and abbreviations members actually type.
type TeamEntry struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
	OwnerID string   `yaml:"owner_id"` // chat user id of the franchise owner
}

// Registry resolves free-text team tokens to canonical franchise names.
type Registry struct {
	canonical map[string]string // lowercased token -> canonical name
	owners    map[string]string // owner user id -> canonical name
	names     []string
}

// NewRegistry builds a registry from configured team entries. Canonical
// names resolve to themselves.
func NewRegistry(entries []TeamEntry) *Registry {
	r := &Registry{
		canonical: make(map[string]string),
		owners:    make(map[string]string),
	}
	for _, e := range entries {
		r.names = append(r.names, e.Name)
		r.canonical[strings.ToLower(e.Name)] = e.Name
		for _, a := range e.Aliases {
			r.canonical[strings.ToLower(a)] = e.Name
		}
		if e.OwnerID != "" {
			r.owners[e.OwnerID] = e.Name
		}
	}
	return r
}

// TeamForOwner resolves a chat user id to the franchise they own.
func (r *Registry) TeamForOwner(userID string) (string, bool) {
	name, ok := r.owners[userID]
	return name, ok
}

// Canonical resolves a token to its canonical team name. The second
// return is false for unknown tokens.
func (r *Registry) Canonical(token string) (string, bool) {
	name, ok := r.canonical[strings.ToLower(strings.TrimSpace(token))]
	return name, ok
}

// Names returns every canonical franchise name in configuration order.
func (r *Registry) Names() []string {
	return r.names
}

// Tokens returns every known token (canonical names and aliases).
func (r *Registry) Tokens() []string {
	tokens := make([]string, 0, len(r.canonical))
	for t := range r.canonical {
		tokens = append(tokens, t)
	}
	return tokens
}
