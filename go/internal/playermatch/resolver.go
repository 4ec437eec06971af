// Package playermatch resolves free-text player names to canonical
// roster entries using normalization, nickname tables and fuzzy
// matching, learning aliases from accepted fuzzy matches.
package playermatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog/log"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// ErrPlayerNotFound indicates no candidate scored at or above the
// acceptance threshold. Callers must surface this explicitly.
var ErrPlayerNotFound = errors.New("playermatch: player not found")

const (
	// acceptThreshold is the minimum similarity score for a fuzzy match.
	acceptThreshold = 70

	scoreExact       = 100
	scoreContainment = 85
)

// Options controls a single resolution.
type Options struct {
	// OnlyFreeAgents restricts fuzzy candidates to unsigned players.
	OnlyFreeAgents bool
}

// Resolver maps free-text names to canonical players.
type Resolver struct {
	players storage.PlayerStore
	aliases storage.AliasStore

	// Static tables, keyed by normalized form. Nicknames are community
	// shorthand ("cp3"); nearDuplicates are common misspellings.
	nicknames      map[string]string
	nearDuplicates map[string]string
}

// NewResolver creates a resolver. The nickname and near-duplicate tables
// are re-normalized on construction so config spelling doesn't matter.
func NewResolver(players storage.PlayerStore, aliases storage.AliasStore, nicknames, nearDuplicates map[string]string) *Resolver {
	r := &Resolver{
		players:        players,
		aliases:        aliases,
		nicknames:      make(map[string]string, len(nicknames)),
		nearDuplicates: make(map[string]string, len(nearDuplicates)),
	}
	for k, v := range nicknames {
		r.nicknames[Normalize(k)] = v
	}
	for k, v := range nearDuplicates {
		r.nearDuplicates[Normalize(k)] = v
	}
	return r
}

// Resolve maps a free-text name to a canonical player. Lookup order:
// static nickname table, static near-duplicate table, learned aliases,
// full fuzzy scan. First hit wins. Returns ErrPlayerNotFound when
// nothing scores at or above the threshold.
func (r *Resolver) Resolve(ctx context.Context, name string, opts Options) (*models.Player, error) {
	query := Normalize(name)
	if query == "" {
		return nil, ErrPlayerNotFound
	}

	candidates, err := r.players.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	if canonical, ok := r.nicknames[query]; ok {
		if p := findByName(candidates, canonical, opts); p != nil {
			return p, nil
		}
	}
	if canonical, ok := r.nearDuplicates[query]; ok {
		if p := findByName(candidates, canonical, opts); p != nil {
			return p, nil
		}
	}

	alias, err := r.aliases.Get(ctx, query)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up alias: %w", err)
	}
	if alias != nil {
		if p := findByName(candidates, alias.CanonicalName, opts); p != nil {
			return p, nil
		}
	}

	best, bestScore := r.fuzzyScan(query, candidates, opts)
	if best == nil || bestScore < acceptThreshold {
		return nil, ErrPlayerNotFound
	}

	// Remember accepted fuzzy matches so the next lookup is exact.
	if bestScore < scoreExact {
		if err := r.aliases.Record(ctx, query, best.Name); err != nil {
			log.Warn().Err(err).Str("alias", query).Str("player", best.Name).Msg("failed to record learned alias")
		}
	}

	return best, nil
}

func (r *Resolver) fuzzyScan(query string, candidates []models.Player, opts Options) (*models.Player, int) {
	var (
		best      *models.Player
		bestScore int
	)
	for i := range candidates {
		c := &candidates[i]
		if opts.OnlyFreeAgents && !c.IsFreeAgent() {
			continue
		}
		score := Similarity(query, Normalize(c.Name))
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore
}

// Similarity scores two normalized strings: 100 when equal, 85 when one
// contains the other, otherwise a Levenshtein ratio scaled to 0..100.
func Similarity(a, b string) int {
	if a == b {
		return scoreExact
	}
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return scoreContainment
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	dist := levenshtein.ComputeDistance(a, b)
	return int(math.Round((1 - float64(dist)/float64(maxLen)) * 100))
}

func findByName(candidates []models.Player, canonicalName string, opts Options) *models.Player {
	want := Normalize(canonicalName)
	for i := range candidates {
		c := &candidates[i]
		if opts.OnlyFreeAgents && !c.IsFreeAgent() {
			continue
		}
		if Normalize(c.Name) == want {
			return c
		}
	}
	return nil
}
