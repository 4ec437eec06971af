// Package parser turns raw proposal messages into structured trades and
// free-agency bids. Parsing is pure: no I/O, no stored state, and a nil
// result simply means "not a proposal".
package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hardwood-league/commish/go/internal/league"
	"github.com/hardwood-league/commish/go/internal/models"
)

// Parser parses proposal message text against the league's team registry.
type Parser struct {
	registry   *league.Registry
	teamTokens []teamToken
}

type teamToken struct {
	re        *regexp.Regexp
	canonical string
}

// New creates a parser for the given team registry.
func New(registry *league.Registry) *Parser {
	p := &Parser{registry: registry}
	for _, tok := range registry.Tokens() {
		canonical, _ := registry.Canonical(tok)
		p.teamTokens = append(p.teamTokens, teamToken{
			re:        regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(tok) + `\b`),
			canonical: canonical,
		})
	}
	return p
}

type teamHit struct {
	index     int
	canonical string
}

// detectTeams finds the first two distinct franchises named in the text,
// in order of first appearance.
func (p *Parser) detectTeams(text string) []teamHit {
	first := make(map[string]int)
	for _, tok := range p.teamTokens {
		loc := tok.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if prev, ok := first[tok.canonical]; !ok || loc[0] < prev {
			first[tok.canonical] = loc[0]
		}
	}

	hits := make([]teamHit, 0, len(first))
	for name, idx := range first {
		hits = append(hits, teamHit{index: idx, canonical: name})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].index < hits[j].index })

	if len(hits) > 2 {
		hits = hits[:2]
	}
	return hits
}

// Line classification for the trade grammar.

type lineKind int

const (
	lineBlank lineKind = iota
	lineTeamHeader
	linePlayer
	lineNoise // totals, markdown rules, bare mentions
)

var (
	// "Lakers sends:" with optional markdown emphasis and @mention wrap.
	// Anything after the colon is carried as a remainder so one-line
	// proposals ("Lakers Sends: LeBron James 99 (40)") still parse.
	sendsRe = regexp.MustCompile(`(?i)^[\s*_~>@]*(.+?)[\s*_~]*\bsends?\b\s*:?\s*(.*)$`)

	totalRe        = regexp.MustCompile(`(?i)^\s*[*_~]*total\b`)
	ruleRe         = regexp.MustCompile(`^\s*(?:[-=*_]{3,})\s*$`)
	mentionRe      = regexp.MustCompile(`^\s*(?:<@!?\d+>\s*)+$`)
	mentionTokenRe = regexp.MustCompile(`<@!?\d+>`)

	// "LeBron James: 99 (40 HOF)" / "LeBron James 99 (40)" / bare name.
	playerLineRe = regexp.MustCompile(`^\s*(?:[-*•+]\s*)?(?:<@!?\d+>\s*)?([A-Za-z][A-Za-z .'\-]*[A-Za-z.])\s*:?\s*(\d{1,2})?\s*(?:\(\s*(\d+)[^)]*\))?\s*$`)
)

type classifiedLine struct {
	kind      lineKind
	team      string // lineTeamHeader only
	remainder string // lineTeamHeader only: text after the colon
	player    string // linePlayer only
}

func (p *Parser) classifyLine(line string) classifiedLine {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return classifiedLine{kind: lineBlank}
	}
	if ruleRe.MatchString(trimmed) || mentionRe.MatchString(trimmed) || totalRe.MatchString(trimmed) {
		return classifiedLine{kind: lineNoise}
	}

	if m := sendsRe.FindStringSubmatch(trimmed); m != nil {
		if canonical, ok := p.registry.Canonical(stripDecoration(m[1])); ok {
			return classifiedLine{kind: lineTeamHeader, team: canonical, remainder: m[2]}
		}
	}

	// A non-header line that names a franchise is chatter, not a player.
	for _, tok := range p.teamTokens {
		if tok.re.MatchString(trimmed) {
			return classifiedLine{kind: lineNoise}
		}
	}

	if m := playerLineRe.FindStringSubmatch(trimmed); m != nil {
		name := strings.TrimSpace(m[1])
		if len(name) >= 2 {
			return classifiedLine{kind: linePlayer, player: name}
		}
	}

	return classifiedLine{kind: lineNoise}
}

// stripDecoration removes markdown emphasis and mention wrapping from a
// captured token.
func stripDecoration(s string) string {
	s = mentionTokenRe.ReplaceAllString(s, "")
	return strings.Trim(s, " \t*_~`>@")
}

// ParseTrade parses a trade proposal. It returns nil when the text does
// not name two franchises.
func (p *Parser) ParseTrade(text string) *models.ParsedTrade {
	hits := p.detectTeams(text)
	if len(hits) < 2 {
		return nil
	}

	trade := &models.ParsedTrade{
		Teams: [2]string{hits[0].canonical, hits[1].canonical},
	}
	other := map[string]string{
		trade.Teams[0]: trade.Teams[1],
		trade.Teams[1]: trade.Teams[0],
	}

	currentSide := ""
	sawHeader := false
	var orphanPlayers []string

	for _, line := range strings.Split(text, "\n") {
		cl := p.classifyLine(line)
		switch cl.kind {
		case lineTeamHeader:
			if cl.team == trade.Teams[0] || cl.team == trade.Teams[1] {
				currentSide = cl.team
				sawHeader = true
				if rem := p.classifyLine(cl.remainder); rem.kind == linePlayer {
					trade.Movements = append(trade.Movements, models.Movement{
						PlayerName: rem.player,
						FromTeam:   currentSide,
						ToTeam:     other[currentSide],
					})
				}
			}
		case linePlayer:
			if currentSide != "" {
				trade.Movements = append(trade.Movements, models.Movement{
					PlayerName: cl.player,
					FromTeam:   currentSide,
					ToTeam:     other[currentSide],
				})
			} else {
				orphanPlayers = append(orphanPlayers, cl.player)
			}
		}
	}

	if !sawHeader {
		// No "sends:" sections at all: split the player lines evenly
		// between the two sides, first half from team one. This is a
		// deliberate fallback policy, surfaced via LowConfidence.
		if len(orphanPlayers) == 0 {
			return nil
		}
		trade.LowConfidence = true
		half := (len(orphanPlayers) + 1) / 2
		for i, name := range orphanPlayers {
			from := trade.Teams[0]
			if i >= half {
				from = trade.Teams[1]
			}
			trade.Movements = append(trade.Movements, models.Movement{
				PlayerName: name,
				FromTeam:   from,
				ToTeam:     other[from],
			})
		}
	}

	if len(trade.Movements) == 0 {
		return nil
	}
	return trade
}

// Bid grammar.

var (
	cutKwRe  = regexp.MustCompile(`(?i)\b(?:cut|drop|waive)\b`)
	signKwRe = regexp.MustCompile(`(?i)\b(?:sign|add|pick\s*up|pickup)\b`)
	bidKwRe  = regexp.MustCompile(`(?i)\bbid\b\s*:?\s*(\d+)`)

	trailingIntRe = regexp.MustCompile(`(\d+)\s*$`)
	nameCharsRe   = regexp.MustCompile(`[A-Za-z][A-Za-z .'\-]*[A-Za-z.]|[A-Za-z]`)
)

// ParseBid parses a free-agency bid of the shape
//
//	drop <player> sign <player> [bid N | N]
//
// The cut clause is optional; the sign target is not. A bid with no
// stated figure defaults to amount 1.
func (p *Parser) ParseBid(text string) *models.ParsedBid {
	signLoc := signKwRe.FindStringIndex(text)
	if signLoc == nil {
		return nil
	}

	bid := &models.ParsedBid{BidAmount: 1}

	if cutLoc := cutKwRe.FindStringIndex(text); cutLoc != nil && cutLoc[1] <= signLoc[0] {
		bid.PlayerToCut = extractName(text[cutLoc[1]:signLoc[0]])
	}

	// The sign capture runs to the bid keyword, a trailing number, or
	// the end of the line.
	rest := text[signLoc[1]:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}

	if m := bidKwRe.FindStringSubmatchIndex(rest); m != nil {
		if n, err := strconv.Atoi(rest[m[2]:m[3]]); err == nil {
			bid.BidAmount = n
		}
		rest = rest[:m[0]]
	} else if m := trailingIntRe.FindStringSubmatchIndex(rest); m != nil {
		if n, err := strconv.Atoi(rest[m[2]:m[3]]); err == nil {
			bid.BidAmount = n
		}
		rest = rest[:m[0]]
	}

	bid.PlayerToSign = extractName(rest)
	if bid.PlayerToSign == "" {
		return nil
	}
	return bid
}

// Connective words stripped from the edges of a captured name clause.
var nameStopwords = map[string]bool{
	"and": true, "then": true, "to": true, "for": true,
	"the": true, "please": true, "i": true, "want": true,
}

// extractName pulls the longest name-shaped token out of a clause,
// dropping mentions, markdown and connective words.
func extractName(s string) string {
	s = mentionTokenRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, " \t*_~`>@,.:;&")

	best := ""
	for _, m := range nameCharsRe.FindAllString(s, -1) {
		words := strings.Fields(m)
		for len(words) > 0 && nameStopwords[strings.ToLower(words[0])] {
			words = words[1:]
		}
		for len(words) > 0 && nameStopwords[strings.ToLower(words[len(words)-1])] {
			words = words[:len(words)-1]
		}
		candidate := strings.Join(words, " ")
		if len(candidate) > len(best) {
			best = candidate
		}
	}
	return best
}
