package main

import (
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"

	"github.com/hardwood-league/commish/go/internal/gateway"
	"github.com/hardwood-league/commish/go/internal/league"
	"github.com/hardwood-league/commish/go/internal/ledger"
	"github.com/hardwood-league/commish/go/internal/outbox"
	"github.com/hardwood-league/commish/go/internal/parser"
	"github.com/hardwood-league/commish/go/internal/playermatch"
	"github.com/hardwood-league/commish/go/internal/reversal"
	"github.com/hardwood-league/commish/go/internal/roster"
	"github.com/hardwood-league/commish/go/internal/storage/postgres"
	"github.com/hardwood-league/commish/go/internal/vote"
)

// Services holds the wired application graph.
type Services struct {
	Registry    *league.Registry
	Parser      *parser.Parser
	Resolver    *playermatch.Resolver
	Mutator     *roster.Mutator
	Ledger      *ledger.Engine
	Adjudicator *vote.Adjudicator
	Bids        *vote.FABidService
	Reversals   *reversal.Engine
	Dispatcher  *gateway.Dispatcher
	Sweeper     *vote.Sweeper
	OutboxStore *postgres.OutboxStore
}

func setupServices(pool *postgres.Pool, cfg *Config, chat vote.ChatClient, clock clockwork.Clock) *Services {
	// Storage layer
	players := postgres.NewPlayerStore(pool)
	aliases := postgres.NewAliasStore(pool)
	trades := postgres.NewTradeStore(pool)
	bids := postgres.NewBidStore(pool)
	coins := postgres.NewCoinStore(pool)
	txns := postgres.NewTransactionStore(pool)
	decisions := postgres.NewDecisionStore(pool)
	outboxStore := postgres.NewOutboxStore(pool)

	// Domain layer
	registry := league.NewRegistry(cfg.League.Teams)
	p := parser.New(registry)
	resolver := playermatch.NewResolver(players, aliases, cfg.League.Nicknames, cfg.League.NearDuplicates)
	mutator := roster.NewMutator(players, resolver)
	engine := ledger.NewEngine(coins, txns, bids, players, clock, cfg.Caps)

	// Adjudication layer
	adjudicator := vote.NewAdjudicator(trades, decisions, outboxStore, mutator, chat, clock, cfg.Vote)
	bidService := vote.NewFABidService(bids, decisions, outboxStore, engine, resolver, mutator, chat, clock, cfg.Vote)
	reversals := reversal.NewEngine(trades, bids, decisions, players, resolver, engine, clock)

	dispatcher := gateway.NewDispatcher(p, registry, adjudicator, bidService, reversals, chat, cfg.Vote, cfg.Gateway.Emoji)
	sweeper := vote.NewSweeper(adjudicator, clock, cfg.Sweep.Interval, cfg.Sweep.ReminderInterval)

	return &Services{
		Registry:    registry,
		Parser:      p,
		Resolver:    resolver,
		Mutator:     mutator,
		Ledger:      engine,
		Adjudicator: adjudicator,
		Bids:        bidService,
		Reversals:   reversals,
		Dispatcher:  dispatcher,
		Sweeper:     sweeper,
		OutboxStore: outboxStore,
	}
}

// setupPublisher connects to NATS when a URL is configured, otherwise
// events go to the log. The relay works either way.
func setupPublisher(natsURL, subjectPrefix string) (outbox.Publisher, *nats.Conn, error) {
	if natsURL == "" {
		return outbox.LogPublisher{}, nil, nil
	}
	nc, js, err := outbox.SetupNATS(natsURL)
	if err != nil {
		return nil, nil, err
	}
	return outbox.NewNATSPublisher(js, subjectPrefix), nc, nil
}
