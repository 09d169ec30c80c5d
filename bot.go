// Package cogs wires the cogs into one discord bot.
package cogs

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/mio/bot"
	"github.com/intrntsrfr/meido/pkg/utils"

	"github.com/intrntsrfr/cogs/blinder"
	"github.com/intrntsrfr/cogs/channellist"
	"github.com/intrntsrfr/cogs/discord"
	"github.com/intrntsrfr/cogs/globalban"
	"github.com/intrntsrfr/cogs/kvstore"
	"github.com/intrntsrfr/cogs/lastping"
	"github.com/intrntsrfr/cogs/listmaker"
	"github.com/intrntsrfr/cogs/lovecalc"
	"github.com/intrntsrfr/cogs/quotes"
	"github.com/intrntsrfr/cogs/tellme"
)

type Bot struct {
	Bot    *bot.Bot
	logger *ZapLogger
	config *utils.Config
	store  kvstore.Store
	gw     *discord.Gateway

	channelLists *channellist.Service
	lastPing     *lastping.Service
}

func NewBot(config *utils.Config, store kvstore.Store, logger *ZapLogger) *Bot {
	b := bot.NewBotBuilder(config).
		WithDefaultHandlers().
		WithLogger(logger.Named("mio")).
		Build()

	sessions := make([]*discordgo.Session, 0, len(b.Discord.Sessions))
	for _, s := range b.Discord.Sessions {
		sessions = append(sessions, s.Real())
	}
	zl := logger.Zap()
	gw := discord.NewGateway(zl.Named("gateway"), sessions...)

	return &Bot{
		Bot:          b,
		logger:       logger,
		config:       config,
		store:        store,
		gw:           gw,
		channelLists: channellist.NewService(store, gw, zl.Named("channellist")),
		lastPing:     lastping.NewService(store, gw, zl.Named("lastping")),
	}
}

func (b *Bot) Run(ctx context.Context) error {
	b.registerModules()
	b.registerDiscordHandlers()
	b.registerMioHandlers()
	return b.Bot.Run(ctx)
}

func (b *Bot) Close() {
	b.Bot.Close()
}

func (b *Bot) registerModules() {
	zl := b.logger.Zap()
	modules := []bot.Module{
		NewModule(b.Bot, b.store, b.logger),
		blinder.NewModule(b.Bot, blinder.NewManager(b.store, b.gw, zl.Named("blinder")), b.gw, b.logger),
		channellist.NewModule(b.Bot, b.channelLists, b.logger),
		globalban.NewModule(b.Bot, globalban.NewService(b.gw, zl.Named("globalban")), b.logger),
		quotes.NewModule(b.Bot, quotes.NewService(b.store, zl.Named("quotes")), b.gw, b.logger),
		tellme.NewModule(b.Bot, tellme.NewService(b.store, zl.Named("tellme")), b.gw, b.logger),
		lovecalc.NewModule(b.Bot, b.gw, b.logger),
		lastping.NewModule(b.Bot, b.lastPing, b.gw, b.logger),
		listmaker.NewModule(b.Bot, listmaker.NewService(b.store, zl.Named("listmaker")), b.logger),
	}
	for _, mod := range modules {
		b.Bot.RegisterModule(mod)
	}
}

func (b *Bot) registerDiscordHandlers() {
	b.Bot.Discord.AddEventHandler(disconnectHandler(b))
	b.Bot.Discord.AddEventHandler(discord.ReadyHandler(b.gw))
	b.Bot.Discord.AddEventHandler(messageCreateHandler(b))
	for _, h := range discord.TopologyHandlers(b.reconcileLists) {
		b.Bot.Discord.AddEventHandler(h)
	}
}

func (b *Bot) registerMioHandlers() {
	b.Bot.AddHandler(logApplicationCommandPanicked(b))
	b.Bot.AddHandler(logApplicationCommandRan(b))
}
