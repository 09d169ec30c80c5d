package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/intrntsrfr/meido/pkg/utils"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs"
	"github.com/intrntsrfr/cogs/database"
	"github.com/intrntsrfr/cogs/kvstore"
)

var app = cli.Command{
	Name:  "cogs",
	Usage: "Discord bot with server utility cogs",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "JSON config file",
			Value: "./config.json",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Log at debug level",
		},
	},
	Action: run,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type config struct {
	Token            string   `json:"token"`
	Shards           int      `json:"shards"`
	OwnerIDs         []string `json:"owner_ids"`
	Store            string   `json:"store"`
	DataDir          string   `json:"data_dir"`
	ConnectionString string   `json:"connection_string"`
}

func loadConfig(path string) (*config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read config file: %w", err)
	}
	c := &config{
		Shards:  1,
		Store:   "badger",
		DataDir: "./data",
	}
	if err := json.Unmarshal(f, c); err != nil {
		return nil, fmt.Errorf("couldn't parse config file: %w", err)
	}
	if c.Token == "" {
		return nil, errors.New("config: token is required")
	}
	return c, nil
}

func openStore(c *config, logger *cogs.ZapLogger) (kvstore.Store, error) {
	switch c.Store {
	case "badger":
		s, err := kvstore.Open(c.DataDir, logger.Zap().Named("kvstore"), logger.Named("badger").(*cogs.ZapLogger))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := database.Open(&database.Config{
			Log:     logger.Zap().Named("database"),
			ConnStr: c.ConnectionString,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("config: unknown store %q", c.Store)
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger := cogs.NewLogger("cogs", cmd.Bool("debug"))
	defer logger.Sync()

	c, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	store, err := openStore(c, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := utils.NewConfig()
	cfg.Set("token", c.Token)
	cfg.Set("shards", c.Shards)
	cfg.Set("owner_ids", c.OwnerIDs)

	bot := cogs.NewBot(cfg, store, logger)
	defer bot.Close()

	if err := bot.Run(ctx); err != nil {
		return err
	}
	logger.Info("running, press ctrl-c to stop", zap.Int("shards", c.Shards))
	<-ctx.Done()
	return nil
}
