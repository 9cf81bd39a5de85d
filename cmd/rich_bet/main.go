package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/common/mongo"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/common/redis"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/config"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/ledger"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/log"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/metrics"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/common/g-error"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/server"
)

const (
	ConfigFName    = "config"
	PortFName      = "port"
	LogLevelFName  = "log_level"
	CloseTimeFName = "close_time"
	TotalFName     = "total"
	AccountFName   = "account"
	AmountFName    = "amount"
)

func main() {
	app := cli.NewApp()
	app.Name = "rich_bet"
	app.Usage = "two-sided pari-mutuel betting pool"
	app.Commands = []cli.Command{
		{
			Name:  "serve",
			Usage: "run the websocket server",
			Flags: []cli.Flag{
				cli.StringFlag{Name: ConfigFName, Usage: "yaml config file"},
				cli.IntFlag{Name: PortFName, Usage: "override server.ws_port"},
				cli.StringFlag{Name: LogLevelFName, Usage: "override log_level"},
			},
			Action: serve,
		},
		{
			Name:  "outcome",
			Usage: "replay the winning side of a round",
			Flags: []cli.Flag{
				cli.Int64Flag{Name: CloseTimeFName, Usage: "round end time, unix seconds"},
				cli.Uint64Flag{Name: TotalFName, Usage: "total stake of the round"},
			},
			Action: outcome,
		},
		{
			Name:  "mint",
			Usage: "credit an account in the mongo ledger",
			Flags: []cli.Flag{
				cli.StringFlag{Name: ConfigFName, Usage: "yaml config file"},
				cli.StringFlag{Name: AccountFName},
				cli.Uint64Flag{Name: AmountFName},
			},
			Action: mint,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(ConfigFName))
	if err != nil {
		return nil, err
	}
	if c.IsSet(PortFName) {
		cfg.Server.WsPort = c.Int(PortFName)
	}
	if c.IsSet(LogLevelFName) {
		cfg.LogLevel = c.String(LogLevelFName)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err = log.InitLogByLevel(cfg.LogLevel); err != nil {
		return err
	}

	db, l, err := newStore(cfg)
	if err != nil {
		return err
	}
	locker, err := newLocker(cfg)
	if err != nil {
		return err
	}
	game := rich_bet.NewGame(db, l, rich_bet.SystemClock{}, locker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Pool.Admin != "" {
		err = game.InitConfig(ctx, cfg.Pool.Admin, cfg.Pool.FeeRecipient, cfg.Pool.FeeRate)
		if err != nil && !errors.Is(err, g_error.ErrAlreadyExists) {
			return err
		}
	}

	schedule := rich_bet.Schedule{Interval: cfg.Schedule.Interval, BetDuration: cfg.Schedule.BetDuration}
	if schedule.Enabled() {
		go rich_bet.NewKeeper(game, cfg.Pool.Admin, schedule).Run(ctx, time.Second)
	}
	if cfg.Server.MetricsPort > 0 {
		go func() {
			if err := metrics.Serve(fmt.Sprintf(":%v", cfg.Server.MetricsPort)); err != nil {
				log.L.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	srv := server.NewBetServer(cfg.Server.WsPort, game, cfg.Users)
	go func() {
		if err := srv.Start(); err != nil {
			log.L.Error("bet server stopped", zap.Error(err))
		}
	}()

	signalListen(func() {
		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if err := srv.Stop(stopCtx); err != nil {
			log.L.Warn("stop bet server", zap.Error(err))
		}
		if cfg.Store.Kind == config.StoreKindMongo {
			mongo.CloseDb()
		}
		log.L.Sync()
	})
	return nil
}

func newStore(cfg *config.Config) (rich_bet.Database, rich_bet.Ledger, error) {
	switch cfg.Store.Kind {
	case config.StoreKindMongo:
		dial := mongo.NewDbConfig(cfg.Store.Hosts, cfg.Store.Database, cfg.Store.User, cfg.Store.Password)
		return rich_bet.NewGameDBByMongo(dial, cfg.Store.Database), ledger.NewLedgerByMongo(dial, cfg.Store.Database), nil
	case config.StoreKindMemory:
		l := ledger.NewLedgerByMemory()
		for account, amount := range cfg.Balances {
			if err := l.Mint(account, amount); err != nil {
				return nil, nil, err
			}
		}
		return rich_bet.NewGameDBByMemory(), l, nil
	}
	return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
}

func newLocker(cfg *config.Config) (rich_bet.Locker, error) {
	if cfg.Lock.Kind != config.LockKindRedis {
		return rich_bet.NewLocalLocker(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := redis.NewClient(ctx, redis.ClientConfig{Addr: cfg.Lock.Addr, Password: cfg.Lock.Password, DB: cfg.Lock.DB})
	if err != nil {
		return nil, err
	}
	return redis.NewLocker(rdb, cfg.Lock.TTL), nil
}

func outcome(c *cli.Context) error {
	if !c.IsSet(CloseTimeFName) {
		return errors.New("close_time is required")
	}
	side, hash := rich_bet.SelectOutcome(c.Int64(CloseTimeFName), c.Uint64(TotalFName))
	fmt.Printf("winner: %v\nhash: %v\n", side, hash)
	return nil
}

func mint(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Store.Kind != config.StoreKindMongo {
		return errors.New("mint needs store.kind = mongo")
	}
	if c.String(AccountFName) == "" || c.Uint64(AmountFName) == 0 {
		return errors.New("account and amount are required")
	}
	dial := mongo.NewDbConfig(cfg.Store.Hosts, cfg.Store.Database, cfg.Store.User, cfg.Store.Password)
	defer mongo.CloseDb()
	return ledger.NewLedgerByMongo(dial, cfg.Store.Database).Mint(c.String(AccountFName), c.Uint64(AmountFName))
}

// listen stop signal
func signalListen(stopFunc func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	stopFunc()
}
