package config

import (
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/model"
)

const (
	StoreKindMemory = "memory"
	StoreKindMongo  = "mongo"

	LockKindLocal = "local"
	LockKindRedis = "redis"
)

type Config struct {
	LogLevel string         `yaml:"log_level"`
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Lock     LockConfig     `yaml:"lock"`
	Pool     PoolConfig     `yaml:"pool"`
	Schedule ScheduleConfig `yaml:"schedule"`
	// token -> 用户id，握手时用
	Users map[string]string `yaml:"users"`
	// 启动时给账户充值，只对memory账本生效
	Balances map[string]uint64 `yaml:"balances"`
}

type ServerConfig struct {
	WsPort      int `yaml:"ws_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type StoreConfig struct {
	Kind     string   `yaml:"kind"`
	Hosts    []string `yaml:"hosts"`
	Database string   `yaml:"database"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
}

type LockConfig struct {
	Kind     string        `yaml:"kind"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// 首次启动时用来初始化全局配置，已初始化过则忽略
type PoolConfig struct {
	Admin        string `yaml:"admin"`
	FeeRecipient string `yaml:"fee_recipient"`
	FeeRate      uint16 `yaml:"fee_rate"`
}

// 单位秒，interval为0则不自动开轮次
type ScheduleConfig struct {
	Interval    int64 `yaml:"interval"`
	BetDuration int64 `yaml:"bet_duration"`
}

func Defaults() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			WsPort:      3030,
			MetricsPort: 9090,
		},
		Store: StoreConfig{
			Kind:     StoreKindMemory,
			Hosts:    []string{"localhost"},
			Database: "rich_bet",
		},
		Lock: LockConfig{
			Kind: LockKindLocal,
			Addr: "localhost:6379",
			TTL:  10 * time.Second,
		},
		Pool: PoolConfig{
			FeeRate: 20,
		},
		Users:    map[string]string{},
		Balances: map[string]uint64{},
	}
}

// 读yaml文件覆盖在默认值上，path为空直接返回默认值。返回前不做校验
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return &cfg, nil
	}

	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err = yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return &cfg, nil
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// 一次性返回所有问题
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q", c.LogLevel))
	}
	if c.Server.WsPort <= 0 {
		errs = append(errs, "server: ws_port must be positive")
	}

	switch c.Store.Kind {
	case StoreKindMemory:
	case StoreKindMongo:
		if len(c.Store.Hosts) == 0 || c.Store.Database == "" {
			errs = append(errs, "store: mongo needs hosts and database")
		}
	default:
		errs = append(errs, fmt.Sprintf("store: unknown kind %q", c.Store.Kind))
	}

	switch c.Lock.Kind {
	case LockKindLocal:
	case LockKindRedis:
		if c.Lock.Addr == "" {
			errs = append(errs, "lock: redis needs addr")
		}
		if c.Lock.TTL <= 0 {
			errs = append(errs, "lock: ttl must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("lock: unknown kind %q", c.Lock.Kind))
	}

	if c.Pool.FeeRate > model.MaxFeeRate {
		errs = append(errs, fmt.Sprintf("pool: fee_rate %d > %d", c.Pool.FeeRate, model.MaxFeeRate))
	}
	if c.Schedule.Interval < 0 || c.Schedule.BetDuration < 0 {
		errs = append(errs, "schedule: interval and bet_duration must not be negative")
	}
	if c.Schedule.Interval > 0 && c.Pool.Admin == "" {
		errs = append(errs, "schedule: keeper needs pool.admin")
	}

	if len(errs) > 0 {
		return errors.New("invalid config: " + strings.Join(errs, "; "))
	}
	return nil
}
