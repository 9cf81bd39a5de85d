package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, StoreKindMemory, cfg.Store.Kind)
	assert.Equal(t, LockKindLocal, cfg.Lock.Kind)
}

func TestLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "rich_bet_config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(`
log_level: debug
server:
  ws_port: 4040
store:
  kind: mongo
  hosts: [db1, db2]
lock:
  kind: redis
  ttl: 5s
pool:
  admin: admin
  fee_recipient: treasury
  fee_rate: 30
schedule:
  interval: 60
  bet_duration: 50
users:
  tk1: alice
balances:
  alice: 500
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4040, cfg.Server.WsPort)
	// 没写的保持默认值
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, "rich_bet", cfg.Store.Database)
	assert.Equal(t, []string{"db1", "db2"}, cfg.Store.Hosts)
	assert.Equal(t, 5*time.Second, cfg.Lock.TTL)
	assert.Equal(t, "localhost:6379", cfg.Lock.Addr)
	assert.Equal(t, PoolConfig{Admin: "admin", FeeRecipient: "treasury", FeeRate: 30}, cfg.Pool)
	assert.Equal(t, ScheduleConfig{Interval: 60, BetDuration: 50}, cfg.Schedule)
	assert.Equal(t, "alice", cfg.Users["tk1"])
	assert.Equal(t, uint64(500), cfg.Balances["alice"])

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	cfg, err = Load("")
	assert.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestConfig_Validate(t *testing.T) {
	cases := map[string]func(c *Config){
		"log level":   func(c *Config) { c.LogLevel = "verbose" },
		"ws port":     func(c *Config) { c.Server.WsPort = 0 },
		"store kind":  func(c *Config) { c.Store.Kind = "postgres" },
		"mongo hosts": func(c *Config) { c.Store.Kind = StoreKindMongo; c.Store.Hosts = nil },
		"lock kind":   func(c *Config) { c.Lock.Kind = "zk" },
		"redis ttl":   func(c *Config) { c.Lock.Kind = LockKindRedis; c.Lock.TTL = 0 },
		"fee rate":    func(c *Config) { c.Pool.FeeRate = 1001 },
		"schedule":    func(c *Config) { c.Schedule.Interval = -1 },
		"keeper":      func(c *Config) { c.Schedule.Interval = 60 },
	}
	for name, mutate := range cases {
		cfg := Defaults()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}

	cfg := Defaults()
	cfg.Pool.FeeRate = 1000
	assert.NoError(t, cfg.Validate())
}
