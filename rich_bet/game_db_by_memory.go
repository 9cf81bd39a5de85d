package rich_bet

import (
	"context"
	"sort"
	"sync"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/common/g-error"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/model"
)

func NewGameDBByMemory() *GameDBByMemory {
	return &GameDBByMemory{
		rounds:    map[uint64]model.Round{},
		positions: map[string]model.Position{},
	}
}

// 内存实现，单进程或测试时使用。存取都是值拷贝
type GameDBByMemory struct {
	mu sync.RWMutex

	config    *model.PoolConfig
	rounds    map[uint64]model.Round
	positions map[string]model.Position
}

func (db *GameDBByMemory) GetConfig(ctx context.Context) (model.PoolConfig, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.config == nil {
		return model.PoolConfig{}, g_error.ErrNotFound
	}
	return *db.config, nil
}

func (db *GameDBByMemory) CreateConfig(ctx context.Context, cfg model.PoolConfig) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.config != nil {
		return g_error.ErrAlreadyExists
	}
	db.config = &cfg
	return nil
}

func (db *GameDBByMemory) SaveConfig(ctx context.Context, cfg model.PoolConfig) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.config == nil {
		return g_error.ErrNotFound
	}
	db.config = &cfg
	return nil
}

func (db *GameDBByMemory) CreateRound(ctx context.Context, r model.Round) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.rounds[r.ID]; ok {
		return g_error.ErrAlreadyExists
	}
	db.rounds[r.ID] = r
	return nil
}

func (db *GameDBByMemory) GetRound(ctx context.Context, id uint64) (model.Round, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	r, ok := db.rounds[id]
	if !ok {
		return r, g_error.ErrNotFound
	}
	return r, nil
}

func (db *GameDBByMemory) SaveRound(ctx context.Context, r model.Round) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.rounds[r.ID]; !ok {
		return g_error.ErrNotFound
	}
	db.rounds[r.ID] = r
	return nil
}

func (db *GameDBByMemory) ListOpenRounds(ctx context.Context) (result []model.Round, err error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, r := range db.rounds {
		if !r.Closed {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return
}

func (db *GameDBByMemory) CreatePosition(ctx context.Context, p model.Position) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.positions[p.ID]; ok {
		return g_error.ErrAlreadyExists
	}
	db.positions[p.ID] = p
	return nil
}

func (db *GameDBByMemory) GetPosition(ctx context.Context, round uint64, user string) (model.Position, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	p, ok := db.positions[model.PositionID(round, user)]
	if !ok {
		return p, g_error.ErrNotFound
	}
	return p, nil
}

func (db *GameDBByMemory) GetPositionsByRound(ctx context.Context, round uint64) (result []model.Position, err error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, p := range db.positions {
		if p.Round == round {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].User < result[j].User })
	return
}

func (db *GameDBByMemory) SaveStake(ctx context.Context, r model.Round, p model.Position) error {
	return db.saveBoth(r, p)
}

func (db *GameDBByMemory) SaveClaim(ctx context.Context, r model.Round, p model.Position) error {
	return db.saveBoth(r, p)
}

func (db *GameDBByMemory) saveBoth(r model.Round, p model.Position) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.rounds[r.ID]; !ok {
		return g_error.ErrNotFound
	}
	if _, ok := db.positions[p.ID]; !ok {
		return g_error.ErrNotFound
	}
	db.rounds[r.ID] = r
	db.positions[p.ID] = p
	return nil
}
