package rich_bet

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/common/mongo"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/log"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/common/g-error"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/model"
)

// 全局配置只有一条
const poolConfigTag = 0

func NewGameDBByMongo(config *mgo.DialInfo, dbName string) *GameDBByMongo {
	db := &GameDBByMongo{
		config: config,
		dbName: dbName,

		poolConfigTN: "pool_config",
		roundTN:      "round",
		positionTN:   "position",
	}

	db.migrate()

	return db
}

// mgo不支持多文档事务，SaveStake/SaveClaim 第二步失败时把第一步改回去。
// mgo的bson没有uint64，金额必须小于 math.MaxInt64
type GameDBByMongo struct {
	config *mgo.DialInfo
	dbName string

	poolConfigTN string
	roundTN      string
	positionTN   string
}

type poolConfigDoc struct {
	Tag              int `bson:"tag"`
	model.PoolConfig `bson:",inline"`
}

func (db *GameDBByMongo) GetConfig(ctx context.Context) (model.PoolConfig, error) {
	var doc poolConfigDoc
	if err := db.getDB().C(db.poolConfigTN).Find(bson.M{"tag": poolConfigTag}).One(&doc); err != nil {
		return doc.PoolConfig, wrapMongoErr(err, "get pool config")
	}
	return doc.PoolConfig, nil
}

func (db *GameDBByMongo) CreateConfig(ctx context.Context, cfg model.PoolConfig) error {
	err := db.getDB().C(db.poolConfigTN).Insert(poolConfigDoc{Tag: poolConfigTag, PoolConfig: cfg})
	return wrapMongoErr(err, "create pool config")
}

func (db *GameDBByMongo) SaveConfig(ctx context.Context, cfg model.PoolConfig) error {
	err := db.getDB().C(db.poolConfigTN).Update(bson.M{"tag": poolConfigTag}, poolConfigDoc{Tag: poolConfigTag, PoolConfig: cfg})
	return wrapMongoErr(err, "save pool config")
}

func (db *GameDBByMongo) CreateRound(ctx context.Context, r model.Round) error {
	return wrapMongoErr(db.getDB().C(db.roundTN).Insert(r), "create round %d", r.ID)
}

func (db *GameDBByMongo) GetRound(ctx context.Context, id uint64) (r model.Round, err error) {
	err = db.getDB().C(db.roundTN).FindId(id).One(&r)
	return r, wrapMongoErr(err, "get round %d", id)
}

func (db *GameDBByMongo) SaveRound(ctx context.Context, r model.Round) error {
	return wrapMongoErr(db.getDB().C(db.roundTN).UpdateId(r.ID, r), "save round %d", r.ID)
}

func (db *GameDBByMongo) ListOpenRounds(ctx context.Context) (result []model.Round, err error) {
	err = db.getDB().C(db.roundTN).Find(bson.M{"closed": false}).Sort("_id").All(&result)
	return result, wrapMongoErr(err, "list open rounds")
}

func (db *GameDBByMongo) CreatePosition(ctx context.Context, p model.Position) error {
	return wrapMongoErr(db.getDB().C(db.positionTN).Insert(p), "create position %s", p.ID)
}

func (db *GameDBByMongo) GetPosition(ctx context.Context, round uint64, user string) (p model.Position, err error) {
	id := model.PositionID(round, user)
	err = db.getDB().C(db.positionTN).FindId(id).One(&p)
	return p, wrapMongoErr(err, "get position %s", id)
}

func (db *GameDBByMongo) GetPositionsByRound(ctx context.Context, round uint64) (result []model.Position, err error) {
	err = db.getDB().C(db.positionTN).Find(bson.M{"round": round}).Sort("user").All(&result)
	return result, wrapMongoErr(err, "get positions of round %d", round)
}

func (db *GameDBByMongo) SaveStake(ctx context.Context, r model.Round, p model.Position) error {
	return db.saveBoth(r, p)
}

func (db *GameDBByMongo) SaveClaim(ctx context.Context, r model.Round, p model.Position) error {
	return db.saveBoth(r, p)
}

// 先改position再改round，round失败则恢复position
func (db *GameDBByMongo) saveBoth(r model.Round, p model.Position) error {
	pc := db.getDB().C(db.positionTN)
	var old model.Position
	if err := pc.FindId(p.ID).One(&old); err != nil {
		return wrapMongoErr(err, "load position %s", p.ID)
	}
	if err := pc.UpdateId(p.ID, p); err != nil {
		return wrapMongoErr(err, "save position %s", p.ID)
	}
	if err := db.getDB().C(db.roundTN).UpdateId(r.ID, r); err != nil {
		if rErr := pc.UpdateId(old.ID, old); rErr != nil {
			log.L.Error("restore position failed", zap.String("position", old.ID), zap.Error(rErr), zap.Error(err))
		}
		return wrapMongoErr(err, "save round %d", r.ID)
	}
	return nil
}

func (db *GameDBByMongo) getDB() *mgo.Database {
	return mongo.GetDB(db.config).DB(db.dbName)
}

func (db *GameDBByMongo) migrate() {
	if err := db.getDB().C(db.poolConfigTN).EnsureIndex(mgo.Index{Key: []string{"tag"}, Unique: true}); err != nil {
		panic(err)
	}
	if err := db.getDB().C(db.roundTN).EnsureIndex(mgo.Index{Key: []string{"closed"}}); err != nil {
		panic(err)
	}
	if err := db.getDB().C(db.positionTN).EnsureIndex(mgo.Index{Key: []string{"round"}}); err != nil {
		panic(err)
	}
}

func (db *GameDBByMongo) ClearTestData() {
	mongo.ClearAllData(db.config, db.dbName)
}

// 把mgo的错误转成g_error，方便上层用errors.Is判断
func wrapMongoErr(err error, format string, args ...interface{}) error {
	switch {
	case err == nil:
		return nil
	case err == mgo.ErrNotFound:
		return errors.Wrapf(g_error.ErrNotFound, format, args...)
	case mgo.IsDup(err):
		return errors.Wrapf(g_error.ErrAlreadyExists, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}
