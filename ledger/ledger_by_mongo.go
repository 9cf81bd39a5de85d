package ledger

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/common/mongo"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/log"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/common/g-error"
)

func NewLedgerByMongo(config *mgo.DialInfo, dbName string) *LedgerByMongo {
	return &LedgerByMongo{config: config, dbName: dbName, accountTN: "ledger_account"}
}

// 账户余额存在mongo里。扣款用带余额条件的$inc保证不会扣成负数，
// 入账失败则把扣掉的钱加回去
type LedgerByMongo struct {
	config    *mgo.DialInfo
	dbName    string
	accountTN string
}

type account struct {
	ID      string `bson:"_id"`
	Balance int64  `bson:"balance"`
}

func (l *LedgerByMongo) Mint(account string, amount uint64) error {
	if amount > math.MaxInt64 {
		return g_error.ErrOverflow
	}
	return l.credit(account, int64(amount))
}

func (l *LedgerByMongo) Balance(ctx context.Context, id string) (uint64, error) {
	var a account
	err := l.accounts().FindId(id).One(&a)
	if err == mgo.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "get balance of %s", id)
	}
	return uint64(a.Balance), nil
}

func (l *LedgerByMongo) Transfer(ctx context.Context, from, to string, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}
	if amount > math.MaxInt64 {
		return g_error.ErrOverflow
	}
	n := int64(amount)

	err := l.accounts().Update(bson.M{"_id": from, "balance": bson.M{"$gte": n}}, bson.M{"$inc": bson.M{"balance": -n}})
	if err == mgo.ErrNotFound {
		return g_error.ErrInsufficientFunds
	}
	if err != nil {
		return errors.Wrapf(err, "debit %s", from)
	}

	if err = l.credit(to, n); err != nil {
		if rErr := l.credit(from, n); rErr != nil {
			log.L.Error("restore debit failed", zap.String("account", from), zap.Int64("amount", n), zap.Error(rErr), zap.Error(err))
		}
		return err
	}
	return nil
}

func (l *LedgerByMongo) credit(id string, n int64) error {
	if _, err := l.accounts().UpsertId(id, bson.M{"$inc": bson.M{"balance": n}}); err != nil {
		return errors.Wrapf(err, "credit %s", id)
	}
	return nil
}

func (l *LedgerByMongo) accounts() *mgo.Collection {
	return mongo.GetDB(l.config).DB(l.dbName).C(l.accountTN)
}

func (l *LedgerByMongo) ClearTestData() {
	mongo.ClearAllData(l.config, l.dbName)
}
