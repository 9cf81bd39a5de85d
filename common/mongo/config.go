package mongo

import (
	"time"

	"gopkg.in/mgo.v2"
)

// new mongo conf
func NewDbConfig(hosts []string, database, uname, pwd string) *mgo.DialInfo {
	return &mgo.DialInfo{
		Addrs: hosts,
		// 先连admin，失败再连Database，见GetDB
		Database:  database,
		Username:  uname,
		Password:  pwd,
		Direct:    false,
		Timeout:   time.Second * 5,
		PoolLimit: 300, // Session.SetPoolLimit
	}
}
