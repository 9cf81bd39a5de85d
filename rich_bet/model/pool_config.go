package model

// 费率为千分比，100即10%
const MaxFeeRate = 1000

// 全局唯一的配置，只有管理员可以修改
type PoolConfig struct {
	Admin        string `json:"admin" bson:"admin"`
	FeeRecipient string `json:"fee_recipient" bson:"fee_recipient"`
	FeeRate      uint16 `json:"fee_rate" bson:"fee_rate"`
}

func (c PoolConfig) Valid() bool {
	return c.Admin != "" && c.FeeRecipient != "" && c.FeeRate <= MaxFeeRate
}
