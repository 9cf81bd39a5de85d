package rich_bet

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"golang.org/x/crypto/sha3"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/model"
)

// 根据结束时间和奖池总额决定胜方，同样的输入永远得到同样的结果，方便审计重放。
// 输入可被能影响结束时间或下注额的人操纵，这里只保证确定性，不保证不可预测。
func SelectOutcome(closeTime int64, totalStake uint64) (model.Side, string) {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(closeTime))
	binary.LittleEndian.PutUint64(buf[8:], totalStake)

	h := sha3.NewLegacyKeccak256()
	h.Write(buf[:])
	resultHash := hex.EncodeToString(h.Sum(nil))
	return sideByResultHash(resultHash), resultHash
}

// 取hash最后一位，小于8为L，否则为R
func sideByResultHash(resultHash string) model.Side {
	x, err := strconv.ParseUint(resultHash[len(resultHash)-1:], 16, 8)
	if err != nil || x >= 8 {
		return model.SideR
	}
	return model.SideL
}
