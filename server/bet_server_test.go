package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/ledger"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/msg_server"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/model"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/util"
)

type sentMsg struct {
	uID     string
	msgType uint16
	msgID   uint64
	body    []byte
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sentMsg
}

func (f *fakeSender) Send(id string, msgType uint16, msgID uint64, msg []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sentMsg{uID: id, msgType: msgType, msgID: msgID, body: msg})
}

func (f *fakeSender) last() sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs[len(f.msgs)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now int64
}

func (c *fakeClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) set(now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func newTestServer(t *testing.T) (*BetServer, *fakeSender, *ledger.LedgerByMemory, *fakeClock) {
	l := ledger.NewLedgerByMemory()
	clock := &fakeClock{}
	game := rich_bet.NewGame(rich_bet.NewGameDBByMemory(), l, clock, nil)
	s := NewBetServer(0, game, map[string]string{"tk-admin": "admin", "tk-p1": "p1", "tk-p2": "p2"})
	sender := &fakeSender{}
	s.sender = sender
	require.NoError(t, l.Mint("p1", 1000))
	require.NoError(t, l.Mint("p2", 1000))
	return s, sender, l, clock
}

func call(t *testing.T, s *BetServer, sender *fakeSender, uID string, mt uint16, req interface{}) sentMsg {
	require.NoError(t, s.Handle(uID, mt, 7, util.StringifyJsonToBytes(req)))
	m := sender.last()
	assert.Equal(t, uID, m.uID)
	assert.Equal(t, uint64(7), m.msgID)
	return m
}

func assertErr(t *testing.T, m sentMsg, reason string) {
	require.Equal(t, MsgTypeErr, m.msgType)
	var resp ErrResp
	require.NoError(t, util.ParseJsonFromBytes(m.body, &resp))
	assert.Equal(t, reason, resp.Reason)
}

// 找一个结束时间使得该总额下R胜
func closeTimeForR(total uint64, from int64) int64 {
	for t := from; ; t++ {
		if s, _ := rich_bet.SelectOutcome(t, total); s == model.SideR {
			return t
		}
	}
}

func TestBetServer_FullRound(t *testing.T) {
	s, sender, l, clock := newTestServer(t)
	ctx := context.Background()

	m := call(t, s, sender, "admin", MsgTypeInitConfig, ConfigReq{FeeRecipient: "treasury", FeeRate: 100})
	assert.Equal(t, MsgTypeSuccess, m.msgType)
	assertErr(t, call(t, s, sender, "p1", MsgTypeUpdateConfig, ConfigReq{FeeRecipient: "p1"}), "access_denied")

	end := closeTimeForR(200, 100)
	m = call(t, s, sender, "admin", MsgTypeOpenRound, OpenRoundReq{RoundID: 1, StartTime: 0, EndTime: end})
	assert.Equal(t, MsgTypeSuccess, m.msgType)

	for _, u := range []string{"p1", "p2"} {
		m = call(t, s, sender, u, MsgTypeOpenPosition, RoundReq{RoundID: 1})
		assert.Equal(t, MsgTypeSuccess, m.msgType)
	}
	assertErr(t, call(t, s, sender, "p1", MsgTypePlaceStake, PlaceStakeReq{RoundID: 1, Amount: 100, Side: "X"}), "invalid_side")
	assertErr(t, call(t, s, sender, "p1", MsgTypePlaceStake, PlaceStakeReq{RoundID: 1, Amount: 0, Side: "L"}), "invalid_amount")
	call(t, s, sender, "p1", MsgTypePlaceStake, PlaceStakeReq{RoundID: 1, Amount: 100, Side: "l"})
	m = call(t, s, sender, "p2", MsgTypePlaceStake, PlaceStakeReq{RoundID: 1, Amount: 100, Side: "R"})
	assert.Equal(t, MsgTypeSuccess, m.msgType)

	m = call(t, s, sender, "p1", MsgTypeGetPosition, GetPositionReq{RoundID: 1})
	require.Equal(t, MsgTypePosition, m.msgType)
	var p model.Position
	require.NoError(t, util.ParseJsonFromBytes(m.body, &p))
	assert.Equal(t, uint64(100), p.BetL)

	assertErr(t, call(t, s, sender, "p2", MsgTypeClaim, RoundReq{RoundID: 1}), "not_closed")

	clock.set(end)
	assertErr(t, call(t, s, sender, "admin", MsgTypeSettle, SettleReq{RoundID: 1, Treasury: "p1"}), "wrong_treasury")
	m = call(t, s, sender, "admin", MsgTypeSettle, SettleReq{RoundID: 1, Treasury: "treasury"})
	require.Equal(t, MsgTypeRound, m.msgType)
	var r model.Round
	require.NoError(t, util.ParseJsonFromBytes(m.body, &r))
	assert.True(t, r.Closed)
	assert.Equal(t, model.SideR, r.WinningSide)
	assert.Equal(t, uint64(10), r.Fee)

	m = call(t, s, sender, "p2", MsgTypeClaim, RoundReq{RoundID: 1})
	require.Equal(t, MsgTypeAmount, m.msgType)
	var amount AmountResp
	require.NoError(t, util.ParseJsonFromBytes(m.body, &amount))
	assert.Equal(t, uint64(190), amount.Amount)
	assertErr(t, call(t, s, sender, "p2", MsgTypeClaim, RoundReq{RoundID: 1}), "already_claimed")

	m = call(t, s, sender, "p1", MsgTypeRoundReport, RoundReq{RoundID: 1})
	require.Equal(t, MsgTypeReport, m.msgType)
	var report ReportResp
	require.NoError(t, util.ParseJsonFromBytes(m.body, &report))
	var sum uint64
	for _, rw := range report.Rewards {
		sum += rw.Amount
	}
	assert.Equal(t, uint64(200), sum)

	assertErr(t, call(t, s, sender, "admin", MsgTypeSweep, RoundReq{RoundID: 1}), "invalid_amount")

	m = call(t, s, sender, "p1", MsgTypeGetConfig, nil)
	require.Equal(t, MsgTypeConfig, m.msgType)
	var cfg model.PoolConfig
	require.NoError(t, util.ParseJsonFromBytes(m.body, &cfg))
	assert.Equal(t, "treasury", cfg.FeeRecipient)

	assertErr(t, call(t, s, sender, "p1", MsgTypeGetRound, RoundReq{RoundID: 9}), "not_found")

	b, _ := l.Balance(ctx, "p2")
	assert.Equal(t, uint64(1090), b)
}

func TestBetServer_BadMsg(t *testing.T) {
	s, sender, _, _ := newTestServer(t)
	assert.Error(t, s.Handle("p1", MsgTypePlaceStake, 1, []byte("{bad")))

	require.NoError(t, s.Handle("p1", 0xff, 1, nil))
	assertErr(t, sender.last(), "unknown_msg_type")
}

func TestTokenUserGetter(t *testing.T) {
	getter := newTokenUserGetter(map[string]string{"tk": "alice", "empty": ""})
	assert.Equal(t, "alice", getter.GetUserByToken("tk").ID())
	assert.Nil(t, getter.GetUserByToken("empty"))
	assert.Nil(t, getter.GetUserByToken("nope"))
}

// 走真实的websocket
func TestBetServer_OverWebsocket(t *testing.T) {
	l := ledger.NewLedgerByMemory()
	game := rich_bet.NewGame(rich_bet.NewGameDBByMemory(), l, &fakeClock{}, nil)
	s := NewBetServer(0, game, map[string]string{"tk-admin": "admin"})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/msg", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() (uint16, uint64, []byte) {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, mb, err := conn.ReadMessage()
		require.NoError(t, err)
		mt, id, body, err := msg_server.UnWrapMsg(mb)
		require.NoError(t, err)
		return mt, id, body
	}

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, msg_server.WrapMsg(msg_server.MsgTypeHandShake, 0, util.StringifyJsonToBytes(msg_server.HandShakeReq{Token: "tk-admin"}))))
	mt, _, _ := read()
	assert.Equal(t, msg_server.MsgTypeHandShake, mt)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, msg_server.WrapMsg(MsgTypeInitConfig, 3, util.StringifyJsonToBytes(ConfigReq{FeeRecipient: "treasury", FeeRate: 20}))))
	mt, id, _ := read()
	assert.Equal(t, MsgTypeSuccess, mt)
	assert.Equal(t, uint64(3), id)

	cfg, err := game.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", cfg.Admin)
}
