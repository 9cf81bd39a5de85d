package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/log"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/msg_server"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/model"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/util"
)

// 单个请求最长处理时间，主要是等锁
const opTimeout = 10 * time.Second

type msgSender interface {
	Send(id string, msgType uint16, msgID uint64, msg []byte)
}

func NewBetServer(port int, game *rich_bet.Game, users map[string]string) *BetServer {
	s := &BetServer{game: game}
	ws := msg_server.NewWsServer(port, newTokenUserGetter(users), s)
	s.wsServer = ws
	s.sender = ws
	return s
}

// 把websocket消息转成押注操作
type BetServer struct {
	game     *rich_bet.Game
	wsServer *msg_server.WsServer
	sender   msgSender

	started uint32
}

func (s *BetServer) Handle(uID string, msgType uint16, mID uint64, msg []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	switch msgType {
	case MsgTypeInitConfig:
		var req ConfigReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		s.replySuccess(uID, mID, s.game.InitConfig(ctx, uID, req.FeeRecipient, req.FeeRate), "config initialized")
	case MsgTypeUpdateConfig:
		var req ConfigReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		s.replySuccess(uID, mID, s.game.UpdateConfig(ctx, uID, req.FeeRecipient, req.FeeRate), "config updated")
	case MsgTypeOpenRound:
		var req OpenRoundReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		s.replySuccess(uID, mID, s.game.OpenRound(ctx, uID, req.RoundID, req.StartTime, req.EndTime), "round opened")
	case MsgTypeSettle:
		var req SettleReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		r, err := s.game.Settle(ctx, uID, req.RoundID, req.Treasury)
		s.reply(uID, mID, err, MsgTypeRound, r)
	case MsgTypeSweep:
		var req RoundReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		amount, err := s.game.Sweep(ctx, uID, req.RoundID)
		s.reply(uID, mID, err, MsgTypeAmount, AmountResp{RoundID: req.RoundID, Amount: amount})
	case MsgTypeOpenPosition:
		var req RoundReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		s.replySuccess(uID, mID, s.game.OpenPosition(ctx, req.RoundID, uID), "position opened")
	case MsgTypePlaceStake:
		var req PlaceStakeReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		side, err := model.ParseSide(req.Side)
		if err == nil {
			err = s.game.PlaceStake(ctx, req.RoundID, uID, req.Amount, side)
		}
		s.replySuccess(uID, mID, err, "stake placed")
	case MsgTypeClaim:
		var req RoundReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		payout, err := s.game.Claim(ctx, req.RoundID, uID)
		s.reply(uID, mID, err, MsgTypeAmount, AmountResp{RoundID: req.RoundID, Amount: payout})
	case MsgTypeGetConfig:
		cfg, err := s.game.GetConfig(ctx)
		s.reply(uID, mID, err, MsgTypeConfig, cfg)
	case MsgTypeGetRound:
		var req RoundReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		r, err := s.game.GetRound(ctx, req.RoundID)
		s.reply(uID, mID, err, MsgTypeRound, r)
	case MsgTypeGetPosition:
		var req GetPositionReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		if req.User == "" {
			req.User = uID
		}
		p, err := s.game.GetPosition(ctx, req.RoundID, req.User)
		s.reply(uID, mID, err, MsgTypePosition, p)
	case MsgTypeRoundReport:
		var req RoundReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		rewards, err := s.game.RoundReport(ctx, req.RoundID)
		s.reply(uID, mID, err, MsgTypeReport, ReportResp{RoundID: req.RoundID, Rewards: rewards})
	default:
		log.L.Debug("receive unknown msg type", zap.String("uid", uID), zap.Uint16("msg type", msgType))
		s.sendErr(uID, mID, "unknown_msg_type", "unknown msg type")
	}
	return nil
}

func (s *BetServer) reply(uID string, mID uint64, err error, mt uint16, data interface{}) {
	if err != nil {
		s.sendErr(uID, mID, rich_bet.RejectReason(err), err.Error())
		return
	}
	s.sender.Send(uID, mt, mID, util.StringifyJsonToBytes(data))
}

func (s *BetServer) replySuccess(uID string, mID uint64, err error, info string) {
	s.reply(uID, mID, err, MsgTypeSuccess, SuccessResp{Info: info})
}

// send err
func (s *BetServer) sendErr(uID string, mID uint64, reason, info string) {
	s.sender.Send(uID, MsgTypeErr, mID, util.StringifyJsonToBytes(ErrResp{Reason: reason, Info: info}))
}

func (s *BetServer) Handler() http.Handler {
	return s.wsServer.Handler()
}

// 阻塞直到Stop
func (s *BetServer) Start() error {
	if !atomic.CompareAndSwapUint32(&s.started, 0, 1) {
		return errors.New("server already started")
	}
	return s.wsServer.Run()
}

func (s *BetServer) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&s.started, 1, 0) {
		return errors.New("server not started")
	}
	return s.wsServer.Stop(ctx)
}
