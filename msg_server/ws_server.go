package msg_server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/log"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/util"
)

var upgrader = websocket.Upgrader{} // use default options

// msg type，业务消息从1开始
const (
	MsgTypeHandShake uint16 = 0x0
)

const (
	sendMsgChanCache = 50
	maxPeerCount     = 1000

	handShakeWait = 8 * time.Second

	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

type AbsUser interface {
	ID() string
}

type userGetter interface {
	GetUserByToken(token string) AbsUser
}

// 返回error会断开该连接，业务上的失败应该作为响应发回去
type msgHandler interface {
	Handle(uID string, msgType uint16, msgID uint64, msg []byte) error
}

func NewWsServer(port int, userGetter userGetter, msgHandler msgHandler) *WsServer {
	return &WsServer{
		port:        port,
		userGetter:  userGetter,
		msgHandler:  msgHandler,
		peerSet:     newWsPeerSet(),
		sendMsgChan: make(chan *cMsg, sendMsgChanCache),
		httpServer:  &http.Server{Addr: fmt.Sprintf(":%v", port)},
	}
}

type WsServer struct {
	port int

	userGetter userGetter
	msgHandler msgHandler

	peerSet *wsPeerSet

	sendMsgChan chan *cMsg
	loopOnce    sync.Once
	httpServer  *http.Server
}

type cMsg struct {
	msgID   uint64
	uID     string
	msgType uint16
	// websocket frame type
	frame   int
	content []byte
}

// 供http server或httptest使用，会启动发送循环
func (s *WsServer) Handler() http.Handler {
	s.loopOnce.Do(func() { go s.loop() })
	mux := http.NewServeMux()
	mux.HandleFunc("/msg", s.handlePeer)
	return mux
}

func (s *WsServer) Run() error {
	s.httpServer.Handler = s.Handler()
	log.L.Info("ws server listening", zap.Int("port", s.port))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *WsServer) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *WsServer) loop() {
	for tmp := range s.sendMsgChan {
		s.send(tmp)
	}
}

func (s *WsServer) handlePeer(w http.ResponseWriter, r *http.Request) {
	log.L.Debug("receive new peer", zap.String("remote addr", r.RemoteAddr))
	if cnt := s.peerSet.count(); cnt >= maxPeerCount {
		log.L.Warn("can't receive new peer, too many peers", zap.Int64("cur count", cnt), zap.Int64("max count", maxPeerCount))
		http.Error(w, "too many peers", http.StatusServiceUnavailable)
		return
	}

	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()

	c.SetReadLimit(maxMessageSize)
	// hand shake
	uID, err := s.handleShake(c)
	if uID == "" || err != nil {
		log.L.Debug("hand shake failed", zap.Error(err), zap.String("u id", uID))
		return
	}

	np := newWsPeer(uID, c)
	s.peerSet.addPeer(np)
	defer s.peerSet.removePeer(np)
	np.start()
	// 握手成功回一个同类型消息，内容是用户id
	np.send(&cMsg{msgType: MsgTypeHandShake, frame: websocket.BinaryMessage, content: util.StringifyJsonToBytes(HandShakeResp{UserID: uID})})

	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		mt, message, err := c.ReadMessage()
		if err != nil {
			log.L.Debug("read msg failed", zap.Error(err))
			return
		}
		if mt != websocket.BinaryMessage {
			log.L.Debug("receive invalid msg", zap.Int("msg type", mt))
			return
		}
		msgType, mID, msgB, err := UnWrapMsg(message)
		if err != nil {
			log.L.Debug("receive invalid msg", zap.Error(err))
			return
		}
		if err = s.msgHandler.Handle(uID, msgType, mID, msgB); err != nil {
			log.L.Error("handle msg failed", zap.String("uid", uID), zap.Uint16("msg type", msgType), zap.Error(err))
			return
		}
	}
}

type HandShakeReq struct {
	// 可以考虑下发一个公钥，随后消息需要加解密传输
	Token string `json:"token"`
}

type HandShakeResp struct {
	UserID string `json:"user_id"`
}

func (s *WsServer) handleShake(c *websocket.Conn) (string, error) {
	c.SetReadDeadline(time.Now().Add(handShakeWait))

	var req HandShakeReq
	mt, mb, err := c.ReadMessage()
	if err != nil {
		return "", err
	}
	if mt != websocket.BinaryMessage {
		return "", errors.Errorf("invalid msg type: %v", mt)
	}

	msgType, _, msgB, err := UnWrapMsg(mb)
	if err != nil {
		return "", err
	}
	if msgType != MsgTypeHandShake {
		return "", errors.Errorf("msg type isn't MsgTypeHandShake, %v", msgType)
	}
	if err = util.ParseJsonFromBytes(msgB, &req); err != nil {
		return "", err
	}
	if req.Token == "" {
		return "", errors.New("empty token")
	}

	u := s.userGetter.GetUserByToken(req.Token)
	if u == nil {
		return "", errors.New("invalid token")
	}
	log.L.Debug("hand shake success", zap.String("u id", u.ID()))
	return u.ID(), nil
}

func (s *WsServer) Send(id string, msgType uint16, msgID uint64, msg []byte) {
	s.sendMsgChan <- &cMsg{msgID: msgID, uID: id, msgType: msgType, frame: websocket.BinaryMessage, content: msg}
}

func (s *WsServer) send(msg *cMsg) {
	p := s.peerSet.getPeer(msg.uID)
	if p == nil {
		log.L.Warn("can't find peer in peer set, msg not send", zap.String("uid", msg.uID))
		return
	}
	// 如果send失败，则会导致peer直接stop，接着就触发conn.close，那么这时上边的ReadMsg会read出err，此次连接的生命周期就此结束
	p.send(msg)
}

func newWsPeerSet() *wsPeerSet {
	return &wsPeerSet{}
}

type wsPeerSet struct {
	mu sync.Mutex
	// key user id
	peers     map[string]*wsPeer
	peerCount int64
}

func (ps *wsPeerSet) count() int64 {
	return atomic.LoadInt64(&ps.peerCount)
}

func (ps *wsPeerSet) getPeer(id string) *wsPeer {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.peers[id]
}

// 只删除自己，同一个用户重连后旧连接退出时不会把新peer删掉
func (ps *wsPeerSet) removePeer(p *wsPeer) {
	p.stop()
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.peers[p.id] == p {
		log.L.Debug("remove peer", zap.String("uid", p.id))
		delete(ps.peers, p.id)
		atomic.AddInt64(&ps.peerCount, -1)
	}
}

func (ps *wsPeerSet) addPeer(p *wsPeer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.peers == nil {
		ps.peers = map[string]*wsPeer{}
	}
	if preP, ok := ps.peers[p.id]; ok {
		// 同一用户重复登录，踢掉旧连接
		preP.stop()
	} else {
		atomic.AddInt64(&ps.peerCount, 1)
	}
	ps.peers[p.id] = p
}

func newWsPeer(id string, conn *websocket.Conn) *wsPeer {
	return &wsPeer{
		id: id, conn: conn,
		sendChan: make(chan *cMsg, sendMsgChanCache),
		stopChan: make(chan struct{}),
	}
}

type wsPeer struct {
	// user id
	id       string
	conn     *websocket.Conn
	sendChan chan *cMsg
	stopChan chan struct{}
	stopOnce sync.Once
}

func (p *wsPeer) start() {
	go p.loop()
}

// close stop chan 后会调用conn.close
func (p *wsPeer) stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
}

func (p *wsPeer) loop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case msg := <-p.sendChan:
			if err := p.doSend(msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := p.doSend(&cMsg{frame: websocket.PingMessage}); err != nil {
				return
			}

		case <-p.stopChan:
			log.L.Debug("peer loop returned", zap.String("uid", p.id))
			return
		}
	}
}

func (p *wsPeer) send(msg *cMsg) {
	select {
	case p.sendChan <- msg:
	default:
		log.L.Warn("can't send msg to client", zap.String("uid", p.id), zap.Int("send chan len", len(p.sendChan)))
	}
}

func (p *wsPeer) doSend(msg *cMsg) error {
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))

	mb := msg.content
	if msg.frame == websocket.BinaryMessage {
		mb = WrapMsg(msg.msgType, msg.msgID, msg.content)
	}

	return p.conn.WriteMessage(msg.frame, mb)
}
