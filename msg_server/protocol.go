package msg_server

import (
	"encoding/binary"
	"errors"
)

// 前两byte作为type，接着8byte作为msg id，剩下的是json
const headerLen = 2 + 8

var ErrShortMsg = errors.New("msg shorter than header")

func WrapMsg(mType uint16, mID uint64, msg []byte) []byte {
	b := make([]byte, headerLen, headerLen+len(msg))
	binary.BigEndian.PutUint16(b[:2], mType)
	binary.BigEndian.PutUint64(b[2:headerLen], mID)
	return append(b, msg...)
}

func UnWrapMsg(msg []byte) (uint16, uint64, []byte, error) {
	if len(msg) < headerLen {
		return 0, 0, nil, ErrShortMsg
	}
	return binary.BigEndian.Uint16(msg[:2]), binary.BigEndian.Uint64(msg[2:headerLen]), msg[headerLen:], nil
}
