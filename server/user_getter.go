package server

import (
	"github.com/LeaguesOfHoleHoleShoes/RichBet/msg_server"
)

type user struct {
	id string
}

func (u *user) ID() string { return u.id }

func newTokenUserGetter(users map[string]string) *tokenUserGetter {
	return &tokenUserGetter{users: users}
}

// 配置文件里的 token -> 用户id
type tokenUserGetter struct {
	users map[string]string
}

func (getter *tokenUserGetter) GetUserByToken(token string) msg_server.AbsUser {
	id, ok := getter.users[token]
	if !ok || id == "" {
		return nil
	}
	return &user{id: id}
}
