package core

import (
	"github.com/cpk123/tank-level/bus"
	"github.com/cpk123/tank-level/errcode"
	"github.com/cpk123/tank-level/types"
)

func (h *HAL) replyOK(m *bus.Message) {
	h.conn.Reply(m, types.OKReply{OK: true}, false)
}

func (h *HAL) replyErr(m *bus.Message, code errcode.Code) {
	if code == "" {
		code = errcode.Error
	}
	h.conn.Reply(m, types.ErrorReply{OK: false, Error: string(code)}, false)
}

func (h *HAL) replyFromError(m *bus.Message, err error) {
	h.replyErr(m, errcode.Of(err))
}
