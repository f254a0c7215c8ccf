// Package binary handles the framed protobuf protocol on authenticated chat
// connections. One Handler instance lives per connection; the reactor
// guarantees at most one Process call runs at a time, so the handler keeps
// its decode state without locks.
package binary

import (
	"context"
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/termchat/termchat/internal/pkg/bytebuf"
	"github.com/termchat/termchat/internal/service"
	"github.com/termchat/termchat/wire"
)

// Handler decodes frames off the connection's read buffer and dispatches
// them to the services. Responses are appended to the write buffer; pushes
// travel separately through the session's outbound queue.
type Handler struct {
	sess    service.Session
	auth    *service.AuthService
	friends *service.FriendService
	msgs    *service.MessageService
	log     *slog.Logger

	// Remaining payload bytes of an oversized frame still to discard.
	skip int
}

// Factory builds one Handler per connection.
type Factory struct {
	Auth    *service.AuthService
	Friends *service.FriendService
	Msgs    *service.MessageService
	Log     *slog.Logger
}

func NewFactory(auth *service.AuthService, friends *service.FriendService, msgs *service.MessageService, log *slog.Logger) *Factory {
	return &Factory{Auth: auth, Friends: friends, Msgs: msgs, Log: log}
}

func (f *Factory) New(sess service.Session) *Handler {
	return &Handler{
		sess:    sess,
		auth:    f.Auth,
		friends: f.Friends,
		msgs:    f.Msgs,
		log:     f.Log.With(slog.String("conn", sess.ID())),
	}
}

// KeepAlive is always true for the binary protocol; only idle timeout or a
// peer close ends the connection.
func (h *Handler) KeepAlive() bool { return true }

// Process consumes as many complete frames as the read buffer holds.
// Returns false only on conditions that require closing the connection;
// malformed payloads and oversized frames are logged and skipped.
func (h *Handler) Process(rb, wb *bytebuf.Buffer) bool {
	for {
		if h.skip > 0 {
			n := min(h.skip, rb.Readable())
			rb.Retrieve(n)
			h.skip -= n
			if h.skip > 0 {
				return true // rest of the payload is still in flight
			}
		}
		if rb.Readable() < wire.FrameHeaderSize {
			return true
		}
		head := rb.Peek()
		size := int(binary.BigEndian.Uint32(head))
		if size > wire.MaxFrameSize {
			h.log.Warn("oversized frame, skipping payload", slog.Int("size", size))
			rb.Retrieve(wire.FrameHeaderSize)
			h.skip = size
			continue
		}
		if rb.Readable() < wire.FrameHeaderSize+size {
			return true // incomplete frame, wait for more bytes
		}

		env, err := wire.Unmarshal(head[wire.FrameHeaderSize : wire.FrameHeaderSize+size])
		rb.Retrieve(wire.FrameHeaderSize + size)
		if err != nil {
			h.log.Warn("undecodable frame", slog.Int("size", size), slog.Any("error", err))
			continue
		}
		h.dispatch(env, wb)
	}
}

func (h *Handler) dispatch(env *wire.Envelope, wb *bytebuf.Buffer) {
	ctx := context.Background()

	if env.Cmd == wire.CmdHeartbeat {
		return // keeps the idle timer fresh, nothing to answer
	}

	// Everything past register/login requires a bound user.
	userID := h.sess.UserID()
	if userID == 0 && env.Cmd != wire.CmdRegisterReq && env.Cmd != wire.CmdLoginReq {
		h.log.Warn("command before login", slog.String("cmd", env.Cmd.String()))
		h.reply(wb, &wire.Envelope{Cmd: wire.ResponseFor(env.Cmd), Seq: env.Seq})
		return
	}

	switch env.Cmd {
	case wire.CmdRegisterReq:
		if env.RegisterReq == nil {
			h.reply(wb, &wire.Envelope{Cmd: wire.CmdRegisterRes, Seq: env.Seq,
				RegisterRes: &wire.RegisterRes{ErrorMsg: "missing payload"}})
			return
		}
		res := h.auth.Register(ctx, env.RegisterReq)
		h.reply(wb, &wire.Envelope{Cmd: wire.CmdRegisterRes, Seq: env.Seq, RegisterRes: res})

	case wire.CmdLoginReq:
		if env.LoginReq == nil {
			h.reply(wb, &wire.Envelope{Cmd: wire.CmdLoginRes, Seq: env.Seq,
				LoginRes: &wire.LoginRes{ErrorMsg: "missing payload"}})
			return
		}
		res := h.auth.Login(ctx, env.LoginReq, h.sess)
		h.reply(wb, &wire.Envelope{Cmd: wire.CmdLoginRes, Seq: env.Seq, LoginRes: res})
		if res.Success {
			// Requests that arrived while offline follow the login
			// response through the push queue.
			h.friends.ReplayPending(ctx, h.sess.UserID())
		}

	case wire.CmdAddFriendReq:
		if env.AddFriendReq == nil {
			h.reply(wb, &wire.Envelope{Cmd: wire.CmdAddFriendRes, Seq: env.Seq,
				AddFriendRes: &wire.AddFriendRes{ErrorMsg: "missing payload"}})
			return
		}
		res := h.friends.AddFriend(ctx, userID, env.AddFriendReq)
		h.reply(wb, &wire.Envelope{Cmd: wire.CmdAddFriendRes, Seq: env.Seq, AddFriendRes: res})

	case wire.CmdHandleFriendReq:
		if env.HandleFriendReq == nil {
			h.reply(wb, &wire.Envelope{Cmd: wire.CmdHandleFriendRes, Seq: env.Seq,
				HandleFriendRes: &wire.HandleFriendRes{ErrorMsg: "missing payload"}})
			return
		}
		res := h.friends.HandleFriend(ctx, userID, env.HandleFriendReq)
		h.reply(wb, &wire.Envelope{Cmd: wire.CmdHandleFriendRes, Seq: env.Seq, HandleFriendRes: res})

	case wire.CmdGetFriendListReq:
		res := h.friends.FriendList(ctx, userID)
		h.reply(wb, &wire.Envelope{Cmd: wire.CmdGetFriendListRes, Seq: env.Seq, GetFriendListRes: res})

	case wire.CmdP2PMsgReq:
		if env.P2PMsgReq == nil {
			h.reply(wb, &wire.Envelope{Cmd: wire.CmdMsgAck, Seq: env.Seq,
				MsgAck: &wire.MessageAck{RefSeq: env.Seq, ErrorMsg: "missing payload"}})
			return
		}
		ack := h.msgs.SendP2P(ctx, userID, env.P2PMsgReq, env.Seq)
		h.reply(wb, &wire.Envelope{Cmd: wire.CmdMsgAck, Seq: env.Seq, MsgAck: ack})

	case wire.CmdSyncMsgsReq:
		res := h.msgs.SyncMessages(ctx, userID)
		h.reply(wb, &wire.Envelope{Cmd: wire.CmdSyncMsgsRes, Seq: env.Seq, SyncMsgsRes: res})

	default:
		h.log.Warn("unexpected command", slog.String("cmd", env.Cmd.String()))
	}
}

func (h *Handler) reply(wb *bytebuf.Buffer, env *wire.Envelope) {
	env.Timestamp = uint64(time.Now().Unix())
	frame, err := wire.EncodeFrame(env)
	if err != nil {
		h.log.Error("encode response", slog.String("cmd", env.Cmd.String()), slog.Any("error", err))
		return
	}
	wb.Append(frame)
}
