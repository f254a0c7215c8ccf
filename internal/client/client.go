// Package client implements the termchat network client and terminal UI.
// The network layer multiplexes request/response pairs by sequence number
// over one framed connection; server pushes surface on a channel.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/termchat/termchat/internal/domain/model"
	"github.com/termchat/termchat/wire"
)

const (
	requestTimeout    = 10 * time.Second
	heartbeatInterval = 30 * time.Second
	pushBuffer        = 256
)

var ErrClosed = errors.New("client: connection closed")

// Client is a framed binary-protocol connection to the server.
type Client struct {
	conn net.Conn
	seq  atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan *wire.Envelope
	closed  bool

	// Pushes delivers server-initiated envelopes in arrival order.
	Pushes chan *wire.Envelope

	writeMu sync.Mutex
	group   *errgroup.Group
	cancel  context.CancelFunc
}

// Dial connects and starts the read and heartbeat pumps.
func Dial(ctx context.Context, addr string) (*Client, error) {
	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	c := &Client{
		conn:    conn,
		pending: make(map[uint64]chan *wire.Envelope),
		Pushes:  make(chan *wire.Envelope, pushBuffer),
		group:   g,
		cancel:  cancel,
	}
	g.Go(func() error { return c.readLoop() })
	g.Go(func() error { return c.heartbeatLoop(ctx) })
	return c, nil
}

// Close tears the connection down and unblocks every waiter.
func (c *Client) Close() error {
	c.cancel()
	err := c.conn.Close()

	c.mu.Lock()
	c.closed = true
	for seq, ch := range c.pending {
		close(ch)
		delete(c.pending, seq)
	}
	c.mu.Unlock()

	c.group.Wait()
	return err
}

func (c *Client) readLoop() error {
	defer func() {
		c.mu.Lock()
		c.closed = true
		for seq, ch := range c.pending {
			close(ch)
			delete(c.pending, seq)
		}
		c.mu.Unlock()
		close(c.Pushes)
	}()

	for {
		env, err := wire.ReadFrame(c.conn)
		if err != nil {
			return err
		}
		c.mu.Lock()
		ch, ok := c.pending[env.Seq]
		if ok {
			delete(c.pending, env.Seq)
		}
		c.mu.Unlock()
		if ok {
			ch <- env
			continue
		}
		select {
		case c.Pushes <- env:
		default:
			// UI is not draining; drop the oldest to keep the pump alive.
			select {
			case <-c.Pushes:
			default:
			}
			c.Pushes <- env
		}
	}
}

func (c *Client) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			env := &wire.Envelope{Cmd: wire.CmdHeartbeat, Timestamp: uint64(time.Now().Unix())}
			if err := c.send(env); err != nil {
				return err
			}
		}
	}
}

func (c *Client) send(env *wire.Envelope) error {
	frame, err := wire.EncodeFrame(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.conn.Write(frame)
	return err
}

// do sends one request and waits for the response with the same seq.
func (c *Client) do(ctx context.Context, env *wire.Envelope) (*wire.Envelope, error) {
	env.Seq = c.seq.Add(1)
	env.Timestamp = uint64(time.Now().Unix())

	ch := make(chan *wire.Envelope, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[env.Seq] = ch
	c.mu.Unlock()

	if err := c.send(env); err != nil {
		c.mu.Lock()
		delete(c.pending, env.Seq)
		c.mu.Unlock()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	select {
	case res, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		return res, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, env.Seq)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// --- typed requests ---

func (c *Client) Register(ctx context.Context, username, password string) (*wire.RegisterRes, error) {
	res, err := c.do(ctx, &wire.Envelope{Cmd: wire.CmdRegisterReq,
		RegisterReq: &wire.RegisterReq{Username: username, Password: password}})
	if err != nil {
		return nil, err
	}
	if res.RegisterRes == nil {
		return nil, fmt.Errorf("client: register rejected")
	}
	return res.RegisterRes, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*wire.LoginRes, error) {
	res, err := c.do(ctx, &wire.Envelope{Cmd: wire.CmdLoginReq,
		LoginReq: &wire.LoginReq{Username: username, Password: password}})
	if err != nil {
		return nil, err
	}
	if res.LoginRes == nil {
		return nil, fmt.Errorf("client: login rejected")
	}
	return res.LoginRes, nil
}

func (c *Client) AddFriend(ctx context.Context, receiverID uint64, verifyMsg string) (*wire.AddFriendRes, error) {
	res, err := c.do(ctx, &wire.Envelope{Cmd: wire.CmdAddFriendReq,
		AddFriendReq: &wire.AddFriendReq{ReceiverID: receiverID, VerifyMsg: verifyMsg}})
	if err != nil {
		return nil, err
	}
	if res.AddFriendRes == nil {
		return nil, fmt.Errorf("client: add friend rejected")
	}
	return res.AddFriendRes, nil
}

func (c *Client) HandleFriend(ctx context.Context, reqID, senderID uint64, action wire.FriendAction) (*wire.HandleFriendRes, error) {
	res, err := c.do(ctx, &wire.Envelope{Cmd: wire.CmdHandleFriendReq,
		HandleFriendReq: &wire.HandleFriendReq{ReqID: reqID, SenderID: senderID, Action: action}})
	if err != nil {
		return nil, err
	}
	if res.HandleFriendRes == nil {
		return nil, fmt.Errorf("client: handle friend rejected")
	}
	return res.HandleFriendRes, nil
}

func (c *Client) FriendList(ctx context.Context) (*wire.GetFriendListRes, error) {
	res, err := c.do(ctx, &wire.Envelope{Cmd: wire.CmdGetFriendListReq})
	if err != nil {
		return nil, err
	}
	if res.GetFriendListRes == nil {
		return nil, fmt.Errorf("client: friend list rejected")
	}
	return res.GetFriendListRes, nil
}

func (c *Client) Send(ctx context.Context, receiverID uint64, content []byte) (*wire.MessageAck, error) {
	res, err := c.do(ctx, &wire.Envelope{Cmd: wire.CmdP2PMsgReq,
		P2PMsgReq: &wire.P2PMessage{
			MsgID:       model.NewID(),
			ReceiverID:  receiverID,
			ContentType: 1,
			Content:     content,
			Timestamp:   uint64(time.Now().Unix()),
		}})
	if err != nil {
		return nil, err
	}
	if res.MsgAck == nil {
		return nil, fmt.Errorf("client: send rejected")
	}
	return res.MsgAck, nil
}

func (c *Client) SyncMessages(ctx context.Context) (*wire.SyncMessagesRes, error) {
	res, err := c.do(ctx, &wire.Envelope{Cmd: wire.CmdSyncMsgsReq})
	if err != nil {
		return nil, err
	}
	if res.SyncMsgsRes == nil {
		return nil, fmt.Errorf("client: sync rejected")
	}
	return res.SyncMsgsRes, nil
}
