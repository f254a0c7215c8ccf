package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/termchat/termchat/wire"
)

// UI is the terminal front end: a friend sidebar, the chat pane for the
// selected friend and an input line with slash commands.
type UI struct {
	cli  *Client
	self *wire.UserInfo

	friends  []*wire.UserInfo
	selected int
	history  map[uint64][]string
	requests []*wire.FriendReqPush
	input    string
	status   string

	sidebar *widgets.List
	chat    *widgets.List
	inbox   *widgets.List
	prompt  *widgets.Paragraph
}

// RunUI logs in (registering first when asked) and enters the event loop
// until the user quits or the connection drops.
func RunUI(ctx context.Context, addr, username, password string, register bool) error {
	cli, err := Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer cli.Close()

	if register {
		res, err := cli.Register(ctx, username, password)
		if err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("register: %s", res.ErrorMsg)
		}
	}
	login, err := cli.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if !login.Success {
		return fmt.Errorf("login: %s", login.ErrorMsg)
	}

	if err := ui.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer ui.Close()

	app := &UI{
		cli:     cli,
		self:    login.UserInfo,
		history: map[uint64][]string{},
		status:  "logged in, /help for commands",
	}
	app.buildWidgets()
	app.refreshFriends(ctx)
	app.render()
	return app.loop(ctx)
}

func (a *UI) buildWidgets() {
	a.sidebar = widgets.NewList()
	a.sidebar.Title = "Friends"
	a.sidebar.SelectedRowStyle = ui.NewStyle(ui.ColorBlack, ui.ColorGreen)

	a.chat = widgets.NewList()
	a.chat.Title = "Chat"

	a.inbox = widgets.NewList()
	a.inbox.Title = "Requests"

	a.prompt = widgets.NewParagraph()
	a.prompt.Title = fmt.Sprintf("%s (#%d)", a.self.Username, a.self.UserID)
}

func (a *UI) layout() {
	w, h := ui.TerminalDimensions()
	side := w / 4
	a.sidebar.SetRect(0, 0, side, h*2/3)
	a.inbox.SetRect(0, h*2/3, side, h-3)
	a.chat.SetRect(side, 0, w, h-3)
	a.prompt.SetRect(0, h-3, w, h)
}

func (a *UI) render() {
	a.layout()

	rows := make([]string, 0, len(a.friends))
	for _, f := range a.friends {
		mark := " "
		if f.Status == wire.UserStatusOnline {
			mark = "*"
		}
		rows = append(rows, fmt.Sprintf("%s %s (#%d)", mark, f.Username, f.UserID))
	}
	if len(rows) == 0 {
		rows = []string{"(no friends yet)"}
	}
	a.sidebar.Rows = rows
	if a.selected >= len(a.friends) {
		a.selected = 0
	}
	a.sidebar.SelectedRow = a.selected

	reqRows := make([]string, 0, len(a.requests))
	for i, r := range a.requests {
		reqRows = append(reqRows, fmt.Sprintf("[%d] %s: %s", i, r.SenderName, r.VerifyMsg))
	}
	a.inbox.Rows = reqRows

	if f := a.current(); f != nil {
		a.chat.Title = "Chat with " + f.Username
		a.chat.Rows = a.history[f.UserID]
	} else {
		a.chat.Title = "Chat"
		a.chat.Rows = nil
	}

	a.prompt.Text = "> " + a.input + "\n" + a.status
	ui.Render(a.sidebar, a.inbox, a.chat, a.prompt)
}

func (a *UI) current() *wire.UserInfo {
	if a.selected < len(a.friends) {
		return a.friends[a.selected]
	}
	return nil
}

func (a *UI) loop(ctx context.Context) error {
	events := ui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return nil
		case push, ok := <-a.cli.Pushes:
			if !ok {
				return fmt.Errorf("connection lost")
			}
			a.handlePush(ctx, push)
			a.render()
		case ev := <-events:
			quit, err := a.handleKey(ctx, ev)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			a.render()
		}
	}
}

func (a *UI) handlePush(ctx context.Context, env *wire.Envelope) {
	switch env.Cmd {
	case wire.CmdP2PMsgPush:
		m := env.P2PMsgPush
		if m == nil {
			return
		}
		at := time.Unix(int64(m.Timestamp), 0).Format("15:04")
		a.history[m.SenderID] = append(a.history[m.SenderID],
			fmt.Sprintf("[%s] them: %s", at, string(m.Content)))
	case wire.CmdFriendReqPush:
		if env.FriendReqPush != nil {
			a.requests = append(a.requests, env.FriendReqPush)
			a.status = fmt.Sprintf("friend request from %s", env.FriendReqPush.SenderName)
		}
	case wire.CmdFriendStatusPush:
		p := env.FriendStatusPush
		if p == nil {
			return
		}
		if p.Action == wire.ActionAccept {
			a.status = fmt.Sprintf("%s accepted your request", p.ReceiverName)
			a.refreshFriends(ctx)
		} else {
			a.status = fmt.Sprintf("%s rejected your request", p.ReceiverName)
		}
	}
}

func (a *UI) handleKey(ctx context.Context, ev ui.Event) (bool, error) {
	switch ev.ID {
	case "<C-c>", "<Escape>":
		return true, nil
	case "<Resize>":
		return false, nil
	case "<Up>":
		if a.selected > 0 {
			a.selected--
		}
	case "<Down>", "<Tab>":
		if a.selected+1 < len(a.friends) {
			a.selected++
		}
	case "<Backspace>", "<C-8>":
		if len(a.input) > 0 {
			a.input = a.input[:len(a.input)-1]
		}
	case "<Enter>":
		line := strings.TrimSpace(a.input)
		a.input = ""
		if line == "" {
			return false, nil
		}
		if strings.HasPrefix(line, "/") {
			a.command(ctx, line)
			return false, nil
		}
		a.sendMessage(ctx, line)
	case "<Space>":
		a.input += " "
	default:
		if len(ev.ID) == 1 {
			a.input += ev.ID
		}
	}
	return false, nil
}

func (a *UI) sendMessage(ctx context.Context, text string) {
	f := a.current()
	if f == nil {
		a.status = "no friend selected"
		return
	}
	ack, err := a.cli.Send(ctx, f.UserID, []byte(text))
	if err != nil {
		a.status = "send failed: " + err.Error()
		return
	}
	if !ack.Success {
		a.status = "send rejected: " + ack.ErrorMsg
		return
	}
	now := time.Now().Format("15:04")
	a.history[f.UserID] = append(a.history[f.UserID], fmt.Sprintf("[%s] me: %s", now, text))
	a.status = ""
}

func (a *UI) command(ctx context.Context, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/help":
		a.status = "/add <id> [msg] | /accept <n> | /reject <n> | /friends | /sync | /quit"
	case "/add":
		if len(fields) < 2 {
			a.status = "usage: /add <user-id> [message]"
			return
		}
		id, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			a.status = "bad user id"
			return
		}
		res, err := a.cli.AddFriend(ctx, id, strings.Join(fields[2:], " "))
		if err != nil {
			a.status = err.Error()
			return
		}
		if res.Success {
			a.status = "request sent"
		} else {
			a.status = res.ErrorMsg
		}
	case "/accept", "/reject":
		if len(fields) != 2 {
			a.status = "usage: " + fields[0] + " <request-number>"
			return
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 0 || n >= len(a.requests) {
			a.status = "no such request"
			return
		}
		req := a.requests[n]
		action := wire.ActionAccept
		if fields[0] == "/reject" {
			action = wire.ActionReject
		}
		res, err := a.cli.HandleFriend(ctx, req.ReqID, req.SenderID, action)
		if err != nil {
			a.status = err.Error()
			return
		}
		if !res.Success {
			a.status = res.ErrorMsg
			return
		}
		a.requests = append(a.requests[:n], a.requests[n+1:]...)
		a.status = "done"
		a.refreshFriends(ctx)
	case "/friends":
		a.refreshFriends(ctx)
	case "/sync":
		a.syncHistory(ctx)
	case "/quit":
		a.status = "bye"
	default:
		a.status = "unknown command, /help"
	}
}

func (a *UI) refreshFriends(ctx context.Context) {
	res, err := a.cli.FriendList(ctx)
	if err != nil {
		a.status = "friend list failed: " + err.Error()
		return
	}
	if !res.Success {
		a.status = res.ErrorMsg
		return
	}
	a.friends = res.Friends
}

// syncHistory folds the server-side inbox into the per-friend panes.
func (a *UI) syncHistory(ctx context.Context) {
	res, err := a.cli.SyncMessages(ctx)
	if err != nil {
		a.status = "sync failed: " + err.Error()
		return
	}
	if !res.Success {
		a.status = res.ErrorMsg
		return
	}
	a.history = map[uint64][]string{}
	// Inbox arrives newest first; display oldest first.
	for i := len(res.Messages) - 1; i >= 0; i-- {
		m := res.Messages[i]
		peer, who := m.SenderID, "them"
		if m.SenderID == a.self.UserID {
			peer, who = m.ReceiverID, "me"
		}
		at := time.Unix(int64(m.Timestamp), 0).Format("01-02 15:04")
		a.history[peer] = append(a.history[peer], fmt.Sprintf("[%s] %s: %s", at, who, string(m.Content)))
	}
	a.status = fmt.Sprintf("synced %d messages", len(res.Messages))
}
