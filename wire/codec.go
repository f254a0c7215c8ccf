package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope field numbers. 1-3 are the header; payload one-of members start
// at 10. Request commands with empty bodies (GET_FRIEND_LIST, SYNC_MSGS,
// HEARTBEAT) carry no payload field.
const (
	fCmd       = 1
	fSeq       = 2
	fTimestamp = 3

	fRegisterReq      = 10
	fRegisterRes      = 11
	fLoginReq         = 12
	fLoginRes         = 13
	fAddFriendReq     = 14
	fAddFriendRes     = 15
	fHandleFriendReq  = 16
	fHandleFriendRes  = 17
	fGetFriendListRes = 19
	fP2PMsgReq        = 20
	fMsgAck           = 21
	fSyncMsgsRes      = 23
	fFriendReqPush    = 24
	fFriendStatusPush = 25
	fP2PMsgPush       = 26
)

// Marshal serializes the envelope into protobuf wire format.
func Marshal(e *Envelope) ([]byte, error) {
	b := make([]byte, 0, 64)
	b = appendVarintField(b, fCmd, uint64(e.Cmd))
	b = appendVarintField(b, fSeq, e.Seq)
	b = appendVarintField(b, fTimestamp, e.Timestamp)

	sub := func(num protowire.Number, body []byte) {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendBytes(b, body)
	}
	switch {
	case e.RegisterReq != nil:
		sub(fRegisterReq, appendRegisterReq(nil, e.RegisterReq))
	case e.RegisterRes != nil:
		sub(fRegisterRes, appendRegisterRes(nil, e.RegisterRes))
	case e.LoginReq != nil:
		sub(fLoginReq, appendLoginReq(nil, e.LoginReq))
	case e.LoginRes != nil:
		sub(fLoginRes, appendLoginRes(nil, e.LoginRes))
	case e.AddFriendReq != nil:
		sub(fAddFriendReq, appendAddFriendReq(nil, e.AddFriendReq))
	case e.AddFriendRes != nil:
		sub(fAddFriendRes, appendAddFriendRes(nil, e.AddFriendRes))
	case e.HandleFriendReq != nil:
		sub(fHandleFriendReq, appendHandleFriendReq(nil, e.HandleFriendReq))
	case e.HandleFriendRes != nil:
		sub(fHandleFriendRes, appendHandleFriendRes(nil, e.HandleFriendRes))
	case e.GetFriendListRes != nil:
		sub(fGetFriendListRes, appendGetFriendListRes(nil, e.GetFriendListRes))
	case e.P2PMsgReq != nil:
		sub(fP2PMsgReq, appendP2PMessage(nil, e.P2PMsgReq))
	case e.MsgAck != nil:
		sub(fMsgAck, appendMessageAck(nil, e.MsgAck))
	case e.SyncMsgsRes != nil:
		sub(fSyncMsgsRes, appendSyncMessagesRes(nil, e.SyncMsgsRes))
	case e.FriendReqPush != nil:
		sub(fFriendReqPush, appendFriendReqPush(nil, e.FriendReqPush))
	case e.FriendStatusPush != nil:
		sub(fFriendStatusPush, appendFriendStatusPush(nil, e.FriendStatusPush))
	case e.P2PMsgPush != nil:
		sub(fP2PMsgPush, appendP2PMessage(nil, e.P2PMsgPush))
	}
	return b, nil
}

// Unmarshal parses an envelope, skipping unknown fields.
func Unmarshal(data []byte) (*Envelope, error) {
	e := &Envelope{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case fCmd:
			v, err := consumeVarint(typ, b)
			e.Cmd = Command(v)
			return err
		case fSeq:
			v, err := consumeVarint(typ, b)
			e.Seq = v
			return err
		case fTimestamp:
			v, err := consumeVarint(typ, b)
			e.Timestamp = v
			return err
		case fRegisterReq:
			return decodeSub(typ, b, &e.RegisterReq, unmarshalRegisterReq)
		case fRegisterRes:
			return decodeSub(typ, b, &e.RegisterRes, unmarshalRegisterRes)
		case fLoginReq:
			return decodeSub(typ, b, &e.LoginReq, unmarshalLoginReq)
		case fLoginRes:
			return decodeSub(typ, b, &e.LoginRes, unmarshalLoginRes)
		case fAddFriendReq:
			return decodeSub(typ, b, &e.AddFriendReq, unmarshalAddFriendReq)
		case fAddFriendRes:
			return decodeSub(typ, b, &e.AddFriendRes, unmarshalAddFriendRes)
		case fHandleFriendReq:
			return decodeSub(typ, b, &e.HandleFriendReq, unmarshalHandleFriendReq)
		case fHandleFriendRes:
			return decodeSub(typ, b, &e.HandleFriendRes, unmarshalHandleFriendRes)
		case fGetFriendListRes:
			return decodeSub(typ, b, &e.GetFriendListRes, unmarshalGetFriendListRes)
		case fP2PMsgReq:
			return decodeSub(typ, b, &e.P2PMsgReq, unmarshalP2PMessage)
		case fMsgAck:
			return decodeSub(typ, b, &e.MsgAck, unmarshalMessageAck)
		case fSyncMsgsRes:
			return decodeSub(typ, b, &e.SyncMsgsRes, unmarshalSyncMessagesRes)
		case fFriendReqPush:
			return decodeSub(typ, b, &e.FriendReqPush, unmarshalFriendReqPush)
		case fFriendStatusPush:
			return decodeSub(typ, b, &e.FriendStatusPush, unmarshalFriendStatusPush)
		case fP2PMsgPush:
			return decodeSub(typ, b, &e.P2PMsgPush, unmarshalP2PMessage)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// --- generic field plumbing ---

// walkFields iterates top-level fields, calling fn with the raw remainder;
// fn consumes its own value, the walker advances by the field's full size.
func walkFields(data []byte, fn func(protowire.Number, protowire.Type, []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if err := fn(num, typ, data); err != nil {
			return err
		}
		size := protowire.ConsumeFieldValue(num, typ, data)
		if size < 0 {
			return protowire.ParseError(size)
		}
		data = data[size:]
	}
	return nil
}

func consumeVarint(typ protowire.Type, b []byte) (uint64, error) {
	if typ != protowire.VarintType {
		return 0, fmt.Errorf("wire: unexpected type %v for varint field", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return v, nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, error) {
	if typ != protowire.BytesType {
		return nil, fmt.Errorf("wire: unexpected type %v for bytes field", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	return v, nil
}

func decodeSub[T any](typ protowire.Type, b []byte, dst **T, unmarshal func([]byte) (*T, error)) error {
	raw, err := consumeBytes(typ, b)
	if err != nil {
		return err
	}
	v, err := unmarshal(raw)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytesField(b []byte, num protowire.Number, p []byte) []byte {
	if len(p) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, p)
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendSubField(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}
