// Package wire implements the length-prefixed binary framing and payload
// encodings used on the connection between client and server.
//
// Every packet is a fixed 8-byte header (message type, payload length, both
// big-endian uint32) followed by exactly payload_len bytes. This is the
// same framing as the original C server's MessageHeader/send_packet/
// recv_packet (protocol.c), translated to encoding/binary instead of
// htonl/ntohl.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/duskrelay/chatserver/errors"
)

// MaxPayloadLen bounds a single packet's payload so a corrupt or hostile
// peer can't make the server allocate an unbounded buffer.
const MaxPayloadLen = 1 << 20 // 1 MiB

// Type identifies the kind of packet on the wire. Values match the
// original MessageType enum (protocol.h) bit-for-bit, preserved here so
// the numbering convention carries over even though no C peer exists.
type Type uint32

const (
	MsgRegister Type = iota + 1
	MsgRegisterSuccess
	MsgRegisterFail
	MsgLogin
	MsgLoginSuccess
	MsgLoginFail

	MsgUpdateUser
	MsgUpdateSuccess
	MsgUpdateFail

	MsgReqContacts
	MsgRespContacts
	MsgAddByCode
	MsgAddReqSent
	MsgAddSuccess
	MsgAddFail
	MsgGetRequests
	MsgRespRequests
	MsgDecideRequest
)

const (
	MsgCreateConv Type = iota + 19
	MsgConvCreated
	MsgReqConversations
	MsgRespConversations

	MsgUpdateGroup
)

const (
	MsgAddMember Type = iota + 24
	MsgMemberAdded
	MsgReqMembers
	MsgRespMembers
	MsgKickMember
	MsgDeleteGroup

	MsgSendText
	MsgRteText
	MsgReqHistory
	MsgRespHistory

	MsgDisconnect
)

func (t Type) String() string {
	switch t {
	case MsgRegister:
		return "REGISTER"
	case MsgRegisterSuccess:
		return "REGISTER_SUCCESS"
	case MsgRegisterFail:
		return "REGISTER_FAIL"
	case MsgLogin:
		return "LOGIN"
	case MsgLoginSuccess:
		return "LOGIN_SUCCESS"
	case MsgLoginFail:
		return "LOGIN_FAIL"
	case MsgUpdateUser:
		return "UPDATE_USER"
	case MsgUpdateSuccess:
		return "UPDATE_SUCCESS"
	case MsgUpdateFail:
		return "UPDATE_FAIL"
	case MsgReqContacts:
		return "REQ_CONTACTS"
	case MsgRespContacts:
		return "RESP_CONTACTS"
	case MsgAddByCode:
		return "ADD_BY_CODE"
	case MsgAddReqSent:
		return "ADD_REQ_SENT"
	case MsgAddSuccess:
		return "ADD_SUCCESS"
	case MsgAddFail:
		return "ADD_FAIL"
	case MsgGetRequests:
		return "GET_REQUESTS"
	case MsgRespRequests:
		return "RESP_REQUESTS"
	case MsgDecideRequest:
		return "DECIDE_REQUEST"
	case MsgCreateConv:
		return "CREATE_CONV"
	case MsgConvCreated:
		return "CONV_CREATED"
	case MsgReqConversations:
		return "REQ_CONVERSATIONS"
	case MsgRespConversations:
		return "RESP_CONVERSATIONS"
	case MsgUpdateGroup:
		return "UPDATE_GROUP"
	case MsgAddMember:
		return "ADD_MEMBER"
	case MsgMemberAdded:
		return "MEMBER_ADDED"
	case MsgReqMembers:
		return "REQ_MEMBERS"
	case MsgRespMembers:
		return "RESP_MEMBERS"
	case MsgKickMember:
		return "KICK_MEMBER"
	case MsgDeleteGroup:
		return "DELETE_GROUP"
	case MsgSendText:
		return "SEND_TEXT"
	case MsgRteText:
		return "RTE_TEXT"
	case MsgReqHistory:
		return "REQ_HISTORY"
	case MsgRespHistory:
		return "RESP_HISTORY"
	case MsgDisconnect:
		return "DISCONNECT"
	}
	return "UNKNOWN"
}

// ConvType distinguishes a two-person conversation from a named group.
type ConvType uint8

const (
	ConvPrivate ConvType = 0
	ConvGroup   ConvType = 1
)

// Role is a participant's standing within a GROUP conversation.
type Role uint8

const (
	RoleMember Role = 0
	RoleAdmin  Role = 1
)

const (
	MaxNameLen        = 32
	MaxEmailLen       = 64
	MaxPassLen        = 64
	MaxTextLen        = 1024
	MaxDescLen        = 64
	FriendCodeLen     = 7
	MaxParticipants   = 10
	MaxMembers        = 50
)

// Packet is a decoded frame: a type plus its raw payload bytes.
type Packet struct {
	Type    Type
	Payload []byte
}

// ReadPacket blocks until a full frame has arrived on r, or returns an
// error (including io.EOF on clean peer shutdown).
func ReadPacket(r io.Reader) (*Packet, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	typ := Type(binary.BigEndian.Uint32(hdr[0:4]))
	length := binary.BigEndian.Uint32(hdr[4:8])
	if length > MaxPayloadLen {
		return nil, errors.New("wire: payload length %d exceeds max %d", length, MaxPayloadLen)
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, errors.Wrap(err, "wire: read payload")
		}
	}
	return &Packet{Type: typ, Payload: payload}, nil
}

// WritePacket writes a complete frame to w in a single header-then-payload
// sequence. Callers needing to serialize writes across goroutines must
// hold their own lock; WritePacket does not synchronize internally.
func WritePacket(w io.Writer, typ Type, payload []byte) error {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(typ))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "wire: write header")
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return errors.Wrap(err, "wire: write payload")
		}
	}
	return nil
}

// putString writes s into a fixed-size, NUL-padded field. It truncates
// silently if s doesn't fit, mirroring the original's fixed char arrays.
func putString(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// getString reads a NUL-padded fixed field back out as a string, trimming
// at the first NUL byte.
func getString(src []byte) string {
	for i, b := range src {
		if b == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}
