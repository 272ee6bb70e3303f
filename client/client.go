// Package client implements a minimal Go client for the messaging
// protocol: dial, authenticate, and issue the same requests a real chat
// client would, reading back whichever response or fan-out packet
// arrives next. It exists to drive the server end-to-end in tests and as
// a reference for anyone wiring up a real UI.
package client

import (
	"crypto/tls"
	"sync"
	"time"

	"github.com/duskrelay/chatserver/errors"
	"github.com/duskrelay/chatserver/internal/wire"
)

// Client is a single TLS connection to a messaging server. All request
// methods (Register, Login, SendText, ...) only write a request; callers read the matching response (or
// an unrelated fan-out packet that arrived first) with Recv.
type Client struct {
	conn *tls.Conn

	writeMu sync.Mutex
}

// Dial connects to addr over TLS using tlsConf (set InsecureSkipVerify or
// a RootCAs pool appropriate to the environment) and returns a Client
// ready to send requests.
func Dial(addr string, tlsConf *tls.Config) (*Client, error) {
	conn, err := tls.Dial("tcp", addr, tlsConf)
	if err != nil {
		return nil, errors.Wrap(err, "client: dial %s", addr)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// SetDeadline sets both read and write deadlines on the underlying
// connection, mainly useful so tests don't hang forever waiting on a
// packet that a broken handler never sends.
func (c *Client) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// Recv blocks for the next packet from the server, whether it's the
// direct response to a prior request or an asynchronous fan-out push
// (RTE_TEXT, RESP_CONVERSATIONS, RESP_CONTACTS, RESP_REQUESTS).
func (c *Client) Recv() (*wire.Packet, error) {
	return wire.ReadPacket(c.conn)
}

func (c *Client) send(typ wire.Type, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.WritePacket(c.conn, typ, payload)
}

func (c *Client) Register(email, username, password string) error {
	p := &wire.RegisterPayload{Email: email, Username: username, Password: password}
	return c.send(wire.MsgRegister, p.Encode())
}

func (c *Client) Login(email, password string) error {
	p := &wire.LoginPayload{Email: email, Password: password}
	return c.send(wire.MsgLogin, p.Encode())
}

func (c *Client) UpdateUser(newUsername, newPassword string) error {
	p := &wire.UpdateUserPayload{NewUsername: newUsername, NewPassword: newPassword}
	return c.send(wire.MsgUpdateUser, p.Encode())
}

func (c *Client) RequestContacts() error {
	return c.send(wire.MsgReqContacts, nil)
}

func (c *Client) AddByCode(friendCode string) error {
	p := &wire.AddContactPayload{FriendCode: friendCode}
	return c.send(wire.MsgAddByCode, p.Encode())
}

func (c *Client) GetRequests() error {
	return c.send(wire.MsgGetRequests, nil)
}

func (c *Client) DecideRequest(targetUID uint32, accept bool) error {
	p := &wire.DecideRequestPayload{TargetUID: targetUID, Accepted: accept}
	return c.send(wire.MsgDecideRequest, p.Encode())
}

func (c *Client) CreateConversation(convType wire.ConvType, name, desc string, participantUIDs []uint32) error {
	p := &wire.CreateConvPayload{Type: convType, Name: name, Description: desc, ParticipantUIDs: participantUIDs}
	return c.send(wire.MsgCreateConv, p.Encode())
}

func (c *Client) RequestConversations() error {
	return c.send(wire.MsgReqConversations, nil)
}

func (c *Client) UpdateGroup(convID uint32, newName, newDesc string) error {
	p := &wire.UpdateGroupPayload{ConvID: convID, NewName: newName, NewDesc: newDesc}
	return c.send(wire.MsgUpdateGroup, p.Encode())
}

func (c *Client) AddMember(convID uint32, targetFriendCode string) error {
	p := &wire.AddMemberPayload{ConvID: convID, TargetFriendCode: targetFriendCode}
	return c.send(wire.MsgAddMember, p.Encode())
}

func (c *Client) RequestMembers(convID uint32) error {
	p := &wire.ReqMembersPayload{ConvID: convID}
	return c.send(wire.MsgReqMembers, p.Encode())
}

func (c *Client) KickMember(convID, targetUID uint32) error {
	p := &wire.KickMemberPayload{ConvID: convID, TargetUID: targetUID}
	return c.send(wire.MsgKickMember, p.Encode())
}

func (c *Client) DeleteGroup(convID uint32) error {
	p := &wire.DeleteGroupPayload{ConvID: convID}
	return c.send(wire.MsgDeleteGroup, p.Encode())
}

func (c *Client) SendText(convID uint32, text string) error {
	p := &wire.SendMessagePayload{ConvID: convID, Text: text}
	return c.send(wire.MsgSendText, p.Encode())
}

func (c *Client) RequestHistory(convID uint32) error {
	p := &wire.RequestHistoryPayload{ConvID: convID}
	return c.send(wire.MsgReqHistory, p.Encode())
}
