package server_test

import (
	"crypto/tls"
	"fmt"
	"testing"
	"time"

	"github.com/duskrelay/chatserver/client"
	"github.com/duskrelay/chatserver/internal/wire"
)

const recvTimeout = 2 * time.Second

// recv reads the next packet, failing the test if none arrives within
// recvTimeout or its type doesn't match want.
func recv(t *testing.T, c *client.Client, want wire.Type) *wire.Packet {
	t.Helper()
	c.SetDeadline(time.Now().Add(recvTimeout))
	pkt, err := c.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if pkt.Type != want {
		t.Fatalf("recv: got %v, want %v", pkt.Type, want)
	}
	return pkt
}

// registerAndLogin dials addr, registers email/username/password, logs in,
// and returns the connected client plus its MyInfoPayload.
func registerAndLogin(t *testing.T, addr string, tlsConf *tls.Config, email, username, password string) (*client.Client, *wire.MyInfoPayload) {
	t.Helper()

	c, err := client.Dial(addr, tlsConf)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	if err := c.Register(email, username, password); err != nil {
		t.Fatalf("register: %v", err)
	}
	recv(t, c, wire.MsgRegisterSuccess)

	if err := c.Login(email, password); err != nil {
		t.Fatalf("login: %v", err)
	}
	pkt := recv(t, c, wire.MsgLoginSuccess)
	info, err := wire.DecodeMyInfoPayload(pkt.Payload)
	if err != nil {
		t.Fatalf("decode MyInfoPayload: %v", err)
	}
	return c, info
}

func TestRegisterLoginAndUpdateUser(t *testing.T) {
	addr, tlsConf, shutdown := startTestServer(t)
	defer shutdown()

	c, info := registerAndLogin(t, addr, tlsConf, "alice@example.com", "alice", "hunter2")
	defer c.Close()

	if info.Username != "alice" || info.Email != "alice@example.com" {
		t.Fatalf("unexpected MyInfoPayload: %+v", info)
	}
	if len(info.FriendCode) != wire.FriendCodeLen-1 {
		t.Fatalf("friend code %q has unexpected length", info.FriendCode)
	}

	if err := c.UpdateUser("alice2", ""); err != nil {
		t.Fatalf("update_user: %v", err)
	}
	recv(t, c, wire.MsgUpdateSuccess)
}

func TestDuplicateRegistrationFails(t *testing.T) {
	addr, tlsConf, shutdown := startTestServer(t)
	defer shutdown()

	c1, _ := registerAndLogin(t, addr, tlsConf, "bob@example.com", "bob", "password1")
	defer c1.Close()

	c2, err := client.Dial(addr, tlsConf)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c2.Close()

	if err := c2.Register("bob@example.com", "bob2", "password2"); err != nil {
		t.Fatalf("register: %v", err)
	}
	recv(t, c2, wire.MsgRegisterFail)
}

func TestContactRequestAcceptCreatesPrivateConversationAndRoutesMessages(t *testing.T) {
	addr, tlsConf, shutdown := startTestServer(t)
	defer shutdown()

	alice, aliceInfo := registerAndLogin(t, addr, tlsConf, "alice@example.com", "alice", "hunter2")
	defer alice.Close()
	bob, bobInfo := registerAndLogin(t, addr, tlsConf, "bob@example.com", "bob", "hunter3")
	defer bob.Close()

	if err := alice.AddByCode(bobInfo.FriendCode); err != nil {
		t.Fatalf("add_by_code: %v", err)
	}
	recv(t, alice, wire.MsgAddReqSent)
	// Bob is online, so he gets an immediate pending-requests refresh push.
	reqPush := recv(t, bob, wire.MsgRespRequests)
	reqs, err := wire.DecodeContactSummaries(reqPush.Payload)
	if err != nil {
		t.Fatalf("decode requests: %v", err)
	}
	if len(reqs) != 1 || reqs[0].UID != aliceInfo.UID {
		t.Fatalf("unexpected pending requests: %+v", reqs)
	}

	if err := bob.DecideRequest(aliceInfo.UID, true); err != nil {
		t.Fatalf("decide_request: %v", err)
	}

	// Both sides get their conversation list refreshed with the new
	// PRIVATE conversation, in some order; drain both.
	aliceConvs := recv(t, alice, wire.MsgRespConversations)
	bobConvs := recv(t, bob, wire.MsgRespConversations)

	aliceList, err := wire.DecodeConversationSummaries(aliceConvs.Payload)
	if err != nil {
		t.Fatalf("decode alice conversations: %v", err)
	}
	if len(aliceList) != 1 || aliceList[0].Type != wire.ConvPrivate {
		t.Fatalf("unexpected alice conversations: %+v", aliceList)
	}
	if got, want := aliceList[0].Name, fmt.Sprintf("Private with %s", bobInfo.Username); got != want {
		t.Fatalf("alice's private conversation name = %q, want %q", got, want)
	}

	bobList, err := wire.DecodeConversationSummaries(bobConvs.Payload)
	if err != nil {
		t.Fatalf("decode bob conversations: %v", err)
	}
	if len(bobList) != 1 {
		t.Fatalf("unexpected bob conversations: %+v", bobList)
	}
	convID := bobList[0].ConvID

	// Alice's own contacts list gets the new friend (pushed within the
	// accept branch); bob's contacts and now-empty pending requests are
	// refreshed afterward as the request row is removed.
	recv(t, alice, wire.MsgRespContacts)
	recv(t, bob, wire.MsgRespContacts)
	recv(t, bob, wire.MsgRespRequests)

	if err := alice.SendText(convID, "hello bob"); err != nil {
		t.Fatalf("send_text: %v", err)
	}
	routedToBob := recv(t, bob, wire.MsgRteText)
	routed, err := wire.DecodeRoutedMessagePayload(routedToBob.Payload)
	if err != nil {
		t.Fatalf("decode routed message: %v", err)
	}
	if routed.Text != "hello bob" || routed.SenderUID != aliceInfo.UID {
		t.Fatalf("unexpected routed message: %+v", routed)
	}

	// Alice, the sender, must not receive an echo of her own message;
	// prove it by issuing an unrelated request and confirming that's the
	// next thing to arrive on her connection.
	if err := alice.RequestContacts(); err != nil {
		t.Fatalf("req_contacts: %v", err)
	}
	recv(t, alice, wire.MsgRespContacts)

	if err := bob.RequestHistory(convID); err != nil {
		t.Fatalf("req_history: %v", err)
	}
	historyPkt := recv(t, bob, wire.MsgRespHistory)
	if len(historyPkt.Payload) == 0 {
		t.Fatal("expected non-empty rendered history")
	}
}

func TestNonParticipantCannotSendOrReadHistory(t *testing.T) {
	addr, tlsConf, shutdown := startTestServer(t)
	defer shutdown()

	alice, _ := registerAndLogin(t, addr, tlsConf, "alice@example.com", "alice", "hunter2")
	defer alice.Close()
	eve, _ := registerAndLogin(t, addr, tlsConf, "eve@example.com", "eve", "hunter4")
	defer eve.Close()

	if err := alice.CreateConversation(wire.ConvGroup, "Just Alice", "", nil); err != nil {
		t.Fatalf("create_conv: %v", err)
	}
	created := recv(t, alice, wire.MsgConvCreated)
	if len(created.Payload) != 4 {
		t.Fatalf("unexpected MSG_CONV_CREATED payload length %d", len(created.Payload))
	}
	// Alice is the conversation's only participant, so the post-create
	// refresh (which excludes the creator) has no one left to notify.

	if err := alice.RequestConversations(); err != nil {
		t.Fatalf("req_conversations: %v", err)
	}
	convsPkt := recv(t, alice, wire.MsgRespConversations)
	list, err := wire.DecodeConversationSummaries(convsPkt.Payload)
	if err != nil || len(list) != 1 {
		t.Fatalf("decode conversations: %v, %+v", err, list)
	}
	convID := list[0].ConvID

	if err := eve.SendText(convID, "i shouldn't be able to send this"); err != nil {
		t.Fatalf("send_text: %v", err)
	}
	if err := eve.RequestHistory(convID); err != nil {
		t.Fatalf("req_history: %v", err)
	}

	// Neither request should produce a response; prove it by requesting
	// something unrelated and confirming that's the next thing to arrive.
	if err := eve.RequestContacts(); err != nil {
		t.Fatalf("req_contacts: %v", err)
	}
	recv(t, eve, wire.MsgRespContacts)
}

func TestGroupAdminLifecycle(t *testing.T) {
	addr, tlsConf, shutdown := startTestServer(t)
	defer shutdown()

	alice, aliceInfo := registerAndLogin(t, addr, tlsConf, "alice@example.com", "alice", "hunter2")
	defer alice.Close()
	bob, bobInfo := registerAndLogin(t, addr, tlsConf, "bob@example.com", "bob", "hunter3")
	defer bob.Close()
	_ = aliceInfo

	if err := alice.CreateConversation(wire.ConvGroup, "Study Group", "cramming", nil); err != nil {
		t.Fatalf("create_conv: %v", err)
	}
	created := recv(t, alice, wire.MsgConvCreated)
	// Alice is the conversation's only participant so far, so the
	// post-create refresh (which excludes the creator) has no one left
	// to notify.
	convID := uint32(created.Payload[0])<<24 | uint32(created.Payload[1])<<16 | uint32(created.Payload[2])<<8 | uint32(created.Payload[3])

	if err := alice.AddMember(convID, bobInfo.FriendCode); err != nil {
		t.Fatalf("add_member: %v", err)
	}
	recv(t, alice, wire.MsgMemberAdded)
	recv(t, alice, wire.MsgRespConversations)
	recv(t, bob, wire.MsgRespConversations)

	if err := bob.UpdateGroup(convID, "Hijacked", ""); err != nil {
		t.Fatalf("update_group: %v", err)
	}
	// Bob isn't admin, so nothing should change; prove it by issuing a
	// request bob knows the answer to and confirming no stray refresh
	// beat it.
	if err := bob.RequestMembers(convID); err != nil {
		t.Fatalf("req_members: %v", err)
	}
	membersPkt := recv(t, bob, wire.MsgRespMembers)
	members, err := wire.DecodeGroupMemberSummaries(membersPkt.Payload)
	if err != nil {
		t.Fatalf("decode members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("unexpected member count: %d", len(members))
	}

	if err := alice.KickMember(convID, bobInfo.UID); err != nil {
		t.Fatalf("kick_member: %v", err)
	}
	recv(t, alice, wire.MsgRespConversations)
	bobRefresh := recv(t, bob, wire.MsgRespConversations)
	bobList, err := wire.DecodeConversationSummaries(bobRefresh.Payload)
	if err != nil {
		t.Fatalf("decode bob conversations after kick: %v", err)
	}
	if len(bobList) != 0 {
		t.Fatalf("expected bob to have no conversations after being kicked, got %+v", bobList)
	}

	if err := alice.DeleteGroup(convID); err != nil {
		t.Fatalf("delete_group: %v", err)
	}
	aliceFinal := recv(t, alice, wire.MsgRespConversations)
	aliceList, err := wire.DecodeConversationSummaries(aliceFinal.Payload)
	if err != nil {
		t.Fatalf("decode alice conversations after delete: %v", err)
	}
	if len(aliceList) != 0 {
		t.Fatalf("expected alice to have no conversations after deleting the group, got %+v", aliceList)
	}
}
