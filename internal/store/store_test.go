package store

import (
	"strings"
	"testing"

	"github.com/duskrelay/chatserver/internal/cryptobox"
	"github.com/duskrelay/chatserver/internal/wire"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", cryptobox.New("test-passphrase"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustRegister(t *testing.T, s *Store, email, username, password string) *User {
	t.Helper()
	u, err := s.RegisterUser(email, username, password)
	if err != nil {
		t.Fatalf("RegisterUser(%s): %v", email, err)
	}
	return u
}

func TestRegisterAndCheckCredentials(t *testing.T) {
	s := newTestStore(t)
	alice := mustRegister(t, s, "alice@example.com", "alice", "hunter2")

	if len(alice.FriendCode) != friendCodeLen {
		t.Fatalf("expected friend code of length %d, got %q", friendCodeLen, alice.FriendCode)
	}

	got, err := s.CheckCredentials("alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("CheckCredentials: %v", err)
	}
	if got == nil || got.UID != alice.UID {
		t.Fatalf("expected matching user, got %+v", got)
	}

	wrong, err := s.CheckCredentials("alice@example.com", "wrong-password")
	if err != nil {
		t.Fatalf("CheckCredentials: %v", err)
	}
	if wrong != nil {
		t.Fatal("expected nil user for wrong password")
	}
}

func TestContactsAndRequests(t *testing.T) {
	s := newTestStore(t)
	alice := mustRegister(t, s, "alice@example.com", "alice", "pw")
	bob := mustRegister(t, s, "bob@example.com", "bob", "pw")

	if err := s.AddRequest(alice.UID, bob.UID); err != nil {
		t.Fatalf("AddRequest: %v", err)
	}

	pending, err := s.GetPendingRequests(bob.UID)
	if err != nil {
		t.Fatalf("GetPendingRequests: %v", err)
	}
	if len(pending) != 1 || pending[0].UID != alice.UID {
		t.Fatalf("unexpected pending requests: %+v", pending)
	}

	if err := s.RemoveRequest(alice.UID, bob.UID); err != nil {
		t.Fatalf("RemoveRequest: %v", err)
	}
	if err := s.AddFriendship(alice.UID, bob.UID); err != nil {
		t.Fatalf("AddFriendship: %v", err)
	}

	aliceContacts, err := s.GetContacts(alice.UID)
	if err != nil {
		t.Fatalf("GetContacts: %v", err)
	}
	if len(aliceContacts) != 1 || aliceContacts[0].UID != bob.UID {
		t.Fatalf("unexpected contacts for alice: %+v", aliceContacts)
	}

	bobContacts, err := s.GetContacts(bob.UID)
	if err != nil {
		t.Fatalf("GetContacts: %v", err)
	}
	if len(bobContacts) != 1 || bobContacts[0].UID != alice.UID {
		t.Fatalf("unexpected contacts for bob: %+v", bobContacts)
	}
}

func TestPrivateConversationNamingAndHistory(t *testing.T) {
	s := newTestStore(t)
	alice := mustRegister(t, s, "alice@example.com", "alice", "pw")
	bob := mustRegister(t, s, "bob@example.com", "bob", "pw")

	convID, err := s.CreateConversation(wire.ConvPrivate, "", "", []uint32{alice.UID, bob.UID})
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	found, ok, err := s.FindPrivateConversation(alice.UID, bob.UID)
	if err != nil || !ok || found != convID {
		t.Fatalf("FindPrivateConversation: found=%d ok=%v err=%v", found, ok, err)
	}

	convs, err := s.GetUserConversations(alice.UID)
	if err != nil {
		t.Fatalf("GetUserConversations: %v", err)
	}
	if len(convs) != 1 || convs[0].Name != "Private with bob" {
		t.Fatalf("unexpected naming: %+v", convs)
	}

	if err := s.LogMessage(convID, alice.UID, "hello"); err != nil {
		t.Fatalf("LogMessage: %v", err)
	}
	history, err := s.GetHistory(convID)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if !strings.Contains(history, "alice: hello") {
		t.Fatalf("unexpected history: %q", history)
	}
}

func TestGroupConversationAdminAndMembers(t *testing.T) {
	s := newTestStore(t)
	alice := mustRegister(t, s, "alice@example.com", "alice", "pw")
	bob := mustRegister(t, s, "bob@example.com", "bob", "pw")

	convID, err := s.CreateConversation(wire.ConvGroup, "Weekend Plans", "logistics", []uint32{alice.UID, bob.UID})
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	isAdmin, err := s.IsAdmin(convID, alice.UID)
	if err != nil || !isAdmin {
		t.Fatalf("expected alice to be admin: isAdmin=%v err=%v", isAdmin, err)
	}
	isAdmin, err = s.IsAdmin(convID, bob.UID)
	if err != nil || isAdmin {
		t.Fatalf("expected bob to not be admin: isAdmin=%v err=%v", isAdmin, err)
	}

	members, err := s.GetGroupMembers(convID)
	if err != nil || len(members) != 2 {
		t.Fatalf("GetGroupMembers: %+v, err=%v", members, err)
	}

	if err := s.RemoveParticipant(convID, bob.UID); err != nil {
		t.Fatalf("RemoveParticipant: %v", err)
	}
	isMember, err := s.IsParticipant(convID, bob.UID)
	if err != nil || isMember {
		t.Fatalf("expected bob to no longer be a participant: isMember=%v err=%v", isMember, err)
	}
}

func TestDeleteConversationRemovesMessagesAndParticipants(t *testing.T) {
	s := newTestStore(t)
	alice := mustRegister(t, s, "alice@example.com", "alice", "pw")

	convID, err := s.CreateConversation(wire.ConvGroup, "Temp", "", []uint32{alice.UID})
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if err := s.LogMessage(convID, alice.UID, "soon to be deleted"); err != nil {
		t.Fatalf("LogMessage: %v", err)
	}
	if err := s.DeleteConversation(convID); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}

	participants, err := s.GetConvParticipants(convID)
	if err != nil || len(participants) != 0 {
		t.Fatalf("expected no participants after delete, got %+v (err=%v)", participants, err)
	}
	history, err := s.GetHistory(convID)
	if err != nil || history != "" {
		t.Fatalf("expected empty history after delete, got %q (err=%v)", history, err)
	}
}
