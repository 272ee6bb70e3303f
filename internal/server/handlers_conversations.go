package server

import (
	"encoding/binary"

	"github.com/duskrelay/chatserver/internal/wire"
)

// handleCreateConv creates either a PRIVATE conversation between the
// caller and one other uid, or a GROUP conversation naming the caller
// its first ADMIN, matching storage_create_conversation's "i == 0 &&
// type == group" rule. A PRIVATE request that duplicates an existing
// conversation between the same two uids reuses it instead of creating
// a second one.
func (s *Server) handleCreateConv(sess *session, payload []byte) {
	req, err := wire.DecodeCreateConvPayload(payload)
	if err != nil {
		s.log.Warnf("create_conv: %v", err)
		return
	}

	uids := dedupeUint32(append([]uint32{sess.conn.UID}, req.ParticipantUIDs...))

	if req.Type == wire.ConvPrivate && len(uids) == 2 {
		if existing, ok, err := s.store.FindPrivateConversation(uids[0], uids[1]); err != nil {
			s.log.Errorf("create_conv: find existing: %v", err)
			return
		} else if ok {
			// Reusing an existing conversation is not a graph mutation,
			// so no one else needs to be notified.
			s.sendConvID(sess, existing)
			return
		}
	}

	convID, err := s.store.CreateConversation(req.Type, req.Name, req.Description, uids)
	if err != nil {
		s.log.Errorf("create_conv: %v", err)
		return
	}

	s.sendConvID(sess, convID)
	s.refreshConversationsForAll(uids, sess.conn.UID)
}

func (s *Server) sendConvID(sess *session, convID uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], convID)
	s.send(sess, wire.MsgConvCreated, buf[:])
}

// handleReqConversations answers with the caller's full conversation
// list.
func (s *Server) handleReqConversations(sess *session) {
	list, err := s.store.GetUserConversations(sess.conn.UID)
	if err != nil {
		s.log.Errorf("req_conversations(%d): %v", sess.conn.UID, err)
		s.sendEmpty(sess, wire.MsgRespConversations)
		return
	}
	s.send(sess, wire.MsgRespConversations, wire.EncodeConversationSummaries(list))
}

// handleUpdateGroup renames/redescribes a GROUP conversation. Only an
// ADMIN participant may do this; a non-admin attempt is silently
// dropped, matching group_handler.c's admin check before any mutation.
func (s *Server) handleUpdateGroup(sess *session, payload []byte) {
	req, err := wire.DecodeUpdateGroupPayload(payload)
	if err != nil {
		s.log.Warnf("update_group: %v", err)
		return
	}

	admin, err := s.store.IsAdmin(req.ConvID, sess.conn.UID)
	if err != nil {
		s.log.Errorf("update_group: %v", err)
		return
	}
	if !admin {
		s.log.Warnf("update_group: uid %d is not admin of conv %d", sess.conn.UID, req.ConvID)
		return
	}

	if err := s.store.UpdateGroup(req.ConvID, req.NewName, req.NewDesc); err != nil {
		s.log.Errorf("update_group: %v", err)
		return
	}

	participants, err := s.store.GetConvParticipants(req.ConvID)
	if err != nil {
		s.log.Errorf("update_group: list participants: %v", err)
		return
	}
	s.refreshConversationsForAll(participants, 0)
}

// handleAddMember adds one more member to a GROUP conversation by friend
// code. Only an ADMIN may add members, matching group_handler.c.
func (s *Server) handleAddMember(sess *session, payload []byte) {
	req, err := wire.DecodeAddMemberPayload(payload)
	if err != nil {
		s.log.Warnf("add_member: %v", err)
		return
	}

	admin, err := s.store.IsAdmin(req.ConvID, sess.conn.UID)
	if err != nil {
		s.log.Errorf("add_member: %v", err)
		return
	}
	if !admin {
		s.log.Warnf("add_member: uid %d is not admin of conv %d", sess.conn.UID, req.ConvID)
		return
	}

	targetUID, ok, err := s.store.GetUIDByCode(req.TargetFriendCode)
	if err != nil {
		s.log.Errorf("add_member: %v", err)
		return
	}
	if !ok {
		return
	}

	if err := s.store.AddParticipant(req.ConvID, targetUID, wire.RoleMember); err != nil {
		s.log.Errorf("add_member: %v", err)
		return
	}

	s.sendEmpty(sess, wire.MsgMemberAdded)

	participants, err := s.store.GetConvParticipants(req.ConvID)
	if err != nil {
		s.log.Errorf("add_member: list participants: %v", err)
		return
	}
	s.refreshConversationsForAll(participants, 0)
}

// handleReqMembers answers with a GROUP conversation's member list. The
// caller must currently be a participant.
func (s *Server) handleReqMembers(sess *session, payload []byte) {
	req, err := wire.DecodeReqMembersPayload(payload)
	if err != nil {
		s.log.Warnf("req_members: %v", err)
		return
	}

	member, err := s.store.IsParticipant(req.ConvID, sess.conn.UID)
	if err != nil {
		s.log.Errorf("req_members: %v", err)
		return
	}
	if !member {
		s.log.Warnf("req_members: uid %d is not a participant of conv %d", sess.conn.UID, req.ConvID)
		return
	}

	members, err := s.store.GetGroupMembers(req.ConvID)
	if err != nil {
		s.log.Errorf("req_members: %v", err)
		return
	}
	s.send(sess, wire.MsgRespMembers, wire.EncodeGroupMemberSummaries(members))
}

// handleKickMember removes a member from a GROUP conversation. Only an
// ADMIN may kick, matching group_handler.c; the kicked uid is refreshed
// too so their client drops the conversation from its list. An admin
// cannot kick themselves this way; that request is silently dropped,
// matching group_handler.c's target_uid != cli->uid guard.
func (s *Server) handleKickMember(sess *session, payload []byte) {
	req, err := wire.DecodeKickMemberPayload(payload)
	if err != nil {
		s.log.Warnf("kick_member: %v", err)
		return
	}
	if req.TargetUID == sess.conn.UID {
		s.log.Warnf("kick_member: uid %d attempted to kick self from conv %d", sess.conn.UID, req.ConvID)
		return
	}

	admin, err := s.store.IsAdmin(req.ConvID, sess.conn.UID)
	if err != nil {
		s.log.Errorf("kick_member: %v", err)
		return
	}
	if !admin {
		s.log.Warnf("kick_member: uid %d is not admin of conv %d", sess.conn.UID, req.ConvID)
		return
	}

	participantsBefore, err := s.store.GetConvParticipants(req.ConvID)
	if err != nil {
		s.log.Errorf("kick_member: list participants: %v", err)
		return
	}

	if err := s.store.RemoveParticipant(req.ConvID, req.TargetUID); err != nil {
		s.log.Errorf("kick_member: %v", err)
		return
	}

	s.refreshConversationsForAll(participantsBefore, 0)
}

// handleDeleteGroup deletes a GROUP conversation and all its messages.
// Only an ADMIN may delete it. The participant list is captured before
// the delete so every former member's client can still be refreshed
// afterward, matching the "capture members first" ordering in
// group_handler.c's handle_delete_group.
func (s *Server) handleDeleteGroup(sess *session, payload []byte) {
	req, err := wire.DecodeDeleteGroupPayload(payload)
	if err != nil {
		s.log.Warnf("delete_group: %v", err)
		return
	}

	admin, err := s.store.IsAdmin(req.ConvID, sess.conn.UID)
	if err != nil {
		s.log.Errorf("delete_group: %v", err)
		return
	}
	if !admin {
		s.log.Warnf("delete_group: uid %d is not admin of conv %d", sess.conn.UID, req.ConvID)
		return
	}

	participants, err := s.store.GetConvParticipants(req.ConvID)
	if err != nil {
		s.log.Errorf("delete_group: list participants: %v", err)
		return
	}

	if err := s.store.DeleteConversation(req.ConvID); err != nil {
		s.log.Errorf("delete_group: %v", err)
		return
	}

	s.refreshConversationsForAll(participants, 0)
}

func dedupeUint32(in []uint32) []uint32 {
	seen := make(map[uint32]bool, len(in))
	out := make([]uint32, 0, len(in))
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
