package server

import "github.com/duskrelay/chatserver/internal/wire"

// handleReqContacts answers with the caller's current contact list,
// overlaying live presence from the registry the way
// storage_get_contacts_data's comment describes leaving to "the caller".
func (s *Server) handleReqContacts(sess *session) {
	contacts, err := s.store.GetContacts(sess.conn.UID)
	if err != nil {
		s.log.Errorf("req_contacts(%d): %v", sess.conn.UID, err)
		s.sendEmpty(sess, wire.MsgRespContacts)
		return
	}
	s.overlayPresence(contacts)
	s.send(sess, wire.MsgRespContacts, wire.EncodeContactSummaries(contacts))
}

// handleAddByCode resolves a friend code to a uid and files a contact
// request, matching handle_add_by_code. A code that doesn't resolve, or
// that resolves to the caller's own account, fails silently with
// MSG_ADD_FAIL rather than leaking which codes are valid.
func (s *Server) handleAddByCode(sess *session, payload []byte) {
	req, err := wire.DecodeAddContactPayload(payload)
	if err != nil {
		s.log.Warnf("add_by_code: %v", err)
		s.sendEmpty(sess, wire.MsgAddFail)
		return
	}

	targetUID, ok, err := s.store.GetUIDByCode(req.FriendCode)
	if err != nil {
		s.log.Errorf("add_by_code: %v", err)
		s.sendEmpty(sess, wire.MsgAddFail)
		return
	}
	if !ok || targetUID == sess.conn.UID {
		s.sendEmpty(sess, wire.MsgAddFail)
		return
	}

	if err := s.store.AddRequest(sess.conn.UID, targetUID); err != nil {
		s.log.Infof("add_by_code(%d -> %d): %v", sess.conn.UID, targetUID, err)
		s.sendEmpty(sess, wire.MsgAddFail)
		return
	}

	s.sendEmpty(sess, wire.MsgAddReqSent)
	s.refreshRequests(targetUID)
}

// handleGetRequests answers with the contact requests pending for the
// caller.
func (s *Server) handleGetRequests(sess *session) {
	reqs, err := s.store.GetPendingRequests(sess.conn.UID)
	if err != nil {
		s.log.Errorf("get_requests(%d): %v", sess.conn.UID, err)
		s.sendEmpty(sess, wire.MsgRespRequests)
		return
	}
	s.overlayPresence(reqs)
	s.send(sess, wire.MsgRespRequests, wire.EncodeContactSummaries(reqs))
}

// handleDecideRequest accepts or rejects a pending contact request,
// matching handle_decide_request. The request row is keyed
// (sender_id=TargetUID, receiver_id=caller) since it was the target who
// originally sent it via handleAddByCode and the caller who is now
// deciding. Accepting also establishes the symmetric friendship and the
// PRIVATE conversation between the two, creating it if this is their
// first contact.
func (s *Server) handleDecideRequest(sess *session, payload []byte) {
	req, err := wire.DecodeDecideRequestPayload(payload)
	if err != nil {
		s.log.Warnf("decide_request: %v", err)
		return
	}
	senderUID, receiverUID := req.TargetUID, sess.conn.UID

	if req.Accepted {
		if err := s.store.AddFriendship(receiverUID, senderUID); err != nil {
			s.log.Errorf("decide_request: add friendship: %v", err)
			return
		}

		if _, ok, err := s.store.FindPrivateConversation(receiverUID, senderUID); err != nil {
			s.log.Errorf("decide_request: find private conversation: %v", err)
		} else if !ok {
			if _, err := s.store.CreateConversation(wire.ConvPrivate, "", "", []uint32{receiverUID, senderUID}); err != nil {
				s.log.Errorf("decide_request: create private conversation: %v", err)
			}
		}

		s.refreshConversations(receiverUID)
		s.refreshConversations(senderUID)
		s.refreshContacts(senderUID)
	}

	if err := s.store.RemoveRequest(senderUID, receiverUID); err != nil {
		s.log.Errorf("decide_request: remove request: %v", err)
	}

	s.refreshContacts(receiverUID)
	s.refreshRequests(receiverUID)
}
