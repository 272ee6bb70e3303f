package server

import "github.com/duskrelay/chatserver/internal/wire"

// refreshConversations recomputes uid's conversation list and pushes it as
// RESP_CONVERSATIONS if uid is currently online. Every handler that
// mutates the conversation graph (create, rename, add/kick member,
// delete group, accept a friend request) calls this for every affected
// participant, except that create skips the creator, who gets
// CONV_CREATED instead, mirroring the original's notify_group_update and its
// inline "refresh X" calls scattered through group_handler.c and
// contact_handler.c.
func (s *Server) refreshConversations(uid uint32) {
	conn, online := s.registry.Lookup(uid)
	if !online {
		return
	}
	summaries, err := s.store.GetUserConversations(uid)
	if err != nil {
		s.log.Errorf("refreshConversations(%d): %v", uid, err)
		return
	}
	if err := conn.Send(wire.MsgRespConversations, wire.EncodeConversationSummaries(summaries)); err != nil {
		s.log.Debugf("refreshConversations(%d): write: %v", uid, err)
	}
}

// refreshConversationsForAll calls refreshConversations for every uid in
// members except excludeUID (pass 0 to exclude no one).
func (s *Server) refreshConversationsForAll(members []uint32, excludeUID uint32) {
	for _, uid := range members {
		if uid == excludeUID {
			continue
		}
		s.refreshConversations(uid)
	}
}

// refreshContacts recomputes and pushes uid's contact list if online.
func (s *Server) refreshContacts(uid uint32) {
	conn, online := s.registry.Lookup(uid)
	if !online {
		return
	}
	contacts, err := s.store.GetContacts(uid)
	if err != nil {
		s.log.Errorf("refreshContacts(%d): %v", uid, err)
		return
	}
	s.overlayPresence(contacts)
	if err := conn.Send(wire.MsgRespContacts, wire.EncodeContactSummaries(contacts)); err != nil {
		s.log.Debugf("refreshContacts(%d): write: %v", uid, err)
	}
}

// refreshRequests recomputes and pushes uid's pending contact requests if
// online.
func (s *Server) refreshRequests(uid uint32) {
	conn, online := s.registry.Lookup(uid)
	if !online {
		return
	}
	reqs, err := s.store.GetPendingRequests(uid)
	if err != nil {
		s.log.Errorf("refreshRequests(%d): %v", uid, err)
		return
	}
	s.overlayPresence(reqs)
	if err := conn.Send(wire.MsgRespRequests, wire.EncodeContactSummaries(reqs)); err != nil {
		s.log.Debugf("refreshRequests(%d): write: %v", uid, err)
	}
}

// overlayPresence fills in IsOnline for a contact/request list using the
// live registry, since the store always returns is_online=false (the
// original's storage_get_contacts_data leaves the same field for the
// caller to fill in "later").
func (s *Server) overlayPresence(list []wire.ContactSummary) {
	for i := range list {
		_, online := s.registry.Lookup(list[i].UID)
		list[i].IsOnline = online
	}
}
