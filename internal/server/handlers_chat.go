package server

import "github.com/duskrelay/chatserver/internal/wire"

// handleSendText logs a message and routes it to every other currently
// online participant of the conversation, matching chat_handler.c's
// handle_send_text followed by its routing loop, which skips
// target_uid == cli->uid so the sender never gets an echo of their own
// message. The caller must be a participant; a non-participant's attempt is
// silently dropped rather than acknowledged, since letting a stranger
// probe conv_id existence via the response would leak information the
// original implementation never exposed either.
func (s *Server) handleSendText(sess *session, payload []byte) {
	req, err := wire.DecodeSendMessagePayload(payload)
	if err != nil {
		s.log.Warnf("send_text: %v", err)
		return
	}

	member, err := s.store.IsParticipant(req.ConvID, sess.conn.UID)
	if err != nil {
		s.log.Errorf("send_text: %v", err)
		return
	}
	if !member {
		s.log.Warnf("send_text: uid %d is not a participant of conv %d", sess.conn.UID, req.ConvID)
		return
	}

	if err := s.store.LogMessage(req.ConvID, sess.conn.UID, req.Text); err != nil {
		s.log.Errorf("send_text: %v", err)
		return
	}

	participants, err := s.store.GetConvParticipants(req.ConvID)
	if err != nil {
		s.log.Errorf("send_text: list participants: %v", err)
		return
	}

	routed := &wire.RoutedMessagePayload{
		ConvID:         req.ConvID,
		SenderUID:      sess.conn.UID,
		SenderUsername: sess.conn.Username,
		Text:           req.Text,
	}
	encoded := routed.Encode()
	for _, conn := range s.registry.Snapshot(participants) {
		if conn.UID == sess.conn.UID {
			continue
		}
		if err := conn.Send(wire.MsgRteText, encoded); err != nil {
			s.log.Debugf("send_text: route to %d: %v", conn.UID, err)
		}
	}
}

// handleReqHistory answers with the rendered message history of a
// conversation the caller currently participates in, matching
// chat_handler.c's handle_req_history.
func (s *Server) handleReqHistory(sess *session, payload []byte) {
	req, err := wire.DecodeRequestHistoryPayload(payload)
	if err != nil {
		s.log.Warnf("req_history: %v", err)
		return
	}

	member, err := s.store.IsParticipant(req.ConvID, sess.conn.UID)
	if err != nil {
		s.log.Errorf("req_history: %v", err)
		return
	}
	if !member {
		s.log.Warnf("req_history: uid %d is not a participant of conv %d", sess.conn.UID, req.ConvID)
		return
	}

	history, err := s.store.GetHistory(req.ConvID)
	if err != nil {
		s.log.Errorf("req_history: %v", err)
		s.sendEmpty(sess, wire.MsgRespHistory)
		return
	}
	s.send(sess, wire.MsgRespHistory, []byte(history))
}
