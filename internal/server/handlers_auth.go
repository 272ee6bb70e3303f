package server

import (
	"github.com/duskrelay/chatserver/internal/registry"
	"github.com/duskrelay/chatserver/internal/wire"
)

// handleRegister creates a new account, grounded on auth_handler.c's
// handle_register: decode, insert, and report success or failure with no
// further state change (the client must still log in afterward).
func (s *Server) handleRegister(sess *session, payload []byte) {
	req, err := wire.DecodeRegisterPayload(payload)
	if err != nil {
		s.log.Warnf("register: %v", err)
		s.sendEmpty(sess, wire.MsgRegisterFail)
		return
	}

	if _, err := s.store.RegisterUser(req.Email, req.Username, req.Password); err != nil {
		s.log.Infof("register failed for %s: %v", req.Email, err)
		s.sendEmpty(sess, wire.MsgRegisterFail)
		return
	}
	s.sendEmpty(sess, wire.MsgRegisterSuccess)
}

// handleLogin checks credentials and, on success, registers this
// connection in the registry so it becomes reachable for fan-out,
// matching handle_login's authenticate-then-bind-fd behavior.
func (s *Server) handleLogin(sess *session, payload []byte) {
	req, err := wire.DecodeLoginPayload(payload)
	if err != nil {
		s.log.Warnf("login: %v", err)
		s.sendEmpty(sess, wire.MsgLoginFail)
		return
	}

	u, err := s.store.CheckCredentials(req.Email, req.Password)
	if err != nil {
		s.log.Errorf("login: %v", err)
		s.sendEmpty(sess, wire.MsgLoginFail)
		return
	}
	if u == nil {
		s.sendEmpty(sess, wire.MsgLoginFail)
		return
	}

	conn := &registry.Conn{TLS: sess.tls, UID: u.UID, Username: u.Username}
	sess.conn = conn
	s.registry.Add(u.UID, conn)
	s.log.Infof("user %s logged in", u.Username)

	info := &wire.MyInfoPayload{UID: u.UID, Username: u.Username, Email: u.Email, FriendCode: u.FriendCode}
	s.send(sess, wire.MsgLoginSuccess, info.Encode())
}

// handleUpdateUser changes the caller's own username and/or password,
// matching handle_update_user. Either field left empty means "unchanged".
func (s *Server) handleUpdateUser(sess *session, payload []byte) {
	req, err := wire.DecodeUpdateUserPayload(payload)
	if err != nil {
		s.log.Warnf("update_user: %v", err)
		s.sendEmpty(sess, wire.MsgUpdateFail)
		return
	}

	if err := s.store.UpdateUser(sess.conn.UID, req.NewUsername, req.NewPassword); err != nil {
		s.log.Errorf("update_user(%d): %v", sess.conn.UID, err)
		s.sendEmpty(sess, wire.MsgUpdateFail)
		return
	}
	if req.NewUsername != "" {
		sess.conn.Username = req.NewUsername
	}
	s.sendEmpty(sess, wire.MsgUpdateSuccess)
}
