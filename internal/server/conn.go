package server

import (
	"crypto/tls"
	"io"

	"github.com/duskrelay/chatserver/internal/registry"
	"github.com/duskrelay/chatserver/internal/wire"
)

// session is the per-connection state threaded through the dispatch
// switch: which uid (if any) this connection authenticated as, and the
// registry entry once it has.
type session struct {
	tls  *tls.Conn
	conn *registry.Conn // nil until login succeeds
}

// handleConn reads packets off a single connection until it errors or the
// peer disconnects, dispatching each to the matching domain handler. This
// mirrors main.c's per-fd branch of the epoll loop, one goroutine per
// connection instead of one epoll event per readable fd.
func (s *Server) handleConn(tlsConn *tls.Conn) {
	defer tlsConn.Close()

	sess := &session{tls: tlsConn}
	defer func() {
		if sess.conn != nil {
			s.registry.Remove(sess.conn.UID, sess.conn)
			s.log.Infof("user %s disconnected", sess.conn.Username)
		}
	}()

	for {
		pkt, err := wire.ReadPacket(tlsConn)
		if err != nil {
			if err != io.EOF {
				s.log.Debugf("read error: %v", err)
			}
			return
		}
		s.dispatch(sess, pkt)
	}
}

func (s *Server) dispatch(sess *session, pkt *wire.Packet) {
	// Only MSG_REGISTER and MSG_LOGIN are valid before authentication; any
	// other packet from an unauthenticated connection is silently
	// dropped, same as the original never populating cli->uid until
	// handle_login succeeds.
	if sess.conn == nil && pkt.Type != wire.MsgRegister && pkt.Type != wire.MsgLogin {
		s.log.Warnf("packet type %v from unauthenticated connection", pkt.Type)
		return
	}

	switch pkt.Type {
	case wire.MsgRegister:
		s.handleRegister(sess, pkt.Payload)
	case wire.MsgLogin:
		s.handleLogin(sess, pkt.Payload)
	case wire.MsgUpdateUser:
		s.handleUpdateUser(sess, pkt.Payload)

	case wire.MsgReqContacts:
		s.handleReqContacts(sess)
	case wire.MsgAddByCode:
		s.handleAddByCode(sess, pkt.Payload)
	case wire.MsgGetRequests:
		s.handleGetRequests(sess)
	case wire.MsgDecideRequest:
		s.handleDecideRequest(sess, pkt.Payload)

	case wire.MsgCreateConv:
		s.handleCreateConv(sess, pkt.Payload)
	case wire.MsgReqConversations:
		s.handleReqConversations(sess)
	case wire.MsgUpdateGroup:
		s.handleUpdateGroup(sess, pkt.Payload)
	case wire.MsgAddMember:
		s.handleAddMember(sess, pkt.Payload)
	case wire.MsgReqMembers:
		s.handleReqMembers(sess, pkt.Payload)
	case wire.MsgKickMember:
		s.handleKickMember(sess, pkt.Payload)
	case wire.MsgDeleteGroup:
		s.handleDeleteGroup(sess, pkt.Payload)

	case wire.MsgSendText:
		s.handleSendText(sess, pkt.Payload)
	case wire.MsgReqHistory:
		s.handleReqHistory(sess, pkt.Payload)

	default:
		s.log.Warnf("unhandled packet type %v", pkt.Type)
	}
}

func (s *Server) sendEmpty(sess *session, typ wire.Type) {
	if err := wire.WritePacket(sess.tls, typ, nil); err != nil {
		s.log.Debugf("write error: %v", err)
	}
}

func (s *Server) send(sess *session, typ wire.Type, payload []byte) {
	if err := wire.WritePacket(sess.tls, typ, payload); err != nil {
		s.log.Debugf("write error: %v", err)
	}
}
