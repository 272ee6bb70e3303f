// Package server implements the TLS connection dispatcher: it accepts
// connections, frames and dispatches packets to domain handlers, and
// fans out state refreshes to affected online participants.
//
// The accept-loop/per-connection-dispatch shape follows main.c's
// epoll loop in the original implementation, translated into a
// goroutine-per-connection model bounded by
// golang.org/x/net/netutil.LimitListener in place of epoll — one of the
// two "idiomatic rewrite" options spec.md documents for this subsystem.
// The Server struct itself (config + dependencies, Run/Close, a logger
// field defaulting to the package logger) follows
// vuvuzela-alpenhorn/coordinator/server.go's constructor idiom.
package server

import (
	"crypto/tls"
	"fmt"
	"net"

	"golang.org/x/net/netutil"

	"github.com/duskrelay/chatserver/errors"
	stdlog "github.com/duskrelay/chatserver/log"

	"github.com/duskrelay/chatserver/internal/config"
	"github.com/duskrelay/chatserver/internal/cryptobox"
	"github.com/duskrelay/chatserver/internal/registry"
	"github.com/duskrelay/chatserver/internal/store"
)

// MaxConns bounds concurrently accepted connections, the Go analogue of
// the original's listen(fd, 10) backlog plus its single-process epoll
// capacity.
const MaxConns = 512

type Server struct {
	cfg      *config.Config
	store    *store.Store
	registry *registry.Registry
	box      *cryptobox.Box
	tlsConf  *tls.Config
	log      *stdlog.Logger

	listener net.Listener
}

// New constructs a Server from cfg, opening the store and loading the TLS
// keypair from cfg.ServerCertPath/ServerKeyPath. Callers should call
// Close when done.
func New(cfg *config.Config) (*Server, error) {
	cert, err := tls.LoadX509KeyPair(cfg.ServerCertPath, cfg.ServerKeyPath)
	if err != nil {
		return nil, errors.Wrap(err, "server: load TLS keypair")
	}

	box := cryptobox.New(cfg.DBEncryptionKey)

	st, err := store.Open(cfg.DBPath, box)
	if err != nil {
		return nil, errors.Wrap(err, "server: open store")
	}

	return &Server{
		cfg:      cfg,
		store:    st,
		registry: registry.New(),
		box:      box,
		tlsConf:  &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12},
		log:      stdlog.StdLogger.WithFields(stdlog.Fields{"component": "server"}),
	}, nil
}

// Run backs up the database, binds the configured port, and serves
// connections until the listener is closed or the process shuts down.
func (s *Server) Run() error {
	if err := store.Backup(s.cfg.DBPath); err != nil {
		s.log.Warnf("backup failed: %v", err)
	}

	ln, err := Listen(s, addrForPort(s.cfg.Port))
	if err != nil {
		return err
	}
	s.log.Infof("listening on %s (key fingerprint %s)", ln.Addr(), s.cfg.KeyFingerprint())
	return Serve(s, ln)
}

// Listen binds addr under TLS and wraps it with the connection-count
// limiter, without starting to accept. Split out from Run so tests can
// bind an ephemeral port ("127.0.0.1:0") and learn its real address
// before serving.
func Listen(s *Server, addr string) (net.Listener, error) {
	raw, err := tls.Listen("tcp", addr, s.tlsConf)
	if err != nil {
		return nil, errors.Wrap(err, "server: listen on %s", addr)
	}
	s.listener = netutil.LimitListener(raw, MaxConns)
	return s.listener, nil
}

// Serve accepts connections from ln until it is closed, dispatching each
// to its own goroutine. Returns the Accept error that ended the loop,
// which is the expected, non-error-worthy outcome when Close stops ln.
func Serve(s *Server, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return errors.Wrap(err, "server: accept")
		}
		tlsConn, ok := conn.(*tls.Conn)
		if !ok {
			conn.Close()
			continue
		}
		go s.handleConn(tlsConn)
	}
}

func (s *Server) Close() error {
	if s.listener != nil {
		s.listener.Close()
	}
	return s.store.Close()
}

func addrForPort(port int) string {
	return fmt.Sprintf(":%d", port)
}
