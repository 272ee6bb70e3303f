// Command chat-server runs the messaging server: it loads configuration,
// opens the encrypted SQLite store, and serves TLS connections until
// interrupted.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	stdlog "github.com/duskrelay/chatserver/log"

	"github.com/duskrelay/chatserver/internal/config"
	"github.com/duskrelay/chatserver/internal/server"
)

func main() {
	configPath := flag.String("config", "chat-server.conf", "path to the server configuration file")
	flag.Parse()

	log := stdlog.StdLogger.WithFields(stdlog.Fields{"component": "main"})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Errorf("load config: %v", err)
		os.Exit(1)
	}
	log.Infof("configuration loaded: %s", cfg.Fingerprint())

	srv, err := server.New(cfg)
	if err != nil {
		log.Errorf("initialize server: %v", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Infof("shutting down")
		srv.Close()
	}()

	if err := srv.Run(); err != nil {
		log.Infof("server stopped: %v", err)
	}
}
