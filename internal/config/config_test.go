package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileAppliesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Fatalf("expected default port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.DBPath != DefaultDBPath {
		t.Fatalf("expected default db path %q, got %q", DefaultDBPath, cfg.DBPath)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.conf")
	contents := "# server config\n" +
		"port = 9443\n" +
		"db_path = \"/var/lib/chat/chat.db\"\n" +
		"server_cert_path = /etc/chat/server.crt\n" +
		"server_key_path = /etc/chat/server.key\n" +
		"db_encryption_key = correct-horse-battery-staple\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9443 {
		t.Fatalf("expected port 9443, got %d", cfg.Port)
	}
	if cfg.DBPath != "/var/lib/chat/chat.db" {
		t.Fatalf("unexpected db path: %q", cfg.DBPath)
	}
	if cfg.ServerCertPath != "/etc/chat/server.crt" {
		t.Fatalf("unexpected cert path: %q", cfg.ServerCertPath)
	}
	if cfg.DBEncryptionKey != "correct-horse-battery-staple" {
		t.Fatalf("unexpected encryption key: %q", cfg.DBEncryptionKey)
	}
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	if err := os.WriteFile(path, []byte("this line has no equals sign\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config line")
	}
}

func TestLoadRejectsNonPositivePort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zeroport.conf")
	if err := os.WriteFile(path, []byte("port = 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for port 0")
	}
}

func TestKeyFingerprintIsStableAndOpaque(t *testing.T) {
	cfg := &Config{DBEncryptionKey: "correct-horse-battery-staple"}
	fp := cfg.KeyFingerprint()
	if fp == "" {
		t.Fatal("expected non-empty fingerprint")
	}
	if fp == cfg.DBEncryptionKey {
		t.Fatal("fingerprint must not equal the raw key")
	}
	if cfg.KeyFingerprint() != fp {
		t.Fatal("expected fingerprint to be stable across calls")
	}

	other := &Config{DBEncryptionKey: "a-different-key"}
	if other.KeyFingerprint() == fp {
		t.Fatal("expected distinct keys to yield distinct fingerprints")
	}
}
