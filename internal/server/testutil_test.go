package server_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/duskrelay/chatserver/internal/config"
	"github.com/duskrelay/chatserver/internal/server"
)

// writeSelfSignedCert generates an ECDSA self-signed certificate valid for
// "127.0.0.1" and writes it and its key as PEM files under dir, returning
// their paths. Tests use this instead of shipping fixture certs so the
// loopback server always trusts exactly the key pair it was handed.
func writeSelfSignedCert(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		IsCA:         true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	certPath = filepath.Join(dir, "server.crt")
	keyPath = filepath.Join(dir, "server.key")

	certOut, err := os.Create(certPath)
	if err != nil {
		t.Fatalf("create cert file: %v", err)
	}
	defer certOut.Close()
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: der}); err != nil {
		t.Fatalf("encode cert: %v", err)
	}

	keyBytes, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	keyOut, err := os.Create(keyPath)
	if err != nil {
		t.Fatalf("create key file: %v", err)
	}
	defer keyOut.Close()
	if err := pem.Encode(keyOut, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes}); err != nil {
		t.Fatalf("encode key: %v", err)
	}

	return certPath, keyPath
}

// startTestServer boots a Server against a fresh in-memory-ish SQLite file
// under t.TempDir and a freshly generated self-signed cert, returning its
// listen address and a client TLS config that trusts it.
func startTestServer(t *testing.T) (addr string, clientTLS *tls.Config, shutdown func()) {
	t.Helper()

	dir := t.TempDir()
	certPath, keyPath := writeSelfSignedCert(t, dir)

	cfg := &config.Config{
		Port:            0,
		DBPath:          filepath.Join(dir, "chat.db"),
		ServerCertPath:  certPath,
		ServerKeyPath:   keyPath,
		DBEncryptionKey: "test-encryption-passphrase",
	}

	srv, err := server.New(cfg)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}

	ln, err := server.Listen(srv, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("server.Listen: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.Serve(srv, ln)
	}()

	certDER, err := os.ReadFile(certPath)
	if err != nil {
		t.Fatalf("read cert: %v", err)
	}
	pool := x509.NewCertPool()
	block, _ := pem.Decode(certDER)
	leaf, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parse cert: %v", err)
	}
	pool.AddCert(leaf)

	return ln.Addr().String(), &tls.Config{RootCAs: pool, ServerName: "127.0.0.1"}, func() {
		srv.Close()
		<-done
	}
}
