// Package sshdecoy is a counterfeit SSH endpoint. It negotiates a real
// SSH handshake with a rotating OpenSSH banner, rejects every
// authentication attempt, and reports the captured credentials to the
// analyzer.
package sshdecoy

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"aegismesh/pkg/meshclient"
	"aegismesh/pkg/telemetry"
)

// bannerVariants mimic common OpenSSH deployments; the variant is
// stable per client IP so repeated probes see a consistent host.
var bannerVariants = []string{
	"SSH-2.0-OpenSSH_7.4p1 Debian-10+deb9u7",
	"SSH-2.0-OpenSSH_8.2p1 Ubuntu-4ubuntu0.3",
	"SSH-2.0-OpenSSH_9.3",
}

// Server is the SSH decoy.
type Server struct {
	Addr     string
	reporter *meshclient.Client
	log      *zap.Logger
	hostKey  ssh.Signer
}

// New builds the decoy with a fresh ephemeral host key.
func New(addr string, reporter *meshclient.Client, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sshdecoy: generate host key: %w", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, fmt.Errorf("sshdecoy: host key signer: %w", err)
	}
	return &Server{Addr: addr, reporter: reporter, log: logger, hostKey: signer}, nil
}

// Run accepts connections until the context ends.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("sshdecoy: listen %s: %w", s.Addr, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Info("ssh decoy listening", zap.String("addr", s.Addr))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("sshdecoy: accept: %w", err)
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	sessionID := uuid.NewString()
	sourceIP := remoteIP(conn)
	attempts := 0

	cfg := &ssh.ServerConfig{
		ServerVersion: bannerFor(sourceIP),
		PasswordCallback: func(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			attempts++
			s.report(sourceIP, fmt.Sprintf("user=%s password=%s client=%s", meta.User(), password, meta.ClientVersion()), sessionID)
			return nil, errors.New("permission denied")
		},
	}
	cfg.AddHostKey(s.hostKey)

	// Auth always fails, so NewServerConn returns an error for every
	// visitor; the credential capture happened in the callback.
	_, _, _, err := ssh.NewServerConn(conn, cfg)
	if err != nil && attempts == 0 {
		// Scanner closed before authenticating: record the probe itself.
		s.report(sourceIP, "banner_probe", sessionID)
	}
}

func (s *Server) report(sourceIP, payload, sessionID string) {
	ev := telemetry.Event{
		ID:       sessionID,
		SourceIP: sourceIP,
		Service:  "ssh",
		Payload:  payload,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := s.reporter.PostEvent(ctx, ev); err != nil {
		s.log.Warn("event report failed", zap.String("source_ip", sourceIP), zap.Error(err))
	}
}

func bannerFor(sourceIP string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sourceIP))
	return bannerVariants[int(h.Sum32())%len(bannerVariants)]
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
