package testutil

import (
	"bytes"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"

	"github.com/customeros/lexsync/config"
)

// TestIMAPServer is an in-process IMAP server on the go-imap memory backend.
// The backend has one user, "username" / "password", whose INBOX already holds one message.
type TestIMAPServer struct {
	Server  *server.Server
	Address string
	Backend *memory.Backend
}

func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	be := memory.New()
	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	go func() {
		_ = s.Serve(listener)
	}()
	time.Sleep(50 * time.Millisecond)

	t.Cleanup(func() {
		_ = s.Close()
	})

	return &TestIMAPServer{Server: s, Address: listener.Addr().String(), Backend: be}
}

// Config returns a plain text IMAP config pointing at the server.
func (s *TestIMAPServer) Config(mailbox string) *config.ImapConfig {
	host, portStr, _ := net.SplitHostPort(s.Address)
	port, _ := strconv.Atoi(portStr)
	return &config.ImapConfig{
		Host:          host,
		Port:          port,
		Encryption:    "none",
		Username:      "username",
		Password:      "password",
		Mailbox:       mailbox,
		DefaultSearch: "ALL",
		NativeAdapter: "enmime",
		Timeout:       5 * time.Second,
	}
}

func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	c, err := imapclient.Dial(s.Address)
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}
	if err := c.Login("username", "password"); err != nil {
		_ = c.Logout()
		t.Fatalf("Failed to login: %v", err)
	}
	return c, func() { _ = c.Logout() }
}

func (s *TestIMAPServer) CreateMailbox(t *testing.T, name string) {
	t.Helper()

	c, cleanup := s.Connect(t)
	defer cleanup()

	if err := c.Create(name); err != nil {
		t.Fatalf("Failed to create mailbox %s: %v", name, err)
	}
}

// Append stores raw in mailbox and returns the UID it was given.
func (s *TestIMAPServer) Append(t *testing.T, mailbox string, raw []byte, flags ...string) uint32 {
	t.Helper()

	c, cleanup := s.Connect(t)
	defer cleanup()

	if err := c.Append(mailbox, flags, time.Now(), bytes.NewReader(raw)); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}
	status, err := c.Select(mailbox, true)
	if err != nil {
		t.Fatalf("Failed to select mailbox: %v", err)
	}
	return status.UidNext - 1
}
