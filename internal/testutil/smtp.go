package testutil

import (
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

const (
	SMTPUsername = "test-user"
	SMTPPassword = "test-pass"
)

type ReceivedMail struct {
	From string
	To   []string
	Data []byte
}

// MemoryBackend keeps every accepted message in memory.
type MemoryBackend struct {
	mu       sync.Mutex
	messages []ReceivedMail
}

func (b *MemoryBackend) NewSession(*smtp.Conn) (smtp.Session, error) {
	return &memorySession{backend: b}, nil
}

func (b *MemoryBackend) Messages() []ReceivedMail {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ReceivedMail(nil), b.messages...)
}

type memorySession struct {
	backend *MemoryBackend
	from    string
	to      []string
}

func (s *memorySession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *memorySession) Auth(string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(_, username, password string) error {
		if username != SMTPUsername || password != SMTPPassword {
			return errors.New("invalid credentials")
		}
		return nil
	}), nil
}

func (s *memorySession) Mail(from string, _ *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *memorySession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.to = append(s.to, to)
	return nil
}

func (s *memorySession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.messages = append(s.backend.messages, ReceivedMail{From: s.from, To: s.to, Data: data})
	return nil
}

func (s *memorySession) Reset() {
	s.from = ""
	s.to = nil
}

func (s *memorySession) Logout() error {
	return nil
}

type TestSMTPServer struct {
	Server  *smtp.Server
	Address string
	Backend *MemoryBackend
}

// NewTestSMTPServer starts an SMTP sink that accepts SMTPUsername / SMTPPassword over PLAIN.
func NewTestSMTPServer(t *testing.T) *TestSMTPServer {
	t.Helper()

	be := &MemoryBackend{}
	s := smtp.NewServer(be)
	s.AllowInsecureAuth = true
	s.Domain = "localhost"

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

	return &TestSMTPServer{Server: s, Address: listener.Addr().String(), Backend: be}
}

func (s *TestSMTPServer) HostPort() (string, int) {
	host, portStr, _ := net.SplitHostPort(s.Address)
	port, _ := strconv.Atoi(portStr)
	return host, port
}
