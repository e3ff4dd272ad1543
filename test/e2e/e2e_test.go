package e2e

import (
	"net"
	"testing"
	"time"

	"github.com/smallyu/go-ecdh/internal/chat"
	"github.com/smallyu/go-ecdh/internal/protocol/ecdh"
)

// endpoint couples a chat channel with a key-agreement session the way
// the interactive binary does.
type endpoint struct {
	channel     *chat.Channel
	session     *ecdh.Session
	established chan struct{}
	received    chan []byte
	failure     chan error
}

func newEndpoint(conn net.Conn, session *ecdh.Session) *endpoint {
	e := &endpoint{
		channel:     chat.NewChannel(conn),
		session:     session,
		established: make(chan struct{}),
		received:    make(chan []byte, 16),
		failure:     make(chan error, 1),
	}
	e.channel.OnMessage = e.onMessage
	e.channel.Start()
	return e
}

func (e *endpoint) onMessage(msg []byte) bool {
	if !e.session.Established() {
		replies, err := e.session.HandleMessage(msg)
		if err != nil {
			e.failure <- err
			return false
		}
		for _, r := range replies {
			if err := e.channel.Send(r); err != nil {
				e.failure <- err
				return false
			}
		}
		if e.session.Established() {
			close(e.established)
		}
		return true
	}

	plaintext, err := e.session.DecryptMessage(msg)
	if err != nil {
		e.failure <- err
		return false
	}
	e.received <- plaintext
	return true
}

func (e *endpoint) waitEstablished(t *testing.T) {
	t.Helper()
	select {
	case <-e.established:
	case err := <-e.failure:
		t.Fatalf("handshake failed: %v", err)
	case <-time.After(30 * time.Second):
		t.Fatal("handshake timed out")
	}
}

func (e *endpoint) sendEncrypted(t *testing.T, msg string) {
	t.Helper()
	ct, err := e.session.EncryptMessage([]byte(msg))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if err := e.channel.Send(ct); err != nil {
		t.Fatalf("send failed: %v", err)
	}
}

func (e *endpoint) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-e.received:
		if string(got) != want {
			t.Errorf("received %q, want %q", got, want)
		}
	case err := <-e.failure:
		t.Fatalf("peer failure: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestEncryptedChatOverTCP(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	serverConns := make(chan net.Conn, 1)
	go func() {
		conn, err := l.Accept()
		if err == nil {
			serverConns <- conn
		}
	}()

	clientConn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	serverConn := <-serverConns

	initiator := newEndpoint(clientConn, ecdh.NewInitiator(ecdh.Config{}))
	responder := newEndpoint(serverConn, ecdh.NewResponder(ecdh.Config{}))

	setup, err := initiator.session.Start()
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := initiator.channel.Send(setup); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	initiator.waitEstablished(t)
	responder.waitEstablished(t)

	if k1, k2 := initiator.session.SessionKey(), responder.session.SessionKey(); string(k1) != string(k2) {
		t.Fatal("session keys differ")
	}

	initiator.sendEncrypted(t, "hello from the initiator")
	responder.expect(t, "hello from the initiator")

	responder.sendEncrypted(t, "hello back")
	initiator.expect(t, "hello back")

	initiator.sendEncrypted(t, "second message, fresh keystream")
	responder.expect(t, "second message, fresh keystream")

	initiator.channel.Close()
	responder.channel.Close()
}
