package tcp

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/netchat/netchat-server/internal/auth"
	"github.com/netchat/netchat-server/internal/core"
	"github.com/netchat/netchat-server/internal/store/credfile"
)

type acceptAllGate struct{}

func (acceptAllGate) AuthenticateOrRegister(_ context.Context, username, _ string) (string, error) {
	return username, nil
}

type testServer struct {
	srv    *Server
	reg    *core.Registry
	router *core.Router
}

func startTestServer(t *testing.T, capacity int) *testServer {
	t.Helper()
	return startTestServerWithGate(t, capacity, acceptAllGate{})
}

func startTestServerWithGate(t *testing.T, capacity int, gate core.Authenticator) *testServer {
	t.Helper()

	nop := zerolog.Nop()
	reg := core.NewRegistry(capacity)
	router := core.NewRouter(reg)
	dispatcher := core.NewDispatcher(reg, router, &nop)
	worker := core.NewWorker(reg, router, dispatcher, gate, &nop)

	srv := NewServer("127.0.0.1:0", reg, worker, &nop)
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		for _, v := range reg.Snapshot() {
			v.Close()
		}
		srv.Shutdown()
	})

	return &testServer{srv: srv, reg: reg, router: router}
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dialClient(t *testing.T, addr net.Addr) *testClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *testClient) send(line string) {
	c.t.Helper()
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		c.t.Fatalf("send %q: %v", line, err)
	}
}

func (c *testClient) login(username string) {
	c.t.Helper()
	c.send(username)
	c.send("secret")
	c.expect("Welcome, " + username + "!")
}

// expect reads lines until one contains want.
func (c *testClient) expect(want string) string {
	c.t.Helper()

	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			c.t.Fatalf("waiting for %q: %v", want, err)
		}
		if strings.Contains(line, want) {
			return strings.TrimRight(line, "\r\n")
		}
	}
}

// expectSilence fails if a line containing want arrives shortly.
func (c *testClient) expectSilence(want string) {
	c.t.Helper()

	_ = c.conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				_ = c.conn.SetReadDeadline(time.Time{})
				return
			}
			c.t.Fatalf("read: %v", err)
		}
		if strings.Contains(line, want) {
			c.t.Fatalf("unexpected line containing %q: %q", want, line)
		}
	}
}

func TestEndToEndRoomChat(t *testing.T) {
	ts := startTestServer(t, 4)

	alice := dialClient(t, ts.srv.Addr())
	alice.login("alice")
	bob := dialClient(t, ts.srv.Addr())
	bob.login("bob")

	// Both default to general; bob's arrival is visible to alice.
	alice.expect("bob joined the room")

	alice.send("hello")
	line := bob.expect("hello")
	if !strings.Contains(line, "[general] alice: hello") {
		t.Fatalf("unexpected chat line: %q", line)
	}
	alice.expectSilence("alice: hello")
}

func TestRoomIsolationAcrossJoin(t *testing.T) {
	ts := startTestServer(t, 4)

	alice := dialClient(t, ts.srv.Addr())
	alice.login("alice")
	bob := dialClient(t, ts.srv.Addr())
	bob.login("bob")

	bob.send("/join dev")
	bob.expect("You joined room 'dev'.")

	alice.send("hello general")
	bob.expectSilence("hello general")

	bob.send("/users")
	users := bob.expect("Users in 'dev'")
	if !strings.Contains(users, "bob") || strings.Contains(users, "alice") {
		t.Fatalf("unexpected users line: %q", users)
	}
}

func TestPaddedLoginResolvesToCanonicalName(t *testing.T) {
	st, err := credfile.New(filepath.Join(t.TempDir(), "users.txt"))
	if err != nil {
		t.Fatalf("open credential store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	gate := auth.NewGate(st, &auth.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})
	ts := startTestServerWithGate(t, 4, gate)

	alice := dialClient(t, ts.srv.Addr())
	alice.send("  alice  ")
	alice.send("secret")
	alice.expect("Welcome, alice!")

	bob := dialClient(t, ts.srv.Addr())
	bob.login("bob")

	// The padded login is reachable under its canonical name.
	bob.send("/pm alice hi there")
	bob.expect("[PM to alice]: hi there")
	alice.expect("[PM from bob]: hi there")
}

func TestServerFullRejection(t *testing.T) {
	ts := startTestServer(t, 1)

	first := dialClient(t, ts.srv.Addr())
	first.login("alice")

	second := dialClient(t, ts.srv.Addr())
	second.expect("Server is full")

	if ts.reg.Len() != 1 {
		t.Fatalf("registry holds %d sessions, want 1", ts.reg.Len())
	}
}

func TestShutdownNoticeReachesAllSessions(t *testing.T) {
	ts := startTestServer(t, 4)

	alice := dialClient(t, ts.srv.Addr())
	alice.login("alice")
	bob := dialClient(t, ts.srv.Addr())
	bob.login("bob")

	ts.router.BroadcastAll(core.ShutdownNotice)
	for _, v := range ts.reg.Snapshot() {
		v.Close()
	}

	alice.expect("shutting down")
	bob.expect("shutting down")
}
