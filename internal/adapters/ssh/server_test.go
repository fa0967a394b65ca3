package ssh

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"gotest.tools/v3/assert"
)

// testServer is an SSH server that runs exec requests with the local shell.
type testServer struct {
	addr       string
	keyPath    string
	knownHosts string

	mu       sync.Mutex
	commands []string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	assert.NilError(t, err)
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	assert.NilError(t, err)

	clientPub, clientPriv, err := ed25519.GenerateKey(rand.Reader)
	assert.NilError(t, err)
	block, err := ssh.MarshalPrivateKey(clientPriv, "test")
	assert.NilError(t, err)
	keyPath := filepath.Join(dir, "id_ed25519")
	assert.NilError(t, os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600))
	authorized, err := ssh.NewPublicKey(clientPub)
	assert.NilError(t, err)

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, os.ErrPermission
		},
	}
	config.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	t.Cleanup(func() { listener.Close() })

	s := &testServer{addr: listener.Addr().String(), keyPath: keyPath}
	s.knownHosts = filepath.Join(dir, "known_hosts")
	line := knownhosts.Line([]string{s.addr}, hostSigner.PublicKey())
	assert.NilError(t, os.WriteFile(s.knownHosts, []byte(line+"\n"), 0o600))

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go s.serve(conn, config)
		}
	}()
	return s
}

func (s *testServer) config() Config {
	return Config{User: "me", Host: s.addr, KeyPath: s.keyPath, KnownHosts: s.knownHosts}
}

func (s *testServer) executed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *testServer) serve(conn net.Conn, config *ssh.ServerConfig) {
	_, channels, requests, err := ssh.NewServerConn(conn, config)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(requests)
	for ch := range channels {
		if ch.ChannelType() != "session" {
			_ = ch.Reject(ssh.UnknownChannelType, "session only")
			continue
		}
		channel, reqs, err := ch.Accept()
		if err != nil {
			continue
		}
		go s.session(channel, reqs)
	}
}

func (s *testServer) session(channel ssh.Channel, reqs <-chan *ssh.Request) {
	var cmd *exec.Cmd
	for req := range reqs {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil || cmd != nil {
				_ = req.Reply(false, nil)
				continue
			}
			s.mu.Lock()
			s.commands = append(s.commands, payload.Command)
			s.mu.Unlock()

			cmd = exec.Command("sh", "-c", payload.Command)
			cmd.Stdout = channel
			cmd.Stderr = channel.Stderr()
			cmd.WaitDelay = 100 * time.Millisecond
			if err := cmd.Start(); err != nil {
				_ = req.Reply(false, nil)
				channel.Close()
				return
			}
			_ = req.Reply(true, nil)
			go func(cmd *exec.Cmd) {
				_ = cmd.Wait()
				status := struct{ Status uint32 }{uint32(cmd.ProcessState.ExitCode())}
				_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(&status))
				channel.Close()
			}(cmd)
		case "signal":
			if cmd != nil && cmd.Process != nil {
				_ = cmd.Process.Signal(syscall.SIGKILL)
			}
			if req.WantReply {
				_ = req.Reply(true, nil)
			}
		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}
