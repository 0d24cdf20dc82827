package mail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
)

// smtpServer accepts every recipient except those containing "reject".
type smtpServer struct {
	mu       sync.Mutex
	accepted []string
}

func (s *smtpServer) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) { fmt.Fprintf(conn, "%s\r\n", line) }
	reply("220 localhost ESMTP")

	var rcpt string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			reply("250-localhost")
			reply("250 8BITMIME")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			rcpt = strings.ToLower(strings.TrimSpace(line[len("RCPT TO:"):]))
			if strings.Contains(rcpt, "reject") {
				reply("550 no such user")
				continue
			}
			reply("250 ok")
		case cmd == "DATA":
			reply("354 go ahead")
			for {
				body, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if strings.TrimRight(body, "\r\n") == "." {
					break
				}
			}
			s.mu.Lock()
			s.accepted = append(s.accepted, rcpt)
			s.mu.Unlock()
			reply("250 queued")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 ok")
		}
	}
}

func (s *smtpServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accepted)
}

func newSMTPSender(t *testing.T, srv *smtpServer) *Sender {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.serve(conn)
		}
	}()
	addr := ln.Addr().(*net.TCPAddr)
	return New(Config{Enable: true, Host: "127.0.0.1", Port: addr.Port, From: "club@nn1.dev"})
}

func smtpBatch(to ...string) []Message {
	msgs := make([]Message, 0, len(to))
	for _, addr := range to {
		msgs = append(msgs, Message{To: []string{addr}, Subject: "Hi", Text: "hello"})
	}
	return msgs
}

func TestSMTPBatch(t *testing.T) {
	srv := &smtpServer{}
	s := newSMTPSender(t, srv)
	if got := s.Transport(); got != "smtp" {
		t.Fatalf("Transport = %q", got)
	}
	if err := s.SendBatch(context.Background(), smtpBatch("a@x.com", "b@x.com", "c@x.com")); err != nil {
		t.Fatalf("SendBatch: %v", err)
	}
	if n := srv.count(); n != 3 {
		t.Errorf("server accepted %d, want 3", n)
	}
}

func TestSMTPBatchReportsAcceptedPrefix(t *testing.T) {
	srv := &smtpServer{}
	s := newSMTPSender(t, srv)

	err := s.SendBatch(context.Background(), smtpBatch("a@x.com", "b@x.com", "reject@x.com", "d@x.com"))
	if err == nil {
		t.Fatal("SendBatch succeeded, want error")
	}
	if got := AcceptedBefore(err); got != 2 {
		t.Errorf("AcceptedBefore = %d, want 2 (err %v)", got, err)
	}
	if n := srv.count(); n != 2 {
		t.Errorf("server accepted %d, want 2", n)
	}
}

func TestSMTPFirstMessageFailureHasNoPrefix(t *testing.T) {
	s := newSMTPSender(t, &smtpServer{})
	err := s.SendBatch(context.Background(), smtpBatch("reject@x.com", "b@x.com"))
	if err == nil {
		t.Fatal("SendBatch succeeded, want error")
	}
	var pe *PartialBatchError
	if errors.As(err, &pe) {
		t.Errorf("got PartialBatchError %v, want plain error", pe)
	}
	if AcceptedBefore(err) != 0 {
		t.Errorf("AcceptedBefore = %d, want 0", AcceptedBefore(err))
	}
}
