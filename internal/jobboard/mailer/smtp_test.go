package mailer

import (
	"context"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// listen starts a local TCP listener and hands every accepted connection to serve.
func listen(t *testing.T, serve func(net.Conn)) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serve(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

type smtpRecorder struct {
	mu       sync.Mutex
	commands []string
	data     string
}

func (r *smtpRecorder) serve(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 localhost ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		r.mu.Lock()
		r.commands = append(r.commands, line)
		r.mu.Unlock()

		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO":
			_ = tp.PrintfLine("250-localhost")
			_ = tp.PrintfLine("250 8BITMIME")
		case "DATA":
			_ = tp.PrintfLine("354 go ahead")
			body, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			r.mu.Lock()
			r.data = string(body)
			r.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("250 ok")
		}
	}
}

func TestSendMail_DeliversOverSMTP(t *testing.T) {
	rec := &smtpRecorder{}
	host, port := listen(t, rec.serve)

	m, err := New(Config{Host: host, Port: port, From: "noreply@jobs.example"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Notify(ctx, notification(models.StatusAccepted)))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Contains(t, rec.commands, "MAIL FROM:<noreply@jobs.example> BODY=8BITMIME")
	assert.Contains(t, rec.commands, "RCPT TO:<erin@example.com>")
	assert.Contains(t, rec.data, "Subject: Your application for Go Engineer was accepted")
}

func TestSendMail_StalledServer(t *testing.T) {
	var held []net.Conn
	var mu sync.Mutex
	// Accepts the connection but never sends the greeting.
	host, port := listen(t, func(conn net.Conn) {
		mu.Lock()
		held = append(held, conn)
		mu.Unlock()
	})
	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range held {
			c.Close()
		}
	})

	m, err := New(Config{Host: host, Port: port, From: "noreply@jobs.example"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	t.Run("Deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := m.Notify(ctx, notification(models.StatusShortlisted))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("Cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(100*time.Millisecond, cancel)

		start := time.Now()
		err := m.Notify(ctx, notification(models.StatusShortlisted))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
