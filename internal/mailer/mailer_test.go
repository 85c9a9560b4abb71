package mailer

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"submissionportal/internal/notify"
)

type captured struct {
	msg *gomail.Msg
}

func newTestSender(cfg SMTPConfig, err error) (*SMTPSender, *captured) {
	c := &captured{}
	s := NewSMTPSender(cfg)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	s.send = func(_ context.Context, m *gomail.Msg) error {
		c.msg = m
		return err
	}
	return s, c
}

func TestSMTPSender_Send(t *testing.T) {
	s, c := newTestSender(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "portal@example.com"}, nil)

	err := s.Send(context.Background(), Message{
		To:      []string{"ana@example.com", "ops@example.com"},
		Subject: "Hello\r\nBcc: victim@example.com",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)
	require.NotNil(t, c.msg)

	recipients, err := c.msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"ana@example.com", "ops@example.com"}, recipients)

	sender, err := c.msg.GetSender(false)
	require.NoError(t, err)
	assert.Equal(t, "portal@example.com", sender)

	var raw bytes.Buffer
	_, err = c.msg.WriteTo(&raw)
	require.NoError(t, err)
	assert.NotContains(t, raw.String(), "\r\nBcc:")
	assert.Contains(t, raw.String(), "<p>hi</p>")
}

func TestSMTPSender_AuthOnlyWithUsername(t *testing.T) {
	anonymous := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1025, From: "portal@example.com"})
	authenticated := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1025, Username: "u", Password: "p", From: "portal@example.com"})

	assert.Greater(t, len(authenticated.options()), len(anonymous.options()))
	assert.Equal(t, DefaultTimeout, anonymous.cfg.Timeout)
}

func TestSMTPSender_Errors(t *testing.T) {
	sendErr := errors.New("connection refused")
	s, _ := newTestSender(SMTPConfig{Host: "localhost", Port: 25, From: "portal@example.com"}, sendErr)

	assert.ErrorIs(t, s.Send(context.Background(), Message{To: []string{"a@example.com"}}), sendErr)
	assert.Error(t, s.Send(context.Background(), Message{}))
	assert.Error(t, s.Send(context.Background(), Message{To: []string{"not an address"}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: []string{"a@example.com"}}), context.Canceled)
}

func TestSMTPSender_SilentServerHonoursDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan net.Conn, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()
	t.Cleanup(func() {
		for {
			select {
			case conn := <-accepted:
				_ = conn.Close()
			default:
				return
			}
		}
	})

	port := ln.Addr().(*net.TCPAddr).Port
	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: port, From: "portal@example.com", Timeout: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.Send(ctx, Message{To: []string{"a@example.com"}, Subject: "x", HTML: "x"})
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("send still blocked after its context deadline")
	}
}

func TestCompose(t *testing.T) {
	t.Run("Welcome", func(t *testing.T) {
		msg, err := Compose(&notify.Event{
			Type:         notify.EventAccountRegistered,
			StudentName:  "Ana",
			StudentEmail: "ana@example.com",
		}, "ops@example.com")
		require.NoError(t, err)
		assert.Equal(t, []string{"ana@example.com"}, msg.To)
		assert.Contains(t, msg.HTML, "Welcome, Ana")
	})

	t.Run("SubmissionGoesToOperator", func(t *testing.T) {
		msg, err := Compose(&notify.Event{
			Type:           notify.EventSubmissionCreated,
			StudentName:    "<script>alert(1)</script>",
			StudentEmail:   "ana@example.com",
			SubmissionName: "Homework 1",
			FileId:         "0195f1d4.pdf",
			FileURL:        "http://files/0195f1d4.pdf",
		}, "ops@example.com")
		require.NoError(t, err)
		assert.Equal(t, []string{"ana@example.com", "ops@example.com"}, msg.To)
		assert.Contains(t, msg.HTML, "Homework 1")
		assert.NotContains(t, msg.HTML, "<script>")
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := Compose(&notify.Event{Type: "other", StudentEmail: "a@example.com"}, "")
		assert.Error(t, err)
	})

	t.Run("NoRecipient", func(t *testing.T) {
		_, err := Compose(&notify.Event{Type: notify.EventAccountRegistered}, "")
		assert.Error(t, err)
	})
}
