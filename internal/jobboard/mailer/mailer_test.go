package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type sentMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func newTestMailer(t *testing.T, cfg Config) (*Mailer, *[]sentMail) {
	t.Helper()
	m, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	var sent []sentMail
	m.send = func(_ context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, auth: a, from: from, to: to, msg: string(msg)})
		return nil
	}
	m.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	return m, &sent
}

func notification(status models.Status) *models.StatusNotification {
	return &models.StatusNotification{
		ApplicationID: uuid.New(),
		Status:        status,
		JobTitle:      "Go Engineer",
		EmployerName:  "Acme HR",
		EmployeeEmail: "erin@example.com",
		EmployeeName:  "Erin",
	}
}

func TestMailer_Deliver(t *testing.T) {
	tests := []struct {
		status      models.Status
		wantSubject string
		wantBody    string
	}{
		{models.StatusShortlisted, "Subject: You have been shortlisted for Go Engineer", "Acme HR shortlisted your application"},
		{models.StatusAccepted, "Subject: Your application for Go Engineer was accepted", "Congratulations!"},
		{models.StatusRejected, "Subject: Update on your application for Go Engineer", "decided not to move"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			m, sent := newTestMailer(t, Config{Host: "smtp.example.com", From: "noreply@jobs.example"})

			err := m.Deliver(context.Background(), notification(tt.status))
			require.NoError(t, err)
			require.Len(t, *sent, 1)

			mail := (*sent)[0]
			assert.Equal(t, "smtp.example.com:587", mail.addr)
			assert.Nil(t, mail.auth)
			assert.Equal(t, "noreply@jobs.example", mail.from)
			assert.Equal(t, []string{"erin@example.com"}, mail.to)
			assert.Contains(t, mail.msg, tt.wantSubject+"\r\n")
			assert.Contains(t, mail.msg, "To: erin@example.com\r\n")
			assert.Contains(t, mail.msg, "Hi Erin,")
			assert.Contains(t, mail.msg, tt.wantBody)
		})
	}
}

func TestMailer_DeliverErrors(t *testing.T) {
	m, sent := newTestMailer(t, Config{Host: "smtp.example.com", Port: 2525, Username: "u", Password: "p", From: "noreply@jobs.example"})

	err := m.Deliver(context.Background(), notification(models.StatusViewed))
	assert.ErrorIs(t, err, e.ErrInvalidInput, "viewed has no template")

	missing := notification(models.StatusAccepted)
	missing.EmployeeEmail = ""
	assert.ErrorIs(t, m.Deliver(context.Background(), missing), e.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Deliver(ctx, notification(models.StatusAccepted)), context.Canceled)
	assert.Empty(t, *sent)

	m.send = func(context.Context, string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	err = m.Notify(context.Background(), notification(models.StatusAccepted))
	assert.ErrorContains(t, err, "connection refused")
}

func TestMailer_UsesAuthWhenConfigured(t *testing.T) {
	m, sent := newTestMailer(t, Config{Host: "smtp.example.com", Port: 2525, Username: "u", Password: "p", From: "noreply@jobs.example"})
	require.NoError(t, m.Notify(context.Background(), notification(models.StatusShortlisted)))
	require.Len(t, *sent, 1)
	assert.Equal(t, "smtp.example.com:2525", (*sent)[0].addr)
	assert.NotNil(t, (*sent)[0].auth)
}

func TestMailer_HeaderInjection(t *testing.T) {
	m, sent := newTestMailer(t, Config{Host: "smtp.example.com", From: "noreply@jobs.example"})
	n := notification(models.StatusShortlisted)
	n.JobTitle = "Engineer\r\nBcc: victim@example.com"

	require.NoError(t, m.Deliver(context.Background(), n))
	headers := strings.SplitN((*sent)[0].msg, "\r\n\r\n", 2)[0]
	assert.NotContains(t, headers, "\r\nBcc:")
}

func TestNew(t *testing.T) {
	_, err := New(Config{From: "a@b"}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	dir := t.TempDir()
	incomplete := filepath.Join(dir, "incomplete.yaml")
	require.NoError(t, os.WriteFile(incomplete, []byte("accepted:\n  subject: hi\n  body: there\n"), 0o600))
	_, err = New(Config{Host: "h", From: "a@b", TemplatesPath: incomplete}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	bogus := filepath.Join(dir, "bogus.yaml")
	require.NoError(t, os.WriteFile(bogus, []byte("viewed:\n  subject: hi\n  body: there\n"), 0o600))
	_, err = New(Config{Host: "h", From: "a@b", TemplatesPath: bogus}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	_, err = New(Config{Host: "h", From: "a@b", TemplatesPath: filepath.Join(dir, "absent.yaml")}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
