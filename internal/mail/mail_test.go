package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"gopkg.in/gomail.v2"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

type recordingSender struct {
	msgs []Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, m Message) error {
	s.msgs = append(s.msgs, m)
	return s.err
}

func TestSMTPSender_BuildsMessage(t *testing.T) {
	d := &fakeDialer{}
	s := NewSMTPSender("smtp.example.com", 587, "user", "pass", "noreply@example.com")
	s.dialer = d

	err := s.Send(context.Background(), Message{To: "p@example.com", ToName: "Pat", Subject: "Hi", Body: "hello"})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"noreply@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"Hi"}, m.GetHeader("Subject"))
	require.Len(t, m.GetHeader("To"), 1)
	assert.Contains(t, m.GetHeader("To")[0], "p@example.com")
}

func TestSMTPSender_Errors(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	s := NewSMTPSender("smtp.example.com", 587, "", "", "noreply@example.com")
	s.dialer = d

	err := s.Send(context.Background(), Message{To: "p@example.com"})
	assert.ErrorContains(t, err, "connection refused")

	assert.Error(t, s.Send(context.Background(), Message{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "p@example.com"}), context.Canceled)
	assert.Len(t, d.sent, 1, "canceled context must not dial")
}

func TestLogSender_Logs(t *testing.T) {
	var buf bytes.Buffer
	lg := zerolog.New(&buf)
	require.NoError(t, LogSender{Logger: &lg}.Send(context.Background(), Message{To: "p@example.com", Subject: "S"}))
	assert.Contains(t, buf.String(), `"to":"p@example.com"`)
	assert.Contains(t, buf.String(), `"subject":"S"`)
}

func TestBreakerSender_TripsAfterConsecutiveFailures(t *testing.T) {
	next := &recordingSender{err: errors.New("relay down")}
	s := NewBreakerSender(next, BreakerSettings{MaxFailures: 2, OpenTimeout: time.Hour})

	for i := 0; i < 2; i++ {
		assert.EqualError(t, s.Send(context.Background(), Message{To: "x"}), "relay down")
	}
	assert.Equal(t, gobreaker.StateOpen, s.State())

	assert.ErrorIs(t, s.Send(context.Background(), Message{To: "x"}), ErrRelayUnavailable)
	assert.Len(t, next.msgs, 2, "open breaker must not reach the relay")
}

func TestBreakerSender_PassesThroughOnSuccess(t *testing.T) {
	next := &recordingSender{}
	s := NewBreakerSender(next, BreakerSettings{})
	require.NoError(t, s.Send(context.Background(), Message{To: "x"}))
	assert.Equal(t, gobreaker.StateClosed, s.State())
	assert.Len(t, next.msgs, 1)
}

func canceledAppointment() *domain.Appointment {
	at := time.Date(2030, 3, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Appointment{
		ID:         "a1",
		ClientID:   "c1",
		ProviderID: "p1",
		Date:       time.Date(2030, 3, 5, 8, 0, 0, 0, time.UTC),
		CanceledAt: &at,
		Client:     &domain.User{ID: "c1", Name: "Carla", Email: "c@example.com"},
		Provider:   &domain.User{ID: "p1", Name: "Paulo", Email: "p@example.com", Provider: true},
	}
}

func TestNewCancellationPayload(t *testing.T) {
	p, err := NewCancellationPayload(canceledAppointment())
	require.NoError(t, err)
	assert.Equal(t, "a1", p.AppointmentID)
	assert.Equal(t, Participant{Name: "Paulo", Email: "p@example.com"}, p.Provider)
	assert.Equal(t, Participant{Name: "Carla"}, p.Client, "client email is not carried")

	active := canceledAppointment()
	active.CanceledAt = nil
	_, err = NewCancellationPayload(active)
	assert.Error(t, err)

	bare := canceledAppointment()
	bare.Provider = nil
	_, err = NewCancellationPayload(bare)
	assert.Error(t, err)
}

func TestCancellationHandler_RendersPerLocale(t *testing.T) {
	p, _ := NewCancellationPayload(canceledAppointment())

	en := &CancellationHandler{Locale: language.English}
	m, err := en.Render(p)
	require.NoError(t, err)
	assert.Equal(t, "p@example.com", m.To)
	assert.Equal(t, "Appointment canceled", m.Subject)
	assert.Contains(t, m.Body, "Carla")
	assert.Contains(t, m.Body, "March 5 at 8:00")

	pt := &CancellationHandler{Locale: language.MustParse("pt")}
	m, err = pt.Render(p)
	require.NoError(t, err)
	assert.Equal(t, "Agendamento cancelado", m.Subject)
	assert.Contains(t, m.Body, "dia 05 de março, às 8:00h")

	p.Provider.Email = ""
	_, err = en.Render(p)
	assert.Error(t, err)
}

func TestCancellationHandler_Handle(t *testing.T) {
	p, _ := NewCancellationPayload(canceledAppointment())
	raw, _ := json.Marshal(p)
	job := &domain.Job{ID: "j1", Kind: KindCancellation, Payload: string(raw)}

	sender := &recordingSender{}
	h := &CancellationHandler{Sender: sender}
	require.NoError(t, h.Handle(context.Background(), job))
	require.Len(t, sender.msgs, 1)
	assert.Equal(t, "Paulo", sender.msgs[0].ToName)

	sender.err = errors.New("relay down")
	assert.Error(t, h.Handle(context.Background(), job))

	assert.Error(t, h.Handle(context.Background(), &domain.Job{Kind: KindCancellation, Payload: "nope"}))
}
