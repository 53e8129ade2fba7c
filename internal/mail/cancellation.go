package mail

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"golang.org/x/text/language"

	"github.com/tbourn/go-booking-backend/internal/clock"
	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/queue"
)

// KindCancellation is the job kind for cancellation notices.
const KindCancellation = "CancellationMail"

// Participant is the slice of a user profile a cancellation mail needs.
type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// CancellationPayload is the job payload: the canceled appointment with the
// provider's contact and the client's name already resolved.
type CancellationPayload struct {
	AppointmentID string      `json:"appointment_id"`
	Date          time.Time   `json:"date"`
	CanceledAt    time.Time   `json:"canceled_at"`
	Provider      Participant `json:"provider"`
	Client        Participant `json:"client"`
}

// NewCancellationPayload builds the payload from an appointment whose Client
// and Provider are loaded.
func NewCancellationPayload(a *domain.Appointment) (CancellationPayload, error) {
	if a.CanceledAt == nil {
		return CancellationPayload{}, fmt.Errorf("mail: appointment %s is not canceled", a.ID)
	}
	if a.Provider == nil || a.Client == nil {
		return CancellationPayload{}, fmt.Errorf("mail: appointment %s participants not loaded", a.ID)
	}
	return CancellationPayload{
		AppointmentID: a.ID,
		Date:          a.Date.UTC(),
		CanceledAt:    a.CanceledAt.UTC(),
		Provider:      Participant{Name: a.Provider.Name, Email: a.Provider.Email},
		Client:        Participant{Name: a.Client.Name},
	}, nil
}

var cancellationTemplates = map[language.Tag]*template.Template{
	language.English: template.Must(template.New("en").Parse(
		`Hello {{.Provider}},

Your appointment with {{.Client}} on {{.When}} has been canceled.
`)),
	language.BrazilianPortuguese: template.Must(template.New("pt-BR").Parse(
		`Olá {{.Provider}},

O agendamento com {{.Client}} no {{.When}} foi cancelado.
`)),
}

var cancellationSubjects = map[language.Tag]string{
	language.English:             "Appointment canceled",
	language.BrazilianPortuguese: "Agendamento cancelado",
}

// CancellationHandler sends the provider a notice for a canceled appointment.
type CancellationHandler struct {
	Sender   Sender
	Location *time.Location
	Locale   language.Tag
}

var _ queue.Handler = (*CancellationHandler)(nil)

// Handle decodes a CancellationPayload job and sends the notice.
func (h *CancellationHandler) Handle(ctx context.Context, job *domain.Job) error {
	var p CancellationPayload
	if err := queue.Decode(job, &p); err != nil {
		return err
	}
	m, err := h.Render(p)
	if err != nil {
		return err
	}
	return h.Sender.Send(ctx, m)
}

// Render builds the message for p without sending it.
func (h *CancellationHandler) Render(p CancellationPayload) (Message, error) {
	if p.Provider.Email == "" {
		return Message{}, fmt.Errorf("mail: appointment %s has no provider email", p.AppointmentID)
	}
	tag := clock.MatchLocale(h.Locale)
	var buf bytes.Buffer
	err := cancellationTemplates[tag].Execute(&buf, map[string]string{
		"Provider": p.Provider.Name,
		"Client":   p.Client.Name,
		"When":     clock.FormatBookingDate(p.Date, h.Location, tag),
	})
	if err != nil {
		return Message{}, fmt.Errorf("mail: render cancellation: %w", err)
	}
	return Message{
		To:      p.Provider.Email,
		ToName:  p.Provider.Name,
		Subject: cancellationSubjects[tag],
		Body:    buf.String(),
	}, nil
}
