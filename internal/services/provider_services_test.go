package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-booking-backend/internal/clock"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

func TestScheduleService_Day(t *testing.T) {
	appts, db := newApptSvc(t)
	ctx := context.Background()
	day := time.Date(2030, 5, 12, 0, 0, 0, 0, time.UTC)

	for _, h := range []int{0, 9, 23, 24, -1} {
		if _, err := appts.Create(ctx, "c1", "p1", day.Add(time.Duration(h)*time.Hour).Format(time.RFC3339)); err != nil {
			t.Fatalf("seed %d: %v", h, err)
		}
	}
	gone, _ := appts.Create(ctx, "c2", "p1", day.Add(12*time.Hour).Format(time.RFC3339))
	if _, err := appts.Cancel(ctx, "c2", gone.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	s := &ScheduleService{DB: db, Users: DBDirectory{DB: db}, Clock: clock.Fixed{T: day.Add(14 * time.Hour)}, Location: time.UTC}

	got, err := s.Day(ctx, "p1", "2030-05-12T15:30:00Z")
	if err != nil {
		t.Fatalf("Day: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 appointments, got %d", len(got))
	}
	for i, h := range []int{0, 9, 23} {
		if !got[i].Date.Equal(day.Add(time.Duration(h) * time.Hour)) {
			t.Fatalf("got[%d] = %v", i, got[i].Date)
		}
	}

	// Empty date means the clock's day.
	today, err := s.Day(ctx, "p1", "")
	if err != nil || len(today) != 3 {
		t.Fatalf("today: %d %v", len(today), err)
	}
}

func TestScheduleService_Day_Rejections(t *testing.T) {
	_, db := newApptSvc(t)
	s := &ScheduleService{DB: db, Users: DBDirectory{DB: db}, Clock: clock.Fixed{T: testNow}, Location: time.UTC}

	if _, err := s.Day(context.Background(), "c1", ""); !errors.Is(err, ErrNotProvider) {
		t.Fatalf("client: expected ErrNotProvider, got %v", err)
	}
	if _, err := s.Day(context.Background(), "p1", "soon"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("bad date: expected ErrInvalidDate, got %v", err)
	}
}

func TestScheduleService_Day_BusinessZone(t *testing.T) {
	appts, db := newApptSvc(t)
	ctx := context.Background()
	loc := time.FixedZone("BRT", -3*3600)

	// 01:00 UTC on the 13th is 22:00 on the 12th in BRT.
	if _, err := appts.Create(ctx, "c1", "p1", "2030-05-13T01:00:00Z"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := &ScheduleService{DB: db, Users: DBDirectory{DB: db}, Clock: clock.Fixed{T: testNow}, Location: loc}
	got, err := s.Day(ctx, "p1", "2030-05-12")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected the late-evening slot on the local day, got %d %v", len(got), err)
	}
}

func TestNotificationService_ListAndMarkRead(t *testing.T) {
	appts, db := newApptSvc(t)
	ctx := context.Background()
	for _, d := range []string{"2030-05-11T09:00:00Z", "2030-05-11T10:00:00Z"} {
		if _, err := appts.Create(ctx, "c1", "p1", d); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	s := &NotificationService{DB: db, Users: DBDirectory{DB: db}}

	items, unread, err := s.List(ctx, "p1")
	if err != nil || len(items) != 2 || unread != 2 {
		t.Fatalf("List: len=%d unread=%d err=%v", len(items), unread, err)
	}

	n, err := s.MarkRead(ctx, "p1", items[0].ID)
	if err != nil || !n.Read {
		t.Fatalf("MarkRead: %+v %v", n, err)
	}
	// Idempotent.
	if n, err = s.MarkRead(ctx, "p1", items[0].ID); err != nil || !n.Read {
		t.Fatalf("second MarkRead: %+v %v", n, err)
	}
	if _, unread, _ = s.List(ctx, "p1"); unread != 1 {
		t.Fatalf("unread = %d, want 1", unread)
	}
}

func TestNotificationService_Rejections(t *testing.T) {
	_, db := newApptSvc(t)
	ctx := context.Background()
	seed(t, db, "p2", "Other Provider", true)
	n, err := repo.CreateNotification(ctx, db, "p1", "hello", time.Time{})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := &NotificationService{DB: db, Users: DBDirectory{DB: db}}

	if _, _, err := s.List(ctx, "c1"); !errors.Is(err, ErrNotProvider) {
		t.Fatalf("client list: got %v", err)
	}
	if _, err := s.MarkRead(ctx, "p1", "missing"); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("missing: got %v", err)
	}
	if _, err := s.MarkRead(ctx, "p2", n.ID); !errors.Is(err, ErrNotNotificationOwner) {
		t.Fatalf("foreign: got %v", err)
	}
}

func TestProviderService_List(t *testing.T) {
	_, db := newApptSvc(t)
	seed(t, db, "p0", "Aaron", true)
	s := &ProviderService{DB: db}

	got, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Aaron" || got[1].Name != "Dr. Who" {
		t.Fatalf("unexpected providers: %+v", got)
	}
	for _, p := range got {
		if p.Email != "" {
			t.Fatalf("provider listing must not expose email")
		}
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsValidation(ErrPastDate) || IsValidation(ErrNotOwner) {
		t.Fatalf("IsValidation misclassifies")
	}
	if !IsAuthorization(ErrNotProvider) || IsAuthorization(ErrSlotUnavailable) {
		t.Fatalf("IsAuthorization misclassifies")
	}
	if !IsNotFound(ErrAppointmentNotFound) || IsNotFound(errors.New("x")) {
		t.Fatalf("IsNotFound misclassifies")
	}
}
