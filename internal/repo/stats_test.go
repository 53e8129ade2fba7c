package repo

import (
	"context"
	"testing"
	"time"
)

func TestAppointmentsStats(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	seedUser(t, db, "p1", "Provider", true)
	seedUser(t, db, "c1", "Client", false)

	n, ts, err := AppointmentsStats(ctx, db, "c1")
	if err != nil || n != 0 || ts != nil {
		t.Fatalf("empty stats = %d, %v, %v", n, ts, err)
	}

	a, _ := CreateAppointment(ctx, db, "c1", "p1", slot0)
	_, _ = CreateAppointment(ctx, db, "c1", "p1", slot0.Add(time.Hour))
	n, before, err := AppointmentsStats(ctx, db, "c1")
	if err != nil || n != 2 || before == nil {
		t.Fatalf("stats = %d, %v, %v", n, before, err)
	}

	time.Sleep(5 * time.Millisecond)
	if err := CancelAppointment(ctx, db, a.ID, time.Now()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, after, err := AppointmentsStats(ctx, db, "c1")
	if err != nil || after == nil || !after.After(*before) {
		t.Fatalf("cancellation must bump the latest update: before=%v after=%v err=%v", before, after, err)
	}
}

func TestNotificationsStats(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	n, ts, err := NotificationsStats(ctx, db, "p1")
	if err != nil || n != 0 || ts != nil {
		t.Fatalf("empty stats = %d, %v, %v", n, ts, err)
	}
	_, _ = CreateNotification(ctx, db, "p1", "a", time.Time{})
	_, _ = CreateNotification(ctx, db, "p1", "b", time.Time{})
	_, _ = CreateNotification(ctx, db, "p2", "c", time.Time{})
	n, ts, err = NotificationsStats(ctx, db, "p1")
	if err != nil || n != 2 || ts == nil {
		t.Fatalf("stats = %d, %v, %v", n, ts, err)
	}
}
