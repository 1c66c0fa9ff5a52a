// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/memberhub/internal/models"
	"github.com/tomtom215/memberhub/internal/store"
	"github.com/tomtom215/memberhub/internal/websocket"
)

type recordingBroadcaster struct {
	mu   sync.Mutex
	msgs []string
}

func (b *recordingBroadcaster) BroadcastJSON(messageType string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := data.(*models.Event); ok {
		b.msgs = append(b.msgs, messageType+":"+e.Title)
	}
}

var base = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *recordingBroadcaster, *time.Time) {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	b := &recordingBroadcaster{}
	svc := NewService(NewCollection(s), b)
	clock := base
	svc.now = func() time.Time { return clock }
	return svc, b, &clock
}

func request(title string, startsIn, length time.Duration) models.EventRequest {
	return models.EventRequest{
		Title:    title,
		StartsAt: base.Add(startsIn),
		EndsAt:   base.Add(startsIn + length),
	}
}

func TestCreate_RejectsBadTimes(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), "editor", request("Backwards", time.Hour, -time.Minute))
	if !errors.Is(err, ErrInvalidTimes) {
		t.Errorf("Create() error = %v, want ErrInvalidTimes", err)
	}
}

func TestPublishLifecycle(t *testing.T) {
	svc, b, _ := newTestService(t)
	ctx := context.Background()

	changes := 0
	svc.OnChange(func() { changes++ })

	e, err := svc.Create(ctx, "editor", request("Meetup", 24*time.Hour, 2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if e.Status != models.EventStatusDraft {
		t.Errorf("status = %s, want draft", e.Status)
	}
	if _, err := svc.GetPublished(ctx, e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("draft visible publicly: %v", err)
	}

	e, err = svc.Publish(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if e.Status != models.EventStatusPublished || e.PublishedAt == nil {
		t.Errorf("after Publish: %+v", e)
	}
	if _, err := svc.Publish(ctx, e.ID); err != nil {
		t.Errorf("second Publish() error = %v", err)
	}
	if len(b.msgs) != 1 || b.msgs[0] != websocket.MessageTypeEventPublished+":Meetup" {
		t.Errorf("broadcasts = %v, want exactly one", b.msgs)
	}

	if _, err := svc.Cancel(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Cancel(ctx, e.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Cancel() error = %v", err)
	}
	if _, err := svc.Publish(ctx, e.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Publish() cancelled error = %v", err)
	}
	if _, err := svc.Update(ctx, e.ID, request("Renamed", time.Hour, time.Hour)); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Update() cancelled error = %v", err)
	}
	if got, err := svc.GetPublished(ctx, e.ID); err != nil || got.Status != models.EventStatusCancelled {
		t.Errorf("cancelled event should stay visible: %v, %v", got, err)
	}

	if err := svc.Delete(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
	if changes < 4 {
		t.Errorf("OnChange fired %d times", changes)
	}
}

func TestPublish_RepublishWritesNothing(t *testing.T) {
	svc, b, clock := newTestService(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, "editor", request("Picnic", 24*time.Hour, time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	first, err := svc.Publish(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}

	changes := 0
	svc.OnChange(func() { changes++ })
	*clock = clock.Add(time.Hour)

	again, err := svc.Publish(ctx, e.ID)
	if err != nil {
		t.Fatalf("second Publish() error = %v", err)
	}
	if !again.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want unchanged %v", again.UpdatedAt, first.UpdatedAt)
	}
	if changes != 0 {
		t.Errorf("OnChange fired %d times for a no-op publish", changes)
	}
	if len(b.msgs) != 1 {
		t.Errorf("broadcasts = %v, want exactly one", b.msgs)
	}
}

func TestScheduleAndPublishDue(t *testing.T) {
	svc, b, clock := newTestService(t)
	ctx := context.Background()

	soon, _ := svc.Create(ctx, "editor", request("Soon", 48*time.Hour, time.Hour))
	later, _ := svc.Create(ctx, "editor", request("Later", 72*time.Hour, time.Hour))
	draft, _ := svc.Create(ctx, "editor", request("Draft", 72*time.Hour, time.Hour))

	if _, err := svc.Schedule(ctx, soon.ID, base.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Schedule(ctx, later.ID, base.Add(10*time.Hour)); err != nil {
		t.Fatal(err)
	}

	n, err := svc.PublishDue(ctx)
	if err != nil || n != 0 {
		t.Fatalf("PublishDue() before due = %d, %v", n, err)
	}

	*clock = base.Add(2 * time.Hour)
	n, err = svc.PublishDue(ctx)
	if err != nil || n != 1 {
		t.Fatalf("PublishDue() = %d, %v, want 1", n, err)
	}
	got, _ := svc.Get(ctx, soon.ID)
	if got.Status != models.EventStatusPublished || got.PublishAt != nil {
		t.Errorf("soon after sweep: %+v", got)
	}
	if d, _ := svc.Get(ctx, draft.ID); d.Status != models.EventStatusDraft {
		t.Errorf("draft changed to %s", d.Status)
	}
	if len(b.msgs) != 1 {
		t.Errorf("broadcasts = %v", b.msgs)
	}

	published, _ := svc.Publish(ctx, later.ID)
	if _, err := svc.Schedule(ctx, published.ID, base.Add(time.Hour)); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Schedule() published error = %v", err)
	}
}

func TestUpcoming(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	mk := func(title string, startsIn, length time.Duration, publish bool) {
		t.Helper()
		e, err := svc.Create(ctx, "editor", request(title, startsIn, length))
		if err != nil {
			t.Fatal(err)
		}
		if publish {
			if _, err := svc.Publish(ctx, e.ID); err != nil {
				t.Fatal(err)
			}
		}
	}
	mk("Next week", 7*24*time.Hour, time.Hour, true)
	mk("Tomorrow", 24*time.Hour, time.Hour, true)
	mk("Ongoing", -time.Hour, 3*time.Hour, true)
	mk("Finished", -5*time.Hour, time.Hour, true)
	mk("Unpublished", 2*time.Hour, time.Hour, false)

	got, err := svc.Upcoming(ctx, base, 0)
	if err != nil {
		t.Fatal(err)
	}
	var titles []string
	for _, e := range got {
		titles = append(titles, e.Title)
	}
	want := []string{"Ongoing", "Tomorrow", "Next week"}
	if len(titles) != len(want) {
		t.Fatalf("Upcoming() = %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("Upcoming()[%d] = %s, want %s", i, titles[i], want[i])
		}
	}

	limited, _ := svc.Upcoming(ctx, base, 1)
	if len(limited) != 1 || limited[0].Title != "Ongoing" {
		t.Errorf("limited = %v", limited)
	}
}
