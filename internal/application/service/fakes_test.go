package service

import (
	"context"
	"fmt"
	"remindme/internal/domain/entity"
	"remindme/internal/domain/gateway"
	"remindme/internal/domain/repository"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// fakeRepo is an in-memory ReminderRepository with injectable failures.
type fakeRepo struct {
	mu        sync.Mutex
	reminders map[string]*entity.Reminder
	nextID    int

	createErr error
	findErr   error
	updateErr error
	deleteErr error
	sweepErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{reminders: make(map[string]*entity.Reminder)}
}

func (r *fakeRepo) Create(_ context.Context, reminder *entity.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	reminder.ID = fmt.Sprintf("rem-%d", r.nextID)
	reminder.Version = 1
	stored := *reminder
	r.reminders[reminder.ID] = &stored
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*entity.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	stored, ok := r.reminders[id]
	if !ok {
		return nil, fmt.Errorf("reminder with ID %s: %w", id, repository.ErrReminderNotFound)
	}
	out := *stored
	return &out, nil
}

func (r *fakeRepo) FindByCreatorID(_ context.Context, creatorID string) ([]*entity.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []*entity.Reminder
	for _, stored := range r.reminders {
		if stored.CreatorID == creatorID {
			cp := *stored
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostAt < out[j].PostAt })
	return out, nil
}

func (r *fakeRepo) Update(_ context.Context, reminder *entity.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.reminders[reminder.ID]
	if !ok || stored.Version != reminder.Version {
		return fmt.Errorf("reminder %s: %w", reminder.ID, repository.ErrStaleReminder)
	}
	stored.PostAt = reminder.PostAt
	stored.ScheduledMessageID = reminder.ScheduledMessageID
	stored.Version++
	reminder.Version = stored.Version
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id string, version int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	stored, ok := r.reminders[id]
	if !ok || stored.Version != version {
		return 0, nil
	}
	delete(r.reminders, id)
	return 1, nil
}

func (r *fakeRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sweepErr != nil {
		return 0, r.sweepErr
	}
	var n int64
	for id, stored := range r.reminders {
		if stored.PostAt <= now.Unix() {
			delete(r.reminders, id)
			n++
		}
	}
	return n, nil
}

// put stores a reminder directly, bypassing Create.
func (r *fakeRepo) put(reminder entity.Reminder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reminder.Version == 0 {
		reminder.Version = 1
	}
	r.reminders[reminder.ID] = &reminder
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reminders)
}

type fakeResolver struct {
	calls int
	err   error
}

func (f *fakeResolver) ResolveContent(_ context.Context, ref gateway.ContentRef) (*gateway.Content, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.Content{
		Permalink:      fmt.Sprintf("https://example.slack.com/archives/%s/p%s", ref.ChannelID, ref.MessageTs),
		AuthorID:       "U-author",
		AuthorName:     "author",
		ChannelID:      ref.ChannelID,
		ChannelName:    "general",
		MessageTs:      ref.MessageTs,
		MessageContent: "ship it",
	}, nil
}

type scheduleCall struct {
	targetID string
	text     string
	postAt   int64
}

type cancelCall struct {
	targetID string
	handle   string
}

// fakeDelivery records every command and hands out handles Q1, Q2, ...
type fakeDelivery struct {
	schedules   []scheduleCall
	cancels     []cancelCall
	scheduleErr error
	cancelErr   error
	// noHandle makes ScheduleDelivery succeed without returning a handle.
	noHandle bool
}

func (f *fakeDelivery) ScheduleDelivery(_ context.Context, targetID, text string, postAt int64) (string, error) {
	f.schedules = append(f.schedules, scheduleCall{targetID: targetID, text: text, postAt: postAt})
	if f.scheduleErr != nil {
		return "", f.scheduleErr
	}
	if f.noHandle {
		return "", nil
	}
	return fmt.Sprintf("Q%d", len(f.schedules)), nil
}

func (f *fakeDelivery) CancelDelivery(_ context.Context, targetID, handle string) error {
	f.cancels = append(f.cancels, cancelCall{targetID: targetID, handle: handle})
	return f.cancelErr
}

func (f *fakeDelivery) calls() int {
	return len(f.schedules) + len(f.cancels)
}

type fakeNotifier struct {
	alerts []string
}

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	f.alerts = append(f.alerts, text)
	return nil
}

// fakeClock is a settable clock.
type fakeClock struct {
	unix int64
}

func (c *fakeClock) now() time.Time {
	return time.Unix(c.unix, 0)
}

// fakeCron records registered jobs instead of running them.
type fakeCron struct {
	specs   []string
	jobs    map[cron.EntryID]func()
	removed []cron.EntryID
	stopped bool
	addErr  error
}

func newFakeCron() *fakeCron {
	return &fakeCron{jobs: make(map[cron.EntryID]func())}
}

func (f *fakeCron) AddJob(spec string, cmd func()) (cron.EntryID, error) {
	if f.addErr != nil {
		return 0, f.addErr
	}
	f.specs = append(f.specs, spec)
	id := cron.EntryID(len(f.specs))
	f.jobs[id] = cmd
	return id, nil
}

func (f *fakeCron) RemoveJob(id cron.EntryID) {
	f.removed = append(f.removed, id)
	delete(f.jobs, id)
}

func (f *fakeCron) Stop() {
	f.stopped = true
}
