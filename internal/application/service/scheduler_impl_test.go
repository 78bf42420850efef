package service

import (
	"context"
	"errors"
	appErrors "remindme/internal/pkg/errors"
	"remindme/internal/pkg/logger"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSweepSpec = "0 */15 * * * *"

func TestInitializeSchedulesSweepsAndRegisters(t *testing.T) {
	h := newHarness(t)
	h.repo.put(pendingReminder("old", "U1", 10, "Q-old"))
	h.repo.put(pendingReminder("new", "U1", 9000, "Q-new"))
	c := newFakeCron()

	sched := NewSchedulerService(c, h.svc, testSweepSpec, logger.Nop())
	require.NoError(t, sched.InitializeSchedules(context.Background()))

	assert.Equal(t, 1, h.repo.count(), "startup sweep removes what expired while down")
	assert.Equal(t, []string{testSweepSpec}, c.specs)
	require.Len(t, c.jobs, 1)

	h.repo.put(pendingReminder("soon", "U1", 1500, "Q-soon"))
	h.clock.unix = 2000
	for _, job := range c.jobs {
		job()
	}
	assert.Equal(t, 1, h.repo.count())
	_, err := h.repo.FindByID(context.Background(), "new")
	assert.NoError(t, err)
}

func TestInitializeSchedulesReplacesPreviousJob(t *testing.T) {
	h := newHarness(t)
	c := newFakeCron()
	sched := NewSchedulerService(c, h.svc, testSweepSpec, logger.Nop())

	require.NoError(t, sched.InitializeSchedules(context.Background()))
	require.NoError(t, sched.InitializeSchedules(context.Background()))

	assert.Len(t, c.jobs, 1)
	assert.Len(t, c.removed, 1)
}

func TestInitializeSchedulesSurvivesSweepFailure(t *testing.T) {
	h := newHarness(t)
	h.repo.sweepErr = errors.New("database is locked")
	c := newFakeCron()

	sched := NewSchedulerService(c, h.svc, testSweepSpec, logger.Nop())
	assert.NoError(t, sched.InitializeSchedules(context.Background()))
	assert.Len(t, c.jobs, 1)
}

func TestInitializeSchedulesInvalidSpec(t *testing.T) {
	h := newHarness(t)
	c := newFakeCron()
	c.addErr = errors.New("expected exactly 6 fields")

	sched := NewSchedulerService(c, h.svc, "bogus", logger.Nop())
	err := sched.InitializeSchedules(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestSchedulerStop(t *testing.T) {
	h := newHarness(t)
	c := newFakeCron()
	sched := NewSchedulerService(c, h.svc, testSweepSpec, logger.Nop())
	require.NoError(t, sched.InitializeSchedules(context.Background()))

	sched.Stop()
	assert.True(t, c.stopped)
	assert.Empty(t, c.jobs)
}
