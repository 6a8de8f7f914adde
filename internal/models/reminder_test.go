package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReminderStatusTerminal(t *testing.T) {
	assert.False(t, ReminderPending.Terminal())
	assert.True(t, ReminderSent.Terminal())
	assert.True(t, ReminderCancelled.Terminal())
}

func TestReminderDue(t *testing.T) {
	now := time.Now()
	r := Reminder{ScheduledTime: now, Status: ReminderPending}
	assert.True(t, r.Due(now))
	assert.False(t, r.Due(now.Add(-time.Second)))

	r.Status = ReminderSent
	assert.False(t, r.Due(now.Add(time.Hour)))
}

func TestClientDisplayName(t *testing.T) {
	assert.Equal(t, "Dana (Acme)", (&Client{Name: "Dana", Company: "Acme"}).DisplayName())
	assert.Equal(t, "Acme", (&Client{Company: "Acme"}).DisplayName())
	assert.Equal(t, "Dana", (&Client{Name: "Dana"}).DisplayName())
}
