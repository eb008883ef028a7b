package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orgfed/voting-dashboard-api/internal/models"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestCreateEventValidation(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.eventService(t, nil)

	_, err := svc.CreateEvent(EventInput{Title: "ab", DelegateLimit: 1})
	require.ErrorIs(t, err, ErrEventTitleTooShort)

	_, err = svc.CreateEvent(EventInput{Title: "Assembly", DelegateLimit: 0})
	require.ErrorIs(t, err, ErrInvalidDelegateLimit)

	date := time.Now().Add(24 * time.Hour)
	_, err = svc.CreateEvent(EventInput{
		Title:            "Assembly",
		DelegateLimit:    1,
		EventDate:        &date,
		DelegateDeadline: timePtr(date.Add(time.Hour)),
	})
	require.ErrorIs(t, err, ErrDeadlineAfterEvent)
}

func TestFirstEventBecomesActive(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.eventService(t, nil)

	event, err := svc.CreateEvent(EventInput{Title: "Spring Assembly", DelegateLimit: 2})
	require.NoError(t, err)
	require.True(t, event.IsActive)
}

func TestActivationIsExclusiveAndClearsVotingFlag(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.eventService(t, nil)

	a, err := svc.CreateEvent(EventInput{Title: "Event A", DelegateLimit: 1})
	require.NoError(t, err)
	require.True(t, a.IsActive)

	_, err = svc.SetVotingEnabled(a.ID, true)
	require.NoError(t, err)

	b, err := svc.CreateEvent(EventInput{Title: "Event B", DelegateLimit: 1, Activate: true})
	require.NoError(t, err)
	require.True(t, b.IsActive)

	reloadedA, err := svc.GetEvent(a.ID)
	require.NoError(t, err)
	require.False(t, reloadedA.IsActive)
	require.False(t, reloadedA.IsVotingEnabled, "losing active status must force-clear voting")

	var activeCount int64
	require.NoError(t, env.db.Model(&models.VotingEvent{}).Where("is_active = ?", true).Count(&activeCount).Error)
	require.EqualValues(t, 1, activeCount)
}

func TestSetVotingEnabledRequiresActiveEvent(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.eventService(t, nil)

	a, err := svc.CreateEvent(EventInput{Title: "Event A", DelegateLimit: 1})
	require.NoError(t, err)
	b, err := svc.CreateEvent(EventInput{Title: "Event B", DelegateLimit: 1})
	require.NoError(t, err)
	require.True(t, a.IsActive)

	_, err = svc.SetVotingEnabled(b.ID, true)
	require.ErrorIs(t, err, ErrEventNotActive)

	// Disabling a non-active event is allowed.
	_, err = svc.SetVotingEnabled(b.ID, false)
	require.NoError(t, err)
}

func TestDeleteEventRejectsActive(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.eventService(t, nil)

	a, err := svc.CreateEvent(EventInput{Title: "Event A", DelegateLimit: 1})
	require.NoError(t, err)
	b, err := svc.CreateEvent(EventInput{Title: "Event B", DelegateLimit: 1})
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteEvent(a.ID), ErrActiveEventDelete)
	require.NoError(t, svc.DeleteEvent(b.ID))
}

func TestSetDelegatesReplacesRoster(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.eventService(t, nil)

	org := env.createOrganization(t, "Chess Club", true)
	u1 := env.createMember(t, org, "u1@example.com", "Password-1")
	u2 := env.createMember(t, org, "u2@example.com", "Password-1")

	date := time.Now().Add(48 * time.Hour)
	event, err := svc.CreateEvent(EventInput{
		Title:            "Assembly",
		DelegateLimit:    2,
		EventDate:        &date,
		DelegateDeadline: timePtr(date.Add(-24 * time.Hour)),
	})
	require.NoError(t, err)

	rows, err := svc.SetDelegatesForOrganization(event.ID, org.ID, []uint64{u1.ID, u2.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	var keptRowID uint64
	for _, row := range rows {
		if row.UserID == u2.ID {
			keptRowID = row.ID
		}
	}
	require.NotZero(t, keptRowID)

	// Re-assigning only u2 deletes u1's row and keeps u2's row id.
	rows, err = svc.SetDelegatesForOrganization(event.ID, org.ID, []uint64{u2.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, u2.ID, rows[0].UserID)
	require.Equal(t, keptRowID, rows[0].ID)

	reloadedU1, err := env.userRepo.FindByID(u1.ID)
	require.NoError(t, err)
	require.False(t, reloadedU1.IsVotingDelegate)

	reloadedU2, err := env.userRepo.FindByID(u2.ID)
	require.NoError(t, err)
	require.True(t, reloadedU2.IsVotingDelegate)
}

func TestSetDelegatesEnforcesLimitAndEligibility(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.eventService(t, nil)

	org := env.createOrganization(t, "Chess Club", true)
	u1 := env.createMember(t, org, "u1@example.com", "Password-1")
	u2 := env.createMember(t, org, "u2@example.com", "Password-1")

	event, err := svc.CreateEvent(EventInput{Title: "Assembly", DelegateLimit: 1})
	require.NoError(t, err)

	_, err = svc.SetDelegatesForOrganization(event.ID, org.ID, []uint64{u1.ID, u2.ID})
	require.ErrorIs(t, err, ErrDelegateLimitExceeded)

	// Duplicates collapse before the limit check.
	_, err = svc.SetDelegatesForOrganization(event.ID, org.ID, []uint64{u1.ID, u1.ID})
	require.NoError(t, err)

	other := env.createOrganization(t, "Debate Club", true)
	outsider := env.createMember(t, other, "outsider@example.com", "Password-1")
	_, err = svc.SetDelegatesForOrganization(event.ID, org.ID, []uint64{outsider.ID})
	require.ErrorIs(t, err, ErrUserNotInOrganization)

	unverified := env.createMember(t, org, "raw@example.com", "Password-1")
	unverified.IsEmailVerified = false
	require.NoError(t, env.userRepo.Save(unverified))
	_, err = svc.SetDelegatesForOrganization(event.ID, org.ID, []uint64{unverified.ID})
	require.ErrorIs(t, err, ErrDelegateNotVerified)

	pending := env.createMember(t, org, "pending@example.com", "Password-1")
	pending.AdminDecision = models.DecisionPending
	require.NoError(t, env.userRepo.Save(pending))
	_, err = svc.SetDelegatesForOrganization(event.ID, org.ID, []uint64{pending.ID})
	require.ErrorIs(t, err, ErrDelegateNotApproved)
}

func TestSetDelegatesRespectsLock(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.eventService(t, nil)

	org := env.createOrganization(t, "Chess Club", true)
	u1 := env.createMember(t, org, "u1@example.com", "Password-1")

	date := time.Now().Add(48 * time.Hour)
	event, err := svc.CreateEvent(EventInput{
		Title:            "Assembly",
		DelegateLimit:    2,
		EventDate:        &date,
		DelegateDeadline: timePtr(time.Now().Add(-time.Hour)),
	})
	require.NoError(t, err)

	_, err = svc.SetDelegatesForOrganization(event.ID, org.ID, []uint64{u1.ID})
	require.ErrorIs(t, err, ErrRosterLocked)

	// An admin override lifts the deadline lock.
	_, state, err := svc.SetDelegateLockOverride(event.ID, "unlocked")
	require.NoError(t, err)
	require.False(t, state.Locked)
	require.Equal(t, LockReasonManualUnlockedAfterDeadline, state.Reason)

	_, err = svc.SetDelegatesForOrganization(event.ID, org.ID, []uint64{u1.ID})
	require.NoError(t, err)
}

func TestActivateResyncIsIdempotent(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.eventService(t, nil)

	org := env.createOrganization(t, "Chess Club", true)
	u1 := env.createMember(t, org, "u1@example.com", "Password-1")
	u2 := env.createMember(t, org, "u2@example.com", "Password-1")

	a, err := svc.CreateEvent(EventInput{Title: "Event A", DelegateLimit: 2})
	require.NoError(t, err)
	_, err = svc.SetDelegatesForOrganization(a.ID, org.ID, []uint64{u1.ID, u2.ID})
	require.NoError(t, err)

	flags := func() map[uint64]bool {
		out := make(map[uint64]bool)
		for _, id := range []uint64{u1.ID, u2.ID} {
			user, err := env.userRepo.FindByID(id)
			require.NoError(t, err)
			out[id] = user.IsVotingDelegate
		}
		return out
	}

	_, err = svc.ActivateEvent(a.ID)
	require.NoError(t, err)
	first := flags()

	_, err = svc.ActivateEvent(a.ID)
	require.NoError(t, err)
	require.Equal(t, first, flags())
	require.True(t, first[u1.ID])
	require.True(t, first[u2.ID])
}

func TestResetAllEvents(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.eventService(t, nil)

	org := env.createOrganization(t, "Chess Club", true)
	u1 := env.createMember(t, org, "u1@example.com", "Password-1")

	a, err := svc.CreateEvent(EventInput{Title: "Event A", DelegateLimit: 1})
	require.NoError(t, err)
	_, err = svc.CreateEvent(EventInput{Title: "Event B", DelegateLimit: 1})
	require.NoError(t, err)
	_, err = svc.SetDelegatesForOrganization(a.ID, org.ID, []uint64{u1.ID})
	require.NoError(t, err)

	removed, err := svc.ResetAllEvents()
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	events, err := svc.ListEvents()
	require.NoError(t, err)
	require.Empty(t, events)

	reloaded, err := env.userRepo.FindByID(u1.ID)
	require.NoError(t, err)
	require.False(t, reloaded.IsVotingDelegate)
}
