package services

import (
	"strings"
	"time"

	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/timeutil"
)

type DelegateLockMode string

const (
	LockModeAuto     DelegateLockMode = "auto"
	LockModeLocked   DelegateLockMode = "locked"
	LockModeUnlocked DelegateLockMode = "unlocked"
)

type DelegateLockReason string

const (
	LockReasonDeadlinePassed              DelegateLockReason = "deadline_passed"
	LockReasonDeadlinePending             DelegateLockReason = "deadline_pending"
	LockReasonManualLocked                DelegateLockReason = "manual_locked"
	LockReasonManualUnlocked              DelegateLockReason = "manual_unlocked"
	LockReasonManualUnlockedAfterDeadline DelegateLockReason = "manual_unlocked_after_deadline"
	LockReasonNoDeadline                  DelegateLockReason = "no_deadline"
)

// DelegateLockState is the computed answer to "may the delegate roster of
// this event be changed right now".
type DelegateLockState struct {
	Locked  bool               `json:"locked"`
	Mode    DelegateLockMode   `json:"mode"`
	Reason  DelegateLockReason `json:"reason"`
	Message string             `json:"message"`
}

// ComputeDelegateLockState evaluates the lock without side effects. A
// manual override wins over the deadline; without one, the lock follows
// whether the deadline has passed. Stored deadlines are naive local time,
// so they are re-anchored to the configured zone before comparing against
// now.
func ComputeDelegateLockState(event *models.VotingEvent, now time.Time) DelegateLockState {
	override := ""
	if event.DelegateLockOverride != nil {
		override = strings.ToLower(strings.TrimSpace(*event.DelegateLockOverride))
	}

	if override == models.LockOverrideLocked {
		return DelegateLockState{
			Locked:  true,
			Mode:    LockModeLocked,
			Reason:  LockReasonManualLocked,
			Message: "Delegate changes are locked by administrator decision.",
		}
	}

	deadlinePassed := false
	if event.DelegateDeadline != nil {
		localized := timeutil.AttachLocalZone(*event.DelegateDeadline)
		deadlinePassed = localized.Before(now)
	}

	if override == models.LockOverrideUnlocked {
		if deadlinePassed {
			return DelegateLockState{
				Locked:  false,
				Mode:    LockModeUnlocked,
				Reason:  LockReasonManualUnlockedAfterDeadline,
				Message: "The delegate deadline has passed, but an administrator lifted the lock.",
			}
		}
		return DelegateLockState{
			Locked:  false,
			Mode:    LockModeUnlocked,
			Reason:  LockReasonManualUnlocked,
			Message: "Delegate changes are allowed by administrator decision.",
		}
	}

	if event.DelegateDeadline == nil {
		return DelegateLockState{
			Locked:  false,
			Mode:    LockModeAuto,
			Reason:  LockReasonNoDeadline,
			Message: "Delegate changes are allowed.",
		}
	}

	if deadlinePassed {
		return DelegateLockState{
			Locked:  true,
			Mode:    LockModeAuto,
			Reason:  LockReasonDeadlinePassed,
			Message: "The delegate deadline has passed, changes are locked.",
		}
	}

	return DelegateLockState{
		Locked:  false,
		Mode:    LockModeAuto,
		Reason:  LockReasonDeadlinePending,
		Message: "Delegate changes are allowed until the deadline.",
	}
}
