package repository

import (
	"time"

	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/utils"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(user *models.User) error

	// FindByID finds a user by ID with the organization preloaded
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by lowercased email
	FindByEmail(email string) (*models.User, error)

	Save(user *models.User) error

	// ListPendingRegistrations lists users awaiting an admin decision,
	// unverified first, oldest first
	ListPendingRegistrations() ([]models.User, error)

	ListAdmins() ([]models.User, error)
	CountAdmins() (int64, error)

	// List returns a page of users plus the total count
	List(params utils.PaginationParams) ([]models.User, int64, error)

	// RemoveFromOrganization detaches a user from their organization and
	// atomically clears delegate rows and delegate/contact flags
	RemoveFromOrganization(userID uint64) error

	// DeleteCascade removes the user together with every owned token and
	// delegate row, nulling references held by access codes and invitations
	DeleteCascade(userID uint64) error
}

// TokenRepository is the ledger for session, email-verification, and
// password-reset tokens.
type TokenRepository interface {
	// CreateSession inserts a fresh session and deletes all prior
	// sessions of the user in the same transaction
	CreateSession(userID uint64, token string, expiresAt time.Time) (*models.SessionToken, error)

	// FindSession resolves a raw token with user and organization preloaded
	FindSession(token string) (*models.SessionToken, error)

	// DeleteSession removes one session, reporting whether it existed
	DeleteSession(token string) (bool, error)

	// DeleteSessionsForUser revokes every session of the user
	DeleteSessionsForUser(userID uint64) error

	// DeleteSessionByID drops an expired session row
	DeleteSessionByID(id uint64) error

	CreateVerification(token *models.EmailVerificationToken) error

	// FindVerification resolves a verification token with the user preloaded
	FindVerification(token string) (*models.EmailVerificationToken, error)

	SaveVerification(token *models.EmailVerificationToken) error

	// ConfirmVerificationsForUser marks all of the user's verification
	// tokens confirmed at the given time
	ConfirmVerificationsForUser(userID uint64, at time.Time) error

	CreateReset(token *models.PasswordResetToken) error

	// FindReset resolves a reset token with the user preloaded
	FindReset(token string) (*models.PasswordResetToken, error)

	SaveReset(token *models.PasswordResetToken) error

	// InvalidateActiveResets stamps used_at on every live reset token of
	// the user so only the newest link works
	InvalidateActiveResets(userID uint64, now time.Time) error
}

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	Create(org *models.Organization) error
	FindByID(id uint64) (*models.Organization, error)

	// FindDetailed loads the organization with members, event delegates,
	// and invitations preloaded
	FindDetailed(id uint64) (*models.Organization, error)

	// FindByNameFold finds an organization by case-insensitive name
	FindByNameFold(name string) (*models.Organization, error)

	// Search lists organizations whose name contains the query,
	// case-insensitive, name ascending, capped at limit
	Search(query string, limit int) ([]models.Organization, error)

	// ListDetailed lists a page of organizations with members, delegates,
	// and invitations preloaded, name ascending
	ListDetailed(offset, limit int) ([]models.Organization, error)

	Save(org *models.Organization) error
	Delete(id uint64) error
	CountMembers(id uint64) (int64, error)

	// FindContact returns the user flagged as the organization's contact
	FindContact(id uint64) (*models.User, error)

	GetSiteSettings() (*models.SiteSettings, error)
	SaveSiteSettings(settings *models.SiteSettings) error
}

// EventRepository defines the interface for voting event data access.
// Multi-row mutations (activation, roster replacement, reset) run inside a
// single transaction so readers never observe a partially-applied state.
type EventRepository interface {
	Create(event *models.VotingEvent) error
	Save(event *models.VotingEvent) error
	FindByID(id uint64) (*models.VotingEvent, error)

	// FindActive returns the single active event, or gorm.ErrRecordNotFound
	FindActive() (*models.VotingEvent, error)

	// List returns all events with delegates and access codes preloaded,
	// newest first
	List() ([]models.VotingEvent, error)

	// Delete removes a non-active event with its delegate rows and codes
	Delete(id uint64) error

	// Activate makes the target the only active event, force-clears
	// is_voting_enabled on every other event, and fully resynchronizes
	// is_voting_delegate flags, all in one transaction
	Activate(eventID uint64) error

	// ResetAll deletes every event, delegate row, and access code, clears
	// all delegate flags, and returns the number of removed events
	ResetAll() (int64, error)

	// DelegatesForEvent lists delegate rows with user and organization
	// preloaded
	DelegatesForEvent(eventID uint64) ([]models.EventDelegate, error)

	// DelegatesForOrganization lists the delegate rows of one organization
	// on one event with users preloaded
	DelegatesForOrganization(eventID, organizationID uint64) ([]models.EventDelegate, error)

	CountDelegates(eventID uint64) (int64, error)

	// ReplaceOrganizationRoster applies a reconciled roster diff: deletes
	// the given delegate rows, inserts the new ones, and resynchronizes
	// delegate flags when resync is set, in one transaction
	ReplaceOrganizationRoster(eventID uint64, deleteRowIDs []uint64, inserts []models.EventDelegate, resync bool) error

	// SyncDelegateFlags recomputes is_voting_delegate for every non-admin
	// user against the given active event (nil means no active event)
	SyncDelegateFlags(activeEventID *uint64) error
}

// AccessCodeRepository defines the interface for access code data access
type AccessCodeRepository interface {
	// ListByEvent returns an event's codes ordered by code with the
	// redeeming user preloaded
	ListByEvent(eventID uint64) ([]models.VotingAccessCode, error)

	DeleteByEvent(eventID uint64) error
	CreateBatch(codes []models.VotingAccessCode) error
	FindByEventAndCode(eventID uint64, code string) (*models.VotingAccessCode, error)

	// MarkUsed stamps used_at/used_by on the code only if it is still
	// unused, reporting whether this call won the redemption
	MarkUsed(codeID uint64, userID *uint64, at time.Time) (bool, error)
}

// InvitationRepository defines the interface for invitation data access
type InvitationRepository interface {
	Create(invitation *models.OrganizationInvitation) error
	Save(invitation *models.OrganizationInvitation) error
	FindByID(id uint64) (*models.OrganizationInvitation, error)

	// FindByToken resolves an invitation with organization and inviter
	// preloaded
	FindByToken(token string) (*models.OrganizationInvitation, error)

	// FindPending finds a not-yet-accepted invitation for (org, email, role)
	FindPending(organizationID uint64, email string, role models.InvitationRole) (*models.OrganizationInvitation, error)

	// ListPending lists pending invitations of an organization, newest
	// first, optionally filtered by role
	ListPending(organizationID uint64, role *models.InvitationRole) ([]models.OrganizationInvitation, error)

	Delete(id uint64) error
}
