package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orgfed/voting-dashboard-api/internal/mailer"
	"github.com/orgfed/voting-dashboard-api/internal/models"
)

func (env *serviceTestEnv) invitationService(t *testing.T) *InvitationService {
	t.Helper()
	return NewInvitationService(env.inviteRepo, env.orgRepo, env.userRepo,
		mailer.NewLogSender(env.logger), env.cfg, env.logger)
}

func TestInviteAndAcceptMember(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.invitationService(t)
	org := env.createOrganization(t, "Chess Club", true)
	admin := env.createAdmin(t, "admin@example.com", "Password-1")

	invitation, err := svc.Invite(InviteInput{
		OrganizationID: org.ID,
		Email:          "  Invitee@Example.com ",
		Role:           models.InvitationRoleMember,
		FirstName:      "Ida",
		InvitedBy:      &admin.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "invitee@example.com", invitation.Email)
	require.NotEmpty(t, invitation.Token)
	require.True(t, invitation.IsPending())

	found, err := svc.Lookup(invitation.Token)
	require.NoError(t, err)
	require.Equal(t, invitation.ID, found.ID)

	user, err := svc.Accept(AcceptInput{
		Token:    invitation.Token,
		Password: "Password-1",
	})
	require.NoError(t, err)
	require.Equal(t, "invitee@example.com", user.Email)
	require.True(t, user.IsEmailVerified)
	require.Equal(t, models.DecisionApproved, user.AdminDecision)
	require.False(t, user.IsOrganizationContact)
	require.NotNil(t, user.OrganizationID)
	require.Equal(t, org.ID, *user.OrganizationID)
	require.NotNil(t, user.FirstName)
	require.Equal(t, "Ida", *user.FirstName)

	// Invited users skip the verification and approval queue entirely.
	auth := env.authService(t)
	_, _, err = auth.Login("invitee@example.com", "Password-1")
	require.NoError(t, err)

	// The consumed invitation cannot be accepted again.
	_, err = svc.Accept(AcceptInput{Token: invitation.Token, Password: "Password-2"})
	require.ErrorIs(t, err, ErrInvitationAccepted)
}

func TestInviteReissuesPendingToken(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.invitationService(t)
	org := env.createOrganization(t, "Chess Club", true)

	first, err := svc.Invite(InviteInput{
		OrganizationID: org.ID,
		Email:          "invitee@example.com",
		Role:           models.InvitationRoleMember,
	})
	require.NoError(t, err)

	second, err := svc.Invite(InviteInput{
		OrganizationID: org.ID,
		Email:          "invitee@example.com",
		Role:           models.InvitationRoleMember,
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.NotEqual(t, first.Token, second.Token)

	// The replaced token no longer resolves.
	_, err = svc.Lookup(first.Token)
	require.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestInviteContactIsUniquePerOrganization(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.invitationService(t)
	org := env.createOrganization(t, "Chess Club", true)

	_, err := svc.Invite(InviteInput{
		OrganizationID: org.ID,
		Email:          "contact@example.com",
		Role:           models.InvitationRoleContact,
	})
	require.NoError(t, err)

	// A second contact invitation for a different address conflicts while
	// the first is pending.
	_, err = svc.Invite(InviteInput{
		OrganizationID: org.ID,
		Email:          "other@example.com",
		Role:           models.InvitationRoleContact,
	})
	require.ErrorIs(t, err, ErrContactAlreadyExists)

	// Re-inviting the same pending address reissues instead.
	_, err = svc.Invite(InviteInput{
		OrganizationID: org.ID,
		Email:          "contact@example.com",
		Role:           models.InvitationRoleContact,
	})
	require.NoError(t, err)
}

func TestInviteRejectsExistingAccount(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.invitationService(t)
	org := env.createOrganization(t, "Chess Club", true)
	env.createMember(t, org, "member@example.com", "Password-1")

	_, err := svc.Invite(InviteInput{
		OrganizationID: org.ID,
		Email:          "member@example.com",
		Role:           models.InvitationRoleMember,
	})
	require.ErrorIs(t, err, ErrInvitationEmailTaken)
}

func TestAcceptContactRoleMarksContact(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.invitationService(t)
	org := env.createOrganization(t, "Chess Club", true)

	invitation, err := svc.Invite(InviteInput{
		OrganizationID: org.ID,
		Email:          "contact@example.com",
		Role:           models.InvitationRoleContact,
	})
	require.NoError(t, err)

	user, err := svc.Accept(AcceptInput{
		Token:     invitation.Token,
		Password:  "Password-1",
		FirstName: "Cora",
	})
	require.NoError(t, err)
	require.True(t, user.IsOrganizationContact)
}

func TestDeletePendingInvitationOnly(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.invitationService(t)
	org := env.createOrganization(t, "Chess Club", true)

	invitation, err := svc.Invite(InviteInput{
		OrganizationID: org.ID,
		Email:          "invitee@example.com",
		Role:           models.InvitationRoleMember,
	})
	require.NoError(t, err)

	_, err = svc.Accept(AcceptInput{Token: invitation.Token, Password: "Password-1"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(invitation.ID), ErrInvitationAccepted)
	require.ErrorIs(t, svc.Delete(invitation.ID+1000), ErrInvitationNotFound)
}
