package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func (env *serviceTestEnv) organizationService(t *testing.T) *OrganizationService {
	t.Helper()
	return NewOrganizationService(env.orgRepo, env.userRepo, env.logger)
}

func TestCreateOrganizationValidation(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.organizationService(t)

	org, err := svc.Create("  Chess Club  ")
	require.NoError(t, err)
	require.Equal(t, "Chess Club", org.Name)
	require.False(t, org.FeePaid)

	_, err = svc.Create("x")
	require.ErrorIs(t, err, ErrOrganizationNameTooShort)

	// Names are unique regardless of case.
	_, err = svc.Create("chess club")
	require.ErrorIs(t, err, ErrOrganizationNameTaken)
}

func TestSearchOrganizations(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.organizationService(t)
	env.createOrganization(t, "Chess Club", true)
	env.createOrganization(t, "Go Club", true)
	env.createOrganization(t, "Rowing Society", true)

	results, err := svc.Search("club")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// A blank query returns nothing rather than everything.
	results, err = svc.Search("   ")
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSetFeePaid(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.organizationService(t)
	org := env.createOrganization(t, "Chess Club", false)

	updated, err := svc.SetFeePaid(org.ID, true)
	require.NoError(t, err)
	require.True(t, updated.FeePaid)

	updated, err = svc.SetFeePaid(org.ID, false)
	require.NoError(t, err)
	require.False(t, updated.FeePaid)

	_, err = svc.SetFeePaid(org.ID+1000, true)
	require.ErrorIs(t, err, ErrOrganizationNotFound)
}

func TestUpdateBillingReplacesAllFields(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.organizationService(t)
	org := env.createOrganization(t, "Chess Club", true)

	bank := "First Bank"
	account := "12345678-00000000"
	updated, err := svc.UpdateBilling(org.ID, BillingInput{
		BankName:          &bank,
		BankAccountNumber: &account,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.BankName)
	require.Equal(t, "First Bank", *updated.BankName)

	// The update is a full replacement; fields left out are cleared.
	note := "Quote the member number"
	updated, err = svc.UpdateBilling(org.ID, BillingInput{PaymentInstructions: &note})
	require.NoError(t, err)
	require.Nil(t, updated.BankName)
	require.NotNil(t, updated.PaymentInstructions)
	require.Equal(t, "Quote the member number", *updated.PaymentInstructions)
}

func TestDeleteOrganizationRefusesMembers(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.organizationService(t)
	org := env.createOrganization(t, "Chess Club", true)
	member := env.createMember(t, org, "member@example.com", "Password-1")

	require.ErrorIs(t, svc.Delete(org.ID), ErrOrganizationHasMembers)

	require.NoError(t, svc.RemoveMember(org.ID, member.ID))
	require.NoError(t, svc.Delete(org.ID))

	// Removal detaches the account without deleting it.
	detached, err := env.userRepo.FindByID(member.ID)
	require.NoError(t, err)
	require.Nil(t, detached.OrganizationID)
}

func TestRemoveMemberChecksMembership(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.organizationService(t)
	org := env.createOrganization(t, "Chess Club", true)
	other := env.createOrganization(t, "Go Club", true)
	member := env.createMember(t, other, "member@example.com", "Password-1")

	require.ErrorIs(t, svc.RemoveMember(org.ID, member.ID), ErrUserNotMember)
}

func TestSetContactMovesFlag(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.organizationService(t)
	org := env.createOrganization(t, "Chess Club", true)
	first := env.createMember(t, org, "first@example.com", "Password-1")
	second := env.createMember(t, org, "second@example.com", "Password-1")

	contact, err := svc.SetContact(org.ID, first.ID)
	require.NoError(t, err)
	require.True(t, contact.IsOrganizationContact)

	contact, err = svc.SetContact(org.ID, second.ID)
	require.NoError(t, err)
	require.True(t, contact.IsOrganizationContact)

	// The previous contact loses the flag.
	previous, err := env.userRepo.FindByID(first.ID)
	require.NoError(t, err)
	require.False(t, previous.IsOrganizationContact)
}

func TestSiteSettingsRoundTrip(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.organizationService(t)

	bank := "Federation Bank"
	updated, err := svc.UpdateSiteSettings(BillingInput{BankName: &bank})
	require.NoError(t, err)
	require.NotNil(t, updated.BankName)
	require.Equal(t, "Federation Bank", *updated.BankName)

	settings, err := svc.SiteSettings()
	require.NoError(t, err)
	require.NotNil(t, settings.BankName)
	require.Equal(t, "Federation Bank", *settings.BankName)
	require.Nil(t, settings.BankAccountNumber)
}
