package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/signing"
)

func (env *serviceTestEnv) handoffService(t *testing.T) *HandoffService {
	t.Helper()
	return NewHandoffService(env.cfg.Voting, env.userRepo, env.orgRepo, env.eventRepo, env.logger)
}

func signInboundRequest(secret string, ts int64, email, password string) string {
	return signing.SignTimestamped([]byte(secret), ts, fmt.Sprintf("%s:%s", email, password))
}

func TestMintLaunchTokenPreconditionOrder(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.handoffService(t)

	org := env.createOrganization(t, "Chess Club", false)
	member := env.createMember(t, org, "member@example.com", "Password-1")

	// No active event exists and the member is not a delegate, but the
	// unpaid fee must fail first.
	_, err := svc.MintLaunchToken(member, "")
	require.ErrorIs(t, err, ErrFeeNotPaid)

	org.FeePaid = true
	require.NoError(t, env.orgRepo.Save(org))

	_, err = svc.MintLaunchToken(member, "")
	require.ErrorIs(t, err, ErrNoActiveEvent)

	event := &models.VotingEvent{Title: "Assembly", DelegateLimit: 1, IsActive: true}
	require.NoError(t, env.eventRepo.Create(event))

	_, err = svc.MintLaunchToken(member, "admin")
	require.ErrorIs(t, err, ErrAdminViewForbidden)

	_, err = svc.MintLaunchToken(member, "")
	require.ErrorIs(t, err, ErrNotEventDelegate)

	// The public view skips the delegate requirement.
	result, err := svc.MintLaunchToken(member, "public")
	require.NoError(t, err)
	require.Contains(t, result.RedirectURL, "view=public")

	detached := env.createAdmin(t, "lone@example.com", "Password-1")
	detached.IsAdmin = false
	require.NoError(t, env.userRepo.Save(detached))
	_, err = svc.MintLaunchToken(detached, "")
	require.ErrorIs(t, err, ErrNoOrganization)
}

func TestMintLaunchTokenPayload(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.handoffService(t)

	org := env.createOrganization(t, "Chess Club", true)
	member := env.createMember(t, org, "member@example.com", "Password-1")

	event := &models.VotingEvent{Title: "Assembly", DelegateLimit: 2, IsActive: true, IsVotingEnabled: true}
	require.NoError(t, env.eventRepo.Create(event))
	require.NoError(t, env.db.Create(&models.EventDelegate{
		EventID:        event.ID,
		OrganizationID: org.ID,
		UserID:         member.ID,
	}).Error)

	result, err := svc.MintLaunchToken(member, "")
	require.NoError(t, err)
	require.True(t, result.ExpiresAt.After(time.Now()))

	body, ok := signing.DecodeToken([]byte(env.cfg.Voting.SharedSecret), result.Token)
	require.True(t, ok, "token must verify against the shared secret")

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	require.EqualValues(t, member.ID, payload["uid"])
	require.EqualValues(t, org.ID, payload["org"])
	require.Equal(t, "member@example.com", payload["email"])
	require.Equal(t, "voter", payload["role"])
	require.EqualValues(t, event.ID, payload["event"])
	require.Equal(t, "Assembly", payload["event_title"])
	require.Equal(t, true, payload["is_voting_enabled"])
	require.EqualValues(t, 1, payload["delegate_count"])
	require.NotContains(t, payload, "view")

	// A tampered signature is rejected.
	_, ok = signing.DecodeToken([]byte("wrong-secret"), result.Token)
	require.False(t, ok)
}

func TestAuthenticateInboundFreshnessBeforeSignature(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.handoffService(t)

	org := env.createOrganization(t, "Chess Club", true)
	env.createMember(t, org, "member@example.com", "Password-1")

	stale := time.Now().Unix() - 61
	// Even a correctly signed request fails on freshness first.
	_, err := svc.AuthenticateInbound(InboundAuthInput{
		Email:     "member@example.com",
		Password:  "Password-1",
		Timestamp: stale,
		Signature: signInboundRequest(env.cfg.Voting.SharedSecret, stale, "member@example.com", "Password-1"),
	})
	require.ErrorIs(t, err, ErrAuthRequestExpired)
}

func TestAuthenticateInboundRejectsTamperedPassword(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.handoffService(t)

	org := env.createOrganization(t, "Chess Club", true)
	env.createMember(t, org, "member@example.com", "Password-1")

	now := time.Now().Unix()
	// Signature covers a different password than the one presented.
	_, err := svc.AuthenticateInbound(InboundAuthInput{
		Email:     "member@example.com",
		Password:  "Password-1",
		Timestamp: now,
		Signature: signInboundRequest(env.cfg.Voting.SharedSecret, now, "member@example.com", "OtherPassword-1"),
	})
	require.ErrorIs(t, err, ErrInvalidAuthSignature)
}

func TestAuthenticateInboundVoterFlow(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.handoffService(t)

	org := env.createOrganization(t, "Chess Club", true)
	member := env.createMember(t, org, "member@example.com", "Password-1")

	event := &models.VotingEvent{Title: "Assembly", DelegateLimit: 1, IsActive: true}
	require.NoError(t, env.eventRepo.Create(event))

	call := func() (*InboundAuthResult, error) {
		now := time.Now().Unix()
		return svc.AuthenticateInbound(InboundAuthInput{
			Email:     "Member@Example.com",
			Password:  "Password-1",
			Timestamp: now,
			Signature: signInboundRequest(env.cfg.Voting.SharedSecret, now, "member@example.com", "Password-1"),
		})
	}

	_, err := call()
	require.ErrorIs(t, err, ErrVotingNotOpen)

	event.IsVotingEnabled = true
	require.NoError(t, env.eventRepo.Save(event))

	// A verified member without a delegate row still authenticates; the
	// missing roster entry only shows up in the reported standing.
	result, err := call()
	require.NoError(t, err)
	require.Equal(t, "voter", result.Role)
	require.False(t, result.IsDelegate)
	require.NotNil(t, result.EventID)

	require.NoError(t, env.db.Create(&models.EventDelegate{
		EventID:        event.ID,
		OrganizationID: org.ID,
		UserID:         member.ID,
	}).Error)

	result, err = call()
	require.NoError(t, err)
	require.Equal(t, "voter", result.Role)
	require.True(t, result.IsDelegate)
	require.False(t, result.MustChangePassword)
	require.Equal(t, member.ID, result.UserID)
	require.NotNil(t, result.EventID)
	require.Equal(t, event.ID, *result.EventID)
}

func TestAuthenticateInboundAdminBypassesEventGuards(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.handoffService(t)

	env.createAdmin(t, "admin@example.com", "Password-1")

	now := time.Now().Unix()
	result, err := svc.AuthenticateInbound(InboundAuthInput{
		Email:     "admin@example.com",
		Password:  "Password-1",
		Timestamp: now,
		Signature: signInboundRequest(env.cfg.Voting.SharedSecret, now, "admin@example.com", "Password-1"),
	})
	require.NoError(t, err)
	require.Equal(t, "admin", result.Role)
	require.True(t, result.IsDelegate)
	require.Nil(t, result.EventID)
}

func TestAuthenticateInboundReportsMustChangePassword(t *testing.T) {
	env := setupServiceTestEnv(t)
	svc := env.handoffService(t)

	org := env.createOrganization(t, "Chess Club", true)
	member := env.createMember(t, org, "member@example.com", "Password-1")
	member.MustChangePassword = true
	require.NoError(t, env.userRepo.Save(member))

	event := &models.VotingEvent{Title: "Assembly", DelegateLimit: 1, IsActive: true, IsVotingEnabled: true}
	require.NoError(t, env.eventRepo.Create(event))

	now := time.Now().Unix()
	result, err := svc.AuthenticateInbound(InboundAuthInput{
		Email:     "member@example.com",
		Password:  "Password-1",
		Timestamp: now,
		Signature: signInboundRequest(env.cfg.Voting.SharedSecret, now, "member@example.com", "Password-1"),
	})
	require.NoError(t, err)
	require.True(t, result.MustChangePassword)
}

func TestAuthenticateInboundZeroTTLKeepsMinimalWindow(t *testing.T) {
	env := setupServiceTestEnv(t)

	cfg := env.cfg.Voting
	cfg.AuthTTLSeconds = 0
	svc := NewHandoffService(cfg, env.userRepo, env.orgRepo, env.eventRepo, env.logger)

	env.createAdmin(t, "admin@example.com", "Password-1")

	// A misconfigured window floors at one second rather than rejecting
	// every request.
	now := time.Now().Unix()
	result, err := svc.AuthenticateInbound(InboundAuthInput{
		Email:     "admin@example.com",
		Password:  "Password-1",
		Timestamp: now,
		Signature: signInboundRequest(cfg.SharedSecret, now, "admin@example.com", "Password-1"),
	})
	require.NoError(t, err)
	require.Equal(t, "admin", result.Role)
}

func TestPushEventStateSignsPayload(t *testing.T) {
	env := setupServiceTestEnv(t)

	type captured struct {
		path      string
		body      []byte
		timestamp string
		signature string
	}
	received := make(chan captured, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- captured{
			path:      r.URL.Path,
			body:      body,
			timestamp: r.Header.Get("x-voting-timestamp"),
			signature: r.Header.Get("x-voting-signature"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := env.cfg.Voting
	cfg.AppBaseURL = server.URL
	svc := NewHandoffService(cfg, env.userRepo, env.orgRepo, env.eventRepo, env.logger)

	event := &models.VotingEvent{Title: "Assembly", DelegateLimit: 1, IsActive: true}
	require.NoError(t, env.eventRepo.Create(event))

	svc.PushEventState(event)

	select {
	case got := <-received:
		require.Equal(t, "/api/internal/event-sync", got.path)
		require.NotEmpty(t, got.timestamp)
		expected := signing.SignHex([]byte(cfg.SharedSecret),
			[]byte(got.timestamp+":"+string(got.body)))
		require.Equal(t, expected, got.signature)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(got.body, &payload))
		require.Equal(t, true, payload["active"])
		require.Equal(t, "Assembly", payload["title"])
	case <-time.After(2 * time.Second):
		t.Fatal("no sync push received")
	}
}

func TestPushEventStateSwallowsFailures(t *testing.T) {
	env := setupServiceTestEnv(t)

	cfg := env.cfg.Voting
	cfg.AppBaseURL = "http://127.0.0.1:1" // nothing listens here
	svc := NewHandoffService(cfg, env.userRepo, env.orgRepo, env.eventRepo, env.logger)

	// Must not panic or error out.
	svc.PushEventState(nil)
}
