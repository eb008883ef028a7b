package mailer

import "fmt"

// Message is a rendered email body pair.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// VerificationEmail builds the address-confirmation email sent on
// registration.
func VerificationEmail(name, link string) Message {
	if name == "" {
		name = "there"
	}
	return Message{
		Subject: "Confirm your email address",
		HTML: fmt.Sprintf(
			"<p>Hello %s,</p><p>Please confirm your email address to finish registering:</p>"+
				"<p><a href=\"%s\">Confirm email address</a></p>"+
				"<p>If you did not register, you can ignore this message.</p>",
			name, link),
		Text: fmt.Sprintf(
			"Hello %s,\n\nPlease confirm your email address to finish registering:\n%s\n\n"+
				"If you did not register, you can ignore this message.\n",
			name, link),
	}
}

// InvitationEmail builds the onboarding email for an organization
// invitation. roleLabel is a human wording of the invited role.
func InvitationEmail(orgName, roleLabel, link string) Message {
	return Message{
		Subject: fmt.Sprintf("Invitation to join %s", orgName),
		HTML: fmt.Sprintf(
			"<p>Hello,</p><p>You have been invited to join <strong>%s</strong> as %s.</p>"+
				"<p><a href=\"%s\">Accept the invitation</a></p>",
			orgName, roleLabel, link),
		Text: fmt.Sprintf(
			"Hello,\n\nYou have been invited to join %s as %s.\n\nAccept the invitation:\n%s\n",
			orgName, roleLabel, link),
	}
}

// PasswordResetEmail builds the reset-link email.
func PasswordResetEmail(name, link string, ttlMinutes int) Message {
	if name == "" {
		name = "there"
	}
	return Message{
		Subject: "Password reset",
		HTML: fmt.Sprintf(
			"<p>Hello %s,</p><p>A password reset was requested for your account. "+
				"The link below is valid for %d minutes:</p>"+
				"<p><a href=\"%s\">Reset your password</a></p>"+
				"<p>If you did not request this, you can ignore this message.</p>",
			name, ttlMinutes, link),
		Text: fmt.Sprintf(
			"Hello %s,\n\nA password reset was requested for your account. "+
				"The link below is valid for %d minutes:\n%s\n\n"+
				"If you did not request this, you can ignore this message.\n",
			name, ttlMinutes, link),
	}
}

// AdminAccountEmail builds the email carrying a freshly created or reset
// administrator account's temporary password.
func AdminAccountEmail(name, tempPassword, link string) Message {
	if name == "" {
		name = "there"
	}
	return Message{
		Subject: "Your administrator account",
		HTML: fmt.Sprintf(
			"<p>Hello %s,</p><p>An administrator account has been prepared for you. "+
				"Your temporary password is:</p><p><code>%s</code></p>"+
				"<p>You will be asked to choose a new password on first login:</p>"+
				"<p><a href=\"%s\">Sign in</a></p>",
			name, tempPassword, link),
		Text: fmt.Sprintf(
			"Hello %s,\n\nAn administrator account has been prepared for you. "+
				"Your temporary password is:\n\n%s\n\n"+
				"You will be asked to choose a new password on first login:\n%s\n",
			name, tempPassword, link),
	}
}
