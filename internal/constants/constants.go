package constants

const (
	// ContextKeyUser is the gin context key under which the authenticated
	// user is stored by the auth middleware.
	ContextKeyUser = "current_user"

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8

	// AccessCodeAlphabet excludes visually ambiguous characters (0/O, 1/I).
	AccessCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

	// AccessCodeLength is the number of alphabet symbols per code,
	// rendered in hyphenated groups of AccessCodeGroupSize.
	AccessCodeLength    = 8
	AccessCodeGroupSize = 4
)
