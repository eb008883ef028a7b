package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^[23456789ABCDEFGHJKLMNPQRSTUVWXYZ]{4}-[23456789ABCDEFGHJKLMNPQRSTUVWXYZ]{4}$`)

func TestGenerateAccessCodeFormatAndUniqueness(t *testing.T) {
	existing := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		code, err := GenerateAccessCode(existing)
		require.NoError(t, err)
		require.Regexp(t, codePattern, code)
		_, dup := existing[code]
		require.False(t, dup)
		existing[code] = struct{}{}
	}
}

func TestGenerateAccessCodeAvoidsExisting(t *testing.T) {
	// With nothing reserved the first draw is always usable; the collision
	// retry is exercised by reserving a code and checking it never comes
	// back. Probabilistic collisions are too rare to force directly, so
	// this only checks the reserved code stays excluded.
	existing := map[string]struct{}{"AAAA-AAAA": {}}
	for i := 0; i < 50; i++ {
		code, err := GenerateAccessCode(existing)
		require.NoError(t, err)
		require.NotEqual(t, "AAAA-AAAA", code)
	}
}

func TestCanonicalizeAccessCode(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"ABCD-EFGH", "ABCD-EFGH", nil},
		{"abcdefgh", "ABCD-EFGH", nil},
		{"  ab cd ef gh  ", "ABCD-EFGH", nil},
		{"ab-cd_ef.gh", "ABCD-EFGH", nil},
		{"", "", nil},
		{"  --  ", "", nil},
		{"ABC", "", ErrMalformedAccessCode},
		{"ABCDEFGHI", "", ErrMalformedAccessCode},
	}
	for _, tc := range cases {
		got, err := CanonicalizeAccessCode(tc.in)
		if tc.wantErr != nil {
			require.ErrorIs(t, err, tc.wantErr, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}
