package signing

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var secret = []byte("test-shared-secret")

func TestCanonicalJSONSortsKeys(t *testing.T) {
	body, err := CanonicalJSON(map[string]any{
		"zeta":  1,
		"alpha": "x",
		"mid":   nil,
	})
	require.NoError(t, err)
	require.Equal(t, `{"alpha":"x","mid":null,"zeta":1}`, string(body))
}

func TestEncodeDecodeTokenRoundTrip(t *testing.T) {
	token, err := EncodeToken(secret, map[string]any{"uid": 7, "role": "voter"})
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(token, "."))

	body, ok := DecodeToken(secret, token)
	require.True(t, ok)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	require.EqualValues(t, 7, payload["uid"])
	require.Equal(t, "voter", payload["role"])
}

func TestDecodeTokenRejectsTampering(t *testing.T) {
	token, err := EncodeToken(secret, map[string]any{"uid": 7})
	require.NoError(t, err)

	_, ok := DecodeToken([]byte("other-secret"), token)
	require.False(t, ok)

	dot := strings.LastIndexByte(token, '.')
	forged := token[:dot] + "." + strings.Repeat("0", 64)
	_, ok = DecodeToken(secret, forged)
	require.False(t, ok)

	for _, malformed := range []string{"", "nodothere", ".sig", "body."} {
		_, ok := DecodeToken(secret, malformed)
		require.False(t, ok, malformed)
	}
}

func TestVerifyHexIsCaseInsensitive(t *testing.T) {
	message := []byte("1700000000:user@example.com:pw")
	sig := SignHex(secret, message)

	require.True(t, VerifyHex(secret, message, sig))
	require.True(t, VerifyHex(secret, message, "  "+strings.ToUpper(sig)+" "))
	require.False(t, VerifyHex(secret, message, sig[:len(sig)-1]+"x"))
	require.False(t, VerifyHex(secret, []byte("other"), sig))
}

func TestSignTimestampedMatchesManualConstruction(t *testing.T) {
	sig := SignTimestamped(secret, 1700000000, "user@example.com:pw")
	manual := SignHex(secret, []byte("1700000000:user@example.com:pw"))
	require.Equal(t, manual, sig)
}
