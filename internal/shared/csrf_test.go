package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSRFTokenIsStableWithinSession(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "s1"}

	first, err := m.EnsureToken(sess)
	require.NoError(t, err)
	second, err := m.EnsureToken(sess)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.NoError(t, m.VerifyToken(sess, first))
}

func TestCSRFVerifyRejectsMissingAndWrongTokens(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "s1"}

	require.ErrorIs(t, m.VerifyToken(sess, "anything"), ErrCSRFTokenMissing)

	_, err := m.EnsureToken(sess)
	require.NoError(t, err)
	require.ErrorIs(t, m.VerifyToken(sess, ""), ErrCSRFTokenMissing)
	require.ErrorIs(t, m.VerifyToken(sess, "wrong"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, m.VerifyToken(nil, "wrong"), ErrCSRFTokenMissing)
}
