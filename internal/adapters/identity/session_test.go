package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startrip/internal/domain"
)

const testSecret = "0123456789abcdef-test"

func TestSessions_IssueParseRoundTrip(t *testing.T) {
	s, err := NewSessions(testSecret, time.Hour)
	require.NoError(t, err)

	tok, exp, err := s.Issue("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	sub, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestSessions_Expired(t *testing.T) {
	s, err := NewSessions(testSecret, time.Minute)
	require.NoError(t, err)
	tok, _, err := s.Issue("user-1")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = s.Parse(tok)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSessions_WrongSecret(t *testing.T) {
	a, err := NewSessions(testSecret, time.Hour)
	require.NoError(t, err)
	b, err := NewSessions("another-secret-of-enough-length", time.Hour)
	require.NoError(t, err)

	tok, _, err := a.Issue("user-1")
	require.NoError(t, err)
	_, err = b.Parse(tok)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = a.Parse("not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestNewSessions_ShortSecret(t *testing.T) {
	_, err := NewSessions("short", time.Hour)
	assert.Error(t, err)
}
