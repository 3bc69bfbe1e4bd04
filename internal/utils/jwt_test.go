package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessTokenClaims(t *testing.T) {
	at, err := NewAccessToken("s3cret", "door-1", "STAFF", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), at.Exp, 5*time.Second)

	tok, err := jwt.Parse(at.Token, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	require.NoError(t, err)
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, "door-1", claims["sub"])
	assert.Equal(t, "STAFF", claims["role"])
}

func TestNewAccessTokenWrongSecret(t *testing.T) {
	at, err := NewAccessToken("a", "x", "PRODUCER", time.Minute)
	require.NoError(t, err)
	_, err = jwt.Parse(at.Token, func(*jwt.Token) (interface{}, error) { return []byte("b"), nil })
	assert.Error(t, err)
}

func TestNewAccessTokenRejectsBadInput(t *testing.T) {
	_, err := NewAccessToken("", "x", "PRODUCER", time.Minute)
	assert.Error(t, err)
	_, err = NewAccessToken("a", "x", "PRODUCER", 0)
	assert.Error(t, err)
}
