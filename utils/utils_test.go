package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateIDIsTimeOrdered(t *testing.T) {
	a, err := GenerateID("file")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	b, err := GenerateID("file")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "file-"))
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)
}

func TestChecksum(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Checksum(nil))
	assert.Len(t, Checksum([]byte("abc")), 64)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("wrong")))
}

func TestMediaToken(t *testing.T) {
	SetMediaSecret("test-secret")

	token, exp, err := SignMediaToken("part.stl", time.Minute)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	assert.NoError(t, ValidateMediaToken(token, "part.stl"))
	assert.ErrorIs(t, ValidateMediaToken(token, "other.stl"), ErrInvalidMediaToken)
	assert.ErrorIs(t, ValidateMediaToken("garbage", "part.stl"), ErrInvalidMediaToken)

	SetMediaSecret("rotated")
	assert.ErrorIs(t, ValidateMediaToken(token, "part.stl"), ErrInvalidMediaToken)
}

func TestMediaDir(t *testing.T) {
	require.NoError(t, SetLocation("UTC"))
	ts := time.Date(2024, time.March, 9, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024/03", MediaDir(ts))
	assert.Equal(t, "2024-03-09 12:00:00", FormatDateTimeForDB(ts))

	parsed, err := ParseDBDate("2024-03-09 12:00:00")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts))
}
