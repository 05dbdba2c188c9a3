package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ticketify/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func writePasswordFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "admin.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestPasswordFile_Plain(t *testing.T) {
	p := NewPasswordFile(writePasswordFile(t, `{"password":"s3cret"}`))
	ctx := context.Background()

	ok, err := p.CheckPassword(ctx, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.CheckPassword(ctx, "S3cret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordFile_Hash(t *testing.T) {
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	p := NewPasswordFile(writePasswordFile(t, `{"password_hash":"`+hash+`"}`))
	ctx := context.Background()

	ok, err := p.CheckPassword(ctx, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.CheckPassword(ctx, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordFile_Misconfigured(t *testing.T) {
	ctx := context.Background()

	_, err := NewPasswordFile(filepath.Join(t.TempDir(), "missing.json")).CheckPassword(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = NewPasswordFile(writePasswordFile(t, `{}`)).CheckPassword(ctx, "")
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = NewPasswordFile(writePasswordFile(t, `nope`)).CheckPassword(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrConfig)
}
