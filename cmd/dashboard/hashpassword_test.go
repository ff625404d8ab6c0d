package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enterprise/fraud-dashboard/internal/auth"
)

func TestHashPassword(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, hashPassword(strings.NewReader("s3cret pass\n"), &out))

	hash := strings.TrimSpace(out.String())
	assert.True(t, auth.CheckPassword("s3cret pass", hash))
	assert.False(t, auth.CheckPassword("s3cret", hash))
}

func TestHashPasswordWithoutNewline(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, hashPassword(strings.NewReader("hunter2"), &out))
	assert.True(t, auth.CheckPassword("hunter2", strings.TrimSpace(out.String())))
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	var out bytes.Buffer
	err := hashPassword(strings.NewReader("\n"), &out)
	assert.ErrorIs(t, err, errEmptyPassword)
	assert.Empty(t, out.String())
}
