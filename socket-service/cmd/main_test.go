package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/jwt"
)

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--user", "u42", "--role", "admin"})
	require.NoError(t, root.Execute())

	tokens, err := jwt.NewManager(jwt.Config{Secret: "cli-secret"})
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u42", claims.Identity())
	assert.Equal(t, "admin", claims.Role)
}

func TestTokenCommand_RequiresUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"token"})
	assert.Error(t, root.Execute())
}
