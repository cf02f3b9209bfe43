package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/uno-lobby/internal/server/identity"
	"github.com/palemoky/uno-lobby/internal/server/storage"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	mr := miniredis.RunT(t)

	content := fmt.Sprintf("redis:\n  addr: %q\nauth:\n  jwt_secret: %q\n", mr.Addr(), "cli-secret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLobbyctl_Lifecycle(t *testing.T) {
	t.Setenv("LOBBY_JWT_SECRET", "")
	cfg := writeTestConfig(t)

	out, err := run(t, "--config", cfg, "--as", "a@b.com", "create", "Party1")
	require.NoError(t, err)
	var created struct {
		ID    string              `json:"id"`
		Lobby storage.LobbyRecord `json:"lobby"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "a@b.com", created.Lobby.HostName)

	_, err = run(t, "--config", cfg, "--as", "c@d.com", "join", created.ID)
	require.NoError(t, err)

	out, err = run(t, "--config", cfg, "search", "Party")
	require.NoError(t, err)
	var matches []storage.LobbyMatch
	require.NoError(t, json.Unmarshal([]byte(out), &matches))
	require.Len(t, matches, 1)
	assert.Len(t, matches[0].Record.Users, 2)

	_, err = run(t, "--config", cfg, "draw-pile", created.ID, "8", "yellow")
	require.NoError(t, err)

	_, err = run(t, "--config", cfg, "leave", created.ID, "c@d.com")
	require.NoError(t, err)

	_, err = run(t, "--config", cfg, "start", created.ID)
	require.NoError(t, err)

	out, err = run(t, "--config", cfg, "show", created.ID)
	require.NoError(t, err)
	var shown struct {
		State string              `json:"state"`
		Lobby storage.LobbyRecord `json:"lobby"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "started", shown.State)
	assert.Len(t, shown.Lobby.Users, 1)
	assert.Equal(t, 8, shown.Lobby.Pioche.Value)

	_, err = run(t, "--config", cfg, "delete", created.ID)
	require.NoError(t, err)
	_, err = run(t, "--config", cfg, "show", created.ID)
	assert.Error(t, err)
}

func TestLobbyctl_Errors(t *testing.T) {
	t.Setenv("LOBBY_JWT_SECRET", "")
	cfg := writeTestConfig(t)

	_, err := run(t, "--config", cfg, "create", "Party1")
	assert.ErrorIs(t, err, errNoCaller)

	_, err = run(t, "--config", cfg, "draw-pile", "id", "x", "red")
	assert.Error(t, err)

	_, err = run(t, "--config", cfg, "draw-pile", "id", "3", "purple")
	assert.Error(t, err)

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "search", "x")
	assert.Error(t, err)
}

func TestLobbyctl_Token(t *testing.T) {
	t.Setenv("LOBBY_JWT_SECRET", "")
	cfg := writeTestConfig(t)

	out, err := run(t, "--config", cfg, "token", "a@b.com")
	require.NoError(t, err)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	name, err := identity.NewVerifier("cli-secret", "").Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", name)

	// 默认配置没有密钥
	_, err = run(t, "token", "a@b.com")
	assert.Error(t, err)
}

func TestLobbyctl_TokenSecretFromEnv(t *testing.T) {
	t.Setenv("LOBBY_JWT_SECRET", "env-secret")

	out, err := run(t, "token", "a@b.com")
	require.NoError(t, err)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	name, err := identity.NewVerifier("env-secret", "").Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", name)
}
