package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/muhammadolammi/polypopcareers/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "8000")
	t.Setenv("STORAGE_BACKEND", "local")
	t.Setenv("S3_BUCKET_NAME", "polypop-resumes")

	cmd := newRootCommand(context.Background())
	require.NoError(t, cmd.ParseFlags([]string{"--host", "127.0.0.1", "--port", "9090", "--backend", "S3"}))

	env, err := loadEnv(cmd)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", env.Host)
	assert.Equal(t, 9090, env.Port)
	assert.Equal(t, config.BackendS3, env.StorageBackend)
	assert.Equal(t, "polypop-resumes", env.S3Bucket)
}

func TestRootCommandKeepsEnvironmentWithoutFlags(t *testing.T) {
	t.Setenv("PORT", "8100")
	t.Setenv("DEBUG", "true")
	t.Setenv("STORAGE_BACKEND", "local")

	cmd := newRootCommand(context.Background())
	require.NoError(t, cmd.ParseFlags(nil))

	env, err := loadEnv(cmd)
	require.NoError(t, err)
	assert.Equal(t, 8100, env.Port)
	assert.True(t, env.Debug)
	assert.Equal(t, config.BackendLocal, env.StorageBackend)
}

func TestRootCommandRejectsInvalidConfig(t *testing.T) {
	t.Setenv("PORT", "8000")
	cmd := newRootCommand(context.Background())
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--backend", "ftp"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown STORAGE_BACKEND")
}

func TestRootCommandHelpIgnoresBrokenEnvironment(t *testing.T) {
	t.Setenv("PORT", "abc")

	out := new(bytes.Buffer)
	cmd := newRootCommand(context.Background())
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "--backend")
}

func TestRootCommandReportsBrokenEnvironment(t *testing.T) {
	t.Setenv("PORT", "abc")

	cmd := newRootCommand(context.Background())
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(nil)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read environment")
}
