package executil

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunExitCode(t *testing.T) {
	testCases := []struct {
		argv []string
		code int
	}{
		{argv: []string{"sh", "-c", "exit 0"}, code: 0},
		{argv: []string{"sh", "-c", "exit 7"}, code: 7},
		{argv: []string{"sh", "-c", "exit 1"}, code: 1},
	}

	for _, test := range testCases {
		code, err := Run(context.Background(), Cmd{Argv: test.argv})
		require.NoError(t, err)
		require.Equal(t, test.code, code)
	}
}

func TestRunCapturesOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code, err := Run(context.Background(), Cmd{
		Argv:   []string{"sh", "-c", "echo out; echo err >&2"},
		Stdout: &stdout,
		Stderr: &stderr,
	})
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Equal(t, "out\n", stdout.String())
	require.Equal(t, "err\n", stderr.String())
}

func TestRunEmptyCommand(t *testing.T) {
	_, err := Run(context.Background(), Cmd{})
	require.Error(t, err)
}

func TestRunMissingBinary(t *testing.T) {
	_, err := Run(context.Background(), Cmd{
		Argv: []string{"definitely-not-a-real-binary-name"},
	})
	require.Error(t, err)
}

func TestRunContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*100)
	defer cancel()

	_, err := Run(ctx, Cmd{Argv: []string{"sleep", "10"}})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunChildEnvIsExact(t *testing.T) {
	t.Setenv("EXECUTIL_TEST_PARENT", "leaky")

	var stdout bytes.Buffer
	code, err := Run(context.Background(), Cmd{
		Argv:   []string{"sh", "-c", `echo "${EXECUTIL_TEST_PARENT:-unset}:${EXECUTIL_TEST_CHILD:-unset}"`},
		Env:    []string{"EXECUTIL_TEST_CHILD=present"},
		Stdout: &stdout,
	})
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Equal(t, "unset:present\n", stdout.String())
}

func TestScrubEnv(t *testing.T) {
	environ := []string{
		"PATH=/usr/bin",
		"HF_TOKEN=hf_secret",
		"HF_USERNAME=someone",
		"HOME=/home/runner",
	}
	scrubbed := ScrubEnv(environ, []string{"HF_TOKEN", "HF_USERNAME"})
	require.Equal(t, []string{"PATH=/usr/bin", "HOME=/home/runner"}, scrubbed)
}

func TestScrubEnvKeepsPrefixCollisions(t *testing.T) {
	environ := []string{"HF_TOKEN_BACKUP=keep", "HF_TOKEN=drop"}
	scrubbed := ScrubEnv(environ, []string{"HF_TOKEN"})
	require.Equal(t, []string{"HF_TOKEN_BACKUP=keep"}, scrubbed)
}

func TestSetEnv(t *testing.T) {
	environ := []string{"PATH=/usr/bin", "HF_TOKEN=old"}
	environ = SetEnv(environ, "HF_TOKEN", "new")
	require.Equal(t, []string{"PATH=/usr/bin", "HF_TOKEN=new"}, environ)

	environ = SetEnv(environ, "HF_USERNAME", "someone")
	require.Equal(t, []string{"PATH=/usr/bin", "HF_TOKEN=new", "HF_USERNAME=someone"}, environ)
}
