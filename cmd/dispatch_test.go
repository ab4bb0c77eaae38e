package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchCmdDryRun(t *testing.T) {
	setupTestEnv(t, `{
  "features": [
    {"id": "f1", "name": "F1", "status": "ready", "githubIssue": 1},
    {"id": "f2", "name": "F2", "blocking": true, "status": "ready", "githubIssue": 2}
  ]
}`)
	appConfig.GitHub.Token = "test-token"
	appConfig.GitHub.Owner = "douhashi"
	appConfig.GitHub.Repo = "example"

	cmd := newDispatchCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetContext(context.Background())
	require.NoError(t, cmd.Flags().Set("dry-run", "true"))

	require.NoError(t, cmd.RunE(cmd, nil))

	output := out.String()
	assert.Contains(t, output, "[dry-run] would dispatch: f1")
	assert.Contains(t, output, "skipped: f2 (blocking feature requires orchestrator attention)")
	assert.Contains(t, output, "1 dispatched, 1 skipped, 0 errors")
}
