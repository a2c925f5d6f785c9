package cli_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/absmach/flparticipant"
	"github.com/absmach/flparticipant/cli"
	"github.com/absmach/flparticipant/pkg/sdk"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())

	return stdout.String(), stderr.String()
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	a, b := cli.DefaultConfig(), cli.DefaultConfig()
	assert.NotEmpty(t, a.Participant.ID)
	assert.NotEmpty(t, a.Participant.Name)
	assert.NotEqual(t, a.Participant.ID, b.Participant.ID)
}

func TestInitCmd(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")

	stdout, stderr := execute(t, cli.NewInitCmd(), "--yes", "--config", path)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "Successfully created")

	cfg, err := flparticipant.LoadConfig(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Participant.ID)
	assert.NotEmpty(t, cfg.Participant.Name)

	_, stderr = execute(t, cli.NewInitCmd(), "--yes", "--config", path)
	assert.Contains(t, stderr, "already exists")

	again, err := flparticipant.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Participant.ID, again.Participant.ID)

	_, stderr = execute(t, cli.NewInitCmd(), "--yes", "--force", "--config", path)
	assert.Empty(t, stderr)

	overwritten, err := flparticipant.LoadConfig(path)
	require.NoError(t, err)
	assert.NotEqual(t, cfg.Participant.ID, overwritten.Participant.ID)
}

func newParticipant(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"participant_id": "participant-1",
			"phase":          "Waiting",
			"round":          -1,
		})
	})
	mux.HandleFunc("GET /rounds", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"limit":  5,
			"total":  1,
			"rounds": []map[string]any{{"round": 7, "num_samples": 128}},
		})
	})
	mux.HandleFunc("POST /nudge", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

// The participant commands share a package level SDK, so these tests do not
// run in parallel.
func TestParticipantCmds(t *testing.T) {
	server := newParticipant(t)
	cli.SetParticipantSDK(sdk.NewSDK(sdk.Config{ParticipantURL: server.URL}))

	stdout, stderr := execute(t, cli.NewStatusCmd())
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "participant-1")
	assert.Contains(t, stdout, "Waiting")

	stdout, stderr = execute(t, cli.NewRoundsCmd(), "--limit", "5")
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "128")

	stdout, stderr = execute(t, cli.NewNudgeCmd())
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "Heartbeat requested")

	cli.SetParticipantSDK(sdk.NewSDK(sdk.Config{ParticipantURL: server.URL + "/missing"}))

	_, stderr = execute(t, cli.NewStatusCmd())
	assert.Contains(t, stderr, "unexpected response code: 404")

	_, stderr = execute(t, cli.NewNudgeCmd())
	assert.Contains(t, stderr, "unexpected response code: 404")
}

func TestUsage(t *testing.T) {
	t.Parallel()

	stdout, _ := execute(t, cli.NewStatusCmd(), "extra")
	assert.Contains(t, stdout, "usage: status")

	stdout, _ = execute(t, cli.NewRoundsCmd(), "extra")
	assert.Contains(t, stdout, "usage: rounds")

	stdout, _ = execute(t, cli.NewInitCmd(), "extra")
	assert.Contains(t, stdout, "usage: init")
}
