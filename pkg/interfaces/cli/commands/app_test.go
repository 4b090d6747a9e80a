package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/requisition/pkg/domain/entities"
	testhelpers "github.com/vsinha/requisition/pkg/infrastructure/testing"
)

// harness runs CLI invocations against a fake backend and a SQLite file, so
// state carries over between invocations as it would between processes
type harness struct {
	t       *testing.T
	fake    *testhelpers.FakeServer
	environ map[string]string
	stdin   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := testhelpers.NewFakeServer()
	t.Cleanup(fake.Close)

	return &harness{
		t:    t,
		fake: fake,
		environ: map[string]string{
			"REQUISITION_BACKEND_URL":         fake.URL(),
			"REQUISITION_BACKEND_MAX_RETRIES": "0",
			"REQUISITION_STORE_DRIVER":        "sqlite",
			"REQUISITION_STORE_PATH":          filepath.Join(t.TempDir(), "state.db"),
			"REQUISITION_LOG_LEVEL":           "error",
		},
	}
}

func (h *harness) run(args ...string) (int, string, string) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	runner := &Runner{
		Stdin:   strings.NewReader(h.stdin),
		Stdout:  &stdout,
		Stderr:  &stderr,
		Environ: h.environ,
	}
	code := runner.Run(context.Background(), args)
	return code, stdout.String(), stderr.String()
}

func (h *harness) login() {
	h.t.Helper()
	code, _, stderr := h.run("login", "--email", "peminta@example.org", "--password", testhelpers.SamplePassword)
	require.Equal(h.t, ExitOK, code, stderr)
}

func TestRun_Usage(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		args   []string
		code   int
		stdout string
		stderr string
	}{
		{"help", []string{"help"}, ExitOK, "Commands:", ""},
		{"no command", nil, ExitUsage, "", "Usage: requisition"},
		{"unknown command", []string{"launch"}, ExitUsage, "", `unknown command "launch"`},
		{"bad format", []string{"--format", "xml", "whoami"}, ExitUsage, "", "unsupported output format: xml"},
		{"bad flag", []string{"--nope"}, ExitUsage, "", "flag provided but not defined"},
		{"bad store override", []string{"--store", "mongo", "whoami"}, ExitUsage, "", `unknown store driver "mongo"`},
		{"login without email", []string{"login"}, ExitUsage, "", "--email is required"},
		{"cart add bad id", []string{"cart", "add", "abc", "1"}, ExitUsage, "", `invalid variant id "abc"`},
		{"cart add huge quantity", []string{"cart", "add", "1", "9223372036854775807"}, ExitUsage, "", "exceeds the limit of 1000000"},
		{"cart set overflowing quantity", []string{"cart", "set", "1", "9223372036854775808"}, ExitUsage, "", `invalid quantity "9223372036854775808"`},
		{"cart unknown subcommand", []string{"cart", "empty"}, ExitUsage, "", `unknown cart subcommand "empty"`},
		{"request without id", []string{"request", "show"}, ExitUsage, "", "request needs a subcommand and a request id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := h.run(tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, stdout, tt.stdout)
			assert.Contains(t, stderr, tt.stderr)
		})
	}
}

func TestRun_ProtectedCommandsRequireLogin(t *testing.T) {
	h := newHarness(t)

	for _, args := range [][]string{
		{"whoami"},
		{"stock"},
		{"cart", "show"},
		{"submit"},
		{"requests"},
		{"request", "show", "1"},
	} {
		code, _, stderr := h.run(args...)
		assert.Equal(t, ExitFailure, code, "args %v", args)
		assert.Contains(t, stderr, "not logged in", "args %v", args)
	}
	assert.Zero(t, h.fake.Hits(testhelpers.RouteProfile), "no token means no verification call")
}

func TestRun_Login(t *testing.T) {
	t.Run("password flag", func(t *testing.T) {
		h := newHarness(t)
		code, stdout, _ := h.run("login", "--email", "peminta@example.org", "--password", testhelpers.SamplePassword)
		assert.Equal(t, ExitOK, code)
		assert.Contains(t, stdout, "Siti Aminah <peminta@example.org>")

		code, stdout, _ = h.run("whoami")
		assert.Equal(t, ExitOK, code)
		assert.Contains(t, stdout, "Department: KEU")
		assert.Equal(t, 1, h.fake.Hits(testhelpers.RouteProfile), "stored token verified on start")
	})

	t.Run("password from stdin", func(t *testing.T) {
		h := newHarness(t)
		h.stdin = testhelpers.SamplePassword + "\n"
		code, _, stderr := h.run("login", "--email", "peminta@example.org")
		assert.Equal(t, ExitOK, code, stderr)
	})

	t.Run("password from environment", func(t *testing.T) {
		h := newHarness(t)
		h.environ[passwordEnv] = testhelpers.SamplePassword
		code, _, stderr := h.run("login", "--email", "peminta@example.org")
		assert.Equal(t, ExitOK, code, stderr)
	})

	t.Run("bad credentials", func(t *testing.T) {
		h := newHarness(t)
		code, _, stderr := h.run("login", "--email", "peminta@example.org", "--password", "salah")
		assert.Equal(t, ExitFailure, code)
		assert.Contains(t, stderr, "Unable to log in with provided credentials.")

		code, _, _ = h.run("whoami")
		assert.Equal(t, ExitFailure, code)
	})

	t.Run("backend unreachable", func(t *testing.T) {
		h := newHarness(t)
		h.fake.Close()
		code, _, stderr := h.run("login", "--email", "peminta@example.org", "--password", testhelpers.SamplePassword)
		assert.Equal(t, ExitFailure, code)
		assert.Contains(t, stderr, "cannot reach the server")
	})
}

func TestRun_RevokedTokenIsForgotten(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.fake.RevokeTokens()

	code, _, stderr := h.run("whoami")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "not logged in")

	profileHits := h.fake.Hits(testhelpers.RouteProfile)
	code, _, _ = h.run("whoami")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, profileHits, h.fake.Hits(testhelpers.RouteProfile), "token was removed, nothing left to verify")
}

func TestRun_Logout(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.fake.FailNext(testhelpers.RouteLogout, http.StatusServiceUnavailable, `{}`)
	code, stdout, stderr := h.run("logout")
	assert.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stdout, "Logged out.")

	code, _, _ = h.run("whoami")
	assert.Equal(t, ExitFailure, code)
}

func TestRun_CartAndRequestLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login()

	code, stdout, _ := h.run("stock", "--search", "alat tulis")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "Gel Hitam 0.5")
	assert.NotContains(t, stdout, "A4 80gsm")

	code, stdout, _ = h.run("cart", "add", "1", "3")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "1 line(s), 3 item(s)")

	code, _, stderr := h.run("cart", "add", "3", "1")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "out of stock")

	code, _, stderr = h.run("cart", "add", "99", "1")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "variant 99")

	code, stdout, _ = h.run("cart", "add", "4", "2")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "2 line(s), 5 item(s)")

	code, stdout, stderr = h.run("cart", "set", "2", "7")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stderr, "variant 2 is not in the cart")
	assert.Contains(t, stdout, "2 line(s), 5 item(s)")

	code, stdout, _ = h.run("cart", "set", "1", "5")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "2 line(s), 7 item(s)")

	code, stdout, _ = h.run("cart", "remove", "4")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "1 line(s), 5 item(s)")

	code, stdout, stderr = h.run("submit")
	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stdout, "Request (Draft) (#100)")
	assert.Contains(t, stdout, "Actions: submit")

	code, stdout, _ = h.run("cart", "show")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "Cart is empty.")

	code, _, stderr = h.run("submit")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "the cart is empty")
	assert.Equal(t, 1, h.fake.Hits(testhelpers.RouteCreateRequest))

	code, stdout, _ = h.run("requests")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "(Draft)")

	code, stdout, stderr = h.run("request", "submit", "100")
	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stdout, "REQ/KEU/2025/0100")
	assert.Contains(t, stdout, "Status: Submitted")

	code, _, stderr = h.run("request", "submit", "100")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "action not allowed")
	assert.Equal(t, 1, h.fake.Hits(testhelpers.RouteSubmitRequest), "illegal action never reaches the backend")

	require.True(t, h.fake.Advance(100, entities.StatusCompleted))
	code, stdout, stderr = h.run("request", "receive", "100")
	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stdout, "Status: Received")
	assert.Contains(t, stdout, "100.0%")

	code, _, stderr = h.run("request", "show", "4242")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "request not found")
}

func TestRun_CartImport(t *testing.T) {
	h := newHarness(t)
	h.login()
	dir := t.TempDir()

	good := filepath.Join(dir, "good.csv")
	require.NoError(t, os.WriteFile(good, []byte("variant_id,quantity\n1,2\n4,10\n"), 0o600))
	code, stdout, stderr := h.run("cart", "import", good)
	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stdout, "2 line(s), 12 item(s)")

	unknown := filepath.Join(dir, "unknown.csv")
	require.NoError(t, os.WriteFile(unknown, []byte("variant_id,quantity\n2,1\n77,1\n"), 0o600))
	code, _, stderr = h.run("cart", "import", unknown)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "line 3")

	code, stdout, _ = h.run("cart")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "2 line(s), 12 item(s)", "failed import adds nothing")
}

func TestRun_JSONOutput(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.fake.Seed(testhelpers.SampleRecord(7, entities.StatusCompleted, 1, 4))

	code, stdout, stderr := h.run("--format", "json", "requests")
	require.Equal(t, ExitOK, code, stderr)

	var requests []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &requests))
	require.Len(t, requests, 1)
	assert.Equal(t, "REQ/KEU/2025/0007", requests[0]["number"])
	assert.Equal(t, []interface{}{"receive"}, requests[0]["actions"])

	code, stdout, _ = h.run("--format", "json", "logout")
	require.Equal(t, ExitOK, code)
	var message map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &message))
	assert.Equal(t, "Logged out.", message["message"])
}

func TestRun_Diag(t *testing.T) {
	h := newHarness(t)
	h.login()
	code, _, _ := h.run("cart", "add", "1", "2")
	require.Equal(t, ExitOK, code)

	code, stdout, stderr := h.run("--format", "json", "diag")
	require.Equal(t, ExitOK, code, stderr)

	var diag struct {
		Session     string `json:"session"`
		User        string `json:"user"`
		CartLines   int    `json:"cart_lines"`
		ReplayLines int    `json:"replay_lines"`
		Calls       []struct {
			Endpoint string  `json:"endpoint"`
			Outcome  string  `json:"outcome"`
			Count    float64 `json:"count"`
		} `json:"backend_calls"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &diag))
	assert.Equal(t, "Authenticated", diag.Session)
	assert.Equal(t, "peminta@example.org", diag.User)
	assert.Equal(t, 1, diag.CartLines)
	assert.Equal(t, diag.CartLines, diag.ReplayLines)
	require.Len(t, diag.Calls, 1)
	assert.Equal(t, "auth.profile", diag.Calls[0].Endpoint)
	assert.Equal(t, "ok", diag.Calls[0].Outcome)
}
