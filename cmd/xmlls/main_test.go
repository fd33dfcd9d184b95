package main

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/xmlls/internal/adapter"
	"github.com/ZebulonRouseFrantzich/xmlls/internal/artifact"
	"github.com/ZebulonRouseFrantzich/xmlls/internal/platform"
	"github.com/ZebulonRouseFrantzich/xmlls/internal/testutil"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	a := &app{
		stdin:    strings.NewReader(""),
		stdout:   &stdout,
		stderr:   &stderr,
		detector: platform.StaticDetector{Info: platform.Info{OS: "linux", Arch: "amd64"}},
		options:  []adapter.Option{adapter.WithRetries(0, time.Millisecond)},
	}

	root := newRootCommand(a)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func newMavenServer(t *testing.T, version string, jar []byte) *httptest.Server {
	t.Helper()

	sum := sha1.Sum(jar)
	base := "/org/eclipse/lemminx/org.eclipse.lemminx"
	jarPath := fmt.Sprintf("%s/%s/org.eclipse.lemminx-%s-uber.jar", base, version, version)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case base + "/maven-metadata.xml":
			fmt.Fprintf(w, "<metadata><versioning><release>%s</release></versioning></metadata>", version)
		case jarPath + ".sha1":
			fmt.Fprintln(w, hex.EncodeToString(sum[:]))
		case jarPath:
			_, _ = w.Write(jar)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestConfigInit(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	out, err := runCLI(t, "config", "init")
	require.NoError(t, err)
	require.Contains(t, out, env.ConfigFile)

	_, err = os.Stat(env.ConfigFile)
	require.NoError(t, err)

	_, err = runCLI(t, "config", "init")
	require.ErrorContains(t, err, "already exists")

	_, err = runCLI(t, "config", "init", "--force")
	require.NoError(t, err)

	out, err = runCLI(t, "config", "show")
	require.NoError(t, err)
	require.Contains(t, out, "version: latest")
	require.Contains(t, out, "strategy: auto")

	out, err = runCLI(t, "config", "path")
	require.NoError(t, err)
	require.Equal(t, env.ConfigFile+"\n", out)
}

func TestConfigInit_RejectsYAMLPath(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	_, err := runCLI(t, "--config", filepath.Join(env.ConfigDir, "xmlls.yaml"), "config", "init")
	require.Error(t, err)
}

func TestLifecycle(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	jar := []byte("lemminx uber jar")
	server := newMavenServer(t, "0.27.1", jar)

	env.WriteConfig(t, fmt.Sprintf(`xmlls = {
  strategy = "jar",
  repository_url = %q,
  format = { tab_size = 3 },
}`, server.URL))

	_, err := runCLI(t, "command")
	require.ErrorIs(t, err, artifact.ErrNotInstalled)

	out, err := runCLI(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Installed:  no")

	out, err = runCLI(t, "install")
	require.NoError(t, err)
	require.Contains(t, out, "LemMinX 0.27.1 (jar) ready")

	jarPath := filepath.Join(env.CacheDir, "jar", "org.eclipse.lemminx-0.27.1-uber.jar")

	out, err = runCLI(t, "command", "--json")
	require.NoError(t, err)
	var argv []string
	require.NoError(t, json.Unmarshal([]byte(out), &argv))
	require.Equal(t, []string{"java", "-jar", jarPath}, argv)

	out, err = runCLI(t, "status", "--check")
	require.NoError(t, err)
	require.Contains(t, out, "Installed:  0.27.1")
	require.Contains(t, out, "Update:     up to date")

	out, err = runCLI(t, "init-options")
	require.NoError(t, err)
	require.EqualValues(t, 3, gjson.Get(out, "settings.xml.format.tabSize").Int())
	require.Equal(t, filepath.Join(env.CacheDir, "jar"), gjson.Get(out, "settings.xml.server.workDir").String())

	out, err = runCLI(t, "config", "get", "xml.format.tabSize")
	require.NoError(t, err)
	require.Equal(t, "3\n", out)

	_, err = runCLI(t, "config", "get", "xml.symbols.enabled")
	require.ErrorContains(t, err, "not set")

	_, err = runCLI(t, "uninstall")
	require.NoError(t, err)

	out, err = runCLI(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Installed:  no")
}

func TestInstall_ResolveFailure(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	env.WriteConfig(t, fmt.Sprintf(`xmlls = { strategy = "jar", repository_url = %q }`, server.URL))

	_, err := runCLI(t, "install")
	var resolveErr *artifact.ResolveError
	require.ErrorAs(t, err, &resolveErr)
}

func TestInvalidFlags(t *testing.T) {
	testutil.SetupTestEnv(t)

	_, err := runCLI(t, "--log-level", "loud", "config", "path")
	require.ErrorContains(t, err, "invalid log level")

	_, err = runCLI(t, "--log-format", "xml", "config", "path")
	require.ErrorContains(t, err, "invalid log format")
}

func TestInvalidSettings(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	env.WriteConfig(t, `xmlls = { strategy = "docker" }`)

	_, err := runCLI(t, "status")
	require.ErrorContains(t, err, "strategy")
}
