package e2e_test

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jbcurtin/astro-cloud/internal/fitstest"
)

var (
	binaryPath     string
	binaryBuildErr error
	binaryOnce     sync.Once
	sharedTempDir  string
)

const (
	testAccessKey = "AKIAE2ETESTKEY000000"
	testSecretKey = "e2e-secret-key"
)

// TestMain sets up and tears down shared test resources.
func TestMain(m *testing.M) {
	var err error
	sharedTempDir, err = os.MkdirTemp("", "astro-cloud-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = os.RemoveAll(sharedTempDir)

	os.Exit(code)
}

// AuthKey represents an access key pair accepted by the server.
type AuthKey struct {
	AccessKey string
	SecretKey string
}

// ServerConfig holds configuration for starting the range server.
type ServerConfig struct {
	Port   int
	Root   string
	Access string // public, private
	Keys   []AuthKey
}

// buildBinary compiles the astro-cloud binary once per test run.
func buildBinary(t *testing.T) string {
	t.Helper()

	binaryOnce.Do(func() {
		binaryPath = filepath.Join(sharedTempDir, "astro-cloud")

		cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/astro-cloud")
		cmd.Dir = getProjectRoot(t)
		output, err := cmd.CombinedOutput()
		if err != nil {
			binaryBuildErr = fmt.Errorf("build binary: %w\nOutput: %s", err, output)
			return
		}
	})

	if binaryBuildErr != nil {
		t.Fatalf("failed to build binary: %v", binaryBuildErr)
	}

	return binaryPath
}

// getProjectRoot returns the directory holding go.mod.
func getProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// sampleFITS is a primary HDU, a 16-bit image and a binary table, laid out
// so both extent modes find the same three headers.
func sampleFITS() []byte {
	return fitstest.Concat(
		fitstest.Primary(),
		fitstest.Image(16, 10, 5), fitstest.Data(100),
		fitstest.BinTable(24, 100), fitstest.Data(2400),
	)
}

// writeObject places content at name under root.
func writeObject(t *testing.T, root, name string, content []byte) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, content, 0o600))
}

// createConfigFile writes a server config file and returns its path.
func createConfigFile(t *testing.T, cfg ServerConfig) string {
	t.Helper()

	var sb strings.Builder
	fmt.Fprintf(&sb, `server:
  port: %d
  root: "%s"
  access: %s
  region: us-east-1
  service: s3
`, cfg.Port, cfg.Root, cfg.Access)

	if len(cfg.Keys) > 0 {
		sb.WriteString("  keys:\n    inline:\n")
		for _, key := range cfg.Keys {
			fmt.Fprintf(&sb, "      - access_key: %s\n        secret_key: %s\n", key.AccessKey, key.SecretKey)
		}
	}

	sb.WriteString("\nlog:\n  level: error\n")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(sb.String()), 0o600), "write config file")

	return configPath
}

// startServer runs `astro-cloud serve` and returns its base URL.
// The server is stopped when the test ends.
func startServer(t *testing.T, cfg ServerConfig) string {
	t.Helper()

	binary := buildBinary(t)
	configPath := createConfigFile(t, cfg)

	cmd := exec.Command(binary, "serve", "--config", configPath)
	cmd.Dir = t.TempDir()
	cmd.Env = isolatedEnv(t)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	require.NoError(t, cmd.Start(), "start server")

	stopped := false
	stop := func() {
		if stopped || cmd.Process == nil {
			return
		}
		stopped = true
		_ = cmd.Process.Signal(syscall.SIGTERM)
		_ = cmd.Wait()
	}
	t.Cleanup(stop)

	baseURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	waitForServer(t, baseURL, 10*time.Second)

	return baseURL
}

// isolatedEnv keeps the host's AWS and astro-cloud files out of the run.
func isolatedEnv(t *testing.T, extra ...string) []string {
	t.Helper()
	home := t.TempDir()
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + home,
		"AWS_CONFIG_FILE=" + filepath.Join(home, "aws-config"),
		"AWS_SHARED_CREDENTIALS_FILE=" + filepath.Join(home, "aws-credentials"),
	}
	return append(env, extra...)
}

// cliResult is the outcome of one CLI invocation.
type cliResult struct {
	Stdout string
	Stderr string
	Err    error
}

// runCLI runs the binary in dir with env and args.
func runCLI(t *testing.T, dir string, env []string, args ...string) cliResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(buildBinary(t), args...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return cliResult{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}

// waitForServer polls the server until it responds or times out.
func waitForServer(t *testing.T, baseURL string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/")
		if err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatalf("server failed to start within %v", timeout)
}

// getOpenPort finds an available TCP port.
func getOpenPort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err, "find open port")

	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close(), "close port")

	return port
}
