package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/tierstat/internal/config"
	"github.com/xtxerr/tierstat/internal/constants"
	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/query"
	"github.com/xtxerr/tierstat/internal/testutil"
)

const metrics = `{"epoch_ms":1,"usage":[{"free":10,"total":100},{"free":0,"total":50}]}
{"epoch_ms":2,"usage":[{"free":20,"total":100},{"free":5,"total":50}]}
`

func runDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, constants.TierStateFile, testutil.TierStateJSONL(t,
		testutil.NewSnapshot(0, 4).Files(0, 1, 5, 1000).Build(),
		testutil.NewSnapshot(1, 4).File(1, "o1", 1000).Request(1, "o1", 2000, 3000).Build(),
	))
	testutil.WriteFile(t, dir, constants.MetricsFile, []byte(metrics))
	return dir
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestUsage(t *testing.T) {
	code, _, stderr := run(t)
	assert.Equal(t, errors.ExitUsage, code)
	assert.Contains(t, stderr, "Please specify an input run directory")

	code, _, stderr = run(t, "analyze")
	assert.Equal(t, errors.ExitUsage, code)
	assert.Contains(t, stderr, "analyze <run-dir>")

	code, _, _ = run(t, "analyze", "--no-such-flag", "x")
	assert.Equal(t, errors.ExitUsage, code)
}

func TestAnalyzeExportAndQuery(t *testing.T) {
	dir := runDir(t)
	out := filepath.Join(t.TempDir(), "export")

	code, stdout, stderr := run(t, "analyze", "--export", out, "--frames", "--workers", "2", dir)
	require.Equal(t, errors.ExitOK, code, stderr)
	assert.Contains(t, stdout, "2 tier_state timesteps, 2 usage records")
	assert.Contains(t, stdout, "2.5 ns/B")
	assert.FileExists(t, filepath.Join(out, constants.CohortLevelsFile))
	assert.Contains(t, stdout, filepath.Join(out, constants.CohortLevelsFile)+" (6 rows, ")
	assert.FileExists(t, filepath.Join(out, constants.FramesFile))

	code, stdout, stderr = run(t, "query", "--analysis", constants.AnalysisCohortLevel, "--series", "seld", out)
	require.Equal(t, errors.ExitOK, code, stderr)
	assert.Contains(t, stdout, "seldom")
	assert.Contains(t, stdout, "(2 rows)")

	code, stdout, stderr = run(t, "query", out, "SELECT count(*) AS n FROM series WHERE value IS NULL;")
	require.Equal(t, errors.ExitOK, code, stderr)
	assert.Contains(t, stdout, "(1 rows)")

	code, stdout, _ = run(t, "query", "--summary", out)
	require.Equal(t, errors.ExitOK, code)
	assert.Contains(t, stdout, constants.AnalysisTierUsed)

	code, stdout, _ = run(t, "query", "--latency-stats", out)
	require.Equal(t, errors.ExitOK, code)
	assert.Contains(t, stdout, "Normalized latency")

	code, stdout, stderr = run(t, "frames", "--analysis", constants.AnalysisTierLatency, filepath.Join(out, constants.FramesFile))
	require.Equal(t, errors.ExitOK, code, stderr)
	assert.Contains(t, stdout, "2 frames")
	assert.NotContains(t, stdout, constants.AnalysisCohortLevel)

	code, stdout, stderr = run(t, "frames", "--analysis", constants.AnalysisTierLatency, out)
	require.Equal(t, errors.ExitOK, code, stderr)
	assert.Contains(t, stdout, "2 frames")
	assert.Contains(t, stdout, "2.5 ns/B")
}

func TestAnalyzeUsageOnly(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, constants.MetricsFile, []byte(metrics))

	code, stdout, stderr := run(t, "analyze", dir)
	require.Equal(t, errors.ExitOK, code, stderr)
	assert.Contains(t, stdout, "0 tier_state timesteps, 2 usage records")
}

func TestAnalyzeExitCodes(t *testing.T) {
	t.Run("capacity violation", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteFile(t, dir, constants.MetricsFile, []byte(`{"usage":[{"free":200,"total":100}]}`+"\n"))

		code, _, stderr := run(t, "analyze", dir)
		assert.Equal(t, errors.ExitCapacity, code)
		assert.Contains(t, stderr, "capacity invariant violation")
	})

	t.Run("malformed", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteFile(t, dir, constants.TierStateFile, []byte("{not json\n"))

		code, _, stderr := run(t, "analyze", dir)
		assert.Equal(t, errors.ExitMalformedRecord, code)
		assert.Contains(t, stderr, "telemetry rejected")
	})

	t.Run("empty run dir", func(t *testing.T) {
		code, _, stderr := run(t, "analyze", t.TempDir())
		assert.Equal(t, errors.ExitFailure, code)
		assert.Contains(t, stderr, "not found")
		assert.NotContains(t, stderr, "telemetry rejected")
	})

	t.Run("invalid config", func(t *testing.T) {
		path := testutil.WriteFile(t, t.TempDir(), "config.yaml", []byte("tiers: 0\n"))
		code, _, _ := run(t, "--config", path, "analyze", runDir(t))
		assert.Equal(t, errors.ExitInvalidConfig, code)
	})
}

func TestFSBench(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, constants.FilesystemMeasurementsFile,
		[]byte("group,size,read_latency_ns,write_latency_ns\n0,1000,2000,4000\n"))

	code, stdout, stderr := run(t, "fsbench", dir)
	require.Equal(t, errors.ExitOK, code, stderr)
	assert.Contains(t, stdout, "≤64.0KB")

	code, _, _ = run(t, "fsbench", t.TempDir())
	assert.Equal(t, errors.ExitFailure, code)
}

func TestShellScript(t *testing.T) {
	dir := runDir(t)
	out := filepath.Join(t.TempDir(), "export")
	code, _, stderr := run(t, "analyze", "-q", "--export", out, dir)
	require.Equal(t, errors.ExitOK, code, stderr)

	svc, err := query.New(out, config.DefaultConfig().Query)
	require.NoError(t, err)
	defer svc.Close()

	var stdout, errOut bytes.Buffer
	sh := &shell{svc: svc, out: &stdout, errOut: &errOut}
	script := "SELECT DISTINCT analysis FROM series ORDER BY analysis;\n\nSELECT * FROM missing\nexit\nSELECT 1\n"
	err = sh.runScript(strings.NewReader(script))

	require.Error(t, err)
	assert.Equal(t, 1, sh.failed)
	assert.Contains(t, stdout.String(), constants.AnalysisTierTotal)
	assert.Contains(t, errOut.String(), "error:")
	assert.Equal(t, 1, strings.Count(stdout.String(), "rows)"))
}
