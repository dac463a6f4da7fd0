//go:build integration

// SPDX-License-Identifier: Apache-2.0

package cadsmith_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kusari-oss/cadsmith/internal/agent"
	"github.com/kusari-oss/cadsmith/internal/core/config"
	"github.com/kusari-oss/cadsmith/internal/core/models"
	"github.com/kusari-oss/cadsmith/internal/sandbox"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFreeCADWorkflow drives the dummy model against a real freecadcmd.
// Set FREECAD_EXECUTABLE when the binary is not on PATH.
func TestFreeCADWorkflow(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Pipeline.Workspace = t.TempDir()
	cfg.Pipeline.MaxIterations = 2
	require.NoError(t, cfg.EnsureDirectories())

	executable := sandbox.DiscoverExecutable(cfg.CAD)
	if executable == "" {
		t.Skip("freecadcmd not found")
	}
	fmt.Printf("Using FreeCAD at %s\n", executable)

	a, err := agent.New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	t.Run("ExecuteMacro", func(t *testing.T) {
		result, err := agent.ExecuteScript(ctx, a.Engine(), "import FreeCAD\nprint(FreeCAD.Version())", 0)
		require.NoError(t, err)
		assert.True(t, result.Success, result.Error)
		assert.Equal(t, models.StrategyProcess, result.Strategy)
		assert.FileExists(t, filepath.Join(cfg.Pipeline.Workspace, "iteration_0.log"))

		fmt.Printf("✓ Macro executed\n")
		fmt.Printf("  Output lines: %d\n", len(result.OutputLog))
	})

	t.Run("FailingMacro", func(t *testing.T) {
		result, err := agent.ExecuteScript(ctx, a.Engine(), "raise RuntimeError('integration')", 99)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Error)

		fmt.Printf("✓ Failure detected: %s\n", result.Error)
	})

	t.Run("PipelineRun", func(t *testing.T) {
		report, err := a.Run(ctx, "create a 10x20x30 block", nil)
		require.NoError(t, err)
		require.NotEmpty(t, report.Artifacts)
		last := report.Artifacts[len(report.Artifacts)-1]
		assert.True(t, last.Success, last.Error)

		path, err := a.WriteReport(report)
		require.NoError(t, err)
		assert.FileExists(t, path)

		fmt.Printf("✓ Pipeline finished\n")
		fmt.Printf("  Run: %s\n", report.RunID)
		fmt.Printf("  Iterations: %d\n", len(report.Artifacts))
	})
}

// TestMinioPublish publishes a simulated run to a live MinIO server.
// Requires CADSMITH_MINIO_ENDPOINT, CADSMITH_MINIO_ACCESS_KEY and CADSMITH_MINIO_SECRET_KEY.
func TestMinioPublish(t *testing.T) {
	endpoint := os.Getenv("CADSMITH_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("CADSMITH_MINIO_ENDPOINT not set")
	}

	cfg := config.NewDefaultConfig()
	cfg.CAD.ExecutablePath = filepath.Join(t.TempDir(), "missing")
	cfg.CAD.ExecutableEnv = ""
	cfg.Pipeline.Workspace = t.TempDir()
	cfg.Pipeline.MaxIterations = 1
	cfg.Artifacts = config.ArtifactsConfig{
		Backend:   "s3",
		Endpoint:  endpoint,
		Bucket:    "cadsmith-integration",
		Prefix:    "runs",
		AccessKey: os.Getenv("CADSMITH_MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("CADSMITH_MINIO_SECRET_KEY"),
	}
	require.NoError(t, cfg.EnsureDirectories())

	a, err := agent.New(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	report, err := a.Run(ctx, "create a 10x20x30 block", nil)
	require.NoError(t, err)
	reportPath, err := a.WriteReport(report)
	require.NoError(t, err)

	uploads, err := a.Publish(ctx, report, reportPath)
	require.NoError(t, err)
	require.NotEmpty(t, uploads)

	client, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(cfg.Artifacts.AccessKey, cfg.Artifacts.SecretKey, ""),
	})
	require.NoError(t, err)
	for _, upload := range uploads {
		_, err := client.StatObject(ctx, cfg.Artifacts.Bucket, upload.Key, minio.StatObjectOptions{})
		assert.NoError(t, err, upload.Key)
	}

	fmt.Printf("✓ Published %d objects\n", len(uploads))
	fmt.Printf("  First: %s\n", uploads[0].Location)
}
