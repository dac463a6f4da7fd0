// SPDX-License-Identifier: Apache-2.0

package artifacts

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kusari-oss/cadsmith/internal/core/models"
	"golang.org/x/sync/errgroup"
)

// PublishConcurrency bounds the uploads in flight during Publish
const PublishConcurrency = 4

// Upload is one published file
type Upload struct {
	Key      string `json:"key"`
	Location string `json:"location"`
}

type pendingUpload struct {
	key   string
	local string
}

// Publish uploads the report file and every script, log and render the report
// references under <prefix>/<run id>/. Files that no longer exist are skipped.
// The first upload error cancels the uploads not yet started; the returned
// slice holds the uploads that completed, in report order.
func Publish(ctx context.Context, store Store, prefix string, report *models.PipelineReport, reportPath string) ([]Upload, error) {
	pending := plan(path.Join(strings.Trim(prefix, "/"), report.RunID), report, reportPath)

	done := make([]bool, len(pending))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(PublishConcurrency)
	for i, p := range pending {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if err := store.Put(gCtx, p.key, p.local); err != nil {
				return err
			}
			done[i] = true
			return nil
		})
	}
	err := g.Wait()

	var uploads []Upload
	for i, p := range pending {
		if done[i] {
			uploads = append(uploads, Upload{Key: p.key, Location: store.Location(p.key)})
		}
	}
	return uploads, err
}

// plan lists the files to publish, deduplicated by key
func plan(base string, report *models.PipelineReport, reportPath string) []pendingUpload {
	var pending []pendingUpload
	seen := make(map[string]struct{})
	add := func(key, local string) {
		if local == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		if info, err := os.Stat(local); err != nil || info.IsDir() {
			return
		}
		seen[key] = struct{}{}
		pending = append(pending, pendingUpload{key: key, local: local})
	}

	add(path.Join(base, filepath.Base(reportPath)), reportPath)
	for _, artifact := range report.Artifacts {
		if script := artifact.ScriptPath; script != "" {
			add(path.Join(base, "scripts", filepath.Base(script)), script)
			logPath := strings.TrimSuffix(script, filepath.Ext(script)) + ".log"
			add(path.Join(base, "logs", filepath.Base(logPath)), logPath)
		}
		for _, render := range artifact.RenderPaths {
			add(path.Join(base, "renders", filepath.Base(render)), render)
		}
	}
	return pending
}
