// Copyright 2025 MakeMCP Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package export

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ExtractArchive writes every file entry of the zip at archivePath below
// outputDir and returns the written paths in archive order. Directory entries
// are skipped; parent directories are created as needed. With workers > 1
// entries are written concurrently.
func ExtractArchive(ctx context.Context, archivePath, outputDir string, workers int) ([]string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, &ExportError{Stage: StageOpen, Path: archivePath, Err: err}
	}
	defer reader.Close()

	if workers < 1 {
		workers = 1
	}

	// Slots keep archive order no matter which worker finishes first.
	written := make([]string, len(reader.File))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, entry := range reader.File {
		if isDirEntry(entry) {
			continue
		}
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			target, err := entryTarget(outputDir, entry.Name)
			if err != nil {
				return err
			}
			if err := extractEntry(gctx, entry, target); err != nil {
				return err
			}
			written[i] = target
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &ExportError{Stage: StageExtract, Err: err}
	}

	files := make([]string, 0, len(written))
	for _, path := range written {
		if path != "" {
			files = append(files, path)
		}
	}
	return files, nil
}

// isDirEntry reports whether a zip entry is a directory marker.
func isDirEntry(f *zip.File) bool {
	return strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
}

// entryTarget joins the entry name onto outputDir and rejects names that
// would land outside it.
func entryTarget(outputDir, name string) (string, error) {
	target := filepath.Join(outputDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(outputDir, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", &ExportError{Stage: StageExtract, Path: name, Err: errors.New("entry escapes the output directory")}
	}
	return target, nil
}

// extractEntry streams one entry to target. The entry reader and the output
// file are both released before it returns.
func extractEntry(ctx context.Context, entry *zip.File, target string) error {
	if err := ctx.Err(); err != nil {
		return &ExportError{Stage: StageExtract, Path: entry.Name, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return &ExportError{Stage: StageWrite, Path: target, Err: err}
	}

	src, err := entry.Open()
	if err != nil {
		return &ExportError{Stage: StageExtract, Path: entry.Name, Err: err}
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &ExportError{Stage: StageWrite, Path: target, Err: err}
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return &ExportError{Stage: StageExtract, Path: entry.Name, Err: fmt.Errorf("copying to %s: %w", target, err)}
	}
	if err := dst.Close(); err != nil {
		return &ExportError{Stage: StageWrite, Path: target, Err: err}
	}
	return nil
}
