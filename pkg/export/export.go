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

// Package export materializes server-rendered code templates: it downloads the
// zip archive the platform renders, stores it in a temporary file inside the
// output directory and extracts it there.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/T4cceptor/mps-mcp/pkg/platform"
)

// TemplateTypes lists the template types the platform can render.
var TemplateTypes = []string{"vue", "uni-app"}

// Request identifies what to export and where to put it.
type Request struct {
	TemplateType string `json:"tmpl_type"`
	TemplateID   string `json:"template_id"`
	ModuleName   string `json:"module_name"`
	SortAlias    string `json:"sort_alias"`
	OutputDir    string `json:"output_dir"`
}

// Validate checks the request before any network or disk work is done.
func (r Request) Validate() error {
	if !slices.Contains(TemplateTypes, r.TemplateType) {
		return fmt.Errorf("tmpl_type must be one of %v, got %q", TemplateTypes, r.TemplateType)
	}
	if r.TemplateID == "" {
		return errors.New("template_id is required")
	}
	if r.ModuleName == "" {
		return errors.New("module_name is required")
	}
	if r.OutputDir == "" {
		return errors.New("output_dir is required")
	}
	return nil
}

// Result lists the files an export wrote.
type Result struct {
	OutputFiles []string `json:"output_files"`
}

// Downloader fetches the rendered archive. *platform.Client implements it.
type Downloader interface {
	ExportCodeTemplate(ctx context.Context, payload platform.ExportPayload) (io.ReadCloser, error)
}

// Exporter runs export requests.
type Exporter struct {
	downloader Downloader
	workers    int
	logger     *slog.Logger
}

// NewExporter creates an Exporter. workers bounds concurrent entry writes; values below 1 mean sequential.
func NewExporter(downloader Downloader, workers int, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	return &Exporter{downloader: downloader, workers: workers, logger: logger}
}

// Export downloads the archive for req and extracts it into req.OutputDir.
// The temporary archive is removed on every return path.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, &ExportError{Stage: StageValidate, Err: err}
	}

	outputDir, err := filepath.Abs(req.OutputDir)
	if err != nil {
		return nil, &ExportError{Stage: StagePrepare, Path: req.OutputDir, Err: err}
	}

	exportID := uuid.NewString()
	logger := e.logger.With(
		slog.String("export_id", exportID),
		slog.String("template_id", req.TemplateID),
		slog.String("output_dir", outputDir),
	)
	started := time.Now()

	body, err := e.downloader.ExportCodeTemplate(ctx, platform.ExportPayload{
		TemplateType: req.TemplateType,
		TemplateID:   req.TemplateID,
		ModuleName:   req.ModuleName,
		SortAlias:    req.SortAlias,
	})
	if err != nil {
		return nil, &ExportError{Stage: StageDownload, Err: err}
	}
	defer func() {
		if err := body.Close(); err != nil {
			logger.Warn("failed to close archive stream", slog.String("error", err.Error()))
		}
	}()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &ExportError{Stage: StagePrepare, Path: outputDir, Err: err}
	}

	archivePath := filepath.Join(outputDir, ".export-"+exportID+".zip")
	defer func() {
		if err := os.Remove(archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove temporary archive",
				slog.String("path", archivePath),
				slog.String("error", err.Error()),
			)
		}
	}()

	size, err := writeArchive(archivePath, body)
	if err != nil {
		return nil, err
	}
	logger.Debug("archive downloaded", slog.Int64("bytes", size))

	files, err := ExtractArchive(ctx, archivePath, outputDir, e.workers)
	if err != nil {
		return nil, err
	}

	logger.Info("export complete",
		slog.Int("files", len(files)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return &Result{OutputFiles: files}, nil
}

// writeArchive persists the downloaded stream to path.
func writeArchive(path string, body io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return 0, &ExportError{Stage: StagePrepare, Path: path, Err: err}
	}
	n, err := io.Copy(f, body)
	if err != nil {
		_ = f.Close()
		return n, &ExportError{Stage: StageDownload, Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return n, &ExportError{Stage: StagePrepare, Path: path, Err: err}
	}
	return n, nil
}
