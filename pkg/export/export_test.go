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
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/T4cceptor/mps-mcp/pkg/platform"
)

type zipEntry struct {
	name    string
	content string
}

// buildZip creates an in-memory archive; names ending in "/" become directory markers.
func buildZip(t *testing.T, entries []zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		fw, err := w.Create(e.name)
		require.NoError(t, err)
		if !strings.HasSuffix(e.name, "/") {
			_, err = fw.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

type fakeDownloader struct {
	archive []byte
	err     error
	got     platform.ExportPayload
}

func (f *fakeDownloader) ExportCodeTemplate(_ context.Context, payload platform.ExportPayload) (io.ReadCloser, error) {
	f.got = payload
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.archive)), nil
}

func validRequest(outputDir string) Request {
	return Request{
		TemplateType: "vue",
		TemplateID:   "12",
		ModuleName:   "orders",
		SortAlias:    "-id",
		OutputDir:    outputDir,
	}
}

// listTree returns every regular file below root, relative and slash separated.
func listTree(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestExport_SkipsDirectoryMarkers(t *testing.T) {
	out := t.TempDir()
	dl := &fakeDownloader{archive: buildZip(t, []zipEntry{
		{name: "a/b.txt", content: "hello"},
		{name: "a/"},
	})}

	result, err := NewExporter(dl, 1, nil).Export(context.Background(), validRequest(out))
	require.NoError(t, err)

	want := filepath.Join(out, "a", "b.txt")
	assert.Equal(t, []string{want}, result.OutputFiles)
	assert.Equal(t, []string{"a/b.txt"}, listTree(t, out), "temporary archive must be gone")

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	assert.Equal(t, platform.ExportPayload{
		TemplateType: "vue",
		TemplateID:   "12",
		ModuleName:   "orders",
		SortAlias:    "-id",
	}, dl.got)
}

func TestExport_WritesEveryFileEntry(t *testing.T) {
	entries := []zipEntry{
		{name: "Index.vue", content: "<template><div/></template>"},
		{name: "components/"},
		{name: "components/Table.vue", content: strings.Repeat("row\n", 5000)},
		{name: "components/Form.vue", content: "<form/>"},
		{name: "api/"},
		{name: "api/nested/deep/orders.js", content: "export default {}"},
		{name: "empty.txt", content: ""},
	}

	for _, workers := range []int{1, 4} {
		t.Run("workers="+strconv.Itoa(workers), func(t *testing.T) {
			out := t.TempDir()
			dl := &fakeDownloader{archive: buildZip(t, entries)}

			result, err := NewExporter(dl, workers, nil).Export(context.Background(), validRequest(out))
			require.NoError(t, err)

			var wantPaths []string
			for _, e := range entries {
				if strings.HasSuffix(e.name, "/") {
					continue
				}
				path := filepath.Join(out, filepath.FromSlash(e.name))
				wantPaths = append(wantPaths, path)

				data, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.Equal(t, e.content, string(data), "content of %s", e.name)
			}
			assert.Equal(t, wantPaths, result.OutputFiles, "paths are reported in archive order")
			assert.Len(t, listTree(t, out), len(wantPaths))
		})
	}
}

func TestExport_CreatesOutputDirectory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "src", "pages", "orders")
	dl := &fakeDownloader{archive: buildZip(t, []zipEntry{{name: "Index.vue", content: "x"}})}

	result, err := NewExporter(dl, 1, nil).Export(context.Background(), validRequest(out))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(out, "Index.vue")}, result.OutputFiles)
}

func TestExport_RelativeOutputDirYieldsAbsolutePaths(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)
	dl := &fakeDownloader{archive: buildZip(t, []zipEntry{{name: "Index.vue", content: "x"}})}

	result, err := NewExporter(dl, 1, nil).Export(context.Background(), validRequest("pages/orders"))
	require.NoError(t, err)

	require.Len(t, result.OutputFiles, 1)
	assert.True(t, filepath.IsAbs(result.OutputFiles[0]))
	_, err = os.Stat(filepath.Join(root, "pages", "orders", "Index.vue"))
	assert.NoError(t, err)
}

func TestExport_DownloadFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "never")
	boom := errors.New("platform unavailable")
	dl := &fakeDownloader{err: boom}

	_, err := NewExporter(dl, 1, nil).Export(context.Background(), validRequest(out))

	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, StageDownload, exportErr.Stage)
	assert.ErrorIs(t, err, boom)
	assert.NoDirExists(t, out)
}

func TestExport_CorruptArchiveCleansUp(t *testing.T) {
	out := t.TempDir()
	dl := &fakeDownloader{archive: []byte("this is not a zip archive")}

	_, err := NewExporter(dl, 1, nil).Export(context.Background(), validRequest(out))

	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, StageOpen, exportErr.Stage)
	assert.Empty(t, listTree(t, out), "temporary archive removed on failure")
}

func TestExport_RejectsEscapingEntries(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	dl := &fakeDownloader{archive: buildZip(t, []zipEntry{
		{name: "../escaped.txt", content: "nope"},
	})}

	_, err := NewExporter(dl, 1, nil).Export(context.Background(), validRequest(out))

	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, StageExtract, exportErr.Stage)
	assert.NoFileExists(t, filepath.Join(root, "escaped.txt"))
	assert.Empty(t, listTree(t, out))
}

func TestExport_InvalidRequest(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Request)
		want   string
	}{
		{name: "unknown template type", mutate: func(r *Request) { r.TemplateType = "react" }, want: "tmpl_type"},
		{name: "missing template id", mutate: func(r *Request) { r.TemplateID = "" }, want: "template_id"},
		{name: "missing module name", mutate: func(r *Request) { r.ModuleName = "" }, want: "module_name"},
		{name: "missing output dir", mutate: func(r *Request) { r.OutputDir = "" }, want: "output_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest(t.TempDir())
			tt.mutate(&req)
			dl := &fakeDownloader{}

			_, err := NewExporter(dl, 1, nil).Export(context.Background(), req)

			var exportErr *ExportError
			require.ErrorAs(t, err, &exportErr)
			assert.Equal(t, StageValidate, exportErr.Stage)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, dl.got.TemplateID, "nothing downloaded for an invalid request")
		})
	}
}

func TestExtractArchive_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "a.zip")
	require.NoError(t, os.WriteFile(archive, buildZip(t, []zipEntry{{name: "x.txt", content: "x"}}), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExtractArchive(ctx, archive, filepath.Join(dir, "out"), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, "out", "x.txt"))
}
