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

package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/T4cceptor/mps-mcp/pkg/core"
)

// Manifest describes the tools and prompts the server exposes, without handlers.
type Manifest struct {
	Name    string           `json:"name"`
	Version string           `json:"version"`
	Tools   []core.McpTool   `json:"tools"`
	Prompts []core.McpPrompt `json:"prompts"`
}

// NewManifest collects the definitions of tools and prompts.
func NewManifest(version string, tools []core.Tool, prompts []core.Prompt) Manifest {
	m := Manifest{
		Name:    ServerName,
		Version: version,
		Tools:   make([]core.McpTool, len(tools)),
		Prompts: make([]core.McpPrompt, len(prompts)),
	}
	for i, t := range tools {
		m.Tools[i] = t.McpTool
	}
	for i, p := range prompts {
		m.Prompts[i] = p.McpPrompt
	}
	return m
}

// WriteManifest encodes m as indented JSON.
func WriteManifest(w io.Writer, m Manifest) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// SaveManifest writes m to filename, creating parent directories as needed.
func SaveManifest(filename string, m Manifest, logger *slog.Logger) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteManifest(file, m); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if absPath, err := filepath.Abs(filename); err == nil {
		filename = absPath
	}
	logger.Info("tool manifest saved", slog.String("path", filename), slog.Int("tools", len(m.Tools)))
	return nil
}
