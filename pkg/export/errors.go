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

import "fmt"

// Stages at which an export can fail.
const (
	StageValidate = "validate"
	StageDownload = "download"
	StagePrepare  = "prepare"
	StageOpen     = "open"
	StageExtract  = "extract"
	StageWrite    = "write"
)

// ExportError reports a failed export. Files extracted before the failure are
// left on disk.
type ExportError struct {
	Stage string
	// Path is the archive entry or file involved, if any.
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("export %s %s: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("export %s: %v", e.Stage, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
