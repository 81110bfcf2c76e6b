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

package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRefreshInterval is how often a Refresher checks the session.
const DefaultRefreshInterval = time.Minute

// Refresher re-authenticates from the environment whenever the session is
// close to expiry. Only long-running transports start one.
type Refresher struct {
	manager  *Manager
	interval time.Duration
	logger   *slog.Logger
}

// NewRefresher creates a Refresher for m. A non-positive interval uses DefaultRefreshInterval.
func NewRefresher(m *Manager, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{manager: m, interval: interval, logger: m.logger}
}

// Run checks the session every interval until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshIfNeeded(ctx)
		}
	}
}

// RefreshIfNeeded re-authenticates once if ShouldRefresh reports true.
// Failures are logged and keep the current session; the next tick tries again.
func (r *Refresher) RefreshIfNeeded(ctx context.Context) bool {
	if !r.manager.ShouldRefresh() {
		return false
	}
	if err := r.manager.refresh(ctx); err != nil {
		r.logger.Error("scheduled re-authentication failed", slog.String("error", err.Error()))
		return false
	}
	return true
}
