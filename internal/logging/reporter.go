// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package logging

import "sync"

// Reporter receives errors destined for an external telemetry sink. The
// core never talks to a sink directly; the embedding application installs
// an implementation (configured via SENTRY_DSN or equivalent) with
// SetReporter.
type Reporter interface {
	// CaptureError forwards an error with classification tags.
	CaptureError(err error, tags map[string]string)
}

// NopReporter discards all reports. It is the default.
type NopReporter struct{}

// CaptureError implements Reporter.
func (NopReporter) CaptureError(error, map[string]string) {}

var (
	reporterMu sync.RWMutex
	reporter   Reporter = NopReporter{}
)

// SetReporter installs the process-wide error reporter.
func SetReporter(r Reporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	if r == nil {
		reporter = NopReporter{}
		return
	}
	reporter = r
}

// Report forwards an error to the installed reporter. Safe with a nil
// error (no-op).
func Report(err error, tags map[string]string) {
	if err == nil {
		return
	}
	reporterMu.RLock()
	r := reporter
	reporterMu.RUnlock()
	r.CaptureError(err, tags)
}
