// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package validation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.SetLogger(old) })
	return &buf
}

func TestAudit_WarnsOncePerBatch(t *testing.T) {
	buf := captureLog(t)

	payload := `{"items": [
		{"eventid": "900", "sectionid": 101, "termid": "t1", "name": "Camp", "startdate": "2026-09-12", "surprise_field": 1},
		{"eventid": "901", "sectionid": 101, "termid": "t1", "name": "Hike", "startdate": "2026-10-03", "surprise_field": 2, "another_field": "x"}
	]}`

	events, failures := ParseEvents(101, "t1", []byte(payload))
	if len(failures) != 0 {
		t.Fatalf("Expected no failures, got %v", failures)
	}
	if len(events) != 2 {
		t.Fatalf("Expected unknown fields dropped but rows kept, got %d rows", len(events))
	}

	out := buf.String()
	if got := strings.Count(out, "Dropping unrecognized fields"); got != 1 {
		t.Fatalf("Expected exactly 1 audit warning per batch, got %d in %q", got, out)
	}
	if !strings.Contains(out, "surprise_field") || !strings.Contains(out, "another_field") {
		t.Errorf("Expected warning to name unknown fields, got %q", out)
	}
	if !strings.Contains(out, `"kind":"events"`) {
		t.Errorf("Expected warning to name the kind, got %q", out)
	}
}

func TestAudit_SilentWhenAllFieldsKnown(t *testing.T) {
	buf := captureLog(t)

	payload := `{"items": [{"eventid": "900", "sectionid": 101, "termid": "t1", "name": "Camp", "startdate": "2026-09-12"}]}`
	if _, failures := ParseEvents(101, "t1", []byte(payload)); len(failures) != 0 {
		t.Fatalf("Expected no failures, got %v", failures)
	}

	if strings.Contains(buf.String(), "Dropping unrecognized fields") {
		t.Errorf("Expected no audit warning, got %q", buf.String())
	}
}

func TestAudit_OpenKindsNotAudited(t *testing.T) {
	buf := captureLog(t)

	payload := `{"data": [{"scoutid": 7, "firstname": "Ada", "lastname": "Lovelace", "completely_custom": "x"}]}`
	if _, failures := ParseMemberGrid(101, []byte(payload)); len(failures) != 0 {
		t.Fatalf("Expected no failures, got %v", failures)
	}

	if strings.Contains(buf.String(), "Dropping unrecognized fields") {
		t.Errorf("Passthrough kinds should not warn, got %q", buf.String())
	}
}
