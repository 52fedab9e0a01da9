// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package models

import (
	"reflect"
	"testing"
)

func TestDeepMergeMaps(t *testing.T) {
	dst := map[string]interface{}{
		"primary": map[string]interface{}{
			"phone": "01234",
			"email": "old@example.org",
		},
		"keep": "value",
	}
	src := map[string]interface{}{
		"primary": map[string]interface{}{
			"email": "new@example.org",
		},
		"added": float64(7),
	}

	got := DeepMergeMaps(dst, src)

	want := map[string]interface{}{
		"primary": map[string]interface{}{
			"phone": "01234",
			"email": "new@example.org",
		},
		"keep":  "value",
		"added": float64(7),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	// Inputs must not be mutated.
	if dst["primary"].(map[string]interface{})["email"] != "old@example.org" {
		t.Error("Expected dst to remain unmodified")
	}
}

func TestDeepMergeMapsNil(t *testing.T) {
	if got := DeepMergeMaps(nil, nil); got != nil {
		t.Errorf("Expected nil for nil inputs, got %v", got)
	}
	got := DeepMergeMaps(nil, map[string]interface{}{"a": "b"})
	if got["a"] != "b" {
		t.Errorf("Expected src copied over nil dst, got %v", got)
	}
}

func TestMemberMergeScalars(t *testing.T) {
	m := Member{ScoutID: 101, FirstName: "Alice", LastName: "Smith", Age: "8 / 2"}
	m.MergeFrom(Member{ScoutID: 101, LastName: "Smith-Jones", PhotoGUID: "abc"})

	if m.FirstName != "Alice" {
		t.Errorf("Expected empty newer scalar to preserve older value, got %q", m.FirstName)
	}
	if m.LastName != "Smith-Jones" {
		t.Errorf("Expected newer non-empty scalar to win, got %q", m.LastName)
	}
	if m.PhotoGUID != "abc" {
		t.Errorf("Expected photo merged in, got %q", m.PhotoGUID)
	}
	if m.Age != "8 / 2" {
		t.Errorf("Expected age preserved, got %q", m.Age)
	}
}

// Section grids arrive in any order; the final member row must not depend
// on it when payloads agree on shared keys.
func TestMemberMergeOrderIndependent(t *testing.T) {
	beavers := Member{
		ScoutID:   101,
		FirstName: "Alice",
		LastName:  "Smith",
		ContactGroups: map[string]interface{}{
			"Primary Contact 1": map[string]interface{}{"phone": "01234"},
		},
		CustomData: map[string]interface{}{"consent_photos": "yes"},
	}
	cubs := Member{
		ScoutID:   101,
		FirstName: "Alice",
		LastName:  "Smith",
		ContactGroups: map[string]interface{}{
			"Primary Contact 2": map[string]interface{}{"phone": "05678"},
		},
		CustomData: map[string]interface{}{"consent_media": "no"},
	}

	ab := Member{ScoutID: 101}
	ab.MergeFrom(beavers)
	ab.MergeFrom(cubs)

	ba := Member{ScoutID: 101}
	ba.MergeFrom(cubs)
	ba.MergeFrom(beavers)

	if !ab.ContentEquals(ba) {
		t.Errorf("Expected order-independent merge, got %+v vs %+v", ab, ba)
	}
}

func TestMemberMergeIdempotent(t *testing.T) {
	payload := Member{
		ScoutID:         101,
		FirstName:       "Alice",
		LastName:        "Smith",
		FlattenedFields: map[string]interface{}{"allergies": "none"},
	}

	once := Member{ScoutID: 101}
	once.MergeFrom(payload)

	twice := Member{ScoutID: 101}
	twice.MergeFrom(payload)
	twice.MergeFrom(payload)

	if !once.ContentEquals(twice) {
		t.Errorf("Expected idempotent merge, got %+v vs %+v", once, twice)
	}
}

func TestMemberContentEquals(t *testing.T) {
	a := Member{ScoutID: 1, FirstName: "A", CustomData: map[string]interface{}{"k": "v"}}
	b := Member{ScoutID: 1, FirstName: "A", CustomData: map[string]interface{}{"k": "v"}}
	b.Version = 9 // version bookkeeping must not affect content comparison

	if !a.ContentEquals(b) {
		t.Error("Expected content equality to ignore version fields")
	}

	b.CustomData["k"] = "other"
	if a.ContentEquals(b) {
		t.Error("Expected opaque map change to break equality")
	}
}
