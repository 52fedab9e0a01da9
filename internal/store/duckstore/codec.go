// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package duckstore

import (
	"github.com/goccy/go-json"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
)

// Opaque maps and slices ride in TEXT columns as JSON. A nil value
// encodes as "null" and decodes back to nil, so unset maps stay unset
// across a round trip.

func marshalJSON(op string, v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errs.Wrap(errs.Storage, op, "encode column", err)
	}
	return string(b), nil
}

func unmarshalJSON(op, s string, v interface{}) error {
	if s == "" || s == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return errs.Wrap(errs.Storage, op, "decode column", err)
	}
	return nil
}
