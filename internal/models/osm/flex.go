// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package osm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// FlexInt decodes a JSON number or a numeric string into an int. The
// upstream mixes both forms for section and scout identifiers.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("flexint: %w", err)
		}
		str = strings.TrimSpace(str)
		if str == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(str)
		if err != nil {
			return fmt.Errorf("flexint: %q is not numeric: %w", str, err)
		}
		*f = FlexInt(n)
		return nil
	}

	// Some endpoints emit floats for integral IDs.
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flexint: %w", err)
	}
	*f = FlexInt(int(n))
	return nil
}

// MarshalJSON always emits the canonical numeric form.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(f))), nil
}

// Int returns the canonical value.
func (f FlexInt) Int() int { return int(f) }

// FlexString decodes a JSON string or number into a string. Event and term
// identifiers arrive in either form; the canonical form is the string,
// produced exactly once here.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("flexstring: %w", err)
		}
		*f = FlexString(str)
		return nil
	}

	// Numbers stringify without a decimal point when integral.
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flexstring: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// MarshalJSON always emits the canonical string form.
func (f FlexString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// String returns the canonical value.
func (f FlexString) String() string { return string(f) }
