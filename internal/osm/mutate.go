// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package osm

import (
	"context"
	"strings"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/validation"
)

// AttendanceUpdate sets the attending value for one or more scouts on an
// event.
type AttendanceUpdate struct {
	EventID   string `json:"eventid" validate:"required"`
	SectionID int    `json:"sectionid" validate:"required"`
	TermID    string `json:"termid" validate:"required"`
	ScoutIDs  []int  `json:"scouts" validate:"required,min=1,dive,required"`
	Attending string `json:"attending" validate:"required"`
}

// FlexiUpdate writes one cell of a FlexiRecord. Value may be empty; an
// empty write clears the cell upstream.
type FlexiUpdate struct {
	ExtraID   string `json:"extraid" validate:"required"`
	SectionID int    `json:"sectionid" validate:"required"`
	TermID    string `json:"termid" validate:"required"`
	ScoutID   int    `json:"scoutid" validate:"required"`
	FieldID   string `json:"field" validate:"required"`
	Value     string `json:"value"`
}

// UpdateAttendance pushes an attendance change upstream. The write guard
// runs first: an expired, offline, or blocked session rejects locally
// without spending a dispatch.
func (c *Client) UpdateAttendance(ctx context.Context, upd *AttendanceUpdate) error {
	const op = "osm.UpdateAttendance"

	if err := c.writable(); err != nil {
		return err
	}
	if upd == nil {
		return errs.New(errs.Validation, op, "nil update")
	}
	if verr := validation.ValidateStruct(upd); verr != nil {
		return errs.Wrap(errs.Validation, op, "invalid attendance update", verr)
	}

	query := actionQuery("updateAttendance")
	query.Set("eventid", upd.EventID)

	if _, err := c.post(ctx, op, endpointUpdateAttendance, pathEvent, query, upd); err != nil {
		return err
	}

	logging.Info().
		Str("event_id", upd.EventID).
		Int("section_id", upd.SectionID).
		Int("scouts", len(upd.ScoutIDs)).
		Str("attending", upd.Attending).
		Msg("Attendance updated upstream")
	return nil
}

// UpdateFlexiRecord pushes one FlexiRecord cell change upstream, guarded
// the same way as attendance writes.
func (c *Client) UpdateFlexiRecord(ctx context.Context, upd *FlexiUpdate) error {
	const op = "osm.UpdateFlexiRecord"

	if err := c.writable(); err != nil {
		return err
	}
	if upd == nil {
		return errs.New(errs.Validation, op, "nil update")
	}
	if verr := validation.ValidateStruct(upd); verr != nil {
		return errs.Wrap(errs.Validation, op, "invalid FlexiRecord update", verr)
	}
	if !validFieldID(upd.FieldID) {
		return errs.Newf(errs.Validation, op, "field id %q is not an f_<n> column", upd.FieldID)
	}

	query := actionQuery("updateScout")
	query.Set("extraid", upd.ExtraID)

	if _, err := c.post(ctx, op, endpointUpdateFlexi, pathFlexi, query, upd); err != nil {
		return err
	}

	logging.Info().
		Str("extra_id", upd.ExtraID).
		Int("scout_id", upd.ScoutID).
		Str("field", upd.FieldID).
		Msg("FlexiRecord cell updated upstream")
	return nil
}

// validFieldID accepts the upstream's f_<n> column identifiers and
// nothing else.
func validFieldID(id string) bool {
	rest, ok := strings.CutPrefix(id, "f_")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
