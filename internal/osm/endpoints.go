// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package osm

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/governor"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/validation"
)

// API is the full client surface, implemented by *Client for production
// and by fakes in sync and connectivity tests.
type API interface {
	Ping(ctx context.Context) error
	GetUserRoles(ctx context.Context) ([]models.Section, error)
	GetTerms(ctx context.Context) (map[int][]models.Term, error)
	GetEvents(ctx context.Context, sectionID int, termID string) ([]models.Event, error)
	GetAttendance(ctx context.Context, sectionID int, eventID, termID string) ([]models.Attendance, error)
	GetSharedAttendance(ctx context.Context, eventID string, sectionID int) ([]models.Attendance, error)
	GetMembersGrid(ctx context.Context, sectionID int) ([]models.MemberWithSection, error)
	GetFlexiRecords(ctx context.Context, sectionID int) ([]models.FlexiList, error)
	GetFlexiStructure(ctx context.Context, extraID string, sectionID int) (*models.FlexiStructure, error)
	GetFlexiData(ctx context.Context, extraID string, sectionID int, termID string) ([]models.FlexiData, error)
	UpdateAttendance(ctx context.Context, upd *AttendanceUpdate) error
	UpdateFlexiRecord(ctx context.Context, upd *FlexiUpdate) error
}

var _ API = (*Client)(nil)

// Ping checks upstream reachability on the probe class: its own queue
// priority, the probe timeout, and no retry-consuming requeue on 429.
func (c *Client) Ping(ctx context.Context) error {
	const op = "osm.Ping"

	_, err := c.call(ctx, op, &governor.Request{
		Endpoint: endpointHealth,
		Method:   http.MethodGet,
		Path:     pathHealth,
		Class:    governor.ClassProbe,
	})
	return err
}

// GetUserRoles fetches the sections the signed-in leader can access.
func (c *Client) GetUserRoles(ctx context.Context) ([]models.Section, error) {
	const op = "osm.GetUserRoles"

	body, err := c.get(ctx, op, endpointUserRoles, pathAPI, actionQuery("getUserRoles"))
	if err != nil {
		return nil, err
	}

	sections, failures := validation.ParseSections(body)
	if sections == nil && len(failures) > 0 {
		return nil, failures[0]
	}
	warnDropped(endpointUserRoles, failures)
	return sections, nil
}

// GetTerms fetches every section's scheduling periods, keyed by section.
func (c *Client) GetTerms(ctx context.Context) (map[int][]models.Term, error) {
	const op = "osm.GetTerms"

	body, err := c.get(ctx, op, endpointTerms, pathAPI, actionQuery("getTerms"))
	if err != nil {
		return nil, err
	}

	terms, failures := validation.ParseTerms(body)
	if terms == nil && len(failures) > 0 {
		return nil, failures[0]
	}
	warnDropped(endpointTerms, failures)
	return terms, nil
}

// GetEvents fetches one section's events for a term. A 404 means the
// term has no listing and reads as empty.
func (c *Client) GetEvents(ctx context.Context, sectionID int, termID string) ([]models.Event, error) {
	const op = "osm.GetEvents"

	query := actionQuery("get")
	query.Set("sectionid", strconv.Itoa(sectionID))
	query.Set("termid", termID)

	body, err := c.get(ctx, op, endpointEvents, pathEventList, query)
	if err != nil {
		if errs.IsNotFound(err) {
			logging.Debug().
				Int("section_id", sectionID).
				Str("term_id", termID).
				Msg("No events listing for term, treating as empty")
			return nil, nil
		}
		return nil, err
	}

	events, failures := validation.ParseEvents(sectionID, termID, body)
	if events == nil && len(failures) > 0 {
		return nil, failures[0]
	}
	warnDropped(endpointEvents, failures)
	return events, nil
}

// GetAttendance fetches one event's attendance rows. A 404 means the
// event has no sheet for the term and reads as empty.
func (c *Client) GetAttendance(ctx context.Context, sectionID int, eventID, termID string) ([]models.Attendance, error) {
	const op = "osm.GetAttendance"

	query := actionQuery("getAttendance")
	query.Set("eventid", eventID)
	query.Set("sectionid", strconv.Itoa(sectionID))
	query.Set("termid", termID)

	body, err := c.get(ctx, op, endpointAttendance, pathEvent, query)
	if err != nil {
		if errs.IsNotFound(err) {
			logging.Debug().
				Str("event_id", eventID).
				Int("section_id", sectionID).
				Msg("No attendance sheet for event, treating as empty")
			return nil, nil
		}
		return nil, err
	}

	rows, failures := validation.ParseAttendance(eventID, sectionID, body)
	if rows == nil && len(failures) > 0 {
		return nil, failures[0]
	}
	warnDropped(endpointAttendance, failures)
	return rows, nil
}

// GetSharedAttendance fetches the cross-section attendance of a shared
// event as seen from the owning section. A 404 means the event is not
// shared (or sharing was revoked) and reads as empty.
func (c *Client) GetSharedAttendance(ctx context.Context, eventID string, sectionID int) ([]models.Attendance, error) {
	const op = "osm.GetSharedAttendance"

	query := actionQuery("getAttendance")
	query.Set("eventid", eventID)
	query.Set("sectionid", strconv.Itoa(sectionID))

	body, err := c.get(ctx, op, endpointSharedAttendance, pathEventShared, query)
	if err != nil {
		if errs.IsNotFound(err) {
			logging.Debug().
				Str("event_id", eventID).
				Msg("No shared attendance for event, treating as empty")
			return nil, nil
		}
		return nil, err
	}

	rows, failures := validation.ParseSharedAttendance(eventID, body)
	if rows == nil && len(failures) > 0 {
		return nil, failures[0]
	}
	warnDropped(endpointSharedAttendance, failures)
	return rows, nil
}

// GetMembersGrid fetches one section's member grid with its
// org-configured contact columns preserved verbatim.
func (c *Client) GetMembersGrid(ctx context.Context, sectionID int) ([]models.MemberWithSection, error) {
	const op = "osm.GetMembersGrid"

	payload := struct {
		SectionID int `json:"section_id"`
	}{SectionID: sectionID}

	body, err := c.post(ctx, op, endpointMembersGrid, pathMemberGrid, actionQuery("getMembers"), payload)
	if err != nil {
		return nil, err
	}

	members, failures := validation.ParseMemberGrid(sectionID, body)
	if members == nil && len(failures) > 0 {
		return nil, failures[0]
	}
	warnDropped(endpointMembersGrid, failures)
	return members, nil
}

// GetFlexiRecords fetches one section's FlexiRecord catalog. Archived
// lists are excluded upstream.
func (c *Client) GetFlexiRecords(ctx context.Context, sectionID int) ([]models.FlexiList, error) {
	const op = "osm.GetFlexiRecords"

	query := actionQuery("getFlexiRecords")
	query.Set("sectionid", strconv.Itoa(sectionID))
	query.Set("archived", "n")

	body, err := c.get(ctx, op, endpointFlexiList, pathFlexi, query)
	if err != nil {
		return nil, err
	}

	lists, failures := validation.ParseFlexiLists(sectionID, body)
	if lists == nil && len(failures) > 0 {
		return nil, failures[0]
	}
	warnDropped(endpointFlexiList, failures)
	return lists, nil
}

// GetFlexiStructure fetches one FlexiRecord's column schema.
func (c *Client) GetFlexiStructure(ctx context.Context, extraID string, sectionID int) (*models.FlexiStructure, error) {
	const op = "osm.GetFlexiStructure"

	query := actionQuery("getStructure")
	query.Set("extraid", extraID)
	query.Set("sectionid", strconv.Itoa(sectionID))

	body, err := c.get(ctx, op, endpointFlexiStructure, pathFlexi, query)
	if err != nil {
		return nil, err
	}

	structure, failures := validation.ParseFlexiStructure(extraID, body)
	if structure == nil && len(failures) > 0 {
		return nil, failures[0]
	}
	warnDropped(endpointFlexiStructure, failures)
	return structure, nil
}

// GetFlexiData fetches one FlexiRecord's data rows for a (section, term)
// scope. A 404 means the record has no rows for the term and reads as
// empty.
func (c *Client) GetFlexiData(ctx context.Context, extraID string, sectionID int, termID string) ([]models.FlexiData, error) {
	const op = "osm.GetFlexiData"

	query := actionQuery("getData")
	query.Set("extraid", extraID)
	query.Set("sectionid", strconv.Itoa(sectionID))
	query.Set("termid", termID)

	body, err := c.get(ctx, op, endpointFlexiData, pathFlexi, query)
	if err != nil {
		if errs.IsNotFound(err) {
			logging.Debug().
				Str("extra_id", extraID).
				Int("section_id", sectionID).
				Str("term_id", termID).
				Msg("No FlexiRecord data for term, treating as empty")
			return nil, nil
		}
		return nil, err
	}

	rows, failures := validation.ParseFlexiData(extraID, sectionID, termID, body)
	if rows == nil && len(failures) > 0 {
		return nil, failures[0]
	}
	warnDropped(endpointFlexiData, failures)
	return rows, nil
}

func actionQuery(action string) url.Values {
	query := make(url.Values, 4)
	query.Set("action", action)
	return query
}
