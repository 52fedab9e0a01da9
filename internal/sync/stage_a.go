// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/store"
)

// syncDashboard is the serial stage that must succeed before the app is
// ready: section roles, terms, and the whitelisted FlexiRecord shapes.
// Any error aborts the whole stage.
func (m *Manager) syncDashboard(ctx context.Context, res *Result) error {
	const op = "sync.Dashboard"

	m.progress(ctx, StageDashboard, "fetching section roles", nil)
	sections, err := m.api.GetUserRoles(ctx)
	if err != nil {
		return errs.Wrap(errs.Sync, op, "section roles fetch failed", err)
	}
	if err := m.store.SaveSections(ctx, sections); err != nil {
		return errs.Wrap(errs.Sync, op, "section roles save failed", err)
	}
	res.add("sections", len(sections))
	m.setSyncStatus(ctx, store.TableSections)

	m.progress(ctx, StageDashboard, "fetching terms", res.Counts)
	termsBySection, err := m.api.GetTerms(ctx)
	if err != nil {
		return errs.Wrap(errs.Sync, op, "terms fetch failed", err)
	}
	for _, section := range sections {
		terms := termsBySection[section.SectionID]
		if err := m.store.SaveTerms(ctx, section.SectionID, terms); err != nil {
			return errs.Wrap(errs.Sync, op, fmt.Sprintf("terms save failed for section %d", section.SectionID), err)
		}
		res.add("terms", len(terms))
	}
	m.setSyncStatus(ctx, store.TableTerms)

	if err := m.syncFlexiCatalogs(ctx, res, sections); err != nil {
		return err
	}

	m.progress(ctx, StageDashboard, "dashboard data refreshed", res.Counts)
	return nil
}

// syncFlexiCatalogs pulls every section's FlexiRecord list and the full
// structure of each whitelisted record. Catalogs are saved whole so the
// UI can show what exists; structures are only fetched for records the
// app actually drives.
func (m *Manager) syncFlexiCatalogs(ctx context.Context, res *Result, sections []models.Section) error {
	const op = "sync.FlexiCatalogs"

	m.progress(ctx, StageDashboard, "fetching flexi record catalogs", res.Counts)

	seen := make(map[string]bool)
	for _, section := range sections {
		lists, err := m.api.GetFlexiRecords(ctx, section.SectionID)
		if err != nil {
			return errs.Wrap(errs.Sync, op, fmt.Sprintf("flexi catalog fetch failed for section %d", section.SectionID), err)
		}
		if err := m.store.SaveFlexiLists(ctx, section.SectionID, lists); err != nil {
			return errs.Wrap(errs.Sync, op, fmt.Sprintf("flexi catalog save failed for section %d", section.SectionID), err)
		}
		res.add("flexi_lists", len(lists))

		for _, list := range lists {
			if !m.flexiWhitelisted(list.Name) || seen[list.ExtraID] {
				continue
			}
			seen[list.ExtraID] = true

			structure, err := m.api.GetFlexiStructure(ctx, list.ExtraID, section.SectionID)
			if err != nil {
				return errs.Wrap(errs.Sync, op, fmt.Sprintf("flexi structure fetch failed for %q", list.Name), err)
			}
			if err := m.store.SaveFlexiStructure(ctx, *structure); err != nil {
				return errs.Wrap(errs.Sync, op, fmt.Sprintf("flexi structure save failed for %q", list.Name), err)
			}
			res.add("flexi_structures", 1)
		}
	}

	m.setSyncStatus(ctx, store.TableFlexiLists)
	m.setSyncStatus(ctx, store.TableFlexiStructures)
	return nil
}

// flexiWhitelisted reports whether a FlexiRecord name is one the app
// maintains. Matching is case-insensitive; OSM admins rename records
// with inconsistent casing more often than they rename them outright.
func (m *Manager) flexiWhitelisted(name string) bool {
	for _, want := range m.cfg.Sync.FlexiWhitelist {
		if strings.EqualFold(name, want) {
			return true
		}
	}
	return false
}
