package app

import (
	"context"
	"net/http"

	"civicpulse/api/internal/rbac"
)

// Dashboard returns the admin counters plus the top non-resolved hotspots
// grouped by state and district.
func (s *Service) Dashboard(ctx context.Context, session Session) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionViewReports) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	counts, err := s.store.DashboardCounts(ctx)
	if err != nil {
		return nil, err
	}
	hotspots, err := s.store.Hotspots(ctx, 4)
	if err != nil {
		return nil, err
	}

	hotspotItems := make([]map[string]any, 0, len(hotspots))
	for _, hotspot := range hotspots {
		hotspotItems = append(hotspotItems, map[string]any{
			"state":    hotspot.State,
			"district": hotspot.District,
			"count":    hotspot.Count,
		})
	}

	return map[string]any{
		"total":    counts.Total,
		"open":     counts.Open,
		"resolved": counts.Resolved,
		"critical": counts.Critical,
		"hotspots": hotspotItems,
	}, nil
}

// Heatmap aggregates grievances by region coordinates; the weight of a cell
// is the mean AI severity with 0.5 standing in for unclassified rows.
func (s *Service) Heatmap(ctx context.Context, session Session) ([]map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionViewReports) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	cells, err := s.store.Heatmap(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(cells))
	for _, cell := range cells {
		items = append(items, map[string]any{
			"lat":    cell.Lat,
			"lng":    cell.Lng,
			"weight": cell.Weight,
			"count":  cell.Count,
		})
	}
	return items, nil
}

// Officers lists field officers for the assignment picker.
func (s *Service) Officers(ctx context.Context, session Session) ([]map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionAssign) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	officers, err := s.store.ListFieldOfficers(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(officers))
	for _, officer := range officers {
		items = append(items, map[string]any{
			"id":            officer.ID,
			"full_name":     officer.FullName,
			"email":         officer.Email,
			"department_id": officer.DepartmentID,
			"region_id":     officer.RegionID,
			"state":         officer.State,
			"district":      officer.District,
		})
	}
	return items, nil
}
