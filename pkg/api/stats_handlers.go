package api

import (
	"fmt"
	"net/http"

	"github.com/guluwater/navadmin/pkg/analytics"
	"github.com/guluwater/navadmin/pkg/httputil"
	"github.com/guluwater/navadmin/pkg/nav"
	"github.com/guluwater/navadmin/pkg/store"
)

func (s *Server) statsOverview(w http.ResponseWriter, r *http.Request) {
	report, err := s.stats.Overview(r.Context())
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, report)
}

func (s *Server) statsTrends(w http.ResponseWriter, r *http.Request) {
	days, err := httputil.ParseQueryInt(r, "days", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	report, err := s.stats.Trends(r.Context(), days)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, report)
}

func (s *Server) statsRanking(w http.ResponseWriter, r *http.Request) {
	typ := analytics.ParseRankingType(httputil.ParseQueryString(r, "type", ""))
	limit, err := httputil.ParseQueryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	days, err := httputil.ParseQueryInt(r, "days", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	report, err := s.stats.Ranking(r.Context(), typ, limit, days)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, report)
}

func (s *Server) statsCategories(w http.ResponseWriter, r *http.Request) {
	breakdown, err := s.store.CategoryBreakdown(r.Context())
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, breakdown)
}

func (s *Server) listActivity(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	f := store.ActivityFilter{
		TargetType: httputil.ParseQueryString(r, "targetType", ""),
	}
	if raw := httputil.ParseQueryString(r, "userId", ""); raw != "" {
		id, err := httputil.ParseQueryInt(r, "userId", 0)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		uid := int64(id)
		f.UserID = &uid
	}
	if raw := httputil.ParseQueryString(r, "actionType", ""); raw != "" {
		at := nav.ActionType(raw)
		switch at {
		case nav.ActionCreate, nav.ActionUpdate, nav.ActionDelete, nav.ActionLogin, nav.ActionLogout:
			f.ActionType = &at
		default:
			httputil.WriteBadRequest(w, fmt.Sprintf("unknown action type %q", raw))
			return
		}
	}

	p := store.Page{Number: page, Size: pageSize}
	entries, total, err := s.activity.List(r.Context(), f, p)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	httputil.WritePage(w, entries, total, page, p.Limit())
}
