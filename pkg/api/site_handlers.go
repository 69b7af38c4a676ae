package api

import (
	"fmt"
	"net/http"

	"github.com/guluwater/navadmin/pkg/audit"
	"github.com/guluwater/navadmin/pkg/httputil"
	"github.com/guluwater/navadmin/pkg/nav"
	"github.com/guluwater/navadmin/pkg/store"
)

// siteRequest is the create/update payload for sites. Update treats absent
// fields as unchanged.
type siteRequest struct {
	Name        *string `json:"name"`
	URL         *string `json:"url"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	CategoryID  *int64  `json:"category_id"`
	// ClearCategory removes the category reference when true.
	ClearCategory bool    `json:"clear_category,omitempty"`
	SortOrder     *int    `json:"sort_order"`
	Status        *string `json:"status"`
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// statusFilter parses the optional ?status= query value.
func statusFilter(r *http.Request) (*nav.Status, error) {
	raw := httputil.ParseQueryString(r, "status", "")
	if raw == "" {
		return nil, nil
	}
	st := nav.Status(raw)
	if !st.Valid() {
		return nil, fmt.Errorf("unknown status %q", raw)
	}
	return &st, nil
}

func (s *Server) listSites(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	status, err := statusFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	f := store.SiteFilter{
		Search: httputil.ParseQueryString(r, "search", ""),
		Status: status,
	}
	if raw := httputil.ParseQueryString(r, "category_id", ""); raw != "" {
		id, err := httputil.ParseQueryInt(r, "category_id", 0)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		cid := int64(id)
		f.CategoryID = &cid
	}

	p := store.Page{Number: page, Size: pageSize}
	sites, total, err := s.store.ListSites(r.Context(), f, p)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	httputil.WritePage(w, sites, total, page, p.Limit())
}

func (s *Server) getSite(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	site, err := s.store.GetSite(r.Context(), id)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, site)
}

func (s *Server) createSite(w http.ResponseWriter, r *http.Request) {
	var req siteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	site := &nav.Site{
		Name:        strOrEmpty(req.Name),
		URL:         strOrEmpty(req.URL),
		Description: strOrEmpty(req.Description),
		Icon:        strOrEmpty(req.Icon),
		CategoryID:  req.CategoryID,
	}
	if req.SortOrder != nil {
		site.SortOrder = *req.SortOrder
	}
	if req.Status != nil {
		site.Status = nav.Status(*req.Status)
	}
	if err := s.store.CreateSite(r.Context(), site); err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	s.activity.RecordCreate(r.Context(), actorID(r), audit.TargetSite, site.ID, "created site "+site.Name)
	httputil.WriteData(w, http.StatusCreated, site)
}

func (s *Server) updateSite(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req siteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	ch := store.SiteChanges{
		Name:          req.Name,
		URL:           req.URL,
		Description:   req.Description,
		Icon:          req.Icon,
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
		SortOrder:     req.SortOrder,
	}
	if req.Status != nil {
		st := nav.Status(*req.Status)
		ch.Status = &st
	}
	site, err := s.store.UpdateSite(r.Context(), id, ch)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	s.activity.RecordUpdate(r.Context(), actorID(r), audit.TargetSite, id, "updated site "+site.Name)
	httputil.WriteData(w, http.StatusOK, site)
}

func (s *Server) deleteSite(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteSite(r.Context(), id); err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	s.activity.RecordDelete(r.Context(), actorID(r), audit.TargetSite, id, fmt.Sprintf("deleted site %d", id))
	httputil.WriteMessage(w, http.StatusOK, "site deleted")
}

// clickSite records one visit to the site. The visit commits even when the
// rollup buckets cannot be updated.
func (s *Server) clickSite(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	ev := &nav.VisitEvent{
		ClientIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	}
	if err := s.recorder.RecordVisit(r.Context(), id, ev); err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "click recorded")
}
