package api

import (
	"fmt"
	"net/http"

	"github.com/guluwater/navadmin/pkg/audit"
	"github.com/guluwater/navadmin/pkg/httputil"
	"github.com/guluwater/navadmin/pkg/nav"
	"github.com/guluwater/navadmin/pkg/store"
)

type categoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	SortOrder   *int    `json:"sort_order"`
	Status      *string `json:"status"`
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
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
	p := store.Page{Number: page, Size: pageSize}
	categories, total, err := s.store.ListCategories(r.Context(), store.CategoryFilter{
		Search: httputil.ParseQueryString(r, "search", ""),
		Status: status,
	}, p)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	httputil.WritePage(w, categories, total, page, p.Limit())
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	c, err := s.store.GetCategory(r.Context(), id)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, c)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	c := &nav.Category{
		Name:        strOrEmpty(req.Name),
		Description: strOrEmpty(req.Description),
		Icon:        strOrEmpty(req.Icon),
	}
	if req.SortOrder != nil {
		c.SortOrder = *req.SortOrder
	}
	if req.Status != nil {
		c.Status = nav.Status(*req.Status)
	}
	if err := s.store.CreateCategory(r.Context(), c); err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	s.activity.RecordCreate(r.Context(), actorID(r), audit.TargetCategory, c.ID, "created category "+c.Name)
	httputil.WriteData(w, http.StatusCreated, c)
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req categoryRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	ch := store.CategoryChanges{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		SortOrder:   req.SortOrder,
	}
	if req.Status != nil {
		st := nav.Status(*req.Status)
		ch.Status = &st
	}
	c, err := s.store.UpdateCategory(r.Context(), id, ch)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	s.activity.RecordUpdate(r.Context(), actorID(r), audit.TargetCategory, id, "updated category "+c.Name)
	httputil.WriteData(w, http.StatusOK, c)
}

// deleteCategory refuses while sites still reference the category; the
// client clears or moves the sites first.
func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteCategory(r.Context(), id); err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	s.activity.RecordDelete(r.Context(), actorID(r), audit.TargetCategory, id, fmt.Sprintf("deleted category %d", id))
	httputil.WriteMessage(w, http.StatusOK, "category deleted")
}
