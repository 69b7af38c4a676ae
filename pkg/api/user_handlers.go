package api

import (
	"fmt"
	"net/http"

	"github.com/guluwater/navadmin/pkg/audit"
	"github.com/guluwater/navadmin/pkg/httputil"
	"github.com/guluwater/navadmin/pkg/nav"
	"github.com/guluwater/navadmin/pkg/store"
)

// userRequest carries the password hash, never a plaintext password.
// Hashing is the auth layer's job.
type userRequest struct {
	Username     *string `json:"username"`
	Email        *string `json:"email"`
	PasswordHash *string `json:"password_hash"`
	Role         *string `json:"role"`
	Status       *string `json:"status"`
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
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
	f := store.UserFilter{
		Search: httputil.ParseQueryString(r, "search", ""),
		Status: status,
	}
	if raw := httputil.ParseQueryString(r, "role", ""); raw != "" {
		role := nav.Role(raw)
		if !role.Valid() {
			httputil.WriteBadRequest(w, fmt.Sprintf("unknown role %q", raw))
			return
		}
		f.Role = &role
	}

	p := store.Page{Number: page, Size: pageSize}
	users, total, err := s.store.ListUsers(r.Context(), f, p)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	httputil.WritePage(w, users, total, page, p.Limit())
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	u, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, u)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	u := &nav.User{
		Username:     strOrEmpty(req.Username),
		Email:        strOrEmpty(req.Email),
		PasswordHash: strOrEmpty(req.PasswordHash),
	}
	if req.Role != nil {
		u.Role = nav.Role(*req.Role)
	}
	if req.Status != nil {
		u.Status = nav.Status(*req.Status)
	}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	s.activity.RecordCreate(r.Context(), actorID(r), audit.TargetUser, u.ID, "created user "+u.Username)
	httputil.WriteData(w, http.StatusCreated, u)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req userRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	ch := store.UserChanges{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: req.PasswordHash,
	}
	if req.Role != nil {
		role := nav.Role(*req.Role)
		ch.Role = &role
	}
	if req.Status != nil {
		st := nav.Status(*req.Status)
		ch.Status = &st
	}
	u, err := s.store.UpdateUser(r.Context(), id, ch)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	s.activity.RecordUpdate(r.Context(), actorID(r), audit.TargetUser, id, "updated user "+u.Username)
	httputil.WriteData(w, http.StatusOK, u)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	s.activity.RecordDelete(r.Context(), actorID(r), audit.TargetUser, id, fmt.Sprintf("deleted user %d", id))
	httputil.WriteMessage(w, http.StatusOK, "user deleted")
}
