package api

import (
	"net/http"

	"github.com/guluwater/navadmin/pkg/audit"
	"github.com/guluwater/navadmin/pkg/httputil"
	"github.com/guluwater/navadmin/pkg/nav"
	"github.com/guluwater/navadmin/pkg/store"
)

type settingRequest struct {
	Value       string `json:"value"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// settingResponse carries the raw stored value plus the decoded form.
type settingResponse struct {
	nav.Setting
	Decoded interface{} `json:"decoded_value"`
}

func toSettingResponse(s nav.Setting) settingResponse {
	return settingResponse{Setting: s, Decoded: s.Decode()}
}

func (s *Server) listSettings(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	p := store.Page{Number: page, Size: pageSize}
	settings, total, err := s.store.ListSettings(r.Context(), store.SettingFilter{
		Search: httputil.ParseQueryString(r, "search", ""),
	}, p)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	out := make([]settingResponse, 0, len(settings))
	for _, st := range settings {
		out = append(out, toSettingResponse(st))
	}
	httputil.WritePage(w, out, total, page, p.Limit())
}

func (s *Server) getSetting(w http.ResponseWriter, r *http.Request) {
	key, err := httputil.ParsePathString(r, "key")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	st, err := s.store.GetSetting(r.Context(), key)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, toSettingResponse(*st))
}

// putSetting creates or replaces the setting under the path key.
func (s *Server) putSetting(w http.ResponseWriter, r *http.Request) {
	key, err := httputil.ParsePathString(r, "key")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	var req settingRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	st := &nav.Setting{
		Key:         key,
		Value:       req.Value,
		Type:        nav.SettingType(req.Type),
		Description: req.Description,
	}
	if st.Type == "" {
		st.Type = nav.SettingString
	}
	if err := s.store.PutSetting(r.Context(), st); err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	s.activity.RecordUpdate(r.Context(), actorID(r), audit.TargetSetting, st.ID, "set "+key)
	httputil.WriteData(w, http.StatusOK, toSettingResponse(*st))
}

func (s *Server) deleteSetting(w http.ResponseWriter, r *http.Request) {
	key, err := httputil.ParsePathString(r, "key")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	st, err := s.store.GetSetting(r.Context(), key)
	if err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	if err := s.store.DeleteSetting(r.Context(), key); err != nil {
		httputil.WriteStoreError(w, err)
		return
	}
	s.activity.RecordDelete(r.Context(), actorID(r), audit.TargetSetting, st.ID, "removed "+key)
	httputil.WriteMessage(w, http.StatusOK, "setting deleted")
}
