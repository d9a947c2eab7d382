package testserver

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/permission"
)

func contextWith(r *http.Request, a *Account) context.Context {
	return context.WithValue(r.Context(), ctxKey{}, a)
}

func accountFrom(r *http.Request) *Account {
	a, _ := r.Context().Value(ctxKey{}).(*Account)
	return a
}

func required(w http.ResponseWriter, fields map[string]string) bool {
	missing := make(map[string]any)
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing[name] = []string{"This field is required."}
		}
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, missing)
		return false
	}
	return true
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Malformed body"})
		return
	}
	if !required(w, map[string]string{"email": body.Email, "password": body.Password}) {
		return
	}
	s.mu.Lock()
	a := s.accounts[body.Email]
	if a == nil || a.Password != body.Password {
		s.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "No active account found with the given credentials"})
		return
	}
	access, refresh := s.issueLocked(a)
	profile := a.profile()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"access": access, "refresh": refresh, "user": profile})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
	}
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Malformed body"})
		return
	}
	if !required(w, map[string]string{"email": body.Email, "password": body.Password}) {
		return
	}
	if body.Password != body.PasswordConfirm {
		writeJSON(w, http.StatusBadRequest, map[string]any{"password_confirm": []string{"Passwords do not match."}})
		return
	}
	s.mu.Lock()
	_, taken := s.accounts[body.Email]
	s.mu.Unlock()
	if taken {
		writeJSON(w, http.StatusConflict, map[string]any{"detail": "A user with that email already exists."})
		return
	}
	a := s.AddAccount(Account{Email: body.Email, Password: body.Password, FirstName: body.FirstName, LastName: body.LastName})
	writeJSON(w, http.StatusCreated, a.profile())
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := readJSON(r, &body); err != nil || body.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"refresh": []string{"This field is required."}})
		return
	}
	if s.opts.RefreshDelay > 0 {
		select {
		case <-time.After(s.opts.RefreshDelay):
		case <-r.Context().Done():
			return
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.refresh[body.Refresh]
	a := s.accounts[email]
	if !ok || a == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	access, refresh := s.issueLocked(a)
	out := map[string]any{"access": access}
	if s.opts.RotateRefresh {
		delete(s.refresh, body.Refresh)
		out["refresh"] = refresh
	} else {
		delete(s.refresh, refresh)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	_ = readJSON(r, &body)
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.refresh, body.Refresh)
	delete(s.access, token)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"detail": "Successfully logged out."})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	profile := accountFrom(r).profile()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) myPermissions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	a := accountFrom(r)
	if a.PermissionBody != nil {
		body := a.PermissionBody
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
		return
	}
	out := map[string]any{
		"user":        map[string]any{"email": a.Email, "is_superuser": a.Superuser},
		"permissions": append([]string{}, a.Permissions...),
		"roles":       append([]string{}, a.Roles...),
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) patchProfile(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Malformed body"})
		return
	}
	s.mu.Lock()
	a := accountFrom(r)
	applyProfile(a, body)
	profile := a.profile()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, profile)
}

func applyProfile(a *Account, fields map[string]string) {
	if v, ok := fields["first_name"]; ok {
		a.FirstName = v
	}
	if v, ok := fields["last_name"]; ok {
		a.LastName = v
	}
}

func (s *Server) byIDLocked(r *http.Request) *Account {
	id, ok := idParam(r, "id")
	if !ok {
		return nil
	}
	for _, a := range s.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	users := make([]map[string]any, 0, len(s.accounts))
	for _, a := range s.accounts {
		users = append(users, a.profile())
	}
	s.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i]["id"].(int64) < users[j]["id"].(int64) })
	writeJSON(w, http.StatusOK, map[string]any{"count": len(users), "next": nil, "previous": nil, "results": users})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	s.register(w, r)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	a := s.byIDLocked(r)
	var profile map[string]any
	if a != nil {
		profile = a.profile()
	}
	s.mu.Unlock()
	if a == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "No user matches the given query."})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Malformed body"})
		return
	}
	s.mu.Lock()
	a := s.byIDLocked(r)
	var profile map[string]any
	if a != nil {
		applyProfile(a, body)
		profile = a.profile()
	}
	s.mu.Unlock()
	if a == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "No user matches the given query."})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	a := s.byIDLocked(r)
	if a != nil {
		delete(s.accounts, a.Email)
		delete(s.userRoles, a.ID)
	}
	s.mu.Unlock()
	if a == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "No user matches the given query."})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getUserRoles(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r, "id")
	s.mu.Lock()
	ids := append([]int64(nil), s.userRoles[id]...)
	s.mu.Unlock()
	roles := make([]map[string]any, 0, len(ids))
	for _, rid := range ids {
		if rec, ok := s.roles.get(rid); ok {
			roles = append(roles, rec)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (s *Server) setUserRoles(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := idParam(r, "id")
		var body struct {
			Roles []int64 `json:"roles"`
		}
		if err := readJSON(r, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"roles": []string{"Expected a list of items."}})
			return
		}
		for _, rid := range body.Roles {
			if _, ok := s.roles.get(rid); !ok {
				writeJSON(w, http.StatusBadRequest, map[string]any{"roles": []string{"Invalid role id."}})
				return
			}
		}
		s.mu.Lock()
		if add {
			s.userRoles[id] = appendUnique(s.userRoles[id], body.Roles...)
		} else {
			s.userRoles[id] = appendUnique(nil, body.Roles...)
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"detail": "Roles updated."})
	}
}

func appendUnique(ids []int64, add ...int64) []int64 {
	for _, a := range add {
		found := false
		for _, id := range ids {
			if id == a {
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, a)
		}
	}
	return ids
}

func (s *Server) removeUserRole(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r, "id")
	roleID, _ := idParam(r, "roleID")
	s.mu.Lock()
	kept := s.userRoles[id][:0]
	for _, rid := range s.userRoles[id] {
		if rid != roleID {
			kept = append(kept, rid)
		}
	}
	s.userRoles[id] = kept
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// listPermissions answers with the catalog grouped by code prefix.
func (s *Server) listPermissions(w http.ResponseWriter, _ *http.Request) {
	cat := permission.DefaultCatalog()
	grouped := make(map[string][]map[string]any)
	for _, code := range cat.Codes() {
		category, _, _ := strings.Cut(code, ".")
		label, _ := cat.Label(code)
		grouped[category] = append(grouped[category], map[string]any{"code": code, "name": label})
	}
	writeJSON(w, http.StatusOK, grouped)
}

func (s *Server) cabinGrouping(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !required(w, map[string]string{"polCd": q.Get("polCd"), "podCd": q.Get("podCd")}) {
		return
	}
	schedules := s.schedules.list(map[string]string{"polCd": q.Get("polCd"), "podCd": q.Get("podCd")})
	for _, sch := range schedules {
		id, _ := asID(sch["id"])
		if infos := s.vessels.list(map[string]string{"schedule_id": itoa(id)}); len(infos) > 0 {
			sch["vessel_info"] = infos[0]
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": schedules, "total": len(schedules)})
}

func (s *Server) bulkUpdateVessels(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Updates []map[string]any `json:"updates"`
	}
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Malformed body"})
		return
	}
	updated := 0
	for _, u := range body.Updates {
		id, ok := asID(u["id"])
		if !ok {
			continue
		}
		if _, ok := s.vessels.patch(id, u, false); ok {
			updated++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (s *Server) queryFees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !required(w, map[string]string{"polCd": q.Get("polCd"), "podCd": q.Get("podCd")}) {
		return
	}
	filter := map[string]string{"polCd": q.Get("polCd"), "podCd": q.Get("podCd")}
	if c := q.Get("carriercd"); c != "" {
		filter["carriercd"] = c
	}
	fees := s.fees.list(filter)
	rows := make([]map[string]any, 0, len(fees))
	for _, f := range fees {
		rows = append(rows, map[string]any{
			"id":       f["id"],
			"Name":     f["name"],
			"Unit":     f["unit_name"],
			"20GP":     f["price_20gp"],
			"40GP":     f["price_40gp"],
			"40HQ":     f["price_40hq"],
			"Per Bill": f["price_per_bill"],
			"Currency": f["currency"],
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": rows})
}
