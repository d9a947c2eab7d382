package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/testserver"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
)

const opsEmail = "ops@example.com"

func setup(t *testing.T) (*Client, *testserver.Server, transport.Doer) {
	t.Helper()
	srv := testserver.New(testserver.Options{})
	t.Cleanup(srv.Close)
	srv.AddAccount(testserver.Account{Email: opsEmail, Password: "pw", Permissions: []string{"local_fee.list"}})
	base := transport.NewHTTPDoer(transport.HTTPConfig{BaseURL: srv.URL}, srv.Client(), logr.Discard())
	access, _ := srv.IssueTokens(opsEmail)
	authed := transport.DoerFunc(func(ctx context.Context, r *transport.Request) (*transport.Envelope, error) {
		r.Bearer = access
		return base.Do(ctx, r)
	})
	return New(authed), srv, base
}

func TestAuthBackendFlow(t *testing.T) {
	_, srv, base := setup(t)
	b := NewAuthBackend(base)
	ctx := context.Background()

	env, err := b.Login(ctx, opsEmail, "pw")
	if err != nil || env.Code != http.StatusOK {
		t.Fatalf("login: %v %+v", err, env)
	}
	var tokens struct{ Access, Refresh string }
	if err := env.Decode(&tokens); err != nil || tokens.Access == "" || tokens.Refresh == "" {
		t.Fatalf("tokens = %+v, %v", tokens, err)
	}

	if env, err := b.Me(ctx, tokens.Access); err != nil || env.Code != http.StatusOK {
		t.Fatalf("me: %v", err)
	}
	if env, err := b.MyPermissions(ctx, tokens.Access); err != nil || !json.Valid(env.Data) {
		t.Fatalf("permissions: %v", err)
	}
	if _, err := b.Me(ctx, "garbage"); transport.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("me with bad token: %v", err)
	}

	env, err = b.RefreshToken(ctx, tokens.Refresh)
	if err != nil || env.Code != http.StatusOK {
		t.Fatalf("refresh: %v", err)
	}

	if _, err := b.Logout(ctx, tokens.Access, tokens.Refresh); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := b.RefreshToken(ctx, tokens.Refresh); transport.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: %v", err)
	}
	if srv.Hits(PathLogout) != 1 {
		t.Fatalf("logout hits = %d", srv.Hits(PathLogout))
	}
}

func TestAuthBackendRefreshPath(t *testing.T) {
	var paths []string
	doer := transport.DoerFunc(func(ctx context.Context, r *transport.Request) (*transport.Envelope, error) {
		paths = append(paths, r.Path)
		return &transport.Envelope{Code: http.StatusOK}, nil
	})
	ctx := context.Background()

	if _, err := NewAuthBackend(doer).RefreshToken(ctx, "R"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := NewAuthBackend(doer).WithRefreshPath("/auth/jwt/refresh/").RefreshToken(ctx, "R"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if diff := cmp.Diff([]string{PathRefresh, "/auth/jwt/refresh/"}, paths); diff != "" {
		t.Fatalf("refresh paths (-want +got):\n%s", diff)
	}
}

func TestAuthBackendRegister(t *testing.T) {
	_, _, base := setup(t)
	b := NewAuthBackend(base)
	ctx := context.Background()

	env, err := b.Register(ctx, session.Registration{Email: "new@example.com", Password: "pw", PasswordConfirm: "pw"})
	if err != nil || env.Code != http.StatusCreated {
		t.Fatalf("register: %v %+v", err, env)
	}
	_, err = b.Register(ctx, session.Registration{Email: opsEmail, Password: "pw", PasswordConfirm: "pw"})
	if transport.StatusOf(err) != http.StatusConflict {
		t.Fatalf("duplicate register: %v", err)
	}
	_, err = b.Register(ctx, session.Registration{Email: "x@example.com", Password: "a", PasswordConfirm: "b"})
	if transport.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("mismatched register: %v", err)
	}
}

func TestRolesResource(t *testing.T) {
	c, _, _ := setup(t)
	ctx := context.Background()

	created, err := c.Roles.Create(ctx, map[string]any{"name": "ops", "description": "operations"})
	if err != nil || created.ID == 0 || created.Name != "ops" {
		t.Fatalf("create: %+v %v", created, err)
	}
	if _, err := c.Roles.Patch(ctx, created.ID, map[string]any{"description": "night shift"}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	got, err := c.Roles.Get(ctx, created.ID)
	if err != nil || got.Description != "night shift" || got.Name != "ops" {
		t.Fatalf("get: %+v %v", got, err)
	}
	page, err := c.Roles.List(ctx, nil)
	if err != nil || page.Count != 1 || len(page.Results) != 1 {
		t.Fatalf("list: %+v %v", page, err)
	}
	if err := c.Roles.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Roles.Get(ctx, created.ID); transport.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("get deleted: %v", err)
	}
}

func TestUsersAndRoleAssignment(t *testing.T) {
	c, srv, _ := setup(t)
	ctx := context.Background()
	srv.Seed("roles", map[string]any{"id": 1, "name": "ops"}, map[string]any{"id": 2, "name": "finance"})

	u, err := c.Users.Create(ctx, NewUser{Email: "clerk@example.com", Password: "pw", PasswordConfirm: "pw", FirstName: "Clerk"})
	if err != nil || u.ID == 0 {
		t.Fatalf("create user: %+v %v", u, err)
	}
	if err := c.Users.AssignRoles(ctx, u.ID, []int64{1, 2}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := c.Users.RemoveRole(ctx, u.ID, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	roles, err := c.Users.Roles(ctx, u.ID)
	if err != nil {
		t.Fatalf("roles: %v", err)
	}
	if diff := cmp.Diff([]string{"finance"}, labels(roles)); diff != "" {
		t.Fatalf("roles mismatch (-want +got):\n%s", diff)
	}
	if err := c.Users.SetRoles(ctx, u.ID, []int64{1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	roles, _ = c.Users.Roles(ctx, u.ID)
	if diff := cmp.Diff([]string{"ops"}, labels(roles)); diff != "" {
		t.Fatalf("roles mismatch (-want +got):\n%s", diff)
	}

	updated, err := c.Users.Update(ctx, u.ID, map[string]any{"last_name": "Kent"})
	if err != nil || updated.LastName != "Kent" {
		t.Fatalf("update: %+v %v", updated, err)
	}
	page, err := c.Users.List(ctx, nil)
	if err != nil || page.Count != 2 {
		t.Fatalf("list: %+v %v", page, err)
	}
	if err := c.Users.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Users.Get(ctx, u.ID); transport.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("get deleted: %v", err)
	}
}

func labels(roles []identity.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.Label())
	}
	return out
}

func TestAccountProfile(t *testing.T) {
	c, _, _ := setup(t)
	ctx := context.Background()
	u, err := c.Account.UpdateProfile(ctx, map[string]any{"first_name": "Olive"})
	if err != nil || u.FirstName != "Olive" {
		t.Fatalf("update profile: %+v %v", u, err)
	}
	u, err = c.Account.Profile(ctx)
	if err != nil || u.Email != opsEmail || u.FirstName != "Olive" {
		t.Fatalf("profile: %+v %v", u, err)
	}
	if err := c.Account.DeleteAvatar(ctx); err != nil {
		t.Fatalf("delete avatar: %v", err)
	}
}

func TestPermissionsFlattensCategories(t *testing.T) {
	c, _, _ := setup(t)
	perms, err := c.Permissions(context.Background())
	if err != nil || len(perms) == 0 {
		t.Fatalf("permissions: %v", err)
	}
	for i, p := range perms {
		if p.Category == "" || p.Key() == "" {
			t.Fatalf("permission %d missing category or code: %+v", i, p)
		}
		if i > 0 && perms[i-1].Category > p.Category {
			t.Fatalf("categories out of order at %d", i)
		}
	}
}

func TestVesselUpdateSendsOnlyEditableFields(t *testing.T) {
	var sent map[string]any
	doer := transport.DoerFunc(func(_ context.Context, r *transport.Request) (*transport.Envelope, error) {
		raw, _ := json.Marshal(r.Body)
		_ = json.Unmarshal(raw, &sent)
		if r.Method != http.MethodPatch || r.Path != "/vessel-info/7/" {
			t.Errorf("request = %s %s", r.Method, r.Path)
		}
		return &transport.Envelope{Code: 200, Data: json.RawMessage(`{"id":7,"price":"10"}`)}, nil
	})
	v := New(doer).Vessels
	_, err := v.Update(context.Background(), 7, map[string]any{
		"price": "10", "gp_20": 1, "hq_40": 2, "cut_off_time": "2026-01-01", "vessel": "EVER GIVEN", "id": 99,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	want := map[string]any{"price": "10", "gp_20": float64(1), "hq_40": float64(2), "cut_off_time": "2026-01-01"}
	if diff := cmp.Diff(want, sent); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestVesselsAgainstServer(t *testing.T) {
	c, srv, _ := setup(t)
	ctx := context.Background()
	srv.Seed("schedules", map[string]any{"id": 10, "polCd": "CNSHA", "podCd": "INNSA", "vessel": "MSC ANNA"})
	srv.Seed("vessel-info",
		map[string]any{"id": 3, "schedule_id": 10, "price": "100"},
		map[string]any{"id": 4, "schedule_id": 11, "price": "200"},
	)

	id, ok, err := c.Vessels.VesselInfoID(ctx, 10)
	if err != nil || !ok || id != 3 {
		t.Fatalf("vessel info id = %d %v %v", id, ok, err)
	}
	if _, ok, _ := c.Vessels.VesselInfoID(ctx, 99); ok {
		t.Fatal("unexpected vessel info for unknown schedule")
	}
	if _, err := c.Vessels.BulkUpdate(ctx, []map[string]any{{"id": 3, "price": "150"}, {"id": 4, "gp_20": 5}}); err != nil {
		t.Fatalf("bulk: %v", err)
	}
	infos, _ := c.Vessels.BySchedule(ctx, 10)
	if len(infos) != 1 || string(infos[0].Price) != `"150"` {
		t.Fatalf("infos = %+v", infos)
	}
	if _, err := c.Vessels.BulkUpdate(ctx, []map[string]any{{"price": "1"}}); !errors.Is(err, ErrMissingID) {
		t.Fatalf("bulk without id: %v", err)
	}

	raw, err := c.Schedules.CabinGrouping(ctx, "CNSHA", "INNSA")
	if err != nil {
		t.Fatalf("cabin grouping: %v", err)
	}
	var grouping struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(raw, &grouping); err != nil || grouping.Total != 1 {
		t.Fatalf("grouping = %s", raw)
	}
	if _, err := c.Schedules.CabinGrouping(ctx, "", "INNSA"); !errors.Is(err, ErrMissingPort) {
		t.Fatalf("missing port: %v", err)
	}
	sch, err := c.Schedules.Get(ctx, 10)
	if err != nil || sch.Vessel != "MSC ANNA" {
		t.Fatalf("schedule: %+v %v", sch, err)
	}
}

func TestLocalFees(t *testing.T) {
	c, srv, _ := setup(t)
	ctx := context.Background()
	srv.Seed("local-fees", map[string]any{"id": 1, "name": "THC", "polCd": "CNSHA", "podCd": "INNSA", "carriercd": "MSC", "currency": "CNY"})

	price := "50.00"
	res := c.LocalFees.BatchSave(ctx, []LocalFeeChange{
		{IsNew: true, Data: LocalFee{Name: "Security", PricePerBill: &price, Currency: "USD", PolCd: "CNSHA", PodCd: "INNSA"}},
		{ID: 1, Data: LocalFee{Name: "THC", Currency: "CNY", PolCd: "CNSHA", PodCd: "INNSA", Carrier: "MSC"}},
		{ID: 404, Data: LocalFee{Name: "Ghost"}},
	})
	if res.SuccessCount != 2 || res.ErrorCount != 1 || len(res.Results) != 3 {
		t.Fatalf("batch = %+v", res)
	}
	if res.Results[2].Success || res.Results[2].Error == "" {
		t.Fatalf("missing fee should fail: %+v", res.Results[2])
	}

	rows, err := c.LocalFees.Query(ctx, "CNSHA", "INNSA", "MSC")
	if err != nil || len(rows) != 1 || rows[0]["Name"] != "THC" {
		t.Fatalf("query = %+v %v", rows, err)
	}
	if _, err := c.LocalFees.Query(ctx, "CNSHA", "", ""); !errors.Is(err, ErrMissingPort) {
		t.Fatalf("query without port: %v", err)
	}
	page, err := c.LocalFees.ForPorts(ctx, "CNSHA", "INNSA")
	if err != nil || page.Count != 2 {
		t.Fatalf("list = %+v %v", page, err)
	}
	if err := c.LocalFees.Delete(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	fee, err := c.LocalFees.Get(ctx, res.Results[0].Data.ID)
	if err != nil || fee.PricePerBill == nil || *fee.PricePerBill != price {
		t.Fatalf("detail = %+v %v", fee, err)
	}
}

func TestBatchSaveStopsOnCancel(t *testing.T) {
	calls := 0
	doer := transport.DoerFunc(func(context.Context, *transport.Request) (*transport.Envelope, error) {
		calls++
		return &transport.Envelope{Code: 201, Data: json.RawMessage(`{"id":1}`)}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := New(doer).LocalFees.BatchSave(ctx, []LocalFeeChange{{IsNew: true}, {IsNew: true}})
	if calls != 0 || res.ErrorCount != 2 {
		t.Fatalf("calls = %d, result = %+v", calls, res)
	}
}

func TestEnvelopeCodeIsChecked(t *testing.T) {
	doer := transport.DoerFunc(func(context.Context, *transport.Request) (*transport.Envelope, error) {
		return &transport.Envelope{Code: 1003, Message: "quota exceeded"}, nil
	})
	_, err := New(doer).Roles.Get(context.Background(), 1)
	var te *transport.Error
	if !errors.As(err, &te) || te.Code != 1003 || te.Message != "quota exceeded" {
		t.Fatalf("err = %v", err)
	}
}

func TestDecodeListShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Page[int]
	}{
		{"bare", `[1,2]`, Page[int]{Count: 2, Results: []int{1, 2}}},
		{"paginated", `{"count":9,"next":"n","results":[3]}`, Page[int]{Count: 9, Next: "n", Results: []int{3}}},
		{"wrapped", `{"status":"success","data":[4]}`, Page[int]{Count: 1, Results: []int{4}}},
		{"empty", ``, Page[int]{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeList[int](json.RawMessage(tc.raw))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestItemPath(t *testing.T) {
	if got := item("/auth/users", 3, "roles"); got != "/auth/users/3/roles/" {
		t.Fatalf("item = %q", got)
	}
	q := url.Values{"a": {"1"}}
	if r := get("/x/", q); r.Method != http.MethodGet || r.Query.Get("a") != "1" {
		t.Fatalf("get = %+v", r)
	}
}
