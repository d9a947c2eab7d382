package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/permission"
)

// sub splits "noun verb args..." and requires a session first.
func sub(ctx context.Context, e *env, noun string, args []string, verbs string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, usageErr("%s <%s>", noun, verbs)
	}
	if err := requireSession(ctx, e); err != nil {
		return "", nil, err
	}
	return args[0], args[1:], nil
}

func requirePerm(e *env, codes ...string) error {
	return e.client.Permissions().Require(codes...)
}

func ids(args []string) ([]int64, error) {
	out := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func cmdUsers(ctx context.Context, e *env, args []string) error {
	verb, rest, err := sub(ctx, e, "users", args, "list|get|roles|assign|set|remove|delete")
	if err != nil {
		return err
	}
	users := e.client.API().Users

	switch verb {
	case "list":
		if err := requirePerm(e, permission.UserList); err != nil {
			return err
		}
		page, err := users.List(ctx, nil)
		if err != nil {
			return err
		}
		if e.json {
			return printJSON(e, page)
		}
		rows := make([][]string, 0, len(page.Results))
		for _, u := range page.Results {
			rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.Email, u.DisplayName(), yesNo(u.SuperAdmin())})
		}
		return table(e, "ID\tEMAIL\tNAME\tADMIN", rows)
	case "get":
		id, err := oneID(rest, "users get <id>")
		if err != nil {
			return err
		}
		u, err := users.Get(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(e, u)
	case "roles":
		id, err := oneID(rest, "users roles <id>")
		if err != nil {
			return err
		}
		roles, err := users.Roles(ctx, id)
		if err != nil {
			return err
		}
		return printRoles(e, roles)
	case "assign", "set":
		if len(rest) < 2 {
			return usageErr("users %s <user-id> <role-id>...", verb)
		}
		all, err := ids(rest)
		if err != nil {
			return err
		}
		if verb == "assign" {
			err = users.AssignRoles(ctx, all[0], all[1:])
		} else {
			err = users.SetRoles(ctx, all[0], all[1:])
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(e.out, "Roles updated")
		return nil
	case "remove":
		if len(rest) != 2 {
			return usageErr("users remove <user-id> <role-id>")
		}
		pair, err := ids(rest)
		if err != nil {
			return err
		}
		if err := users.RemoveRole(ctx, pair[0], pair[1]); err != nil {
			return err
		}
		fmt.Fprintln(e.out, "Role removed")
		return nil
	case "delete":
		id, err := oneID(rest, "users delete <id>")
		if err != nil {
			return err
		}
		if err := users.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(e.out, "User deleted")
		return nil
	}
	return usageErr("unknown users command %q", verb)
}

func cmdRoles(ctx context.Context, e *env, args []string) error {
	verb, rest, err := sub(ctx, e, "roles", args, "list|get|create|delete")
	if err != nil {
		return err
	}
	roles := e.client.API().Roles

	switch verb {
	case "list":
		if err := requirePerm(e, permission.RoleList); err != nil {
			return err
		}
		page, err := roles.List(ctx, nil)
		if err != nil {
			return err
		}
		return printRoles(e, page.Results)
	case "get":
		id, err := oneID(rest, "roles get <id>")
		if err != nil {
			return err
		}
		r, err := roles.Get(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(e, r)
	case "create":
		fs := newFlags("roles create", e)
		code := fs.String("code", "", "role code")
		desc := fs.String("description", "", "role description")
		if err := parse(fs, rest); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return usageErr("roles create <name> [--code c] [--description d]")
		}
		r, err := roles.Create(ctx, identity.Role{Name: fs.Arg(0), Code: *code, Description: *desc})
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Created role %d\n", r.ID)
		return nil
	case "delete":
		id, err := oneID(rest, "roles delete <id>")
		if err != nil {
			return err
		}
		if err := roles.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(e.out, "Role deleted")
		return nil
	}
	return usageErr("unknown roles command %q", verb)
}

func printRoles(e *env, roles []identity.Role) error {
	if e.json {
		return printJSON(e, roles)
	}
	rows := make([][]string, 0, len(roles))
	for _, r := range roles {
		rows = append(rows, []string{strconv.FormatInt(r.ID, 10), r.Name, r.Code, strconv.Itoa(len(r.Permissions))})
	}
	return table(e, "ID\tNAME\tCODE\tPERMISSIONS", rows)
}

func cmdSchedules(ctx context.Context, e *env, args []string) error {
	verb, rest, err := sub(ctx, e, "schedules", args, "list|get|cabins")
	if err != nil {
		return err
	}
	schedules := e.client.API().Schedules

	switch verb {
	case "list":
		if err := requirePerm(e, permission.ScheduleList); err != nil {
			return err
		}
		fs := newFlags("schedules list", e)
		pol := fs.String("pol", "", "port of loading code")
		pod := fs.String("pod", "", "port of discharge code")
		pageNo := fs.Int("page", 0, "page number")
		if err := parse(fs, rest); err != nil {
			return err
		}
		q := url.Values{}
		if *pol != "" {
			q.Set("polCd", *pol)
		}
		if *pod != "" {
			q.Set("podCd", *pod)
		}
		if *pageNo > 0 {
			q.Set("page", strconv.Itoa(*pageNo))
		}
		page, err := schedules.List(ctx, q)
		if err != nil {
			return err
		}
		if e.json {
			return printJSON(e, page)
		}
		rows := make([][]string, 0, len(page.Results))
		for _, s := range page.Results {
			rows = append(rows, []string{strconv.FormatInt(s.ID, 10), s.PolCd, s.PodCd, s.Vessel, s.Voyage, s.Carrier, s.ETD, s.ETA})
		}
		return table(e, "ID\tPOL\tPOD\tVESSEL\tVOYAGE\tCARRIER\tETD\tETA", rows)
	case "get":
		id, err := oneID(rest, "schedules get <id>")
		if err != nil {
			return err
		}
		s, err := schedules.Get(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(e, s)
	case "cabins":
		if len(rest) != 2 {
			return usageErr("schedules cabins <pol> <pod>")
		}
		raw, err := schedules.CabinGrouping(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		return printJSON(e, raw)
	}
	return usageErr("unknown schedules command %q", verb)
}

func cmdVessels(ctx context.Context, e *env, args []string) error {
	verb, rest, err := sub(ctx, e, "vessels", args, "info|update")
	if err != nil {
		return err
	}
	vessels := e.client.API().Vessels

	switch verb {
	case "info":
		id, err := oneID(rest, "vessels info <schedule-id>")
		if err != nil {
			return err
		}
		infos, err := vessels.BySchedule(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(e, infos)
	case "update":
		if !e.client.Permissions().CanEditVesselInfo() {
			return fmt.Errorf("%w: %s", permission.ErrPermissionDenied, permission.VesselInfoEdit)
		}
		if len(rest) < 2 {
			return usageErr("vessels update <id> field=value...")
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		fields, err := assignments(rest[1:])
		if err != nil {
			return err
		}
		info, err := vessels.Update(ctx, id, fields)
		if err != nil {
			return err
		}
		return printJSON(e, info)
	}
	return usageErr("unknown vessels command %q", verb)
}

func cmdLocalFees(ctx context.Context, e *env, args []string) error {
	verb, rest, err := sub(ctx, e, "localfees", args, "query|list|get|delete|save")
	if err != nil {
		return err
	}
	fees := e.client.API().LocalFees
	can := e.client.Permissions()

	switch verb {
	case "query":
		if !can.CanQueryLocalFee() {
			return fmt.Errorf("%w: %s", permission.ErrPermissionDenied, permission.LocalFeeQuery)
		}
		if len(rest) < 2 || len(rest) > 3 {
			return usageErr("localfees query <pol> <pod> [carrier]")
		}
		carrier := ""
		if len(rest) == 3 {
			carrier = rest[2]
		}
		rows, err := fees.Query(ctx, rest[0], rest[1], carrier)
		if err != nil {
			return err
		}
		return printJSON(e, rows)
	case "list":
		if !can.CanViewLocalFee() {
			return fmt.Errorf("%w: %s", permission.ErrPermissionDenied, permission.LocalFeeList)
		}
		fs := newFlags("localfees list", e)
		pol := fs.String("pol", "", "port of loading code")
		pod := fs.String("pod", "", "port of discharge code")
		if err := parse(fs, rest); err != nil {
			return err
		}
		var page api.Page[api.LocalFee]
		if *pol != "" || *pod != "" {
			page, err = fees.ForPorts(ctx, *pol, *pod)
		} else {
			page, err = fees.List(ctx, nil)
		}
		if err != nil {
			return err
		}
		return printJSON(e, page)
	case "get":
		id, err := oneID(rest, "localfees get <id>")
		if err != nil {
			return err
		}
		fee, err := fees.Get(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(e, fee)
	case "delete":
		if !can.CanDeleteLocalFee() {
			return fmt.Errorf("%w: %s", permission.ErrPermissionDenied, permission.LocalFeeDelete)
		}
		id, err := oneID(rest, "localfees delete <id>")
		if err != nil {
			return err
		}
		if err := fees.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(e.out, "Local fee deleted")
		return nil
	case "save":
		if !can.CanEditLocalFee() {
			return fmt.Errorf("%w: %s", permission.ErrPermissionDenied, permission.LocalFeeEdit)
		}
		if len(rest) != 1 {
			return usageErr("localfees save <changes.json>")
		}
		changes, err := readChanges(rest[0])
		if err != nil {
			return err
		}
		res := fees.BatchSave(ctx, changes)
		if e.json {
			return printJSON(e, res)
		}
		fmt.Fprintf(e.out, "%d saved, %d failed\n", res.SuccessCount, res.ErrorCount)
		for i, item := range res.Results {
			if !item.Success {
				fmt.Fprintf(e.out, "  change %d: %s\n", i+1, item.Error)
			}
		}
		return nil
	}
	return usageErr("unknown localfees command %q", verb)
}

// feeChange is one entry of a `localfees save` file.
type feeChange struct {
	ID    int64        `json:"id"`
	IsNew bool         `json:"isNew"`
	Data  api.LocalFee `json:"data"`
}

func readChanges(path string) ([]api.LocalFeeChange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read changes: %w", err)
	}
	var in []feeChange
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse changes: %w", err)
	}
	out := make([]api.LocalFeeChange, len(in))
	for i, c := range in {
		out[i] = api.LocalFeeChange{ID: c.ID, IsNew: c.IsNew, Data: c.Data}
	}
	return out, nil
}

// assignments parses field=value pairs. Values that parse as JSON keep their
// type; anything else is a string.
func assignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, usageErr("expected field=value, got %q", a)
		}
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			parsed = v
		}
		out[k] = parsed
	}
	return out, nil
}

func oneID(args []string, use string) (int64, error) {
	if len(args) != 1 {
		return 0, usageErr("%s", use)
	}
	return parseID(args[0])
}
