package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/spf13/pflag"
)

// errDenied makes `can` exit non-zero.
var errDenied = errors.New("permission missing")

var errSignedOut = errors.New("not signed in; run `vesselctl login <email>`")

func newFlags(name string, e *env) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.errOut)
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// requireSession validates the stored credentials once and fails unless they
// are usable.
func requireSession(ctx context.Context, e *env) error {
	if _, err := e.client.InitAuth(ctx); err != nil {
		return err
	}
	switch e.client.Session().Status() {
	case session.StatusAuthenticated:
		return nil
	case session.StatusNetworkError:
		if e.client.Session().User() != nil {
			// Offline with a cached profile; calls will report their own errors.
			return nil
		}
		return errors.New("backend unreachable")
	}
	return errSignedOut
}

func printJSON(e *env, v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func table(e *env, header string, rows [][]string) error {
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, header)
	for _, r := range rows {
		for i, cell := range r {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, cell)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErr("invalid id %q", s)
	}
	return id, nil
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlags("login", e)
	passwordFile := fs.String("password-file", "", "read the password from this file, - to prompt")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageErr("login <email>")
	}
	secret, err := readSecret(e, *passwordFile, "Password: ")
	if err != nil {
		return err
	}
	res := e.client.Login(ctx, fs.Arg(0), secret)
	if !res.OK {
		return errors.New(res.Message)
	}
	fmt.Fprintf(e.out, "Signed in as %s\n", e.client.Session().User().DisplayName())
	return nil
}

func cmdRegister(ctx context.Context, e *env, args []string) error {
	fs := newFlags("register", e)
	passwordFile := fs.String("password-file", "", "read the password from this file, - to prompt")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageErr("register <email>")
	}
	secret, err := readSecret(e, *passwordFile, "Password: ")
	if err != nil {
		return err
	}
	confirm := secret
	if _, ok := interactive(e); ok && *passwordFile == "" && os.Getenv("VESSELCTL_PASSWORD") == "" {
		if confirm, err = readSecret(e, "-", "Confirm password: "); err != nil {
			return err
		}
	}
	res := e.client.Register(ctx, session.Registration{Email: fs.Arg(0), Password: secret, PasswordConfirm: confirm})
	if !res.OK {
		return errors.New(res.Message)
	}
	fmt.Fprintln(e.out, res.Message)
	return nil
}

func cmdLogout(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return usageErr("logout takes no arguments")
	}
	e.client.Logout(ctx)
	fmt.Fprintln(e.out, "Signed out")
	return nil
}

type statusReport struct {
	Status        string     `json:"status"`
	Authenticated bool       `json:"authenticated"`
	User          string     `json:"user,omitempty"`
	SuperAdmin    bool       `json:"super_admin"`
	Permissions   int        `json:"permissions"`
	AccessExpires *time.Time `json:"access_expires,omitempty"`
	HasRefresh    bool       `json:"has_refresh"`
}

func cmdStatus(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return usageErr("status takes no arguments")
	}
	if _, err := e.client.InitAuth(ctx); err != nil {
		return err
	}
	s := e.client.Session()
	r := statusReport{
		Status:        s.Status().String(),
		Authenticated: s.IsAuthenticated(),
		SuperAdmin:    e.client.Permissions().IsSuperAdmin(),
		Permissions:   len(s.PermissionCodes()),
		HasRefresh:    s.RefreshToken() != "",
	}
	if u := s.User(); u != nil {
		r.User = u.Email
	}
	if exp, err := jwt.ExpiresAt(s.AccessToken()); err == nil {
		r.AccessExpires = &exp
	}
	if e.json {
		return printJSON(e, r)
	}

	rows := [][]string{
		{"status", r.Status},
		{"user", orDash(r.User)},
		{"super admin", strconv.FormatBool(r.SuperAdmin)},
		{"permissions", strconv.Itoa(r.Permissions)},
		{"refresh token", strconv.FormatBool(r.HasRefresh)},
	}
	if r.AccessExpires != nil {
		rows = append(rows, []string{"access expires", r.AccessExpires.Local().Format(time.RFC3339)})
	}
	return table(e, "FIELD\tVALUE", rows)
}

func cmdWhoami(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return usageErr("whoami takes no arguments")
	}
	if err := requireSession(ctx, e); err != nil {
		return err
	}
	u := e.client.Session().User()
	roles := e.client.Session().Roles()
	if e.json {
		return printJSON(e, map[string]any{"user": u, "roles": roles})
	}
	fmt.Fprintf(e.out, "%s <%s>\n", u.DisplayName(), u.Email)
	for _, r := range roles {
		fmt.Fprintf(e.out, "  role: %s\n", r.Name)
	}
	return nil
}

func cmdPermissions(ctx context.Context, e *env, args []string) error {
	fs := newFlags("permissions", e)
	all := fs.Bool("all", false, "list every permission the backend defines")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireSession(ctx, e); err != nil {
		return err
	}

	if *all {
		perms, err := e.client.API().Permissions(ctx)
		if err != nil {
			return err
		}
		if e.json {
			return printJSON(e, perms)
		}
		rows := make([][]string, 0, len(perms))
		for _, p := range perms {
			held := "no"
			if e.client.Can(p.Code) {
				held = "yes"
			}
			rows = append(rows, []string{p.Category, p.Code, p.Name, held})
		}
		return table(e, "CATEGORY\tCODE\tNAME\tHELD", rows)
	}

	codes := e.client.Session().PermissionCodes()
	sort.Strings(codes)
	if e.json {
		return printJSON(e, codes)
	}
	for _, c := range codes {
		label, _ := e.client.Catalog().Label(c)
		fmt.Fprintf(e.out, "%s\t%s\n", c, label)
	}
	return nil
}

func cmdCan(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return usageErr("can <code>...")
	}
	if err := requireSession(ctx, e); err != nil {
		return err
	}
	missing := 0
	for _, code := range args {
		ok := e.client.Can(code)
		if !ok {
			missing++
		}
		fmt.Fprintf(e.out, "%s\t%s\n", code, yesNo(ok))
	}
	if missing > 0 {
		return fmt.Errorf("%w: %d of %d", errDenied, missing, len(args))
	}
	return nil
}

func cmdOpen(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usageErr("open <path>")
	}
	d, err := e.client.Navigate(ctx, args[0])
	if err != nil {
		return err
	}
	if e.json {
		return printJSON(e, map[string]any{"requested": args[0], "path": d.Path, "reason": d.Reason, "title": d.Title})
	}
	fmt.Fprintf(e.out, "%s\t%s\t%s\n", d.Path, d.Reason, d.Title)
	return nil
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
