// vesselctl is a terminal front end for the vessel-schedule console. It keeps
// the session between runs in a credentials file (or Redis) and drives the
// same session, guard and permission logic as the web console.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"sort"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/ui"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

// errUsage marks argument errors; main exits 2 for them.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath  string
	baseURL     string
	store       string
	credentials string
	redisAddr   string
	verbosity   int
	json        bool
}

// env is what a command runs against.
type env struct {
	client *goSession.Client
	cfg    fileConfig
	stdin  io.Reader
	out    io.Writer
	errOut io.Writer
	json   bool
	log    logr.Logger
}

type command struct {
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"login":       {"Sign in and keep the session", cmdLogin},
	"register":    {"Create an account", cmdRegister},
	"logout":      {"Sign out and forget the session", cmdLogout},
	"status":      {"Show session state", cmdStatus},
	"whoami":      {"Show the signed-in operator", cmdWhoami},
	"permissions": {"List held permission codes, or the catalog with --all", cmdPermissions},
	"can":         {"Check permission codes; exits 1 if any is missing", cmdCan},
	"open":        {"Run the route guard for a console path", cmdOpen},
	"users":       {"Manage users and their roles", cmdUsers},
	"roles":       {"Manage roles", cmdRoles},
	"schedules":   {"Browse vessel schedules", cmdSchedules},
	"vessels":     {"Read and edit vessel information", cmdVessels},
	"localfees":   {"Query and edit local fees", cmdLocalFees},
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var g globalFlags
	fs := pflag.NewFlagSet("vesselctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.StringVar(&g.configPath, "config", "", "config file (default ~/.config/vesselctl/config.yaml)")
	fs.StringVar(&g.baseURL, "base-url", "", "backend API URL, overrides the config file")
	fs.StringVar(&g.store, "store", "", "credential storage: file, redis or memory")
	fs.StringVar(&g.credentials, "credentials", "", "credentials file for the file store")
	fs.StringVar(&g.redisAddr, "redis-addr", "", "redis address for the redis store")
	fs.IntVarP(&g.verbosity, "verbose", "v", 0, "log verbosity")
	fs.BoolVar(&g.json, "json", false, "print JSON")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr, fs)
		return fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, rest[0])
	}

	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return err
	}
	cfg.apply(g)

	stdr.SetVerbosity(g.verbosity)
	logger := stdr.New(log.New(stderr, "", log.LstdFlags))

	client, cleanup, err := buildClient(ctx, cfg, stderr, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	e := &env{client: client, cfg: cfg, stdin: stdin, out: stdout, errOut: stderr, json: g.json, log: logger}
	return cmd.run(ctx, e, rest[1:])
}

func buildClient(ctx context.Context, cfg fileConfig, stderr io.Writer, logger logr.Logger) (*goSession.Client, func(), error) {
	notify := ui.NotifierFunc(func(level ui.Level, text string) {
		if level == ui.LevelSuccess || level == ui.LevelInfo {
			logger.V(1).Info(text)
			return
		}
		fmt.Fprintf(stderr, "%s: %s\n", level, text)
	})

	b := goSession.New().
		WithConfig(cfg.Console).
		WithLogger(logger).
		WithNotifier(notify).
		WithNavigator(ui.NavigatorFunc(func(path string) { logger.V(1).Info("console navigated", "path", path) }))
	if addr := probeAddr(cfg.Console.HTTP.BaseURL); addr != "" {
		b.WithConnectivity(session.DialProbe{Addr: addr})
	}
	after := func() {}
	if cfg.Console.Audit.Enabled && cfg.AuditLog != "" {
		f, err := os.OpenFile(cfg.AuditLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open audit log: %w", err)
		}
		b.WithAuditSink(goSession.NewJSONWriterSink(f))
		after = func() { _ = f.Close() }
	}
	return finishBuild(ctx, b, cfg, after)
}

func finishBuild(ctx context.Context, b *goSession.Builder, cfg fileConfig, after func()) (*goSession.Client, func(), error) {
	var rdb *redis.Client
	if cfg.Console.Storage.Backend == goSession.StorageRedis {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		b.WithRedis(rdb)
	}
	closeRedis := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
	}

	client, err := b.Build(ctx)
	if err != nil {
		closeRedis()
		after()
		return nil, nil, err
	}
	return client, func() {
		client.Close()
		closeRedis()
		after()
	}, nil
}

// probeAddr returns host:port of base, or "" when it cannot be derived.
func probeAddr(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}

func usage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: vesselctl [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, fs.FlagUsages())
}

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
