// jsonrpc is a command-line client for JSON-RPC 1.1 services.
//
//	jsonrpc [flags] describe
//	jsonrpc [flags] call <procedure> [arg ...]
//
// Arguments are parsed as JSON when they are valid JSON and passed as
// strings otherwise. With --named every argument is name=value.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	comms "github.com/nats-io/nats.go"
	"github.com/spf13/pflag"

	"github.com/morezero/jsonrpc11/pkg/cache"
	"github.com/morezero/jsonrpc11/pkg/client"
	"github.com/morezero/jsonrpc11/pkg/commsutil"
	"github.com/morezero/jsonrpc11/pkg/db"
	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
)

const defaultURL = "http://localhost:8080/rpc"

// options are the parsed command-line flags.
type options struct {
	url               string
	proxy             string
	userAgent         string
	noAutoConfig      bool
	versionConstraint string
	named             bool
	timeout           time.Duration
	repeat            int

	commsURL    string
	subject     string
	cacheKind   string
	cacheExpiry time.Duration
	cacheBucket string
	cacheSize   int
	databaseURL string
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet(opts *options, stderr io.Writer) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("jsonrpc", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.url, "url", envOr("JSONRPC_URL", defaultURL), "service URL")
	flagSet.StringVar(&opts.proxy, "proxy", "", "HTTP proxy URL")
	flagSet.StringVar(&opts.userAgent, "user-agent", client.DefaultUserAgent, "User-Agent header")
	flagSet.BoolVar(&opts.noAutoConfig, "no-auto-config", false, "do not fetch the service description; every call is a POST")
	flagSet.StringVar(&opts.versionConstraint, "version-constraint", "", "semver constraint the service version must satisfy")
	flagSet.BoolVar(&opts.named, "named", false, "arguments are name=value pairs")
	flagSet.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-call timeout")
	flagSet.IntVar(&opts.repeat, "repeat", 1, "number of times to make the call")
	flagSet.StringVar(&opts.commsURL, "comms-url", os.Getenv("COMMS_URL"), "COMMS (NATS) URL for --subject and --cache nats")
	flagSet.StringVar(&opts.subject, "subject", "", "call over COMMS on this subject instead of HTTP")
	flagSet.StringVar(&opts.cacheKind, "cache", "none", "result cache for idempotent calls: none, memory, nats, postgres")
	flagSet.DurationVar(&opts.cacheExpiry, "cache-expiry", 0, "expiry of cached results (0 = never)")
	flagSet.StringVar(&opts.cacheBucket, "cache-bucket", commsutil.DefaultCacheBucket, "JetStream bucket for --cache nats")
	flagSet.IntVar(&opts.cacheSize, "cache-size", cache.DefaultMemorySize, "entry limit for --cache memory")
	flagSet.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres URL for --cache postgres")
	flagSet.BoolP("help", "h", false, "show help")
	return flagSet
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printHelp(flagSet *pflag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, "Usage: jsonrpc [flags] describe\n       jsonrpc [flags] call <procedure> [arg ...]\n\nFlags:\n")
	fmt.Fprint(w, flagSet.FlagUsages())
}

func run(args []string, stdout, stderr io.Writer) error {
	var opts options
	flagSet := newFlagSet(&opts, stderr)
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet, stdout)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet, stdout)
		return nil
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(flagSet, stderr)
		return fmt.Errorf("a command is required")
	}

	ctx := context.Background()
	sess, err := openSession(ctx, &opts)
	if err != nil {
		return err
	}
	defer sess.close()

	switch rest[0] {
	case "describe":
		callCtx, cancel := context.WithTimeout(ctx, opts.timeout)
		defer cancel()
		sd, err := sess.client.Describe(callCtx)
		if err != nil {
			return err
		}
		return printJSON(stdout, sd)
	case "call":
		if len(rest) < 2 {
			return fmt.Errorf("call requires a procedure name")
		}
		callArgs, err := parseArgs(rest[2:], opts.named)
		if err != nil {
			return err
		}
		for i := 0; i < max(opts.repeat, 1); i++ {
			callCtx, cancel := context.WithTimeout(ctx, opts.timeout)
			result, err := sess.caller.Call(callCtx, rest[1], callArgs...)
			cancel()
			if err != nil {
				return err
			}
			if err := printJSON(stdout, result); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q (use describe or call)", rest[0])
	}
}

// parseArgs turns command-line words into call arguments. Named arguments
// become a single map so the client sends them as named parameters.
func parseArgs(words []string, named bool) ([]any, error) {
	if !named {
		args := make([]any, len(words))
		for i, w := range words {
			args[i] = parseValue(w)
		}
		return args, nil
	}
	params := make(map[string]any, len(words))
	for _, w := range words {
		name, value, ok := strings.Cut(w, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("named argument %q is not name=value", w)
		}
		params[name] = parseValue(value)
	}
	return []any{params}, nil
}

// parseValue decodes w as JSON, falling back to the raw string.
func parseValue(w string) any {
	var v any
	if err := jsonrpc.Decode([]byte(w), &v); err != nil {
		return w
	}
	return v
}

func printJSON(w io.Writer, v any) error {
	data, err := jsonrpc.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// session holds the client, the optional caching decorator in front of it
// and the connections they use.
type session struct {
	client  *client.Client
	caller  client.Caller
	closers []func()
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openSession(ctx context.Context, opts *options) (*session, error) {
	s := &session{}
	ok := false
	defer func() {
		if !ok {
			s.close()
		}
	}()

	needComms := opts.subject != "" || opts.cacheKind == "nats"
	var nc *comms.Conn
	if needComms {
		if opts.commsURL == "" {
			return nil, fmt.Errorf("--comms-url is required for --subject and --cache nats")
		}
		conn, err := commsutil.Connect(opts.commsURL, "jsonrpc-cli")
		if err != nil {
			return nil, err
		}
		nc = conn
		s.closers = append(s.closers, conn.Close)
	}

	params := client.NewClientParams{
		BaseURL:           opts.url,
		Proxy:             opts.proxy,
		UserAgent:         opts.userAgent,
		NoAutoConfig:      opts.noAutoConfig,
		VersionConstraint: opts.versionConstraint,
	}
	if opts.subject != "" {
		params.Transport = client.NewCommsTransport(nc, opts.subject, opts.timeout)
	}
	c, err := client.NewClient(params)
	if err != nil {
		return nil, err
	}
	s.client = c
	s.caller = c

	if nc != nil {
		sub, err := c.WatchChanges(nc, "")
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = sub.Unsubscribe() })
	}

	store, err := openStore(ctx, opts, nc, s)
	if err != nil {
		return nil, err
	}
	if store != nil {
		cached, err := cache.NewClient(cache.NewClientParams{Stub: c, Store: store, Expiry: opts.cacheExpiry})
		if err != nil {
			return nil, err
		}
		s.caller = cached
	}

	ok = true
	return s, nil
}

func openStore(ctx context.Context, opts *options, nc *comms.Conn, s *session) (cache.Store, error) {
	switch opts.cacheKind {
	case "", "none":
		return nil, nil
	case "memory":
		return cache.NewMemoryStore(opts.cacheSize)
	case "nats":
		return cache.NewKVStore(nc, opts.cacheBucket)
	case "postgres":
		if opts.databaseURL == "" {
			return nil, fmt.Errorf("--database-url is required for --cache postgres")
		}
		pool, err := db.NewPool(ctx, opts.databaseURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		return cache.NewPGStore(db.NewRepository(pool)), nil
	default:
		return nil, fmt.Errorf("unknown cache %q (use none, memory, nats, postgres)", opts.cacheKind)
	}
}
