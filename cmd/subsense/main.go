package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/subsense/subsense"
	"github.com/subsense/subsense/common"
	"github.com/subsense/subsense/common/settings"
	"github.com/subsense/subsense/spotify"
)

const usage = `usage: subsense [flags] <command> [args]

commands:
  login <email> <password>
  signup <name> <email> <password>
  logout
  whoami
  reset <email> <new-password>
  status
  profile
  disconnect
  link <cost> <billing-cycle> <start-date> <next-billing-date>
  pending
`

func main() {
	dataDir := flag.String("data-dir", "", "Directory for persisted client state")
	logDir := flag.String("log-dir", "", "Directory for log files")
	baseURL := flag.String("base-url", "", "Backend base URL")
	listenAddr := flag.String("listen-addr", "", "Address for the link completion listener")
	logLevel := flag.String("log-level", "", "Log level (trace|debug|info|warn|error|off)")
	linkWait := flag.Duration("link-wait", 5*time.Minute, "How long to wait for link completion")
	otelEndpoint := flag.String("otel-endpoint", "", "OTLP/gRPC collector endpoint for traces")
	follow := flag.Bool("follow", false, "With pending: watch until the intent is cleared")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// pending only reads local state; it never builds the full client, so a
	// concurrently running instance keeps sole write ownership
	if args[0] == "pending" {
		if err := runPending(*dataDir, *logDir, *follow, *linkWait); err != nil {
			fmt.Fprintf(os.Stderr, "subsense: %v\n", err)
			os.Exit(1)
		}
		return
	}

	client, err := subsense.NewClient(subsense.Options{
		DataDir:      *dataDir,
		LogDir:       *logDir,
		BaseURL:      *baseURL,
		ListenAddr:   *listenAddr,
		LogLevel:     *logLevel,
		OTELEndpoint: *otelEndpoint,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "subsense: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "subsense: %v\n", err)
		os.Exit(1)
	}

	if err := run(ctx, client, args, *linkWait); err != nil {
		fmt.Fprintf(os.Stderr, "subsense: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *subsense.Client, args []string, linkWait time.Duration) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		if len(rest) != 2 {
			return fmt.Errorf("login needs <email> <password>")
		}
		if err := client.API.Login(ctx, rest[0], rest[1]); err != nil {
			return err
		}
		fmt.Printf("logged in as %s\n", client.API.Session.Identity().Name)
		return nil
	case "signup":
		if len(rest) != 3 {
			return fmt.Errorf("signup needs <name> <email> <password>")
		}
		if err := client.API.SignUp(ctx, rest[0], rest[1], rest[2]); err != nil {
			return err
		}
		fmt.Printf("account created for %s\n", rest[1])
		return nil
	case "logout":
		if err := client.API.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil
	case "whoami":
		identity := client.API.Session.Identity()
		if identity == nil {
			fmt.Println("not logged in")
			return nil
		}
		fmt.Printf("%s <%s>\n", identity.Name, identity.Email)
		return nil
	case "reset":
		if len(rest) != 2 {
			return fmt.Errorf("reset needs <email> <new-password>")
		}
		if err := client.API.StartPasswordReset(ctx, rest[0]); err != nil {
			return err
		}
		if err := client.API.CompletePasswordReset(ctx, rest[0], rest[1]); err != nil {
			return err
		}
		fmt.Println("password reset")
		return nil
	case "status":
		connected, err := client.Link.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("connected: %v\n", connected)
		return nil
	case "profile":
		profile, err := client.Link.Profile(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", profile.DisplayName, profile.Email)
		return nil
	case "disconnect":
		if err := client.Link.Disconnect(ctx); err != nil {
			return err
		}
		fmt.Println("disconnected")
		return nil
	case "link":
		return runLink(ctx, client, rest, linkWait)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// runLink buffers the subscription intent, starts the link flow, and waits
// for the completion message to trigger reconciliation.
func runLink(ctx context.Context, client *subsense.Client, rest []string, wait time.Duration) error {
	if len(rest) != 4 {
		return fmt.Errorf("link needs <cost> <billing-cycle> <start-date> <next-billing-date>")
	}
	cost, err := strconv.ParseFloat(rest[0], 64)
	if err != nil {
		return fmt.Errorf("invalid cost %q: %w", rest[0], err)
	}
	intent := spotify.PendingIntent{
		AppName:         "Spotify",
		Cost:            cost,
		BillingCycle:    rest[1],
		StartDate:       rest[2],
		NextBillingDate: rest[3],
	}
	if err := client.Intents.Save(intent); err != nil {
		return err
	}
	loginURL, err := client.Link.StartLink()
	if err != nil {
		return err
	}
	fmt.Printf("open this URL in your browser to connect Spotify:\n  %s\n", loginURL)
	fmt.Printf("waiting for completion on %s ...\n", client.ListenerAddr())

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		pending, err := client.Intents.Load()
		if err != nil {
			return err
		}
		if pending == nil {
			// the intent is also removed when submission failed terminally,
			// so check how reconciliation actually ended
			if done, rerr := client.Reconciler.Outcome(); done && rerr != nil {
				return fmt.Errorf("spotify connected, but creating the subscription failed: %w", rerr)
			}
			fmt.Println("Spotify connected and subscription created")
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for link completion")
}

// runPending reports the buffered subscription intent, if any. The settings
// file is opened read-only; with -follow the store watches the file and the
// command waits until the intent disappears.
func runPending(dataDir, logDir string, follow bool, wait time.Duration) error {
	resolvedData, _, err := common.SetupDirectories(dataDir, logDir)
	if err != nil {
		return err
	}
	store, err := settings.NewReadOnly(resolvedData, follow)
	if err != nil {
		return fmt.Errorf("no local state under %s: %w", resolvedData, err)
	}
	defer store.Close()
	intents := spotify.NewIntentStore(store)

	pending, err := intents.Load()
	if err != nil {
		return err
	}
	if pending == nil {
		fmt.Println("no pending subscription")
		return nil
	}
	fmt.Printf("pending: %s %.2f %s (starts %s, next billing %s)\n",
		pending.AppName, pending.Cost, pending.BillingCycle, pending.StartDate, pending.NextBillingDate)
	if !follow {
		return nil
	}

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if pending, err = intents.Load(); err != nil {
			return err
		}
		if pending == nil {
			fmt.Println("pending subscription cleared")
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("still pending after %s", wait)
}
