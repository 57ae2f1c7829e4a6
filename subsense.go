// Package subsense is the client core for the SubSense subscription tracker.
// It owns the session, the authenticated request gateway, the provider link
// flow, and the reconciliation of a subscription intent buffered across the
// browser-redirect boundary.
package subsense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/subsense/subsense/api"
	"github.com/subsense/subsense/app"
	"github.com/subsense/subsense/common"
	"github.com/subsense/subsense/common/settings"
	"github.com/subsense/subsense/internal"
	"github.com/subsense/subsense/spotify"
	"github.com/subsense/subsense/telemetry"
)

const defaultBaseURL = "http://localhost:8000"

// Options configures a Client. Zero values select platform defaults.
type Options struct {
	// DataDir and LogDir override the platform default directories.
	DataDir string
	LogDir  string
	// BaseURL is the backend base URL.
	BaseURL string
	// ListenAddr is the address the completion listener binds to; empty
	// selects an ephemeral localhost port.
	ListenAddr string
	// LogLevel overrides the persisted log level setting.
	LogLevel string
	// OTELEndpoint is the OTLP/gRPC collector to export traces to. Empty
	// keeps spans in-process.
	OTELEndpoint string
}

// Client is the assembled client core. It is created once at application
// start and passed by reference to whatever needs it; none of its components
// reach into package-level state for session or intent data.
type Client struct {
	API        *api.Client
	Link       *spotify.LinkController
	Intents    *spotify.IntentStore
	Reconciler *spotify.Reconciler

	settings      *settings.Store
	listener      *spotify.CompletionListener
	log           *slog.Logger
	stopTelemetry func(ctx context.Context) error
}

// NewClient builds the object graph: settings store, session store, gateway,
// link controller, intent store, and reconciler. The link controller is wired
// to run the reconciler once a completion message has put a valid token in
// the session, which is the ordering the reconciler requires.
func NewClient(opts Options) (*Client, error) {
	dataDir, logDir, err := common.SetupDirectories(opts.DataDir, opts.LogDir)
	if err != nil {
		return nil, fmt.Errorf("setting up directories: %w", err)
	}
	store, err := settings.New(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening settings: %w", err)
	}

	levelStr := opts.LogLevel
	if levelStr == "" {
		levelStr = store.GetString(settings.LogLevelKey)
	}
	level, lerr := internal.ParseLogLevel(levelStr)
	if lerr != nil {
		slog.Warn("unknown log level, using info", "level", levelStr)
	}
	log, _ := newLog(filepath.Join(logDir, app.LogFileName), level)

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	apiClient := api.NewClient(store, baseURL, nil)
	stopTelemetry, err := telemetry.Setup(context.Background(), opts.OTELEndpoint, store.GetString(settings.DeviceIDKey))
	if err != nil {
		return nil, fmt.Errorf("setting up telemetry: %w", err)
	}
	intents := spotify.NewIntentStore(store)
	reconciler := spotify.NewReconciler(apiClient, intents)
	link := spotify.NewLinkController(apiClient, baseURL, func(ctx context.Context) {
		if rerr := reconciler.Reconcile(ctx); rerr != nil {
			log.Error("reconciling pending intent after link", "error", rerr)
		}
	})

	c := &Client{
		API:           apiClient,
		Link:          link,
		Intents:       intents,
		Reconciler:    reconciler,
		settings:      store,
		listener:      spotify.NewCompletionListener(opts.ListenAddr),
		log:           log,
		stopTelemetry: stopTelemetry,
	}
	log.Debug("client assembled", "dataDir", dataDir, "logDir", logDir, "baseURL", baseURL)
	return c, nil
}

// Start initializes the session from persisted state, starts the completion
// listener, and reconciles any intent left over from a previous lifetime.
// A failed identity hydration is reported but does not prevent startup; the
// client simply comes up logged out or in the token-without-identity state.
func (c *Client) Start(ctx context.Context) error {
	if err := c.API.Session.Init(ctx); err != nil {
		c.log.Warn("session restore failed", "error", err)
	}
	if err := c.listener.Start(); err != nil {
		return err
	}
	if c.API.Session.LoggedIn() {
		if err := c.Reconciler.Reconcile(ctx); err != nil && !errors.Is(err, api.ErrNotLoggedIn) {
			c.log.Error("reconciling pending intent at startup", "error", err)
		}
	}
	return nil
}

// ListenerAddr returns the address of the running completion listener.
func (c *Client) ListenerAddr() string {
	return c.listener.Addr()
}

// Close tears the client down: the completion handler is unregistered and
// the listener stopped, so no callback can touch state after Close returns.
func (c *Client) Close() error {
	c.Link.Close()
	if err := c.listener.Close(); err != nil {
		return err
	}
	if err := c.stopTelemetry(context.Background()); err != nil {
		c.log.Warn("shutting down telemetry", "error", err)
	}
	return c.settings.Close()
}
