package spotify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/subsense/subsense/api"
	"github.com/subsense/subsense/common"
	"github.com/subsense/subsense/traces"
)

const (
	connectWithSubscriptionPath = "/api/spotify/connect-with-subscription"

	// submission retry bounds for transient failures
	maxSubmitAttempts = 3
	maxSubmitBackoff  = 2 * time.Second
)

// Reconciler submits a buffered PendingIntent exactly once per instance
// lifetime. The one-shot latch belongs to the reconciler itself, not to any
// UI lifecycle, so repeated invocations of the same startup logic cannot
// double-submit.
type Reconciler struct {
	wc      *api.WebClient
	session *api.SessionStore
	intents *IntentStore

	mu     sync.Mutex
	done   bool
	result error
}

func NewReconciler(client *api.Client, intents *IntentStore) *Reconciler {
	return &Reconciler{
		wc:      client.WebClient(),
		session: client.Session,
		intents: intents,
	}
}

// Reconcile submits the stored intent to the combined link-and-create
// endpoint, then removes it. Transient failures are retried a bounded number
// of times, but the intent is cleared no matter how submission ends: a
// possibly-already-applied linking action must never be resubmitted in a
// later lifetime, even at the cost of dropping the subscription half of the
// intent. The terminal error is returned to the caller.
//
// Reconcile refuses to run before the session holds a token; that refusal
// does not consume the latch, so a later properly-sequenced call still runs.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "reconcile_pending_intent")
	defer span.End()

	if !r.session.LoggedIn() {
		return traces.RecordError(ctx, api.ErrNotLoggedIn)
	}

	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return nil
	}
	intent, err := r.intents.Load()
	if err != nil {
		r.mu.Unlock()
		return traces.RecordError(ctx, err)
	}
	if intent == nil {
		r.mu.Unlock()
		return nil
	}
	r.done = true
	r.mu.Unlock()

	err = r.submit(ctx, intent)
	if cerr := r.intents.Clear(); cerr != nil {
		slog.Error("clearing pending intent", "error", cerr)
		if err == nil {
			err = cerr
		}
	}
	if err != nil {
		slog.Error("pending intent dropped after failed submission", "app", intent.AppName, "error", err)
	} else {
		slog.Info("pending intent applied", "app", intent.AppName)
	}
	r.mu.Lock()
	r.result = err
	r.mu.Unlock()
	return traces.RecordError(ctx, err)
}

// Outcome reports whether an intent submission has run and how it ended. The
// intent disappearing from the store alone does not mean it was applied; it
// is removed on terminal failure too.
func (r *Reconciler) Outcome() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done, r.result
}

func (r *Reconciler) submit(ctx context.Context, intent *PendingIntent) error {
	backoff := common.NewBackoff(maxSubmitBackoff)
	var lastErr error
	for attempt := 0; attempt < maxSubmitAttempts; attempt++ {
		if attempt > 0 {
			backoff.Wait(ctx)
		}
		req := r.wc.NewRequest(nil, nil, intent)
		lastErr = r.wc.Post(ctx, connectWithSubscriptionPath, req, nil)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) || ctx.Err() != nil {
			return lastErr
		}
		slog.Warn("pending intent submission failed, retrying", "attempt", attempt+1, "error", lastErr)
	}
	return lastErr
}

// isTransient reports whether err is worth retrying: transport failures and
// server-side errors. Client-side rejections are final.
func isTransient(err error) bool {
	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status >= http.StatusInternalServerError
	}
	return false
}
