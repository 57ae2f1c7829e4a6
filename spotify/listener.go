package spotify

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/subsense/subsense/events"
)

const maxPayloadSize = 4 << 10

// CompletionListener receives the out-of-band completion message while the
// browser context is away at the provider. The backend's completion page
// posts the payload here; valid messages are emitted as LinkSuccess events.
// The listener never talks to the provider itself.
type CompletionListener struct {
	addr string
	ln   net.Listener
	srv  *http.Server
}

// NewCompletionListener creates a listener on addr. An empty addr binds an
// ephemeral localhost port; the effective address is available from Addr
// after Start.
func NewCompletionListener(addr string) *CompletionListener {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	return &CompletionListener{addr: addr}
}

func (l *CompletionListener) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", l.addr, err)
	}
	l.ln = ln
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", handleCompletion)
	l.srv = &http.Server{Handler: mux}
	go func() {
		if serr := l.srv.Serve(ln); serr != nil && serr != http.ErrServerClosed {
			slog.Error("completion listener stopped", "error", serr)
		}
	}()
	slog.Debug("completion listener started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the address the listener is bound to. Only valid after Start.
func (l *CompletionListener) Addr() string {
	if l.ln == nil {
		return ""
	}
	return l.ln.Addr().String()
}

func (l *CompletionListener) Close() error {
	if l.srv == nil {
		return nil
	}
	return l.srv.Close()
}

// handleCompletion accepts the cross-window payload. Payloads that do not
// match the completion protocol are dropped without an error response: the
// sender is a fire-and-forget browser page that cannot act on one anyway.
func handleCompletion(w http.ResponseWriter, r *http.Request) {
	// the posting page lives on the backend origin
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize))
	if err != nil {
		slog.Debug("failed to read completion payload", "error", err)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	msg, ok := parseCompletionMessage(body)
	if !ok {
		slog.Debug("ignoring payload that is not a link-success message")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	events.Emit(msg)
	w.WriteHeader(http.StatusNoContent)
}
