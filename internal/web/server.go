// Package web provides the HTTP status and control surface for the
// gpio-keysd daemon.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/sweeney/gpio-keysd/internal/button"
	"github.com/sweeney/gpio-keysd/internal/inject"
	"github.com/sweeney/gpio-keysd/internal/keys"
	"github.com/sweeney/gpio-keysd/internal/status"
)

// Server serves the status page and the line control endpoints.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	registry   *button.Registry
	injector   *inject.Injector
}

// New creates a Server over the given collaborators.
func New(addr string, tracker *status.Tracker, registry *button.Registry, injector *inject.Injector) *Server {
	s := &Server{
		tracker:  tracker,
		registry: registry,
		injector: injector,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/keys", s.handleKeys)
	mux.HandleFunc("/switches", s.handleSwitches)
	mux.HandleFunc("/disabled_keys", s.handleDisabledKeys)
	mux.HandleFunc("/disabled_switches", s.handleDisabledSwitches)
	mux.HandleFunc("/wakeup_keys", s.handleWakeupKeys)
	mux.HandleFunc("/keys_pressed", s.handleKeysPressed)
	mux.HandleFunc("/key_pressed", s.handleKeyPressed)
	mux.HandleFunc("/emu", s.handleEmu)
	mux.HandleFunc("/ponkey", s.handlePonkey)
	mux.HandleFunc("/routes", s.handleRoutes)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// writeError maps the daemon's error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, keys.ErrInvalidFormat):
		code = http.StatusBadRequest
	case errors.Is(err, button.ErrNotDisableable):
		code = http.StatusForbidden
	case errors.Is(err, button.ErrUnknownCode):
		code = http.StatusNotFound
	case errors.Is(err, inject.ErrBusy):
		code = http.StatusConflict
	}
	http.Error(w, err.Error(), code)
}

// syncTracker refreshes the tracker's displayed masks after a mutation.
func (s *Server) syncTracker() {
	s.tracker.SetDisabledKeys(s.registry.DisabledCodes(keys.ClassKey))
	s.tracker.SetDisabledSwitches(s.registry.DisabledCodes(keys.ClassSwitch))
	s.tracker.SetWakeupKeys(s.registry.WakeupCodes())
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%s\n", body)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeText(w, s.registry.DisableableCodes(keys.ClassKey))
}

func (s *Server) handleSwitches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeText(w, s.registry.DisableableCodes(keys.ClassSwitch))
}

// handleMask serves one read-write range-list endpoint.
func (s *Server) handleMask(w http.ResponseWriter, r *http.Request, read func() string, write func(string) error) {
	switch r.Method {
	case http.MethodGet:
		writeText(w, read())
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := write(r.PostForm.Get("codes")); err != nil {
			writeError(w, err)
			return
		}
		s.syncTracker()
		writeText(w, read())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDisabledKeys(w http.ResponseWriter, r *http.Request) {
	s.handleMask(w, r,
		func() string { return s.registry.DisabledCodes(keys.ClassKey) },
		func(spec string) error { return s.registry.SetDisabledCodes(keys.ClassKey, spec) })
}

func (s *Server) handleDisabledSwitches(w http.ResponseWriter, r *http.Request) {
	s.handleMask(w, r,
		func() string { return s.registry.DisabledCodes(keys.ClassSwitch) },
		func(spec string) error { return s.registry.SetDisabledCodes(keys.ClassSwitch, spec) })
}

func (s *Server) handleWakeupKeys(w http.ResponseWriter, r *http.Request) {
	s.handleMask(w, r,
		func() string { return s.registry.WakeupCodes() },
		func(spec string) error { return s.registry.SetWakeupCodes(spec) })
}

func (s *Server) handleKeysPressed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	codes := s.registry.PressedCodes(keys.ClassKey)
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(c)
	}
	writeText(w, strings.Join(parts, ","))
}

func (s *Server) handleKeyPressed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.registry.AnyPressed() {
		writeText(w, "1")
	} else {
		writeText(w, "0")
	}
}

func (s *Server) handleEmu(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if v := r.PostForm.Get("emu_keycode"); v != "" {
			code, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, fmt.Errorf("%w: emu_keycode %q", keys.ErrInvalidFormat, v))
				return
			}
			if err := s.registry.SetEmulateCode(code); err != nil {
				writeError(w, err)
				return
			}
		}
		if r.PostForm.Get("press") != "" {
			if err := s.registry.TriggerEmulate(); err != nil {
				writeError(w, err)
				return
			}
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	busy := 0
	if s.registry.EmulateBusy() {
		busy = 1
	}
	writeText(w, fmt.Sprintf("emu_keycode=%d busy=%d", s.registry.EmulateCode(), busy))
}

func (s *Server) handlePonkey(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		up, err := ponkeyToggle("volup", r.PostForm.Get("volup"))
		if err != nil {
			writeError(w, err)
			return
		}
		down, err := ponkeyToggle("voldown", r.PostForm.Get("voldown"))
		if err != nil {
			writeError(w, err)
			return
		}
		if up != nil {
			s.injector.SetRoute(keys.KeyVolumeUp, keys.KeyPower, *up)
		}
		if down != nil {
			s.injector.SetRoute(keys.KeyVolumeDown, keys.KeyPower, *down)
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	volup, voldown := 0, 0
	if dst, ok := s.injector.Route(keys.KeyVolumeUp); ok && dst == keys.KeyPower {
		volup = 1
	}
	if dst, ok := s.injector.Route(keys.KeyVolumeDown); ok && dst == keys.KeyPower {
		voldown = 1
	}
	writeText(w, fmt.Sprintf("volup=%d voldown=%d", volup, voldown))
}

// ponkeyToggle reads an optional 0/1 form value. A nil result means the field
// was absent and the toggle keeps its current state.
func ponkeyToggle(field, v string) (*bool, error) {
	switch v {
	case "":
		return nil, nil
	case "0", "1":
		on := v == "1"
		return &on, nil
	}
	return nil, fmt.Errorf("%w: %s %q", keys.ErrInvalidFormat, field, v)
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		src, err := strconv.Atoi(r.PostForm.Get("src"))
		if err != nil || !keys.ClassKey.ValidCode(src) {
			writeError(w, fmt.Errorf("%w: src %q", keys.ErrInvalidFormat, r.PostForm.Get("src")))
			return
		}
		enabled := r.PostForm.Get("enabled") != "0"
		dst := 0
		if enabled {
			dst, err = strconv.Atoi(r.PostForm.Get("dst"))
			if err != nil || !keys.ClassKey.ValidCode(dst) {
				writeError(w, fmt.Errorf("%w: dst %q", keys.ErrInvalidFormat, r.PostForm.Get("dst")))
				return
			}
		}
		s.injector.SetRoute(src, dst, enabled)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	routes := s.injector.Routes()
	srcs := make([]int, 0, len(routes))
	for src := range routes {
		srcs = append(srcs, src)
	}
	sort.Ints(srcs)

	var b strings.Builder
	for _, src := range srcs {
		fmt.Fprintf(&b, "%d %d\n", src, routes[src])
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, b.String())
}
