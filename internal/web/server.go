package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"net/http"
	"time"

	"hapticd/internal/haptic"
)

// Controller is the motor control surface the HTTP API forwards into.
// *haptic.Device implements it.
type Controller interface {
	Activate(d time.Duration) error
	RemainingTime() time.Duration
	SetIntensity(intensity int) error
	Intensity() int
	DutyPeriod() (duty, period uint32)
	Suspend() error
	Resume() error
	Status() haptic.Status
}

const maxBodyBytes = 4 << 10

type enableRequest struct {
	DurationMs int64 `json:"duration_ms"`
}

type enableResponse struct {
	RemainingMs int64 `json:"remaining_ms"`
}

type intensityRequest struct {
	Intensity int `json:"intensity"`
}

type intensityResponse struct {
	Intensity int `json:"intensity"`
	Max       int `json:"max"`
}

type dutyPeriodResponse struct {
	Duty   uint32 `json:"duty"`
	Period uint32 `json:"period"`
}

func Handler(ctl Controller, logs *LogBuffer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, ctl.Status())
	})

	mux.HandleFunc("/api/enable", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, enableResponse{RemainingMs: ctl.RemainingTime().Milliseconds()})
		case http.MethodPost:
			var req enableRequest
			if !readStrict(w, r, []string{"duration_ms"}, &req) {
				return
			}
			ms := req.DurationMs
			if ms > math.MaxInt64/int64(time.Millisecond) {
				ms = math.MaxInt64 / int64(time.Millisecond)
			}
			if err := ctl.Activate(time.Duration(ms) * time.Millisecond); err != nil {
				writeControlErr(w, err)
				return
			}
			writeJSON(w, enableResponse{RemainingMs: ctl.RemainingTime().Milliseconds()})
		default:
			w.Header().Set("Allow", "GET, POST")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/intensity", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, intensityResponse{Intensity: ctl.Intensity(), Max: haptic.MaxIntensity})
		case http.MethodPost:
			var req intensityRequest
			if !readStrict(w, r, []string{"intensity"}, &req) {
				return
			}
			if err := ctl.SetIntensity(req.Intensity); err != nil {
				writeControlErr(w, err)
				return
			}
			writeJSON(w, intensityResponse{Intensity: ctl.Intensity(), Max: haptic.MaxIntensity})
		default:
			w.Header().Set("Allow", "GET, POST")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/duty_period", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		duty, period := ctl.DutyPeriod()
		writeJSON(w, dutyPeriodResponse{Duty: duty, Period: period})
	})

	// Power-management hooks, for hosts without a system sleep notifier.
	mux.HandleFunc("/api/pm/suspend", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		if err := ctl.Suspend(); err != nil {
			writeControlErr(w, err)
			return
		}
		writeOK(w)
	})
	mux.HandleFunc("/api/pm/resume", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		if err := ctl.Resume(); err != nil {
			writeControlErr(w, err)
			return
		}
		writeOK(w)
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		st := ctl.Status()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>hapticd</title></head><body>")
		_, _ = fmt.Fprintf(w, "<h1>hapticd</h1>")
		_, _ = fmt.Fprintf(w, "<p>See <a href=\"/api/status\">/api/status</a> and <a href=\"/api/logs?format=text\">/api/logs</a>.</p>")
		_, _ = fmt.Fprintf(w, "<pre>%s</pre>", html.EscapeString(fmt.Sprintf(
			"running=%v\nintensity=%d\nduty=%d\nperiod=%d\nremaining_ms=%d\nmax_timeout_ms=%d",
			st.Running, st.Intensity, st.Duty, st.Period, st.RemainingMs, st.MaxTimeoutMs,
		)))
		_, _ = fmt.Fprintf(w, "</body></html>")
	})

	return mux
}

func Serve(ctx context.Context, listenAddr string, ctl Controller, logs *LogBuffer) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(ctl, logs),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func readStrict(w http.ResponseWriter, r *http.Request, keys []string, out any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return false
	}
	if err := decodeStrictObject(body, keys, out); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeControlErr maps core errors to status codes.
func writeControlErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, haptic.ErrIntensityOutOfRange), errors.Is(err, haptic.ErrInvalidDuration):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, haptic.ErrClosed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("{\"ok\":true}\n"))
}
