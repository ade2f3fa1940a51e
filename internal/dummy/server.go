package dummy

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"time"
)

type ServerConfig struct {
	Port   int
	Logger *slog.Logger
}

// Endpoints lists every path Handler serves.
var Endpoints = []string{"/fast", "/medium", "/slow", "/spike", "/error", "/echo", "/binary"}

func sleepBetween(lo, hi int) {
	time.Sleep(time.Duration(rand.Intn(hi-lo)+lo) * time.Millisecond)
}

// Handler serves canned endpoints with known latency and failure shapes.
func Handler() http.Handler {
	mux := http.NewServeMux()

	// 10-50ms
	mux.HandleFunc("/fast", func(w http.ResponseWriter, r *http.Request) {
		sleepBetween(10, 50)
		w.Write([]byte("Fast response"))
	})

	// 100-300ms
	mux.HandleFunc("/medium", func(w http.ResponseWriter, r *http.Request) {
		sleepBetween(100, 300)
		w.Write([]byte("Medium response"))
	})

	// 1s-2s, useful with --timeout
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		sleepBetween(1000, 2000)
		w.Write([]byte("Slow response"))
	})

	// P50 stays low, P99 does not.
	mux.HandleFunc("/spike", func(w http.ResponseWriter, r *http.Request) {
		if rand.Float32() < 0.05 {
			time.Sleep(2 * time.Second)
		} else {
			time.Sleep(20 * time.Millisecond)
		}
		w.Write([]byte("Spikey response"))
	})

	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		rnd := rand.Float32()
		switch {
		case rnd < 0.2:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("500 Internal Server Error"))
		case rnd < 0.4:
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("429 Too Many Requests"))
		default:
			w.Write([]byte("OK"))
		}
	})

	// Echoes the request body and reports what arrived in headers.
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Echo-Method", r.Method)
		w.Header().Set("X-Echo-Host", r.Host)
		if ct := r.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("X-Echo-Content-Type", ct)
		}
		w.Header().Set("X-Echo-User-Agent", r.UserAgent())
		w.Write(body)
	})

	// Non-UTF-8 body and header value, for the single-shot dump.
	mux.HandleFunc("/binary", func(w http.ResponseWriter, r *http.Request) {
		w.Header()["X-Raw"] = []string{"\xff\xfe"}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte{'o', 'k', 0xff, 0xfe, '\n'})
	})

	return mux
}

// Start listens on cfg.Port in the background and returns the server so the
// caller can shut it down. A bind failure is returned before anything is served.
func Start(cfg ServerConfig) (*http.Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("Dummy server running", "url", "http://localhost"+addr, "endpoints", Endpoints)

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "err", err)
		}
	}()
	return server, nil
}
