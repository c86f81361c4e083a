package livedemo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	Lo "github.com/maroda/livedemo/obvy"
	Lp "github.com/maroda/livedemo/plugin"
	Ls "github.com/maroda/livedemo/server"
	Lt "github.com/maroda/livedemo/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var Version = "dev"

// Server is the streaming side of livedemo:
// one Source feeding the Hub, the recorders, and the HTTP surface.
type Server struct {
	Config     *Ls.Config
	Hub        *Ls.Hub
	Stats      *Lo.StatsInternal
	Outputs    []Lp.OutputAdapter
	Supervisor *SourceSupervisor
	server     *http.Server
}

// NewServer validates the config and opens the source and outputs
func NewServer(c *Ls.Config) (*Server, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	src, err := Ls.NewSourceFromConfig(c)
	if err != nil {
		return nil, err
	}

	outs, err := InitOutputs(c)
	if err != nil {
		return nil, err
	}

	stats := Lo.NewStatsInternal()
	if ps, ok := src.(*Ls.PollSource); ok {
		ps.Stats = stats
	}

	hub := Ls.NewHub(stats, c.SeriesLen, outs...)
	return &Server{
		Config:     c,
		Hub:        hub,
		Stats:      stats,
		Outputs:    outs,
		Supervisor: NewSourceSupervisor(hub, src),
	}, nil
}

// SetupMux handles all data serving:
// - Websocket stream of updates
// - Prometheus metric endpoint
// - Version and settings for the host page
// - Series and history for late joiners
func (s *Server) SetupMux() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/ws", s.Hub.WebsocketHandler)
	r.Handle("/metrics", s.Stats.Handler())

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.StatsMiddleware)
	api.HandleFunc("/version", s.VersionHandler).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.SettingsHandler).Methods(http.MethodGet)
	api.HandleFunc("/series", s.SeriesHandler).Methods(http.MethodGet)
	api.HandleFunc("/history", s.HistoryHandler).Methods(http.MethodGet)

	// Static files for the host page
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.Config.WebDir)))

	return r
}

// Start runs the hub, the source, and the HTTP listener until ctx is done
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		s.Hub.Run(ctx)
	}()
	s.Supervisor.Start(ctx)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Config.HTTPPort),
		Handler: otelhttp.NewHandler(s.SetupMux(), "livedemo"),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting livedemo server...", slog.String("Port", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not start server", slog.Any("Error", err))
			errCh <- err
		}
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := s.server.Shutdown(shutCtx); serr != nil {
		slog.Error("Server shutdown failed", slog.Any("Error", serr))
	}
	s.Supervisor.Stop()
	stop()
	<-hubDone
	CloseOutputs(s.Outputs)

	return err
}

// RespWriter is a wrapper with StatsMiddleware, used for Prometheus
type RespWriter struct {
	http.ResponseWriter
	Status int
}

// WriteHeader is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) WriteHeader(status int) {
	w.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// Write is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) Write(b []byte) (int, error) {
	return w.ResponseWriter.Write(b)
}

func (s *Server) StatsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &RespWriter{
			ResponseWriter: w,
			Status:         200,
		}
		next.ServeHTTP(wrapped, r)

		s.Stats.RecWWW(strconv.Itoa(wrapped.Status), r.Method)
	})
}

// SystemInfo is what /api/version reports
type SystemInfo struct {
	Version     string   `json:"version"`
	Source      string   `json:"source"`
	Outputs     []string `json:"outputs"`
	MIDIPort    string   `json:"midiPort,omitempty"`
	MIDIChannel int      `json:"midiChannel,omitempty"`
	MIDIRoot    int      `json:"midiRoot,omitempty"`
}

func (s *Server) VersionHandler(w http.ResponseWriter, r *http.Request) {
	info := SystemInfo{
		Version: Version,
		Source:  s.Supervisor.Source.Name(),
		Outputs: make([]string, 0, len(s.Outputs)),
	}
	for _, out := range s.Outputs {
		info.Outputs = append(info.Outputs, out.Type())
	}
	getMIDISystemInfo(s.Outputs, &info)

	writeJSON(w, http.StatusOK, info)
}

// Settings is the countdown and video the host page should use
type Settings struct {
	Countdown int    `json:"countdown"` // seconds
	Video     string `json:"video"`
}

// ResolveSettings reads t (seconds) and v (video ID) from the query.
// Anything missing or unparseable falls back to the config.
func ResolveSettings(q url.Values, c *Ls.Config) Settings {
	st := Settings{Countdown: c.Countdown, Video: c.VideoID}
	if t := q.Get("t"); t != "" {
		if n, err := strconv.Atoi(t); err == nil && n > 0 {
			st.Countdown = n
		} else {
			slog.Debug("Ignoring countdown parameter", slog.String("t", t))
		}
	}
	if v := q.Get("v"); v != "" {
		st.Video = v
	}
	return st
}

func (s *Server) SettingsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ResolveSettings(r.URL.Query(), s.Config))
}

// SeriesData is the server side mirror of the three plot series
type SeriesData struct {
	Values []Lt.Point `json:"values"`
	Labels []Lt.Point `json:"labels"`
	Preds  []Lt.Point `json:"preds"`
}

// SeriesHandler returns points at or after ?since= (epoch ms, default all)
func (s *Server) SeriesHandler(w http.ResponseWriter, r *http.Request) {
	since, err := queryMilli(r.URL.Query(), "since", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ss := s.Hub.Series
	writeJSON(w, http.StatusOK, SeriesData{
		Values: nonNil(ss.Values.Since(since)),
		Labels: nonNil(ss.Labels.Since(since)),
		Preds:  nonNil(ss.Preds.Since(since)),
	})
}

// HistoryHandler queries the first recorder between ?start= and ?end=
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := queryMilli(q, "start", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := queryMilli(q, "end", time.Now().UnixMilli()+1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out := historyOutput(s.Outputs)
	if out == nil {
		http.Error(w, "no recorder configured", http.StatusNotFound)
		return
	}

	updates, err := out.QueryRange(time.UnixMilli(start), time.UnixMilli(end))
	if err != nil {
		slog.Error("History query failed", slog.String("output", out.Type()), slog.Any("Error", err))
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	if updates == nil {
		updates = []*Lt.Update{}
	}
	writeJSON(w, http.StatusOK, updates)
}

// historyOutput prefers badger over the JSONL file, MIDI keeps nothing
func historyOutput(outs []Lp.OutputAdapter) Lp.OutputAdapter {
	var found Lp.OutputAdapter
	for _, out := range outs {
		switch out.(type) {
		case *Lp.BadgerOutput:
			return out
		case *Lp.FileOutput:
			if found == nil {
				found = out
			}
		}
	}
	return found
}

func queryMilli(q url.Values, key string, fallback int64) (int64, error) {
	raw := q.Get(key)
	if raw == "" {
		return fallback, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be epoch milliseconds", key)
	}
	return ms, nil
}

func nonNil(p []Lt.Point) []Lt.Point {
	if p == nil {
		return []Lt.Point{}
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", slog.Any("Error", err))
	}
}
