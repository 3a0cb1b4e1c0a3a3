// Package stub implements a simulated extraction service for local
// development and demos. Jobs advance on wall-clock time: discovery first,
// then one table completing per step, so the client's polling loop and
// progress table can be exercised without the real backend.
package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/harvest/internal/tabular"
	"github.com/leapstack-labs/harvest/internal/task"
)

// Config holds configuration for the stub server.
type Config struct {
	Port        int
	Logger      *slog.Logger
	DiscoverFor time.Duration // how long a job reports discovering
	StepEvery   time.Duration // interval between table completions
}

// Server is the simulated extraction service.
type Server struct {
	port        int
	logger      *slog.Logger
	discoverFor time.Duration
	stepEvery   time.Duration

	mu   sync.Mutex
	jobs map[string]*job
}

type plannedItem struct {
	uid      string
	groupKey string
	ordinal  int
	outcome  task.ItemStatus
	doneAt   time.Duration // elapsed time at which the outcome lands
}

type job struct {
	id      string
	query   string
	columns []string
	created time.Time
	fail    bool
	items   []plannedItem
}

// NewServer creates a stub server. Zero durations fall back to demo-scale
// defaults.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DiscoverFor <= 0 {
		cfg.DiscoverFor = 1200 * time.Millisecond
	}
	if cfg.StepEvery <= 0 {
		cfg.StepEvery = 700 * time.Millisecond
	}
	return &Server{
		port:        cfg.Port,
		logger:      logger,
		discoverFor: cfg.DiscoverFor,
		stepEvery:   cfg.StepEvery,
		jobs:        make(map[string]*job),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Recoverer,
	)
	r.Post("/api/extract", s.handleExtract)
	r.Get("/api/status/{id}", s.handleStatus)
	r.Get("/api/result/{id}", s.handleResult)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting stub extraction service", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down stub service...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req task.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	query := strings.TrimSpace(req.Query)
	switch {
	case query == "":
		writeDetail(w, http.StatusBadRequest, "query must not be empty")
		return
	case len(req.Columns) == 0:
		writeDetail(w, http.StatusBadRequest, "at least one column is required")
		return
	case strings.Contains(query, "reject"):
		// Scripted rejection for demoing the submission failure path.
		writeDetail(w, http.StatusUnprocessableEntity, "query too broad, please narrow it")
		return
	case strings.Contains(query, "nothing"):
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "completed",
			"message": "No relevant tables found for this query",
		})
		return
	}

	j := &job{
		id:      uuid.New().String(),
		query:   query,
		columns: req.Columns,
		created: time.Now(),
		fail:    strings.Contains(query, "fail"),
		items:   s.planItems(),
	}

	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()

	s.logger.Info("accepted extraction job", "task_id", j.id, "query", query, "tables", len(j.items))

	writeJSON(w, http.StatusOK, map[string]any{
		"task_id": j.id,
		"status":  "discovering",
		"items":   s.itemsAt(j, 0),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	j := s.lookup(chi.URLParam(r, "id"))
	if j == nil {
		writeDetail(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, s.snapshotAt(j, time.Since(j.created)))
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	j := s.lookup(chi.URLParam(r, "id"))
	if j == nil {
		writeDetail(w, http.StatusNotFound, "task not found")
		return
	}
	snap := s.snapshotAt(j, time.Since(j.created))
	if snap.Status != task.StatusCompleted {
		writeDetail(w, http.StatusConflict, "task has not completed")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	_, _ = w.Write([]byte(s.resultCSV(j)))
}

func (s *Server) lookup(id string) *job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// planItems lays out the simulated inventory: three patents with one or two
// tables each, completing one per step after discovery. Every third table is
// irrelevant and one errors, so all badge paths show up.
func (s *Server) planItems() []plannedItem {
	type seed struct {
		groupKey string
		ordinal  int
	}
	seeds := []seed{
		{"US-10001-B2", 1},
		{"US-10001-B2", 2},
		{"US-10417-A1", 1},
		{"US-10593-B1", 1},
		{"US-10593-B1", 2},
	}

	items := make([]plannedItem, len(seeds))
	for i, sd := range seeds {
		outcome := task.ItemCompletedRelevant
		switch {
		case i == 3:
			outcome = task.ItemError
		case i%3 == 2:
			outcome = task.ItemCompletedIrrelevant
		}
		items[i] = plannedItem{
			uid:      fmt.Sprintf("tbl-%d", i+1),
			groupKey: sd.groupKey,
			ordinal:  sd.ordinal,
			outcome:  outcome,
			doneAt:   s.discoverFor + time.Duration(i+1)*s.stepEvery,
		}
	}
	return items
}

func (s *Server) itemsAt(j *job, elapsed time.Duration) map[string]task.Item {
	out := make(map[string]task.Item, len(j.items))
	for _, p := range j.items {
		status := task.ItemPending
		switch {
		case elapsed >= p.doneAt:
			status = p.outcome
		case elapsed >= p.doneAt-s.stepEvery:
			status = task.ItemProcessing
		}
		out[p.uid] = task.Item{GroupKey: p.groupKey, Ordinal: p.ordinal, Status: status}
	}
	return out
}

func (s *Server) snapshotAt(j *job, elapsed time.Duration) task.Snapshot {
	items := s.itemsAt(j, elapsed)

	done, relevant := 0, 0
	for _, item := range items {
		if !item.Status.Loading() {
			done++
		}
		if item.Status == task.ItemCompletedRelevant {
			relevant++
		}
	}

	snap := task.Snapshot{
		Status: task.StatusProcessing,
		Counts: task.Counts{
			ProcessedFiles:  3,
			TotalFiles:      3,
			ProcessedTables: done,
			TotalTables:     len(items),
			RelevantTables:  relevant,
		},
		Items:      items,
		Percentage: 100 * float64(done) / float64(len(items)),
	}

	switch {
	case elapsed < s.discoverFor:
		snap.Status = task.StatusDiscovering
		snap.CurrentAction = "Searching patent corpus"
	case done < len(items):
		snap.CurrentAction = fmt.Sprintf("Extracting table %d of %d", done+1, len(items))
	case j.fail:
		snap.Status = task.StatusError
		snap.Message = "extraction pipeline crashed"
		snap.Errors = []string{"worker exited unexpectedly"}
	default:
		snap.Status = task.StatusCompleted
		snap.Message = fmt.Sprintf("Extracted %d relevant tables", relevant)
	}
	return snap
}

// resultCSV builds the final artifact: one row per relevant table, with
// deterministic synthetic values per requested column.
func (s *Server) resultCSV(j *job) string {
	header := append([]string{"Patent", "Table"}, j.columns...)

	var rows []tabular.Row
	for _, p := range j.items {
		if p.outcome != task.ItemCompletedRelevant {
			continue
		}
		row := tabular.Row{
			"Patent": p.groupKey,
			"Table":  fmt.Sprintf("%d", p.ordinal),
		}
		for i, col := range j.columns {
			row[col] = fmt.Sprintf("%s %d.%d", strings.ToLower(col), p.ordinal, i+1)
		}
		rows = append(rows, row)
	}
	return tabular.Encode(header, rows)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
