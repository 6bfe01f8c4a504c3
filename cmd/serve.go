package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/store"
)

var (
	servePort int
	serveLoop bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status API, optionally with the scheduler loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		env, err := initOutreach(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		proc := &serialProcessor{next: env.Processor}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(proc, env.Journal),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		if serveLoop {
			sched, err := newScheduler(proc)
			if err != nil {
				return err
			}
			g.Go(func() error {
				if err := sched.Run(gctx); err != nil {
					return err
				}
				// The loop only ends cleanly on cancellation; stop the server with it.
				stop()
				return nil
			})
		}

		return g.Wait()
	},
}

// rowProcessor is the part of the pipeline the API drives.
type rowProcessor interface {
	ProcessNext(ctx context.Context) (*model.Outcome, error)
}

// serialProcessor keeps one row in flight when the loop and the API share a pipeline.
type serialProcessor struct {
	mu   sync.Mutex
	next rowProcessor
}

func (s *serialProcessor) ProcessNext(ctx context.Context) (*model.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.ProcessNext(ctx)
}

// buildRouter wires the status API. journal may be nil.
func buildRouter(proc rowProcessor, journal store.Journal) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
		if journal == nil {
			writeError(w, http.StatusServiceUnavailable, "journal not configured")
			return
		}
		q := req.URL.Query()
		filter := store.RunFilter{
			State:   model.RowState(q.Get("outcome")),
			Website: q.Get("website"),
		}
		for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
			if v := q.Get(key); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					writeError(w, http.StatusBadRequest, key+" must be a non-negative integer")
					return
				}
				*dst = n
			}
		}
		runs, err := journal.ListRuns(req.Context(), filter)
		if err != nil {
			zap.L().Error("api: list runs", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list runs failed")
			return
		}
		if runs == nil {
			runs = []model.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		if journal == nil {
			writeError(w, http.StatusServiceUnavailable, "journal not configured")
			return
		}
		run, err := journal.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	r.Post("/process", func(w http.ResponseWriter, req *http.Request) {
		if proc == nil {
			writeError(w, http.StatusServiceUnavailable, "pipeline not configured")
			return
		}
		// A row runs to a terminal state even if the client goes away.
		out, err := proc.ProcessNext(context.WithoutCancel(req.Context()))
		switch {
		case errors.Is(err, pipeline.ErrNoRows):
			writeJSON(w, http.StatusOK, map[string]string{"status": "idle"})
		case out == nil:
			zap.L().Error("api: process row", zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			resp := processResponse{Outcome: out}
			if err != nil {
				resp.Error = err.Error()
			}
			writeJSON(w, http.StatusOK, resp)
		}
	})

	return r
}

type processResponse struct {
	Outcome *model.Outcome `json:"outcome"`
	Error   string         `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveLoop, "loop", false, "also run the scheduler loop in this process")
	rootCmd.AddCommand(serveCmd)
}
