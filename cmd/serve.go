package cmd

import (
	"context"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gocache "github.com/patrickmn/go-cache"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"streamagent/internal/agent"
	"streamagent/internal/schema"
	"streamagent/internal/sqlexec"
)

const (
	askTimeout   = 120 * time.Second
	queryTimeout = 8 * time.Second
	answerTTL    = 5 * time.Minute
)

//go:embed templates/index.html
var indexHTML string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		srv := &server{
			rt:      rt,
			runner:  sqlexec.New(rt.db, rt.log.Named("sqlexec")),
			tmpl:    template.Must(template.New("index").Parse(indexHTML)),
			answers: gocache.New(answerTTL, 10*time.Minute),
		}

		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Get("/", srv.handleIndex)
		r.Post("/ask", srv.handleAsk)
		r.Post("/query", srv.handleQuery)
		r.Get("/schema", srv.handleSchema)
		r.Post("/schema/refresh", srv.handleSchemaRefresh)
		r.Post("/export", srv.handleExportCSV)
		r.Get("/healthz", srv.handleHealthz)

		rt.log.Info("listening", zap.String("addr", rt.cfg.Addr))
		return http.ListenAndServe(rt.cfg.Addr, r)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type server struct {
	rt      *runtime
	runner  *sqlexec.Executor
	tmpl    *template.Template
	answers *gocache.Cache
}

type askRequest struct {
	Question string `json:"question"`
}

type queryRequest struct {
	Query string `json:"query"`
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, nil); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// handleAsk runs a question through the agent. Identical questions are
// answered from a short-lived cache, since agent runs cost several
// model calls.
func (s *server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	if cached, ok := s.answers.Get(question); ok {
		respondJSON(w, http.StatusOK, cached.(agent.Result))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), askTimeout)
	defer cancel()

	result := s.rt.agent.Ask(ctx, question)
	if result.Err == "" {
		s.answers.Set(question, result, gocache.DefaultExpiration)
	}
	respondJSON(w, http.StatusOK, result)
}

// handleQuery executes a raw read-only statement, bypassing the agent.
func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, sqlexec.Result{Error: "invalid JSON body", ErrorKind: sqlexec.ErrValidation})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	res := s.runner.Execute(ctx, req.Query)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
	}
	respondJSON(w, status, res)
}

type schemaResponse struct {
	Tables      []schema.Table `json:"tables"`
	TableCount  int            `json:"tableCount"`
	LastRefresh string         `json:"lastRefresh"`
}

func (s *server) handleSchema(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, schemaResponse{
		Tables:      s.rt.schema.GetTables(),
		TableCount:  s.rt.schema.TableCount(),
		LastRefresh: s.rt.schema.LastRefresh().Format(time.RFC3339),
	})
}

func (s *server) handleSchemaRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := s.rt.schema.Load(ctx, s.rt.db); err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.handleSchema(w, r)
}

// handleExportCSV streams the rows of a read-only statement as CSV.
func (s *server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	res := s.runner.Execute(ctx, req.Query)
	if !res.Success {
		http.Error(w, res.Error, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=export.csv")

	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(res.Columns); err != nil {
		return
	}
	for _, row := range res.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				record[i] = ""
			} else {
				record[i] = fmt.Sprintf("%v", v)
			}
		}
		if err := csvWriter.Write(record); err != nil {
			return
		}
	}
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.rt.db.PingContext(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db unreachable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
