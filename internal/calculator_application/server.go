package calculatorapplication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	conf "github.com/ERRORIK404/custom_calc/pkg/config"
	"github.com/ERRORIK404/custom_calc/pkg/evaluator"
	"github.com/ERRORIK404/custom_calc/pkg/formulas"
	"github.com/ERRORIK404/custom_calc/pkg/history"
	locerr "github.com/ERRORIK404/custom_calc/pkg/local_errors"
	"github.com/ERRORIK404/custom_calc/pkg/logger"
	"github.com/ERRORIK404/custom_calc/pkg/offline_cache"
	structs "github.com/ERRORIK404/custom_calc/pkg/structs"
	"github.com/ERRORIK404/custom_calc/pkg/tokenezation"
)

const sessionCookie = "calc_session"

type Server struct {
	config   *conf.Config
	manager  *Manager
	worker   *offline_cache.Worker
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// New собирает сервер: рабочие пространства поверх store, вычисления через ev
func New(cfg *conf.Config, store Store, ev evaluator.Evaluator, presets []structs.CustomFormula, log *slog.Logger) (*Server, error) {
	opts := WorkspaceOptions{
		DisplayLogSize: cfg.DisplayLogSize,
		AngleMode:      structs.ParseAngleMode(cfg.DefaultAngleMode),
		Presets:        presets,
	}
	sessionLog := logger.For(log, logger.AreaSession)
	open := func(ctx context.Context, id string) (*Workspace, error) {
		return OpenWorkspace(ctx, id, ev, store, opts, sessionLog)
	}

	a, err := buildAssets(cfg.CacheVersion, cfg.DisplayLogSize)
	if err != nil {
		return nil, fmt.Errorf("build assets: %w", err)
	}

	return &Server{
		config:  cfg,
		manager: NewManager(open, cfg.SessionIdleTTL, sessionLog),
		worker:  offline_cache.NewWorker(cfg.CacheVersion, shellAssets, a.handler(), nil, logger.For(log, logger.AreaCache)),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logger.For(log, logger.AreaHTTP),
	}, nil
}

func (s *Server) Manager() *Manager { return s.manager }

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	for _, pattern := range []string{"GET /{$}", "GET /app.js", "GET /manifest.json", "GET /sw.js", "GET /icons/{name}"} {
		mux.Handle(pattern, s.worker)
	}

	mux.HandleFunc("GET /api/v1/health", s.healthHandler)
	mux.HandleFunc("POST /api/v1/session", s.newSessionHandler)

	mux.HandleFunc("GET /api/v1/state", s.withWorkspace(s.stateHandler))
	mux.HandleFunc("POST /api/v1/press", s.withWorkspace(s.pressHandler))
	mux.HandleFunc("POST /api/v1/calculate", s.withWorkspace(s.calculateHandler))
	mux.HandleFunc("POST /api/v1/clear", s.withWorkspace(s.clearHandler))

	mux.HandleFunc("GET /api/v1/history", s.withWorkspace(s.historyHandler))
	mux.HandleFunc("DELETE /api/v1/history", s.withWorkspace(s.clearHistoryHandler))
	mux.HandleFunc("DELETE /api/v1/history/{id}", s.withWorkspace(s.deleteHistoryHandler))
	mux.HandleFunc("POST /api/v1/history/{id}/recall", s.withWorkspace(s.recallHistoryHandler))
	mux.HandleFunc("GET /api/v1/history/export", s.withWorkspace(s.exportHistoryHandler))

	mux.HandleFunc("GET /api/v1/formulas", s.withWorkspace(s.formulasHandler))
	mux.HandleFunc("POST /api/v1/formulas", s.withWorkspace(s.saveFormulaHandler))
	mux.HandleFunc("GET /api/v1/formulas/export", s.withWorkspace(s.exportFormulasHandler))
	mux.HandleFunc("DELETE /api/v1/formulas/selection", s.withWorkspace(s.clearSelectionHandler))
	mux.HandleFunc("DELETE /api/v1/formulas/{id}", s.withWorkspace(s.deleteFormulaHandler))
	mux.HandleFunc("POST /api/v1/formulas/{id}/use", s.withWorkspace(s.useFormulaHandler))
	mux.HandleFunc("POST /api/v1/formulas/{id}/select", s.withWorkspace(s.selectFormulaHandler))
	mux.HandleFunc("PUT /api/v1/formulas/{id}/variables/{variableId}", s.withWorkspace(s.setVariableHandler))

	mux.HandleFunc("GET /calculator_formulas", s.withWorkspace(s.formulasHandler))
	mux.HandleFunc("GET /calculator_variable_values", s.withWorkspace(s.variableValuesHandler))

	mux.HandleFunc("GET /ws", s.withWorkspace(s.websocketHandler))
	return mux
}

// RunServer ставит кэш ресурсов, запускает выгрузку сессий и HTTP сервер до отмены контекста
func (s *Server) RunServer(ctx context.Context) error {
	if err := s.worker.Install(ctx); err != nil {
		return err
	}
	s.worker.Activate()

	if err := s.manager.StartEviction(s.config.EvictionSchedule); err != nil {
		return fmt.Errorf("eviction schedule: %w", err)
	}
	defer s.manager.Stop()

	srv := &http.Server{
		Addr:              s.config.HTTPAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.config.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type workspaceHandler func(w http.ResponseWriter, r *http.Request, ws *Workspace)

// withWorkspace находит сессию по токену (заголовок или cookie), при необходимости создает новую
func (s *Server) withWorkspace(next workspaceHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := s.resolveSession(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		ws, err := s.manager.Get(r.Context(), sessionID)
		if err != nil {
			s.log.Error("workspace not opened", "session", sessionID, "error", err)
			writeError(w, err)
			return
		}
		next(w, r, ws)
	}
}

func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return "", locerr.ErrInvalidToken
		}
		return tokenezation.CheckToken(token, s.config.JWTSecret)
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		if cookie, err := r.Cookie(sessionCookie); err == nil {
			token = cookie.Value
		}
	}
	if token != "" {
		if sessionID, err := tokenezation.CheckToken(token, s.config.JWTSecret); err == nil {
			return sessionID, nil
		}
	}
	sessionID, _, err := s.issueSession(w)
	return sessionID, err
}

func (s *Server) issueSession(w http.ResponseWriter) (string, string, error) {
	sessionID := structs.GenerateID()
	token, err := tokenezation.GenerateToken(sessionID, s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return "", "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.config.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionID, token, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, locerr.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, locerr.ErrFormulaNotFound), errors.Is(err, locerr.ErrHistoryItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, locerr.ErrValuesNotLoaded):
		status = http.StatusConflict
	case errors.Is(err, locerr.ErrInvalidFormula), errors.Is(err, locerr.ErrUnknownButton),
		errors.Is(err, locerr.ErrEmptyExpression), errors.Is(err, locerr.ErrIncorrectBracketPlacement):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", locerr.ErrInvalidFormula, err)
	}
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"timestamp":     time.Now().Format(time.RFC3339),
		"cache_version": s.worker.Version(),
		"cache_entries": s.worker.Storage().Open(s.worker.Version()).Len(),
		"sessions":      s.manager.Len(),
	})
}

func (s *Server) newSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, token, err := s.issueSession(w)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sessionID, "token": token})
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

func (s *Server) pressHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req struct {
		Button string `json:"button"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", locerr.ErrUnknownButton, err))
		return
	}
	snapshot, err := ws.Press(r.Context(), req.Button)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) calculateHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req struct {
		Expression string `json:"expression"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", locerr.ErrEmptyExpression, err))
		return
	}
	if strings.TrimSpace(req.Expression) == "" {
		writeError(w, locerr.ErrEmptyExpression)
		return
	}
	writeJSON(w, http.StatusOK, ws.Calculate(r.Context(), req.Expression))
}

func (s *Server) clearHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	writeJSON(w, http.StatusOK, ws.Clear())
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	writeJSON(w, http.StatusOK, ws.History())
}

func (s *Server) clearHistoryHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	ws.ClearHistory(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteHistoryHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	if err := ws.DeleteHistory(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recallHistoryHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	snapshot, err := ws.RecallHistory(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) exportHistoryHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="history.xlsx"`)
	if err := history.WriteXLSX(w, ws.History()); err != nil {
		s.log.Error("history export failed", "error", err)
	}
}

func (s *Server) formulasHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	list := ws.Formulas()
	if list == nil {
		list = []structs.CustomFormula{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) saveFormulaHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var formula structs.CustomFormula
	if err := decode(r, &formula); err != nil {
		writeError(w, err)
		return
	}
	saved, err := ws.SaveFormula(r.Context(), formula)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) exportFormulasHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="formulas.yaml"`)
	if err := formulas.EncodePreset(w, ws.Formulas()); err != nil {
		s.log.Error("formulas export failed", "error", err)
	}
}

func (s *Server) deleteFormulaHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	if err := ws.DeleteFormula(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) useFormulaHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	snapshot, err := ws.UseFormula(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) selectFormulaHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	if err := ws.SelectFormula(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

func (s *Server) clearSelectionHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	ws.ClearSelection()
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

func (s *Server) setVariableHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req struct {
		Value string `json:"value"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := ws.SetVariable(r.Context(), r.PathValue("id"), r.PathValue("variableId"), req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.VariableValues())
}

func (s *Server) variableValuesHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	writeJSON(w, http.StatusOK, ws.VariableValues())
}
