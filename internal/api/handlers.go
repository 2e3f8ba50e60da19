package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/sql-escape-room/internal/models"
	"github.com/terra-clan/sql-escape-room/internal/sandbox"
	"github.com/terra-clan/sql-escape-room/internal/scores"
)

// Response helpers. The game's response bodies are flat JSON objects the
// browser front-end consumes directly, so there is no success/data
// envelope here.

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady gates readiness on the sandbox engine only. Score sinks
// degrade gracefully at runtime, so their health is reported but never
// fails the check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.provisioner.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "service not ready")
		return
	}

	sinks := make(map[string]string)
	for name, err := range s.scores.HealthCheck(r.Context()) {
		if err != nil {
			sinks[name] = err.Error()
			continue
		}
		sinks[name] = "ok"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"sinks":  sinks,
	})
}

// Game handlers

// handleGetQuestion returns the public projection of one level: schema
// and story only. Seed rows, the reference query, and the unlock code
// never cross this boundary.
func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Question not found")
		return
	}

	level, ok := s.catalog.GetPublic(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Question not found")
		return
	}

	writeJSON(w, http.StatusOK, level)
}

type checkRequest struct {
	ID         int     `json:"id"`
	UserAnswer *string `json:"userAnswer"`
}

type checkResponse struct {
	Correct    bool   `json:"correct"`
	UnlockCode string `json:"unlockCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing id or userAnswer")
		return
	}

	if req.ID == 0 || req.UserAnswer == nil {
		writeError(w, http.StatusBadRequest, "Missing id or userAnswer")
		return
	}

	result, err := s.evaluator.Evaluate(r.Context(), req.ID, *req.UserAnswer)
	if err != nil {
		if errors.Is(err, sandbox.ErrLevelNotFound) {
			writeError(w, http.StatusNotFound, "Question not found")
			return
		}
		slog.Error("evaluation failed", "level_id", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Execution error")
		return
	}

	switch {
	case result.Verdict.IsCorrect():
		writeJSON(w, http.StatusOK, checkResponse{
			Correct:    true,
			UnlockCode: result.UnlockCode,
		})
	case result.Verdict.IsUserFacing():
		writeJSON(w, http.StatusOK, checkResponse{
			Correct: false,
			Error:   result.Message,
		})
	default:
		writeError(w, http.StatusInternalServerError, "Execution error")
	}
}

func (s *Server) handleTotal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"total": s.catalog.Total(),
	})
}

type scoreRequest struct {
	Name   string `json:"name"`
	RollNo string `json:"rollNo"`
	Score  *int   `json:"score"`
	Time   string `json:"time"`
}

func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	if req.Name == "" || req.RollNo == "" || req.Score == nil || req.Time == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	score := &models.Score{
		PlayerName: req.Name,
		RollNo:     req.RollNo,
		Score:      *req.Score,
		TimeTaken:  req.Time,
	}

	message := s.scores.Submit(r.Context(), score)

	s.hub.Broadcast(models.ScoreEvent{
		Type:       "score",
		PlayerName: score.PlayerName,
		Score:      score.Score,
		TimeTaken:  score.TimeTaken,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	entries, err := s.scores.Top(r.Context(), limit)
	if err != nil {
		slog.Error("failed to read leaderboard", "error", err)
		writeError(w, http.StatusInternalServerError, "Leaderboard unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"leaderboard": entries,
		"total":       len(entries),
	})
}

// Admin handlers

func (s *Server) handleReloadLevels(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Reload(s.config.Levels.Dir); err != nil {
		slog.Error("failed to reload levels", "dir", s.config.Levels.Dir, "error", err)
		writeError(w, http.StatusInternalServerError, "Reload failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"total":   s.catalog.Total(),
	})
}

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	rows, err := s.scores.Recent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, scores.ErrNoHistory) {
			writeError(w, http.StatusServiceUnavailable, "Score history unavailable")
			return
		}
		slog.Error("failed to list scores", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list scores")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scores": rows,
		"total":  len(rows),
	})
}
