package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Handler exposes the game use cases as a JSON API for polling clients.
type Handler struct {
	service *app.GameService
	logger  *slog.Logger
}

func NewHandler(service *app.GameService, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type createGameRequest struct {
	Password string `json:"password"`
}

type joinGameRequest struct {
	GameCode string `json:"game_code"`
	Name     string `json:"name"`
}

type deletePlayerRequest struct {
	PlayerID string `json:"player_id"`
}

type gameCodeResponse struct {
	GameCode string `json:"game_code"`
	PlayerID string `json:"player_id,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Routes registers every endpoint and wraps them with request logging.
func (h *Handler) Routes() http.Handler {
	r := httprouter.New()
	r.GET("/healthz", h.healthz)
	r.GET("/game/:code/", h.gameView)

	r.POST("/api/create_game/", h.createGame)
	r.POST("/api/join_game/", h.joinGame)
	r.GET("/api/game_state/:code/", h.gameState)
	r.POST("/api/submit_answer/:code/", h.submitAnswer)
	r.GET("/api/qr/:code/", h.qrCode)

	r.POST("/api/host/start_game/:code/", h.startGame)
	r.POST("/api/host/delete_player/:code/", h.deletePlayer)

	r.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		h.logger.Error("panic serving request", "path", r.URL.Path, "panic", v)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
	return h.logRequests(r)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	_, _ = w.Write([]byte("ok"))
}

// gameView is the target of the join QR code.
func (h *Handler) gameView(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.service.Identify(r.Context(), ps.ByName("code"), existingToken(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) createGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createGameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token := sessionToken(w, r)
	game, err := h.service.CreateGame(r.Context(), req.Password, token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gameCodeResponse{GameCode: game.Code})
}

func (h *Handler) joinGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req joinGameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token := sessionToken(w, r)
	player, err := h.service.JoinGame(r.Context(), req.GameCode, token, req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gameCodeResponse{GameCode: player.GameCode, PlayerID: player.ID})
}

func (h *Handler) gameState(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	snapshot, err := h.service.ProjectState(r.Context(), ps.ByName("code"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.SubmitAnswer(r.Context(), ps.ByName("code"), existingToken(r)); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (h *Handler) startGame(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := h.service.StartGame(r.Context(), ps.ByName("code"), existingToken(r)); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "game started"})
}

func (h *Handler) deletePlayer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req deletePlayerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.RemovePlayer(r.Context(), ps.ByName("code"), existingToken(r), req.PlayerID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "player deleted"})
}

// qrCode renders a PNG QR code pointing at the game's page.
func (h *Handler) qrCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	game, err := h.service.LookupGame(r.Context(), ps.ByName("code"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	url := scheme + "://" + r.Host + "/game/" + game.Code + "/"

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// writeError maps domain failures onto the status codes clients expect.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrGameNotJoinable),
		errors.Is(err, domain.ErrGameNotInProgress),
		errors.Is(err, domain.ErrNotHost):
		// non-hosts see host routes as missing games
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateAnswer),
		errors.Is(err, domain.ErrNoQuestions):
		return http.StatusBadRequest
	}

	switch domain.KindOf(err) {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindResourceExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// logRequests logs method, path, status and duration of every request.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		h.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
