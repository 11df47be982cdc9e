package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	transport "live-quiz-service/internal/transport/http"
)

func TestGameFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	host := newClient(t)
	alice := newClient(t)
	bob := newClient(t)

	var created struct {
		GameCode string `json:"game_code"`
	}
	status := do(t, host, http.MethodPost, srv.URL+"/api/create_game/", map[string]string{"password": "wrong"}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong password, got %d", status)
	}
	status = do(t, host, http.MethodPost, srv.URL+"/api/create_game/", map[string]string{"password": "8877"}, &created)
	if status != http.StatusOK || !app.ValidGameCode(created.GameCode) {
		t.Fatalf("create: status %d code %q", status, created.GameCode)
	}
	code := created.GameCode

	var joined struct {
		GameCode string `json:"game_code"`
		PlayerID string `json:"player_id"`
	}
	if status := do(t, alice, http.MethodPost, srv.URL+"/api/join_game/", map[string]string{"game_code": strings.ToLower(code), "name": "Alice"}, &joined); status != http.StatusOK {
		t.Fatalf("alice join: %d", status)
	}
	aliceID := joined.PlayerID
	if joined.GameCode != code {
		t.Fatalf("expected %s, got %s", code, joined.GameCode)
	}
	if status := do(t, bob, http.MethodPost, srv.URL+"/api/join_game/", map[string]string{"game_code": code, "name": "Bob"}, &joined); status != http.StatusOK {
		t.Fatalf("bob join: %d", status)
	}
	bobID := joined.PlayerID

	if status := do(t, bob, http.MethodPost, srv.URL+"/api/join_game/", map[string]string{"game_code": code}, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", status)
	}
	if status := do(t, bob, http.MethodPost, srv.URL+"/api/join_game/", map[string]string{"game_code": "ZZZZZZ", "name": "Bob"}, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown game, got %d", status)
	}

	var state map[string]any
	if status := do(t, alice, http.MethodGet, srv.URL+"/api/game_state/"+code+"/", nil, &state); status != http.StatusOK {
		t.Fatalf("state: %d", status)
	}
	if state["status"] != "joining" {
		t.Fatalf("expected joining, got %v", state["status"])
	}
	if _, ok := state["question"]; ok {
		t.Fatalf("joining state must not carry a question: %v", state)
	}

	if status := do(t, alice, http.MethodPost, srv.URL+"/api/host/start_game/"+code+"/", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for non-host start, got %d", status)
	}
	if status := do(t, alice, http.MethodPost, srv.URL+"/api/submit_answer/"+code+"/", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 before start, got %d", status)
	}

	var ok struct {
		Status string `json:"status"`
	}
	if status := do(t, host, http.MethodPost, srv.URL+"/api/host/start_game/"+code+"/", nil, &ok); status != http.StatusOK || ok.Status != "game started" {
		t.Fatalf("start: %d %q", status, ok.Status)
	}
	if status := do(t, host, http.MethodPost, srv.URL+"/api/host/start_game/"+code+"/", nil, nil); status != http.StatusConflict {
		t.Fatalf("expected 409 on second start, got %d", status)
	}

	if status := do(t, alice, http.MethodPost, srv.URL+"/api/submit_answer/"+code+"/", nil, &ok); status != http.StatusOK || ok.Status != "ok" {
		t.Fatalf("submit: %d %q", status, ok.Status)
	}
	if status := do(t, alice, http.MethodPost, srv.URL+"/api/submit_answer/"+code+"/", nil, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate answer, got %d", status)
	}
	if status := do(t, newClient(t), http.MethodPost, srv.URL+"/api/submit_answer/"+code+"/", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown player, got %d", status)
	}

	var snapshot domain.Snapshot
	if status := do(t, bob, http.MethodGet, srv.URL+"/api/game_state/"+code+"/", nil, &snapshot); status != http.StatusOK {
		t.Fatalf("state: %d", status)
	}
	if snapshot.Status != domain.StatusInProgress || snapshot.RoundView == nil {
		t.Fatalf("expected in-progress snapshot, got %+v", snapshot)
	}
	if snapshot.Question.TimeLeft < 14 || snapshot.Question.TimeLeft > 15 {
		t.Fatalf("unexpected time left %d", snapshot.Question.TimeLeft)
	}
	if len(snapshot.AnsweredPlayerIDs) != 1 || snapshot.AnsweredPlayerIDs[0] != aliceID {
		t.Fatalf("expected alice answered, got %v", snapshot.AnsweredPlayerIDs)
	}

	if status := do(t, alice, http.MethodPost, srv.URL+"/api/host/delete_player/"+code+"/", map[string]string{"player_id": bobID}, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for non-host delete, got %d", status)
	}
	if status := do(t, host, http.MethodPost, srv.URL+"/api/host/delete_player/"+code+"/", map[string]string{"player_id": aliceID}, &ok); status != http.StatusOK || ok.Status != "player deleted" {
		t.Fatalf("delete: %d %q", status, ok.Status)
	}
	if status := do(t, host, http.MethodPost, srv.URL+"/api/host/delete_player/"+code+"/", map[string]string{"player_id": aliceID}, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted player, got %d", status)
	}

	if status := do(t, bob, http.MethodPost, srv.URL+"/api/submit_answer/"+code+"/", nil, nil); status != http.StatusOK {
		t.Fatalf("bob submit: %d", status)
	}

	snapshot = domain.Snapshot{}
	do(t, bob, http.MethodGet, srv.URL+"/api/game_state/"+code+"/", nil, &snapshot)
	if len(snapshot.Players) != 1 || snapshot.Players[0].ID != bobID {
		t.Fatalf("expected only bob left, got %+v", snapshot.Players)
	}
	if len(snapshot.AnsweredPlayerIDs) != 1 || snapshot.AnsweredPlayerIDs[0] != bobID {
		t.Fatalf("expected only bob's answer left, got %v", snapshot.AnsweredPlayerIDs)
	}
	if snapshot.Players[0].Score != 0 {
		t.Fatalf("expected bob's score to stay 0, got %v", snapshot.Players[0].Score)
	}
}

func TestGameViewIdentifiesSession(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	host := newClient(t)
	alice := newClient(t)

	var created struct {
		GameCode string `json:"game_code"`
	}
	do(t, host, http.MethodPost, srv.URL+"/api/create_game/", map[string]string{"password": "8877"}, &created)
	var joined struct {
		PlayerID string `json:"player_id"`
	}
	do(t, alice, http.MethodPost, srv.URL+"/api/join_game/", map[string]string{"game_code": created.GameCode, "name": "Alice"}, &joined)

	var view domain.SessionView
	if status := do(t, host, http.MethodGet, srv.URL+"/game/"+created.GameCode+"/", nil, &view); status != http.StatusOK {
		t.Fatalf("host game view: %d", status)
	}
	if view.GameCode != created.GameCode || !view.IsHost || view.PlayerID != "" {
		t.Fatalf("unexpected host view %+v", view)
	}

	view = domain.SessionView{}
	if status := do(t, alice, http.MethodGet, srv.URL+"/game/"+created.GameCode+"/", nil, &view); status != http.StatusOK {
		t.Fatalf("player game view: %d", status)
	}
	if view.IsHost || view.PlayerID != joined.PlayerID {
		t.Fatalf("unexpected player view %+v", view)
	}

	if status := do(t, newClient(t), http.MethodGet, srv.URL+"/game/ZZZZZZ/", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown game, got %d", status)
	}
}

func TestHostCannotRemoveSelf(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	host := newClient(t)

	var created struct {
		GameCode string `json:"game_code"`
	}
	do(t, host, http.MethodPost, srv.URL+"/api/create_game/", map[string]string{"password": "8877"}, &created)
	var joined struct {
		PlayerID string `json:"player_id"`
	}
	do(t, host, http.MethodPost, srv.URL+"/api/join_game/", map[string]string{"game_code": created.GameCode, "name": "Host"}, &joined)

	status := do(t, host, http.MethodPost, srv.URL+"/api/host/delete_player/"+created.GameCode+"/", map[string]string{"player_id": joined.PlayerID}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for self removal, got %d", status)
	}
}

func TestSessionCookie(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	body := strings.NewReader(`{"password":"8877"}`)
	resp, err := http.Post(srv.URL+"/api/create_game/", "application/json", body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == transport.SessionCookieName {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatalf("expected session cookie, got %v", resp.Cookies())
	}
	if !session.HttpOnly || session.SameSite != http.SameSiteLaxMode || session.Path != "/" {
		t.Fatalf("unexpected cookie attributes %+v", session)
	}
}

func TestInvalidBodyAndUnknownGame(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/join_game/", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid JSON, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/game_state/ZZZZZZ/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] == "" {
		t.Fatalf("expected error message, got %v", body)
	}
}

func TestQRCodeAndHealth(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	host := newClient(t)

	var created struct {
		GameCode string `json:"game_code"`
	}
	do(t, host, http.MethodPost, srv.URL+"/api/create_game/", map[string]string{"password": "8877"}, &created)

	resp, err := http.Get(srv.URL + "/api/qr/" + created.GameCode + "/")
	if err != nil {
		t.Fatalf("get qr: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected qr response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	png, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("expected PNG data")
	}

	target, err := http.Get(srv.URL + "/game/" + created.GameCode + "/")
	if err != nil {
		t.Fatalf("get qr target: %v", err)
	}
	target.Body.Close()
	if target.StatusCode != http.StatusOK {
		t.Fatalf("expected the QR target to resolve, got %d", target.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "ok" {
		t.Fatalf("expected ok, got %q", data)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewStore()
	bank := memory.NewQuestionBank(memory.NewStaticQuestionLoader([]domain.Question{
		{
			ID:   "q1",
			Text: "What is 2 + 2?",
			Choices: []domain.Choice{
				{Text: "3"},
				{Text: "4", IsCorrect: true},
			},
		},
	}), time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := app.NewGameService(store, store, store, bank,
		app.WithHostPassword("8877"),
		app.WithLogger(logger),
	)
	return httptest.NewServer(transport.NewHandler(service, logger).Routes())
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func do(t *testing.T, client *http.Client, method, url string, body, out any) int {
	t.Helper()
	var reader io.Reader = strings.NewReader("{}")
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	if method == http.MethodGet {
		reader = nil
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}
