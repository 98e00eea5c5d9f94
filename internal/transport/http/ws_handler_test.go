package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-match-service/internal/app"
	"trivia-match-service/internal/domain"
	"trivia-match-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func newTestHandler() *WSHandler {
	cfg := app.NewAdminConfig(app.AdminSettings{
		Admin:       "admin",
		FeePercent:  5,
		MinEntryFee: 1,
		Assets:      []string{"usdc"},
	})
	bank := memory.NewAccountBank(100)
	engine := app.NewEngine(cfg, bank, app.NewQuestionBank(), memory.NewMatchStore(), app.NewEscrowLedger(), memory.NewStatsStore())
	engine.Questions().Load(sampleQuestions())
	views := memory.NewQuestionViewCache(engine, time.Minute)
	return NewWSHandler(engine, views)
}

func sampleQuestions() []domain.Question {
	questions := make([]domain.Question, 0, 6)
	for i := 1; i <= 6; i++ {
		questions = append(questions, domain.Question{
			ID:            uint64(i),
			Text:          fmt.Sprintf("question %d", i),
			Options:       [4]string{"right", "wrong", "wrong", "wrong"},
			CorrectAnswer: 0,
			Category:      "general",
			Difficulty:    1,
			Active:        true,
		})
	}
	return questions
}

func TestWebSocketCreateMatchFlow(t *testing.T) {
	wsHandler := newTestHandler()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?address=alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	create := map[string]any{
		"type": "createMatch",
		"payload": map[string]any{
			"asset":             "usdc",
			"entryFee":          10,
			"maxPlayers":        2,
			"questionsPerMatch": 5,
			"autoStart":         true,
		},
	}
	if err := conn.WriteJSON(create); err != nil {
		t.Fatalf("write createMatch: %v", err)
	}

	// Expect the match result plus the matchCreated event, in either order.
	matchSeen := false
	eventSeen := false
	for i := 0; i < 4 && !(matchSeen && eventSeen); i++ {
		typ, payload := readNext(conn, t, "")
		switch typ {
		case "match":
			matchSeen = true
			if payload["status"] != string(domain.StatusWaiting) {
				t.Fatalf("expected waiting match, got %+v", payload)
			}
		case "event":
			eventSeen = true
		}
	}
	if !matchSeen || !eventSeen {
		t.Fatalf("expected match and event, got match=%v event=%v", matchSeen, eventSeen)
	}
}

func TestWebSocketQuestionIsRedacted(t *testing.T) {
	wsHandler := newTestHandler()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?address=alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ask := map[string]any{
		"type":    "question",
		"payload": map[string]any{"questionId": 1},
	}
	if err := conn.WriteJSON(ask); err != nil {
		t.Fatalf("write question: %v", err)
	}

	typ, payload := readNext(conn, t, "question")
	if typ != "question" {
		t.Fatalf("expected question, got %s", typ)
	}
	if payload["text"] != "question 1" {
		t.Fatalf("unexpected question payload: %+v", payload)
	}
	if _, leaked := payload["correctAnswer"]; leaked {
		t.Fatalf("player-facing question leaked the correct answer: %+v", payload)
	}
}

func TestWebSocketRejectsMissingAddress(t *testing.T) {
	wsHandler := newTestHandler()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
