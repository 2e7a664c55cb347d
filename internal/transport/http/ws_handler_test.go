package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"battle-quiz-service/internal/app"
	"battle-quiz-service/internal/domain"
	"battle-quiz-service/internal/infra/memory"
	"battle-quiz-service/internal/matchmaking"
	"battle-quiz-service/internal/scoring"
	"github.com/gorilla/websocket"
)

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, domain.Notification) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	service := app.NewBattleService(
		memory.NewQueueRepository(),
		memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleBank()), time.Minute),
		memory.NewProfileStore(),
		memory.NewBattleStore(),
		noopNotifier{},
		scoring.NewEngine(scoring.DefaultConfig()),
		matchmaking.Options{},
		app.Config{QuestionCount: 3, TimePerQuestion: 30},
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service).ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dialPlayer(t *testing.T, server *httptest.Server, playerID string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] +
		"/ws?playerId=" + playerID + "&rating=1000&level=5&mode=classic&category=general"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", playerID, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketBattleFlow(t *testing.T) {
	server := newTestServer(t)

	p1 := dialPlayer(t, server, "p1")
	readNext(p1, t, "queued")

	p2 := dialPlayer(t, server, "p2")
	readNext(p2, t, "queued")

	// Both sides learn about the match and the opening question.
	_, found := readNext(p1, t, "matchFound")
	if found["battleId"] == "" {
		t.Fatalf("matchFound without battleId: %v", found)
	}
	if opp, ok := found["opponent"].(map[string]any); !ok || opp["id"] != "p2" {
		t.Fatalf("p1 expected opponent p2, got %v", found["opponent"])
	}
	readNext(p1, t, "question")
	readNext(p2, t, "matchFound")
	readNext(p2, t, "question")

	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"index": 0, "label": "B"},
	}
	if err := p1.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	result := awaitType(p1, t, "answerResult")
	if result["correct"] != true {
		t.Fatalf("expected correct answer, got %v", result)
	}
}

func TestWebSocketRejectsBadRequests(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/ws?playerId=p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing params, got %d", resp.StatusCode)
	}
}

func TestWebSocketUnsupportedMessage(t *testing.T) {
	server := newTestServer(t)

	p1 := dialPlayer(t, server, "p1")
	readNext(p1, t, "queued")
	p2 := dialPlayer(t, server, "p2")
	readNext(p2, t, "queued")
	awaitType(p1, t, "question")

	if err := p1.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	errMsg := awaitType(p1, t, "error")
	if errMsg["message"] == "" {
		t.Fatalf("expected error message, got %v", errMsg)
	}
}

// readNext reads one frame and, when expect is non-empty, requires its type.
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
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}

// awaitType skips frames (timer ticks and the like) until one of the wanted
// type arrives.
func awaitType(conn *websocket.Conn, t *testing.T, want string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == want {
			return payload
		}
	}
	t.Fatalf("never received %s", want)
	return nil
}

func sampleBank() map[string][]domain.Question {
	questions := make([]domain.Question, 0, 5)
	for i := 0; i < 5; i++ {
		questions = append(questions, domain.Question{
			ID:     fmt.Sprintf("q%d", i+1),
			Prompt: fmt.Sprintf("question %d", i+1),
			Options: []domain.Option{
				{Label: "A", Text: "wrong"},
				{Label: "B", Text: "right"},
				{Label: "C", Text: "also wrong"},
			},
			CorrectLabel: "B",
			Category:     "general",
			Difficulty:   1,
		})
	}
	return map[string][]domain.Question{"general": questions}
}
