package http

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"battle-quiz-service/internal/app"
	"battle-quiz-service/internal/battle"
	"battle-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.BattleService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.BattleService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

type itemPayload struct {
	Kind       string  `json:"kind"`
	Count      int     `json:"count"`
	Seconds    int     `json:"seconds"`
	Multiplier float64 `json:"multiplier"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type matchFoundPayload struct {
	MatchID  string                  `json:"matchId"`
	BattleID string                  `json:"battleId"`
	Opponent domain.PlayerDescriptor `json:"opponent"`
}

// ServeWS upgrades HTTP requests to websockets and drives a player
// through queueing, matching, and the battle itself on one connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	player, prefs, err := playerFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	matches, cancelMatches := h.service.SubscribeMatches(player.ID)
	defer cancelMatches()

	if err := h.service.JoinQueue(r.Context(), player, prefs); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.LeaveQueue(r.Context(), player.ID)

	if err := conn.WriteJSON(outboundMessage[any]{Type: "queued", Payload: player}); err != nil {
		return
	}

	// Inbound reads run on their own goroutine so a player can leave
	// the queue before a match arrives.
	inbound := make(chan inboundMessage)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case inbound <- msg:
			case <-r.Context().Done():
				return
			}
		}
	}()

	var ev app.MatchEvent
waitMatch:
	for {
		select {
		case ev = <-matches:
			break waitMatch
		case msg, ok := <-inbound:
			if !ok || msg.Type == "leave" {
				return
			}
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "no active battle"}})
		case <-readerDone:
			return
		}
	}

	opponent := ev.Match.PlayerA
	if opponent.ID == player.ID {
		opponent = ev.Match.PlayerB
	}

	updates, cancelUpdates, err := h.service.Subscribe(ev.BattleID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancelUpdates()
	defer h.service.CancelBattle(r.Context(), ev.BattleID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Queue the match announcement before the updates pump starts so the
	// client always sees matchFound first.
	send <- outboundMessage[any]{Type: "matchFound", Payload: matchFoundPayload{
		MatchID:  ev.Match.ID,
		BattleID: ev.BattleID,
		Opponent: opponent,
	}}
	if view, err := h.service.GetCurrentQuestion(ev.BattleID); err == nil {
		send <- outboundMessage[any]{Type: "question", Payload: view}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundEvent(update):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

loop:
	for {
		var msg inboundMessage
		select {
		case m, ok := <-inbound:
			if !ok {
				break loop
			}
			msg = m
		case <-readerDone:
			break loop
		}

		switch msg.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			outcome, err := h.service.SubmitAnswer(r.Context(), ev.BattleID, payload.Index, payload.Label)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: outcome}
		case "useItem":
			var payload itemPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid item payload"}}
				continue
			}
			effect, err := effectFromPayload(payload)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			if err := h.service.UseItem(r.Context(), ev.BattleID, effect); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			if view, err := h.service.GetCurrentQuestion(ev.BattleID); err == nil {
				send <- outboundMessage[any]{Type: "question", Payload: view}
			}
		case "pause":
			if err := h.service.PauseBattle(r.Context(), ev.BattleID); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "resume":
			if err := h.service.ResumeBattle(r.Context(), ev.BattleID); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "leave":
			break loop
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// outboundEvent maps battle lifecycle events onto the wire vocabulary.
func outboundEvent(ev battle.Event) outboundMessage[any] {
	switch ev.Type {
	case "over":
		return outboundMessage[any]{Type: "battleOver", Payload: ev}
	default:
		return outboundMessage[any]{Type: ev.Type, Payload: ev}
	}
}

func playerFromQuery(r *http.Request) (domain.PlayerDescriptor, domain.MatchPreferences, error) {
	q := r.URL.Query()
	playerID := q.Get("playerId")
	mode := q.Get("mode")
	category := q.Get("category")
	if playerID == "" || mode == "" || category == "" {
		return domain.PlayerDescriptor{}, domain.MatchPreferences{}, fmt.Errorf("missing playerId, mode, or category")
	}
	rating, err := strconv.Atoi(q.Get("rating"))
	if err != nil {
		return domain.PlayerDescriptor{}, domain.MatchPreferences{}, fmt.Errorf("invalid rating")
	}
	level, err := strconv.Atoi(q.Get("level"))
	if err != nil {
		return domain.PlayerDescriptor{}, domain.MatchPreferences{}, fmt.Errorf("invalid level")
	}
	prefs := domain.MatchPreferences{Mode: mode, Category: category}
	return domain.PlayerDescriptor{
		ID:          playerID,
		Rating:      rating,
		Level:       level,
		Preferences: prefs,
	}, prefs, nil
}

func effectFromPayload(p itemPayload) (domain.ItemEffect, error) {
	switch domain.EffectKind(p.Kind) {
	case domain.EffectEliminateWrongAnswer:
		return domain.EliminateWrongAnswer{Count: p.Count}, nil
	case domain.EffectBattleHint:
		return domain.BattleHint{}, nil
	case domain.EffectTimeBonus:
		return domain.TimeBonus{Seconds: p.Seconds}, nil
	case domain.EffectBattleBoost:
		return domain.BattleBoost{Multiplier: p.Multiplier}, nil
	case domain.EffectXPBoost:
		return domain.XPBoost{Multiplier: p.Multiplier}, nil
	case domain.EffectCoinBoost:
		return domain.CoinBoost{Multiplier: p.Multiplier}, nil
	default:
		return nil, fmt.Errorf("unknown item effect %q", p.Kind)
	}
}
