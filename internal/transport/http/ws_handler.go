package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"trivia-match-service/internal/app"
	"trivia-match-service/internal/domain"
	"github.com/gorilla/websocket"
)

// QuestionViews serves the player-facing (redacted) question read path,
// usually through one of the infra caches.
type QuestionViews interface {
	GetQuestionView(ctx context.Context, id uint64) (domain.QuestionView, error)
}

type WSHandler struct {
	engine   *app.Engine
	views    QuestionViews
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine, views QuestionViews) *WSHandler {
	return &WSHandler{
		engine: engine,
		views:  views,
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

type createMatchPayload struct {
	Asset             string `json:"asset"`
	EntryFee          int64  `json:"entryFee"`
	MaxPlayers        int    `json:"maxPlayers"`
	QuestionsPerMatch int    `json:"questionsPerMatch"`
	AutoStart         bool   `json:"autoStart"`
}

type matchPayload struct {
	MatchID uint64 `json:"matchId"`
}

type answerPayload struct {
	MatchID    uint64 `json:"matchId"`
	QuestionID uint64 `json:"questionId"`
	Answer     int    `json:"answer"`
}

type questionPayload struct {
	QuestionID uint64 `json:"questionId"`
}

type claimResult struct {
	MatchID uint64 `json:"matchId"`
	Amount  int64  `json:"amount"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// engine: commands inbound, engine events and command results outbound.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		http.Error(w, "missing address", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.engine.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "event", Payload: ev}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r.Context(), address, inbound, send)
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, address string, inbound inboundMessage, send chan<- outboundMessage[any]) {
	fail := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}

	switch inbound.Type {
	case "createMatch":
		var payload createMatchPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid createMatch payload"))
			return
		}
		details, err := h.engine.CreateMatch(ctx, address, payload.Asset, payload.EntryFee, payload.MaxPlayers, payload.QuestionsPerMatch, payload.AutoStart)
		if err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "match", Payload: details}
	case "joinMatch":
		var payload matchPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid joinMatch payload"))
			return
		}
		details, err := h.engine.JoinMatch(ctx, address, payload.MatchID)
		if err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "match", Payload: details}
	case "startMatch":
		var payload matchPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid startMatch payload"))
			return
		}
		details, err := h.engine.StartMatch(ctx, address, payload.MatchID)
		if err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "match", Payload: details}
	case "cancelMatch":
		var payload matchPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid cancelMatch payload"))
			return
		}
		if err := h.engine.CancelMatch(ctx, address, payload.MatchID); err != nil {
			fail(err)
			return
		}
		details, err := h.engine.GetMatchDetails(payload.MatchID)
		if err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "match", Payload: details}
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid answer payload"))
			return
		}
		result, err := h.engine.SubmitAnswer(ctx, address, payload.MatchID, domain.AnswerSubmission{
			QuestionID: payload.QuestionID,
			Answer:     payload.Answer,
		})
		if err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "answerResult", Payload: result}
	case "claim":
		var payload matchPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid claim payload"))
			return
		}
		amount, err := h.engine.ClaimPrize(ctx, address, payload.MatchID)
		if err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "claimResult", Payload: claimResult{MatchID: payload.MatchID, Amount: amount}}
	case "question":
		var payload questionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid question payload"))
			return
		}
		view, err := h.views.GetQuestionView(ctx, payload.QuestionID)
		if err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "question", Payload: view}
	case "match":
		var payload matchPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid match payload"))
			return
		}
		details, err := h.engine.GetMatchDetails(payload.MatchID)
		if err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "match", Payload: details}
	case "activeMatches":
		send <- outboundMessage[any]{Type: "activeMatches", Payload: h.engine.GetActiveMatches()}
	case "playerStats":
		send <- outboundMessage[any]{Type: "playerStats", Payload: h.engine.GetPlayerStats(address)}
	default:
		fail(errors.New("unsupported message type"))
	}
}
