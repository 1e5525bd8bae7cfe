package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/backsoul/intake/pkg/services"
	"github.com/backsoul/intake/pkg/tools"
	websocketHub "github.com/backsoul/intake/pkg/websocket"
	"github.com/fasthttp/websocket"
	openai "github.com/sashabaranov/go-openai"
	"github.com/valyala/fasthttp"
)

// SessionData primer mensaje que recibe el agente al conectarse
type SessionData struct {
	ID           string        `json:"id"`
	Instructions string        `json:"instructions"`
	Tools        []openai.Tool `json:"tools"`
}

type MediaHandler struct {
	examService *services.ExamService
	dispatcher  *tools.Dispatcher
	hub         *websocketHub.Hub
	now         func() time.Time
}

func NewMediaHandler(examService *services.ExamService, hub *websocketHub.Hub) *MediaHandler {
	return &MediaHandler{
		examService: examService,
		dispatcher:  tools.NewDispatcher(examService),
		hub:         hub,
		now:         time.Now,
	}
}

var upgrader = websocket.FastHTTPUpgrader{
	CheckOrigin: func(ctx *fasthttp.RequestCtx) bool {
		return true // Permitir conexiones desde cualquier origen en desarrollo
	},
}

// HandleMediaStream maneja las conexiones WebSocket de /media-stream
func (h *MediaHandler) HandleMediaStream(ctx *fasthttp.RequestCtx) {
	err := upgrader.Upgrade(ctx, func(ws *websocket.Conn) {
		defer ws.Close()

		client := websocketHub.NewClient(ws)
		h.hub.Register(client)
		defer h.hub.Unregister(client)

		h.serve(context.Background(), client, ws)
	})

	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		ctx.Error("Error upgrading to WebSocket", fasthttp.StatusInternalServerError)
	}
}

func (h *MediaHandler) serve(ctx context.Context, client *websocketHub.Client, ws *websocket.Conn) {
	session, err := h.sessionData(ctx, client.ID)
	if err != nil {
		log.Printf("❌ Error preparando sesión %s: %v", client.ID, err)
		client.Send(websocketHub.TypeError, map[string]string{"error": err.Error()})
		return
	}
	if err := client.Send(websocketHub.TypeSession, session); err != nil {
		log.Printf("Error enviando sesión %s: %v", client.ID, err)
		return
	}

	// Escuchar mensajes del agente
	for {
		messageType, payload, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Error leyendo mensaje WebSocket: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg websocketHub.Incoming
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("⚠️ Mensaje WebSocket inválido de %s: %v", client.ID, err)
			continue
		}
		if msg.Type != websocketHub.TypeToolCall {
			// Audio y otros eventos del agente no pasan por el examen.
			continue
		}

		result := h.handleToolCall(ctx, msg.Data)
		if err := client.Send(websocketHub.TypeToolResult, result); err != nil {
			log.Printf("Error enviando resultado a %s: %v", client.ID, err)
			return
		}
	}
}

func (h *MediaHandler) sessionData(ctx context.Context, id string) (SessionData, error) {
	progress, err := h.examService.GetProgress(ctx)
	if err != nil {
		return SessionData{}, err
	}
	current, err := h.examService.GetCurrentQuestion(ctx)
	if err != nil {
		return SessionData{}, err
	}
	return SessionData{
		ID:           id,
		Instructions: tools.Instructions(progress, current, h.now()),
		Tools:        tools.Definitions(),
	}, nil
}

func (h *MediaHandler) handleToolCall(ctx context.Context, data json.RawMessage) websocketHub.ToolResultData {
	var call websocketHub.ToolCallData
	if err := json.Unmarshal(data, &call); err != nil {
		return websocketHub.ToolResultData{Error: "invalid tool_call payload"}
	}

	log.Printf("<-- Llamando función %s -->", call.Name)
	output, err := h.dispatcher.Dispatch(ctx, openai.ToolCall{
		ID:   call.CallID,
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      call.Name,
			Arguments: call.Arguments,
		},
	})
	if err != nil {
		if !errors.Is(err, tools.ErrUnknownTool) && !errors.Is(err, tools.ErrInvalidArguments) {
			log.Printf("❌ Error ejecutando %s: %v", call.Name, err)
		}
		return websocketHub.ToolResultData{CallID: call.CallID, Error: err.Error()}
	}
	return websocketHub.ToolResultData{CallID: call.CallID, Output: output}
}
