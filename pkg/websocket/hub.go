package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/backsoul/intake/pkg/models"
	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
)

// Tipos de mensaje del canal /media-stream
const (
	TypeSession    = "session"
	TypeProgress   = "progress"
	TypeToolCall   = "tool_call"
	TypeToolResult = "tool_result"
	TypeError      = "error"
)

// Message mensaje saliente
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Incoming mensaje entrante; Data se decodifica según Type
type Incoming struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ToolCallData llamada a una función pedida por el agente
type ToolCallData struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResultData respuesta a una ToolCallData
type ToolResultData struct {
	CallID string `json:"call_id"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

const (
	// writeWait tiempo máximo para escribir un mensaje al cliente
	writeWait = 10 * time.Second

	// sendBuffer mensajes de broadcast pendientes por cliente
	sendBuffer = 16
)

// Client conexión registrada en el hub. Los broadcasts pasan por la cola send
// y un goroutine propio los escribe; las escrituras se serializan porque el
// handler de la conexión también escribe sobre el mismo socket.
type Client struct {
	ID   string
	conn *websocket.Conn

	writeMutex sync.Mutex
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

// NewClient envuelve una conexión con un identificador nuevo
func NewClient(conn *websocket.Conn) *Client {
	c := newClient(conn)
	go c.writePump()
	return c
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *Client) writePump() {
	for {
		select {
		case message := <-c.send:
			if err := c.WriteMessage(message); err != nil {
				log.Printf("Error enviando mensaje WebSocket a %s: %v", c.ID, err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// WriteMessage envía un mensaje de texto ya serializado
func (c *Client) WriteMessage(data []byte) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Send serializa y envía un mensaje
func (c *Client) Send(msgType string, data interface{}) error {
	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		return err
	}
	return c.WriteMessage(payload)
}

// enqueue deja message en la cola del cliente; false si la cola está llena
func (c *Client) enqueue(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// Close detiene el writer y cierra la conexión
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.Close()
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			log.Printf("Cliente WebSocket %s conectado. Total: %d", client.ID, total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			log.Printf("Cliente WebSocket %s desconectado. Total: %d", client.ID, total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if !client.enqueue(message) {
					log.Printf("⚠️ Cliente WebSocket %s no consume mensajes, desconectando", client.ID)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Stop detiene Run y cierra las conexiones registradas
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Count número de clientes conectados
func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// BroadcastMessage encola un mensaje para todos los clientes. Si la cola está
// llena el mensaje se descarta.
func (h *Hub) BroadcastMessage(msgType string, data interface{}) {
	msg := Message{
		Type: msgType,
		Data: data,
	}

	msgData, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error serializando mensaje: %v", err)
		return
	}

	select {
	case h.broadcast <- msgData:
	default:
		log.Printf("⚠️ Cola de broadcast llena, mensaje %q descartado", msgType)
	}
}

// BroadcastProgress notifica el nuevo progreso del examen
func (h *Hub) BroadcastProgress(record *models.ProgressRecord) {
	h.BroadcastMessage(TypeProgress, record)
}
