package handler

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"backend-huella/internal/config"
	"backend-huella/internal/helper"
	"backend-huella/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

/*
|--------------------------------------------------------------------------
| Chat de guardias
|--------------------------------------------------------------------------
| Canal interno entre porterías. Los mensajes se persisten en
| chat_mensajes y se retransmiten a todos los clientes conectados.
*/

type chatClient struct {
	conn      *websocket.Conn
	writeMux  sync.Mutex
	closeChan chan struct{}
	closed    bool
	userID    int64
	nombre    string
}

var (
	chatClients    = make(map[*websocket.Conn]*chatClient)
	chatMutex      sync.RWMutex
	chatClientSeq  uint64 // atomic
)

// ChatUpgrade valida el token antes de aceptar el upgrade. El token va
// en query string porque los navegadores no mandan headers en el
// handshake de websocket.
func ChatUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		claims, err := config.ValidateToken(c.Query("token"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token inválido o expirado",
			})
		}

		// Un token vigente puede pertenecer a un usuario ya bloqueado
		// o eliminado; el chat revalida contra la base.
		if err := helper.CheckUserRoleByID(claims.UserID,
			models.RolUsuarioAdministrador, models.RolUsuarioGuardia,
		); err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Usuario sin acceso al chat",
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("nombre", claims.Nombre)
		return c.Next()
	}
}

func ChatWebSocket(c *websocket.Conn) {
	seq := atomic.AddUint64(&chatClientSeq, 1)

	client := &chatClient{
		conn:      c,
		closeChan: make(chan struct{}),
		userID:    c.Locals("user_id").(int64),
		nombre:    c.Locals("nombre").(string),
	}

	log.Printf("[chat] cliente %d (%s) conectado desde %s", seq, client.nombre, c.RemoteAddr())
	registerChatClient(c, client)
	defer unregisterChatClient(c, client)

	c.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Ping cada 20 segundos para detectar clientes muertos
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				client.writeMux.Lock()
				if client.closed {
					client.writeMux.Unlock()
					return
				}
				c.SetWriteDeadline(time.Now().Add(5 * time.Second))
				err := c.WriteMessage(websocket.PingMessage, nil)
				client.writeMux.Unlock()

				if err != nil {
					log.Printf("[chat] %s ping error: %v", client.nombre, err)
					return
				}
			case <-client.closeChan:
				return
			}
		}
	}()

	// Read loop: cada mensaje entrante se persiste y se retransmite
	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure,
			) {
				log.Printf("[chat] %s cierre inesperado: %v", client.nombre, err)
			}
			return
		}

		var incoming struct {
			Mensaje string `json:"mensaje"`
		}
		if err := json.Unmarshal(raw, &incoming); err != nil || incoming.Mensaje == "" {
			continue
		}

		msg, err := guardarMensaje(client.userID, client.nombre, incoming.Mensaje)
		if err != nil {
			log.Printf("[chat] error guardando mensaje de %s: %v", client.nombre, err)
			continue
		}

		broadcastChatMessage(msg)
	}
}

func registerChatClient(c *websocket.Conn, client *chatClient) {
	chatMutex.Lock()
	chatClients[c] = client
	chatMutex.Unlock()
}

func unregisterChatClient(c *websocket.Conn, client *chatClient) {
	chatMutex.Lock()
	delete(chatClients, c)
	chatMutex.Unlock()

	client.writeMux.Lock()
	if !client.closed {
		client.closed = true
		close(client.closeChan)
	}
	client.writeMux.Unlock()

	c.Close()
	log.Printf("[chat] %s desconectado", client.nombre)
}

func guardarMensaje(userID int64, nombre, mensaje string) (*models.ChatMessage, error) {
	result, err := config.DB.Exec(`
		INSERT INTO chat_mensajes (usuario_id, nombre_usuario, mensaje, created_at)
		VALUES (?, ?, ?, NOW())
	`, userID, nombre, mensaje)
	if err != nil {
		return nil, err
	}

	id, _ := result.LastInsertId()

	var msg models.ChatMessage
	err = config.DB.QueryRow(`
		SELECT id, usuario_id, nombre_usuario, mensaje, created_at
		FROM chat_mensajes WHERE id = ?
	`, id).Scan(&msg.ID, &msg.UsuarioID, &msg.NombreUsuario, &msg.Mensaje, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &msg, nil
}

func broadcastChatMessage(msg *models.ChatMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	chatMutex.RLock()
	clients := make([]*chatClient, 0, len(chatClients))
	for _, cl := range chatClients {
		clients = append(clients, cl)
	}
	chatMutex.RUnlock()

	for _, cl := range clients {
		cl.writeMux.Lock()
		if cl.closed {
			cl.writeMux.Unlock()
			continue
		}
		cl.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := cl.conn.WriteMessage(websocket.TextMessage, payload)
		cl.writeMux.Unlock()

		if err != nil {
			log.Printf("[chat] error enviando a %s: %v", cl.nombre, err)
		}
	}
}

// GetChatMessages - Historial reciente del chat (máximo 100 mensajes)
func GetChatMessages(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 100 {
		limit = 50
	}

	rows, err := config.DB.Query(`
		SELECT id, usuario_id, nombre_usuario, mensaje, created_at
		FROM chat_mensajes
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "No se pudo consultar el historial",
		})
	}
	defer rows.Close()

	mensajes := []models.ChatMessage{}
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.UsuarioID, &msg.NombreUsuario, &msg.Mensaje, &msg.CreatedAt); err != nil {
			continue
		}
		mensajes = append(mensajes, msg)
	}

	// Se devuelven en orden cronológico
	for i, j := 0, len(mensajes)-1; i < j; i, j = i+1, j-1 {
		mensajes[i], mensajes[j] = mensajes[j], mensajes[i]
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    mensajes,
	})
}
