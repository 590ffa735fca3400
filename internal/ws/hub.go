// Package ws owns the socket lifecycle: one Hub per process, one Client per
// connection. The hub is also the delivery transport for the event
// dispatcher.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/chatwire/internal/event"
	"github.com/chatwire/internal/logger"
	"github.com/chatwire/internal/model"
	"github.com/chatwire/internal/service"
)

type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]struct{}
	total    int
	maxConns int

	messages  *service.MessageService
	reactions *service.ReactionService
	presence  *service.PresenceService

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(messages *service.MessageService, reactions *service.ReactionService, presence *service.PresenceService, maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		maxConns:   maxConns,
		messages:   messages,
		reactions:  reactions,
		presence:   presence,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	allClients := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			allClients = append(allClients, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	for _, c := range allClients {
		c.Close()
	}
	for _, c := range allClients {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.maxConns, c.userID)
		c.Close()
		return
	}
	if _, ok := h.clients[c.userID]; !ok {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	firstClient := len(h.clients[c.userID]) == 0
	h.clients[c.userID][c] = struct{}{}
	h.total++
	h.mu.Unlock()

	// Presence flips only on the first socket of a user; extra tabs are
	// silent.
	if firstClient {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.presence.Connected(ctx, c.userID); err != nil {
			logger.Errorf("ws connect presence user=%s: %v", c.userID, err)
		}
	}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	h.total--
	lastClient := len(clients) == 0
	if lastClient {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	c.Close()

	if lastClient {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.presence.Disconnected(ctx, c.userID); err != nil {
			logger.Errorf("ws disconnect presence user=%s: %v", c.userID, err)
		}
	}
}

// HandleCommand dispatches an incoming client command to the owning service.
// Command failures are reported back to the issuing client only.
func (h *Hub) HandleCommand(ctx context.Context, c *Client, cmd Command) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch cmd.Type {
	case CmdMessageSend:
		h.handleSend(ctx, c, cmd)
	case CmdMessageDelete:
		h.handleDelete(ctx, c, cmd)
	case CmdMessageForward:
		h.handleForward(ctx, c, cmd)
	case CmdReactionAdd:
		h.handleReactionAdd(ctx, c, cmd)
	case CmdReactionRemove:
		h.handleReactionRemove(ctx, c, cmd)
	case CmdReactionUpdate:
		h.handleReactionUpdate(ctx, c, cmd)
	case CmdTyping:
		h.handleTyping(ctx, c, cmd)
	default:
		h.sendError(c, "unknown command type")
	}
}

func (h *Hub) handleSend(ctx context.Context, c *Client, cmd Command) {
	defer logger.DeferLogDuration("ws.handleSend", time.Now())()
	if cmd.ChatID == "" {
		h.sendError(c, "chat_id required")
		return
	}
	var replyTo *string
	if cmd.ReplyToID != "" {
		replyTo = &cmd.ReplyToID
	}
	_, err := h.messages.Send(ctx, service.SendInput{
		ChatID:      cmd.ChatID,
		SenderID:    c.userID,
		Content:     cmd.Content,
		MessageType: model.MessageType(cmd.MessageType),
		FileURL:     cmd.FileURL,
		ReplyToID:   replyTo,
	})
	if err != nil {
		logger.Errorf("ws send chat=%s user=%s: %v", cmd.ChatID, c.userID, err)
		h.sendError(c, err.Error())
	}
}

func (h *Hub) handleDelete(ctx context.Context, c *Client, cmd Command) {
	defer logger.DeferLogDuration("ws.handleDelete", time.Now())()
	if cmd.MessageID == "" {
		h.sendError(c, "message_id required")
		return
	}
	scope := model.DeleteScope(cmd.DeleteType)
	if scope == "" {
		scope = model.DeleteForMe
	}
	if err := h.messages.Delete(ctx, cmd.MessageID, c.userID, scope); err != nil {
		logger.Errorf("ws delete message=%s user=%s: %v", cmd.MessageID, c.userID, err)
		h.sendError(c, err.Error())
	}
}

func (h *Hub) handleForward(ctx context.Context, c *Client, cmd Command) {
	defer logger.DeferLogDuration("ws.handleForward", time.Now())()
	if cmd.ChatID == "" {
		h.sendError(c, "chat_id required")
		return
	}
	ids := cmd.MessageIDs
	if len(ids) == 0 && cmd.MessageID != "" {
		ids = []string{cmd.MessageID}
	}
	if len(ids) == 0 {
		h.sendError(c, "message_ids required")
		return
	}
	if _, err := h.messages.ForwardBatch(ctx, ids, cmd.ChatID, c.userID); err != nil {
		logger.Errorf("ws forward chat=%s user=%s: %v", cmd.ChatID, c.userID, err)
		h.sendError(c, err.Error())
	}
}

func (h *Hub) handleReactionAdd(ctx context.Context, c *Client, cmd Command) {
	if cmd.MessageID == "" || cmd.Emoji == "" {
		h.sendError(c, "message_id and emoji required")
		return
	}
	if _, err := h.reactions.Add(ctx, cmd.MessageID, c.userID, cmd.Emoji); err != nil {
		logger.Errorf("ws add reaction message=%s user=%s: %v", cmd.MessageID, c.userID, err)
		h.sendError(c, err.Error())
	}
}

func (h *Hub) handleReactionRemove(ctx context.Context, c *Client, cmd Command) {
	if cmd.ReactionID == "" {
		h.sendError(c, "reaction_id required")
		return
	}
	if err := h.reactions.Remove(ctx, cmd.ReactionID, c.userID); err != nil {
		logger.Errorf("ws remove reaction=%s user=%s: %v", cmd.ReactionID, c.userID, err)
		h.sendError(c, err.Error())
	}
}

func (h *Hub) handleReactionUpdate(ctx context.Context, c *Client, cmd Command) {
	if cmd.ReactionID == "" || cmd.Emoji == "" {
		h.sendError(c, "reaction_id and emoji required")
		return
	}
	if _, err := h.reactions.Update(ctx, cmd.ReactionID, c.userID, cmd.Emoji); err != nil {
		logger.Errorf("ws update reaction=%s user=%s: %v", cmd.ReactionID, c.userID, err)
		h.sendError(c, err.Error())
	}
}

func (h *Hub) handleTyping(ctx context.Context, c *Client, cmd Command) {
	if cmd.ChatID == "" {
		return
	}
	if err := h.presence.Typing(ctx, cmd.ChatID, c.userID, cmd.IsTyping); err != nil {
		logger.Errorf("ws typing chat=%s user=%s: %v", cmd.ChatID, c.userID, err)
	}
}

// SendToUser delivers a frame to every open socket of a user. Part of the
// dispatcher's Transport.
func (h *Hub) SendToUser(userID string, frame event.Frame) {
	h.mu.RLock()
	clients, ok := h.clients[userID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(clients))
	for c := range clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, frame)
	}
}

// OnlineUserIDs lists users with at least one open socket. Part of the
// dispatcher's Transport.
func (h *Hub) OnlineUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for uid := range h.clients {
		ids = append(ids, uid)
	}
	return ids
}

// IsOnline reports whether the user has at least one open socket.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) sendError(c *Client, msg string) {
	h.sendToClient(c, event.Frame{Type: event.KindError, Payload: msg})
}

func (h *Hub) sendToClient(c *Client, frame event.Frame) {
	select {
	case c.send <- frame:
	case <-c.done:
	default:
		// Backpressure: send buffer full, close slow client.
		logger.Errorf("ws send buffer full, closing slow client user=%s", c.userID)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
