package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sweetpotatoswee/aical/internal/assistant"
	"github.com/sweetpotatoswee/aical/internal/conversion"
	"github.com/sweetpotatoswee/aical/internal/logging"
	"github.com/sweetpotatoswee/aical/internal/transcript"
)

// generateClientID creates a unique client identifier.
func generateClientID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based ID
		return time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(b)
}

// AssistantWSClient is one WebSocket client with its own assistant
// controller. Every state change in the controller is pushed to the
// browser as a full rendered snapshot.
type AssistantWSClient struct {
	server   *Server
	wsConn   *WSConn
	clientID string
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	controller *assistant.Controller
	recorder   *transcript.Recorder

	converter  *conversion.Converter
	dateLinker *conversion.DateLinker
}

// RenderedMessage is a conversation message plus its HTML rendering.
// Only assistant narration is rendered; user messages stay plain.
type RenderedMessage struct {
	assistant.Message
	HTML string `json:"html,omitempty"`
}

// RenderedModeSnapshot mirrors assistant.ModeSnapshot with rendered messages.
type RenderedModeSnapshot struct {
	Draft              string                 `json:"draft"`
	Attachments        []assistant.Attachment `json:"attachments,omitempty"`
	Messages           []RenderedMessage      `json:"messages,omitempty"`
	Loading            bool                   `json:"loading"`
	Progress           string                 `json:"progress,omitempty"`
	Error              string                 `json:"error,omitempty"`
	PermissionRequired bool                   `json:"permission_required"`
}

// RenderedSnapshot is the wire form of a controller snapshot.
type RenderedSnapshot struct {
	Mode                assistant.Mode           `json:"mode"`
	Add                 RenderedModeSnapshot     `json:"add"`
	Delete              RenderedModeSnapshot     `json:"delete"`
	AddPreview          *assistant.AddPreview    `json:"add_preview,omitempty"`
	AddSelection        map[int]bool             `json:"add_selection,omitempty"`
	SelectedAddCount    int                      `json:"selected_add_count"`
	DeletePreview       *assistant.DeletePreview `json:"delete_preview,omitempty"`
	DeleteSelection     map[string]bool          `json:"delete_selection,omitempty"`
	SelectedDeleteCount int                      `json:"selected_delete_count"`
}

// handleAssistantWS handles WebSocket connections for the assistant.
// Route: /api/ws
func (s *Server) handleAssistantWS(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if s.connectionTracker != nil && !s.connectionTracker.TryAdd(ip) {
		s.logger.Warn("WebSocket rejected: too many connections", "client_ip", ip)
		http.Error(w, "Too many connections", http.StatusTooManyRequests)
		return
	}

	upgrader := createSecureUpgrader(s.wsSecurityConfig, func(origin, host string, allowed bool, reason string) {
		s.logger.Debug("WS: Origin check",
			"origin", origin, "host", host, "allowed", allowed, "reason", reason)
	})
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.connectionTracker != nil {
			s.connectionTracker.Remove(ip)
		}
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	clientID := generateClientID()
	clientLogger := logging.WithClient(s.logger, clientID)

	wsConn := NewWSConn(WSConnConfig{
		Conn:     conn,
		Config:   s.wsSecurityConfig,
		Logger:   clientLogger,
		ClientIP: ip,
		Tracker:  s.connectionTracker,
	})

	client := &AssistantWSClient{
		server:     s,
		wsConn:     wsConn,
		clientID:   clientID,
		logger:     clientLogger,
		ctx:        ctx,
		cancel:     cancel,
		converter:  conversion.DefaultConverter(),
		dateLinker: conversion.NewDateLinker(conversion.DateLinkerConfig{Enabled: true}),
	}

	var recorder assistant.TurnRecorder
	if s.transcripts != nil {
		rec := transcript.NewRecorder(s.transcripts)
		if err := rec.Start(); err != nil {
			clientLogger.Warn("Failed to start transcript", "error", err)
		} else {
			client.recorder = rec
			recorder = rec
		}
	}

	client.controller = assistant.NewController(assistant.Options{
		NLP:         s.nlp,
		Calendar:    s.calendar,
		Model:       s.config.Model,
		Effort:      s.config.Effort,
		MaxMessages: s.config.MaxMessages,
		CharBudget:  s.config.CharBudget,
		Recorder:    recorder,
		OnUpdate:    client.pushState,
		Logger:      clientLogger,
	})

	go client.writePump()
	go client.readPump()

	client.sendConnected()
	client.pushState(client.controller.Snapshot())
}

func (c *AssistantWSClient) sendConnected() {
	data := map[string]interface{}{
		"client_id": c.clientID,
	}
	if c.recorder != nil {
		data["transcript_id"] = c.recorder.TranscriptID()
	}
	c.wsConn.SendMessage(WSMsgTypeConnected, data)
}

// pushState renders a snapshot and queues it for the client. It is
// invoked from the controller with its lock held, so it must not call
// back into the controller.
func (c *AssistantWSClient) pushState(snap assistant.Snapshot) {
	c.wsConn.SendMessage(WSMsgTypeState, c.render(snap))
}

func (c *AssistantWSClient) render(snap assistant.Snapshot) RenderedSnapshot {
	return RenderedSnapshot{
		Mode:                snap.Mode,
		Add:                 c.renderMode(snap.Add),
		Delete:              c.renderMode(snap.Delete),
		AddPreview:          snap.AddPreview,
		AddSelection:        snap.AddSelection,
		SelectedAddCount:    snap.SelectedAddCount,
		DeletePreview:       snap.DeletePreview,
		DeleteSelection:     snap.DeleteSelection,
		SelectedDeleteCount: snap.SelectedDeleteCount,
	}
}

func (c *AssistantWSClient) renderMode(ms assistant.ModeSnapshot) RenderedModeSnapshot {
	out := RenderedModeSnapshot{
		Draft:              ms.Draft,
		Attachments:        ms.Attachments,
		Loading:            ms.Loading,
		Progress:           ms.Progress,
		Error:              ms.Error,
		PermissionRequired: ms.PermissionRequired,
	}
	for _, m := range ms.Messages {
		rm := RenderedMessage{Message: m}
		if m.Role == assistant.RoleAssistant {
			rm.HTML = c.renderNarration(m.Text)
		}
		out.Messages = append(out.Messages, rm)
	}
	return out
}

// renderNarration converts narration markdown to HTML. While a streaming
// update ends mid-formatting the text is escaped instead, so the client
// never sees a half-open bold or code span.
func (c *AssistantWSClient) renderNarration(text string) string {
	if conversion.HasUnmatchedInlineFormatting(text) {
		return "<p>" + conversion.EscapeHTML(text) + "</p>"
	}
	return c.dateLinker.LinkDates(c.converter.ConvertToSafeHTML(text))
}

func (c *AssistantWSClient) readPump() {
	defer func() {
		c.cancel()
		c.controller.Interrupt()
		c.wsConn.ReleaseConnectionSlot()
		c.wsConn.Close()
		c.logger.Debug("AssistantWSClient closed")
	}()

	for {
		message, err := c.wsConn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := ParseMessage(message)
		if err != nil {
			c.wsConn.SendError("Invalid message format")
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *AssistantWSClient) writePump() {
	c.wsConn.WritePump(c.ctx)
}

func (c *AssistantWSClient) handleMessage(msg WSMessage) {
	switch msg.Type {
	case WSMsgTypeSetMode:
		var data struct {
			Mode assistant.Mode `json:"mode"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.wsConn.SendError("Invalid message data")
			return
		}
		if err := c.controller.SetMode(data.Mode); err != nil {
			c.wsConn.SendError(err.Error())
		}

	case WSMsgTypeSetDraft:
		var data struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.wsConn.SendError("Invalid message data")
			return
		}
		c.controller.SetDraft(data.Text)

	case WSMsgTypeSetDateRange:
		var data struct {
			Start string `json:"start"`
			End   string `json:"end"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.wsConn.SendError("Invalid message data")
			return
		}
		c.controller.SetDateRange(data.Start, data.End)

	case WSMsgTypeAddAttachment:
		var data struct {
			Name    string `json:"name"`
			DataURL string `json:"data_url"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.wsConn.SendError("Invalid message data")
			return
		}
		if _, err := c.controller.AddAttachment(data.Name, data.DataURL); err != nil {
			c.wsConn.SendError(err.Error())
		}

	case WSMsgTypeRemoveAttachment:
		var data struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.wsConn.SendError("Invalid message data")
			return
		}
		c.controller.RemoveAttachment(data.ID)

	case WSMsgTypePreview:
		go func() {
			if err := c.controller.Preview(c.ctx); err != nil {
				c.wsConn.SendError(err.Error())
			}
		}()

	case WSMsgTypeToggleAddItem:
		var data struct {
			Index int `json:"index"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.wsConn.SendError("Invalid message data")
			return
		}
		c.controller.ToggleAddItem(data.Index)

	case WSMsgTypeToggleDeleteGroup:
		var data struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.wsConn.SendError("Invalid message data")
			return
		}
		c.controller.ToggleDeleteGroup(data.Key)

	case WSMsgTypeUpdateItem:
		var data struct {
			Index int                      `json:"index"`
			Item  assistant.AddPreviewItem `json:"item"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.wsConn.SendError("Invalid message data")
			return
		}
		if err := c.controller.UpdateItem(data.Index, data.Item); err != nil {
			c.wsConn.SendError(err.Error())
		}

	case WSMsgTypeApply:
		go c.handleApply()

	case WSMsgTypeInterrupt:
		c.controller.Interrupt()

	case WSMsgTypePermissionAnswer:
		var data struct {
			Approved bool `json:"approved"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.wsConn.SendError("Invalid message data")
			return
		}
		go c.handlePermissionAnswer(data.Approved)

	case WSMsgTypeReset:
		c.controller.ResetConversation()

	case WSMsgTypeKeepalive:
		var data struct {
			ClientTime int64 `json:"client_time"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.wsConn.SendError("Invalid message data")
			return
		}
		c.wsConn.SendMessage(WSMsgTypeKeepaliveAck, map[string]int64{
			"client_time": data.ClientTime,
			"server_time": time.Now().UnixMilli(),
		})

	default:
		c.logger.Debug("Unknown WebSocket message type", "type", msg.Type)
	}
}

func (c *AssistantWSClient) handleApply() {
	result, err := c.controller.Apply(c.ctx)
	if err != nil {
		c.wsConn.SendError(err.Error())
		return
	}
	c.wsConn.SendMessage(WSMsgTypeApplied, map[string]interface{}{
		"created":     result.Created,
		"deleted_ids": result.DeletedIDs,
	})
}

func (c *AssistantWSClient) handlePermissionAnswer(approved bool) {
	var err error
	if approved {
		err = c.controller.ConfirmPermission(c.ctx)
	} else {
		err = c.controller.DenyPermission()
	}
	if err != nil {
		c.wsConn.SendError(err.Error())
	}
}
