package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/internal/middleware"
	"github.com/wecan-app/wecan-api/internal/models"
	"github.com/wecan-app/wecan-api/internal/observability"
	"github.com/wecan-app/wecan-api/internal/repository"
)

const (
	chatRedisTTL       = 30 * time.Minute
	chatSendBufferSize = 32
)

var (
	// ErrSenderMuted indicates the sender's account is muted and the message
	// was refused at write time.
	ErrSenderMuted = errors.New("sender is muted")
	// ErrEmptyMessage indicates the message body was empty after sanitization.
	ErrEmptyMessage = errors.New("message is empty")
)

// ChatConnectionOptions wraps metadata extracted during the HTTP upgrade.
type ChatConnectionOptions struct {
	UserID        string
	Role          string
	Target        string
	CorrelationID string
	Context       context.Context
}

// ChatService is the message bus: it routes messages into rooms, refuses
// muted senders at write time, and filters deliveries against each viewer's
// block list.
type ChatService interface {
	Publish(ctx context.Context, senderID string, req dto.ChatPublishRequest) (dto.ChatMessageResponse, error)
	Feed(ctx context.Context, viewerID, target string) ([]dto.ChatMessageResponse, error)
	Participants(ctx context.Context, viewerID, target string) ([]dto.UserResponse, error)
	Lobby(ctx context.Context, viewerID string) (dto.RoomLobbyResponse, error)
	ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions)
	Start(ctx context.Context)
}

type chatService struct {
	messages    repository.MessageRepository
	users       repository.UserRepository
	rooms       RoomService
	redis       *redis.Client
	redisStream string
	redisCache  string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	hub         *chatHub
	nodeID      string
}

// chatHub keeps track of active websocket clients and handles broadcasting.
type chatHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*chatClient]struct{}
	log   zerolog.Logger
}

type chatClient struct {
	conn    *websocket.Conn
	send    chan dto.ChatMessageResponse
	options ChatConnectionOptions
	roomID  string
	blocked map[string]struct{}
	service *chatService
	closed  chan struct{}
	once    sync.Once
	baseCtx context.Context
}

type chatEvent struct {
	Source  string                  `json:"source"`
	Message dto.ChatMessageResponse `json:"message"`
	SentAt  time.Time               `json:"sent_at"`
}

// NewChatService creates the chat service. Redis and NATS are both optional;
// when present they fan published messages out to the other nodes.
func NewChatService(messages repository.MessageRepository, users repository.UserRepository, rooms RoomService, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) ChatService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	hub := &chatHub{
		rooms: make(map[string]map[*chatClient]struct{}),
		log:   logger.With().Str("component", "chat_hub").Logger(),
	}

	streamChannel := ""
	cachePrefix := ""
	natsSubject := ""
	if channelBase != "" {
		streamChannel = channelBase + ":chat"
		cachePrefix = channelBase + ":chat:last"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".chat"
	}

	return &chatService{
		messages:    messages,
		users:       users,
		rooms:       rooms,
		redis:       redisClient,
		redisStream: streamChannel,
		redisCache:  cachePrefix,
		nats:        natsConn,
		natsSubject: natsSubject,
		validator:   validate,
		logger:      logger.With().Str("component", "chat_service").Logger(),
		tracer:      otel.Tracer("github.com/wecan-app/wecan-api/internal/service/chat"),
		sanitizer:   sanitizer,
		hub:         hub,
		nodeID:      uuid.NewString(),
	}
}

func (s *chatService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// Publish routes a message into the resolved room and persists it. The
// sender's mute status is re-checked inside the insert transaction, so a
// sanction applied after the request started still suppresses the message.
func (s *chatService) Publish(ctx context.Context, senderID string, req dto.ChatPublishRequest) (dto.ChatMessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ChatMessageResponse{}, err
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ChatMessageResponse{}, ErrUserNotFound
		}
		return dto.ChatMessageResponse{}, err
	}

	room, err := s.rooms.Resolve(ctx, sender, req.Target)
	if err != nil {
		return dto.ChatMessageResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(req.Text))
	if clean == "" {
		return dto.ChatMessageResponse{}, ErrEmptyMessage
	}

	spanCtx, span := s.tracer.Start(ctx, "chat.publish", trace.WithAttributes(
		attribute.String("chat.room_id", room.ID()),
		attribute.String("chat.room_kind", string(room.Kind())),
		attribute.String("chat.sender_id", sender.ID),
	))
	defer span.End()

	message := models.ChatMessage{
		SenderID:    sender.ID,
		SenderName:  sender.Name,
		SenderEmail: sender.Email,
		RoomID:      room.ID(),
		Text:        clean,
	}

	if err := s.messages.CreateFromSender(spanCtx, &message); err != nil {
		if errors.Is(err, repository.ErrSenderSuppressed) {
			s.logger.Warn().Str("sender_id", sender.ID).Str("room_id", room.ID()).Msg("muted sender refused at write time")
			return dto.ChatMessageResponse{}, ErrSenderMuted
		}
		span.RecordError(err)
		return dto.ChatMessageResponse{}, err
	}

	response := dto.NewChatMessageResponse(message)
	s.cacheLastMessage(spanCtx, response)
	s.broadcast(response)
	if err := s.publishEvent(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish chat event")
	}

	observability.ChatMessages().WithLabelValues(string(room.Kind())).Inc()

	return response, nil
}

// Feed returns the room history as the viewer sees it: messages from senders
// on the viewer's block list never appear, regardless of when the block was
// created.
func (s *chatService) Feed(ctx context.Context, viewerID, target string) ([]dto.ChatMessageResponse, error) {
	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	room, err := s.rooms.Resolve(ctx, viewer, target)
	if err != nil {
		return nil, err
	}

	blocked, err := s.users.ListBlockedIDs(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	var messages []models.ChatMessage
	if room.Kind() == models.RoomDirect {
		messages, err = s.messages.ListDirect(ctx, viewer.ID, room.ID(), blocked)
	} else {
		messages, err = s.messages.ListByRoom(ctx, room.ID(), blocked)
	}
	if err != nil {
		return nil, err
	}

	return dto.NewChatMessageResponseSlice(messages), nil
}

// Participants lists the members of the resolved room.
func (s *chatService) Participants(ctx context.Context, viewerID, target string) ([]dto.UserResponse, error) {
	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	room, err := s.rooms.Resolve(ctx, viewer, target)
	if err != nil {
		return nil, err
	}

	members, err := s.rooms.Members(ctx, room, viewer)
	if err != nil {
		return nil, err
	}

	out := make([]dto.UserResponse, 0, len(members))
	for _, member := range members {
		out = append(out, dto.NewUserResponse(member))
	}
	return out, nil
}

// Lobby describes the rooms available to the viewer: their class room, the
// broadcast room, and their classmates as direct conversation contacts.
func (s *chatService) Lobby(ctx context.Context, viewerID string) (dto.RoomLobbyResponse, error) {
	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RoomLobbyResponse{}, ErrUserNotFound
		}
		return dto.RoomLobbyResponse{}, err
	}

	classRoom := models.ClassRoom(viewer.Stage, viewer.Grade)
	classmates, err := s.rooms.Members(ctx, classRoom, viewer)
	if err != nil {
		return dto.RoomLobbyResponse{}, err
	}

	blocked, err := s.users.ListBlockedIDs(ctx, viewer.ID)
	if err != nil {
		return dto.RoomLobbyResponse{}, err
	}
	hidden := make(map[string]struct{}, len(blocked))
	for _, id := range blocked {
		hidden[id] = struct{}{}
	}

	contacts := make([]dto.UserResponse, 0, len(classmates))
	for _, member := range classmates {
		if member.ID == viewer.ID {
			continue
		}
		if _, ok := hidden[member.ID]; ok {
			continue
		}
		contacts = append(contacts, dto.NewUserResponse(member))
	}

	return dto.RoomLobbyResponse{
		ClassRoom: dto.RoomResponse{ID: classRoom.ID(), Kind: classRoom.Kind()},
		Broadcast: dto.RoomResponse{ID: models.BroadcastRoom().ID(), Kind: models.RoomBroadcast},
		Contacts:  contacts,
	}, nil
}

// ServeConnection attaches a websocket to the hub. The viewer's block list is
// snapshotted at connect time; blocks created mid-session take effect on the
// next connection or REST feed read.
func (s *chatService) ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	viewer, err := s.users.GetByID(baseCtx, opts.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", opts.UserID).Msg("rejecting chat connection for unknown user")
		_ = conn.Close()
		return
	}

	room, err := s.rooms.Resolve(baseCtx, viewer, opts.Target)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", opts.UserID).Str("target", opts.Target).Msg("rejecting chat connection for unresolvable room")
		_ = conn.Close()
		return
	}

	blockedIDs, err := s.users.ListBlockedIDs(baseCtx, viewer.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", opts.UserID).Msg("failed to load block list for chat connection")
		_ = conn.Close()
		return
	}
	blocked := make(map[string]struct{}, len(blockedIDs))
	for _, id := range blockedIDs {
		blocked[id] = struct{}{}
	}

	client := &chatClient{
		conn:    conn,
		send:    make(chan dto.ChatMessageResponse, chatSendBufferSize),
		options: opts,
		roomID:  deliveryKey(viewer.ID, room),
		blocked: blocked,
		service: s,
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
	}

	s.hub.register(client)
	observability.ChatConnections().Inc()

	if last := s.fetchLastMessage(baseCtx, client.roomID); last != nil {
		if _, hiddenSender := blocked[last.SenderID]; !hiddenSender {
			select {
			case client.send <- *last:
			default:
				s.logger.Debug().Str("room_id", room.ID()).Msg("dropping cached chat message due to slow consumer")
			}
		}
	}

	go client.writer()
	client.reader()
}

func (s *chatService) cacheLastMessage(ctx context.Context, message dto.ChatMessageResponse) {
	if s.redis == nil || s.redisCache == "" {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal chat message for cache")
		return
	}

	key := fmt.Sprintf("%s:%s", s.redisCache, messageDeliveryKey(message))
	if err := s.redis.Set(ctx, key, payload, chatRedisTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache chat message")
	}
}

func (s *chatService) fetchLastMessage(ctx context.Context, deliveryID string) *dto.ChatMessageResponse {
	if s.redis == nil || s.redisCache == "" {
		return nil
	}

	key := fmt.Sprintf("%s:%s", s.redisCache, deliveryID)
	result, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return nil
	}

	var message dto.ChatMessageResponse
	if err := json.Unmarshal([]byte(result), &message); err != nil {
		s.logger.Warn().Err(err).Msg("failed to unmarshal cached chat message")
		return nil
	}

	return &message
}

func (s *chatService) broadcast(message dto.ChatMessageResponse) {
	s.hub.broadcast(messageDeliveryKey(message), message)
}

// deliveryKey maps a resolved room to the hub channel the viewer listens on.
// Broadcast and class rooms deliver on the room id itself; direct rooms
// deliver on the shared pair key so both parties receive each other's
// messages.
func deliveryKey(selfID string, room models.RoomKey) string {
	if room.Kind() == models.RoomDirect {
		return models.DirectPairKey(selfID, room.ID())
	}
	return room.ID()
}

// messageDeliveryKey derives the hub channel for a stored message. A direct
// message carries the counterpart's id as its room id, so the pair key is
// rebuilt from the sender and the stored room id.
func messageDeliveryKey(message dto.ChatMessageResponse) string {
	room, err := models.ParseRoomID(message.RoomID)
	if err != nil || room.Kind() != models.RoomDirect {
		return message.RoomID
	}
	return models.DirectPairKey(message.SenderID, message.RoomID)
}

func (s *chatService) publishEvent(ctx context.Context, message dto.ChatMessageResponse) error {
	event := chatEvent{
		Source:  s.nodeID,
		Message: message,
		SentAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *chatService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("chat redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *chatService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "wecan-chat", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats chat subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain chat nats subscription")
		}
	}()
}

func (s *chatService) handleEvent(data []byte) {
	var event chatEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid chat event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.broadcast(event.Message)
}

func (h *chatHub) register(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.roomID
	if _, exists := h.rooms[room]; !exists {
		h.rooms[room] = make(map[*chatClient]struct{})
	}
	h.rooms[room][client] = struct{}{}
	h.log.Debug().Str("room_id", room).Str("user_id", client.options.UserID).Msg("chat client connected")
}

func (h *chatHub) unregister(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.roomID
	if clients, ok := h.rooms[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	h.log.Debug().Str("room_id", room).Str("user_id", client.options.UserID).Msg("chat client disconnected")
}

// broadcast fans a message out to the room, skipping any client whose block
// snapshot contains the sender.
func (h *chatHub) broadcast(roomID string, message dto.ChatMessageResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.rooms[roomID]
	for client := range clients {
		if _, hidden := client.blocked[message.SenderID]; hidden {
			continue
		}
		select {
		case client.send <- message:
		default:
			h.log.Warn().Str("room_id", roomID).Str("user_id", client.options.UserID).Msg("dropping chat message for slow client")
		}
	}
}

func (c *chatClient) reader() {
	defer c.close()

	connCtx := c.baseCtx
	if connCtx == nil {
		connCtx = context.Background()
	}
	correlation := c.options.CorrelationID
	if correlation == "" {
		correlation = middleware.CorrelationIDFromContext(connCtx)
	}

	for {
		var payload dto.ChatPublishRequest
		if err := c.conn.ReadJSON(&payload); err != nil {
			c.service.logger.Debug().Err(err).Msg("chat read loop ended")
			return
		}
		if strings.TrimSpace(payload.Target) == "" {
			payload.Target = c.options.Target
		}

		if _, err := c.service.Publish(connCtx, c.options.UserID, payload); err != nil {
			c.service.logger.Warn().Err(err).
				Str("user_id", c.options.UserID).
				Str("correlation_id", correlation).
				Msg("failed to process chat message")
			continue
		}
	}
}

func (c *chatClient) writer() {
	defer c.close()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *chatClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}
