package chatstream

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/domain/admission"
	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/domain/generation"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

// Protocol turns sendMessage events into the ordered server event sequence of a turn.
// It is shared by every connection; per-connection state lives in Session.
type Protocol struct {
	chat      chat.Service
	generator generation.Generator
	limiter   admission.Limiter
	rule      admission.Rule
	observer  Observer
	log       zerolog.Logger
}

// NewProtocol wires the streaming protocol. A nil limiter admits every turn and a nil
// observer discards outcomes.
func NewProtocol(chatService chat.Service, generator generation.Generator, limiter admission.Limiter, rule admission.Rule, observer Observer, log zerolog.Logger) *Protocol {
	if limiter == nil {
		limiter = admission.AllowAll{}
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Protocol{
		chat:      chatService,
		generator: generator,
		limiter:   limiter,
		rule:      rule,
		observer:  observer,
		log:       log.With().Str("component", "stream-session").Logger(),
	}
}

// WithoutAdmission returns a protocol sharing p's dependencies that admits every turn, for
// transports that applied the rate limit before the stream opened.
func (p *Protocol) WithoutAdmission() *Protocol {
	clone := *p
	clone.limiter = admission.AllowAll{}
	return &clone
}

// Session is the protocol state of one connection.
type Session struct {
	protocol *Protocol
	emitter  Emitter
	id       string
	clientIP string
	channel  string
	busy     atomic.Bool
	wg       sync.WaitGroup
	log      zerolog.Logger
}

// NewSession starts the protocol for one connection. channel is recorded on conversations
// the session creates.
func (p *Protocol) NewSession(id, clientIP, channel string, emitter Emitter) *Session {
	return &Session{
		protocol: p,
		emitter:  emitter,
		id:       id,
		clientIP: clientIP,
		channel:  channel,
		log:      p.log.With().Str("connection_id", id).Str("channel", channel).Logger(),
	}
}

// Submit starts a turn in the background and returns immediately. A turn already in flight
// causes the new request to be rejected.
func (s *Session) Submit(ctx context.Context, req SendMessage) {
	if !s.admit(ctx, req) {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.turn(ctx, req)
	}()
}

// Run executes a turn on the calling goroutine. It returns false when the turn was not
// started.
func (s *Session) Run(ctx context.Context, req SendMessage) bool {
	if !s.admit(ctx, req) {
		return false
	}
	s.turn(ctx, req)
	return true
}

// Busy reports whether a turn is in flight.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Wait blocks until the background turn, if any, has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Unsupported answers a client event the protocol does not know.
func (s *Session) Unsupported(name string) {
	s.log.Debug().Str("event", name).Msg("unsupported client event")
	s.emit(ErrorEvent(UnsupportedMessage))
}

// admit rejects empty text, concurrent turns, and rate-limited identities without any state
// change. On success the session is marked busy.
func (s *Session) admit(ctx context.Context, req SendMessage) bool {
	if strings.TrimSpace(req.Message) == "" {
		s.emit(ErrorEvent(chat.MessageEmpty))
		return false
	}

	if !s.busy.CompareAndSwap(false, true) {
		s.emit(ErrorEvent(BusyMessage))
		return false
	}

	decision := s.protocol.limiter.Allow(ctx, s.protocol.rule, admission.ChatIdentity(s.clientIP, req.SessionID))
	if !decision.Allowed {
		s.busy.Store(false)
		s.log.Warn().Str("client_ip", s.clientIP).Int64("count", decision.Count).Msg("turn rejected by rate limit")
		s.protocol.observer.ObserveTurn(s.channel, OutcomeRejected, 0)
		s.emit(ErrorEvent(s.protocol.rule.Message))
		return false
	}
	return true
}

// turn runs one admitted request. The busy flag is cleared exactly once, before the last event
// of the turn is emitted, so a client reacting to that event is never told to wait.
func (s *Session) turn(parent context.Context, req SendMessage) {
	release := sync.OnceFunc(func() { s.busy.Store(false) })
	defer release()

	// The turn outlives its connection so a completed reply is still stored.
	ctx := context.WithoutCancel(parent)
	start := time.Now()
	outcome := s.relay(ctx, req, release)
	s.protocol.observer.ObserveTurn(s.channel, outcome, time.Since(start))
}

func (s *Session) relay(ctx context.Context, req SendMessage, release func()) string {
	p := s.protocol

	accepted, err := p.chat.Accept(ctx, chat.TurnInput{
		SessionID: req.SessionID,
		Text:      req.Message,
		Channel:   s.channel,
	})
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			release()
			s.emit(ErrorEvent(platformerrors.GetPlatformError(err).Message))
			return OutcomeRejected
		}
		return s.fail(err, "accept user message", release)
	}

	log := s.log.With().Str("conversation_id", accepted.ConversationID).Logger()
	s.emit(Event{Name: EventMessageReceived, Data: MessageReceived{
		SessionID:   accepted.ConversationID,
		UserMessage: NewMessagePayload(accepted.UserMessage),
	}})

	history, err := p.chat.ReplyContext(ctx, accepted.ConversationID)
	if err != nil {
		return s.fail(err, "load history", release)
	}

	s.emit(Event{Name: EventTypingStart})

	replyID := conversation.NewID()
	text, err := s.stream(ctx, history, accepted.UserMessage.Text, replyID)
	if err == nil && strings.TrimSpace(text) == "" {
		err = generation.NewError(generation.KindMalformed, errors.New("empty streamed reply"))
	}
	if err != nil {
		log.Warn().Err(err).Str("generation_kind", string(generation.KindOf(err))).Msg("streamed generation failed")
		s.emit(ErrorEvent(generation.UserMessage(err)))
		release()
		s.emit(Event{Name: EventTypingStop})
		return OutcomeGenerationError
	}

	assistant, err := p.chat.CompleteReply(ctx, accepted.ConversationID, replyID, text)
	if err != nil {
		return s.fail(err, "store assistant message", release)
	}

	s.emit(Event{Name: EventStreamComplete, Data: StreamComplete{
		SessionID: accepted.ConversationID,
		AIMessage: NewMessagePayload(assistant),
	}})
	release()
	s.emit(Event{Name: EventTypingStop})

	if s.emitter.Closed() {
		log.Info().Str("message_id", replyID).Msg("reply stored after client disconnected")
	}
	return OutcomeCompleted
}

// stream relays fragments in production order and returns their concatenation.
func (s *Session) stream(ctx context.Context, history []conversation.Message, userText, replyID string) (string, error) {
	stream, err := s.protocol.generator.GenerateStream(ctx, history, userText)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var builder strings.Builder
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return builder.String(), nil
		}
		if err != nil {
			return "", err
		}
		if fragment == "" {
			continue
		}
		builder.WriteString(fragment)
		s.protocol.observer.ObserveChunk(s.channel)
		s.emit(Event{Name: EventStreamChunk, Data: StreamChunk{Chunk: fragment, MessageID: replyID}})
	}
}

func (s *Session) fail(err error, op string, release func()) string {
	if platformErr := platformerrors.GetPlatformError(err); platformErr != nil {
		platformerrors.LogError(s.log, platformErr)
	} else {
		s.log.Error().Err(err).Msg(op)
	}
	s.emit(ErrorEvent(GenericMessage))
	release()
	s.emit(Event{Name: EventTypingStop})
	return OutcomeFailed
}

func (s *Session) emit(event Event) {
	if s.emitter.Closed() {
		return
	}
	if err := s.emitter.Emit(event); err != nil {
		s.log.Debug().Err(err).Str("event", event.Name).Msg("emit failed")
	}
}
