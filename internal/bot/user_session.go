package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Session message types.
const (
	msgTypeCallback   = "callback"
	msgTypePhoto      = "photo"
	msgTypeText       = "text"
	msgTypeAuthorized = "authorized"
)

// SessionMessage is a unit of work for the session worker.
type SessionMessage struct {
	Type string
	Ctx  context.Context
	Done chan struct{} // Closed when processing is complete (for synchronous dispatch)

	// Only one is set, depending on Type
	Message       *tgbotapi.Message
	CallbackQuery *tgbotapi.CallbackQuery
	Text          string
	AuthErr       error // Outcome of an OAuth callback for msgTypeAuthorized
}

// MessageSender abstracts the ability to send Telegram messages.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// MessageHandler processes messages taken from a session's inbox.
type MessageHandler interface {
	HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage)
}

// UserSession holds one Telegram user's listing draft.
//
// Every message for the user is processed by a dedicated worker goroutine,
// one at a time. Handlers run on that goroutine and touch session state
// without locks.
type UserSession struct {
	userId int64
	sender MessageSender

	inbox   chan SessionMessage
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	handler MessageHandler

	draft *ListingSession
}

func (s *UserSession) reset() {
	log.Info().Int64("userId", s.userId).Msg("reset user session")
	s.draft = nil
}

func (s *UserSession) replyWithError(err error) tgbotapi.Message {
	log.Error().Err(err).Int64("userId", s.userId).Send()
	return s._reply(fmt.Sprintf(MsgUnexpectedErr, escapeMarkdown(err.Error())), false)
}

// sendTypingAction shows the typing indicator. Telegram clears it after
// about five seconds or when a message is sent.
func (s *UserSession) sendTypingAction() {
	action := tgbotapi.NewChatAction(s.userId, tgbotapi.ChatTyping)
	// sendChatAction returns a boolean, not a Message
	if _, err := s.sender.Request(action); err != nil {
		log.Debug().Err(err).Int64("userId", s.userId).Msg("failed to send typing action")
	}
}

// startTypingLoop keeps the typing indicator visible until ctx is done.
func (s *UserSession) startTypingLoop(ctx context.Context) {
	s.sendTypingAction()

	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendTypingAction()
		}
	}
}

func (s *UserSession) replyWithMessage(msg tgbotapi.MessageConfig) tgbotapi.Message {
	msg.ChatID = s.userId
	sent, err := s.sender.Send(msg)
	if err != nil {
		log.Error().
			Int64("userId", s.userId).
			Err(fmt.Errorf("failed to send reply message: %w", err)).Send()
	} else {
		log.Debug().Int64("userId", s.userId).Int("messageId", sent.MessageID).Msg("sent message")
	}
	return sent
}

func (s *UserSession) _reply(text string, removeReplyKeyboard bool) tgbotapi.Message {
	msg := tgbotapi.MessageConfig{
		Text:      text,
		ParseMode: tgbotapi.ModeMarkdown,
	}
	if removeReplyKeyboard {
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}
	return s.replyWithMessage(msg)
}

func (s *UserSession) reply(text string, a ...any) tgbotapi.Message {
	return s._reply(formatReplyText(text, a...), false)
}

// replyAndRemoveCustomKeyboard replies while removing any custom reply
// keyboard, which Telegram otherwise keeps showing.
func (s *UserSession) replyAndRemoveCustomKeyboard(text string, a ...any) tgbotapi.Message {
	return s._reply(formatReplyText(text, a...), true)
}

// removeInlineKeyboard strips the buttons from a message.
func (s *UserSession) removeInlineKeyboard(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(
		chatID,
		messageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)
	s.sender.Request(edit)
}

// --- Worker ---

// StartWorker starts the message processing goroutine. The handler must be
// set first.
func (s *UserSession) StartWorker() {
	s.wg.Add(1)
	go s.runWorker()
}

func (s *UserSession) SetHandler(handler MessageHandler) {
	s.handler = handler
}

func (s *UserSession) runWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Release SendSync callers still waiting on queued messages
			for {
				select {
				case msg := <-s.inbox:
					if msg.Done != nil {
						close(msg.Done)
					}
				default:
					return
				}
			}
		case msg := <-s.inbox:
			s.processMessage(msg)
		}
	}
}

func (s *UserSession) processMessage(msg SessionMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Int64("userId", s.userId).
				Str("type", msg.Type).
				Interface("panic", r).
				Msg("recovered from panic in session worker")
		}
		if msg.Done != nil {
			close(msg.Done)
		}
	}()

	if s.handler == nil {
		log.Error().Int64("userId", s.userId).Msg("session handler not set")
		return
	}

	ctx := msg.Ctx
	if ctx == nil {
		ctx = s.ctx
	}
	s.handler.HandleSessionMessage(ctx, s, msg)
}

// Send queues a message without waiting for it to be processed.
func (s *UserSession) Send(msg SessionMessage) {
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
		if msg.Done != nil {
			close(msg.Done)
		}
	}
}

// SendSync queues a message and returns once it has been processed.
func (s *UserSession) SendSync(msg SessionMessage) {
	msg.Done = make(chan struct{})
	s.Send(msg)
	<-msg.Done
}

// Stop stops the worker and waits for it to finish.
func (s *UserSession) Stop() {
	s.cancel()
	s.wg.Wait()
}
