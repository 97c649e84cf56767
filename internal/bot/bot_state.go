package bot

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// sessionInboxSize bounds how many updates can queue up behind a slow
// operation such as image analysis.
const sessionInboxSize = 20

type BotState struct {
	bot      *Bot
	mu       sync.Mutex
	sessions map[int64]*UserSession
}

func (b *Bot) NewBotState() BotState {
	return BotState{
		bot:      b,
		sessions: make(map[int64]*UserSession),
	}
}

func (bs *BotState) newUserSession(userId int64) *UserSession {
	ctx, cancel := context.WithCancel(context.Background())
	session := &UserSession{
		userId: userId,
		sender: bs.bot.tg,
		inbox:  make(chan SessionMessage, sessionInboxSize),
		ctx:    ctx,
		cancel: cancel,
	}
	session.SetHandler(bs.bot)
	session.StartWorker()
	log.Info().Int64("userId", userId).Msg("new user session created")
	return session
}

func (bs *BotState) getUserSession(userId int64) *UserSession {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	session, ok := bs.sessions[userId]
	if !ok {
		session = bs.newUserSession(userId)
		bs.sessions[userId] = session
	}
	return session
}

// Shutdown stops all session workers.
func (bs *BotState) Shutdown() {
	bs.mu.Lock()
	sessions := make([]*UserSession, 0, len(bs.sessions))
	for _, session := range bs.sessions {
		sessions = append(sessions, session)
	}
	bs.mu.Unlock()

	for _, session := range sessions {
		session.Stop()
	}
	log.Info().Int("count", len(sessions)).Msg("stopped all session workers")
}
