// Package callback serves the OAuth redirect URI that eBay sends the seller
// back to after consent.
package callback

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/raine/telegram-ebay-bot/internal/storage"
	"github.com/rs/zerolog/log"
)

// StateStore resolves OAuth state nonces to Telegram users.
type StateStore interface {
	ConsumeOAuthState(ctx context.Context, state string) (int64, error)
}

// ServiceFactory returns the eBay service bound to a Telegram user's token
// store.
type ServiceFactory func(telegramID int64) ebay.ListingService

// Notifier tells the Telegram user how the authorization went. err is nil on
// success.
type Notifier interface {
	NotifyAuthorized(telegramID int64, err error)
}

// Server is the HTTP server receiving eBay's OAuth redirect.
type Server struct {
	httpServer *http.Server
	states     StateStore
	services   ServiceFactory
	notifier   Notifier
}

func NewServer(addr string, states StateStore, services ServiceFactory, notifier Notifier) *Server {
	s := &Server{
		states:   states,
		services: services,
		notifier: notifier,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes returns the router, exposed for tests.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	r.Get("/callback", s.handleCallback)

	return r
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("starting oauth callback server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("could not start callback server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("stopping oauth callback server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	logger := log.With().Str("requestId", middleware.GetReqID(r.Context())).Logger()

	state := q.Get("state")
	if state == "" {
		renderPage(w, http.StatusBadRequest, "Login failed", "The link is missing its state parameter. Send /login in Telegram to get a new one.")
		return
	}

	telegramID, err := s.states.ConsumeOAuthState(r.Context(), state)
	if errors.Is(err, storage.ErrStateNotFound) || errors.Is(err, storage.ErrStateExpired) {
		logger.Warn().Err(err).Msg("rejected oauth callback")
		renderPage(w, http.StatusBadRequest, "Login link expired", "This login link has expired or was already used. Send /login in Telegram to get a new one.")
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to look up oauth state")
		renderPage(w, http.StatusInternalServerError, "Login failed", "Something went wrong. Please try again.")
		return
	}

	logger = logger.With().Int64("userId", telegramID).Logger()

	code := q.Get("code")
	if code == "" {
		reason := q.Get("error_description")
		if reason == "" {
			reason = q.Get("error")
		}
		if reason == "" {
			reason = "no authorization code received"
		}
		err := fmt.Errorf("authorization declined: %s", reason)
		logger.Warn().Err(err).Msg("oauth consent not granted")
		s.notifier.NotifyAuthorized(telegramID, err)
		renderPage(w, http.StatusBadRequest, "Login cancelled", "eBay did not grant access. You can try again with /login.")
		return
	}

	if _, err := s.services(telegramID).ExchangeCode(r.Context(), code); err != nil {
		logger.Error().Err(err).Msg("failed to exchange authorization code")
		s.notifier.NotifyAuthorized(telegramID, err)
		renderPage(w, http.StatusBadGateway, "Login failed", err.Error())
		return
	}

	logger.Info().Msg("ebay account authorized")
	s.notifier.NotifyAuthorized(telegramID, nil)
	renderPage(w, http.StatusOK, "eBay account connected", "You can close this page and return to Telegram.")
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family: sans-serif; max-width: 32em; margin: 4em auto;">
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

func renderPage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, struct{ Title, Message string }{title, message}); err != nil {
		log.Error().Err(err).Msg("failed to render callback page")
	}
}
