package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/mentorship-hub/internal/auth"
	"github.com/PaulBabatuyi/mentorship-hub/internal/data"
	"github.com/PaulBabatuyi/mentorship-hub/internal/mailer"
	"github.com/PaulBabatuyi/mentorship-hub/internal/mentorship"
	"github.com/PaulBabatuyi/mentorship-hub/internal/middleware"
	"github.com/PaulBabatuyi/mentorship-hub/internal/notify"
)

type userStore interface {
	CreateUser(ctx context.Context, user *data.User) (*data.User, error)
	UserExists(ctx context.Context, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (*data.User, error)
	GetUserByID(ctx context.Context, id bson.ObjectID) (*data.User, error)
	ListMentors(ctx context.Context, skill string) ([]*data.User, error)
	UpdateProfile(ctx context.Context, id bson.ObjectID, upd data.ProfileUpdate) (*data.User, error)
	SetPassword(ctx context.Context, id bson.ObjectID, hashedPassword string) error
}

type resetTokenStore interface {
	CreateToken(ctx context.Context, userID bson.ObjectID, tokenHash string, expiresAt time.Time) error
	FindValid(ctx context.Context, raw string, match func(hash, raw string) bool) (*data.PasswordResetToken, error)
	DeleteToken(ctx context.Context, id bson.ObjectID) error
}

type mentorshipService interface {
	Create(ctx context.Context, menteeID, mentorID bson.ObjectID, message, subject string) (*data.MentorshipRequest, error)
	Resolve(ctx context.Context, requestID, actorID bson.ObjectID, decision string) (*data.MentorshipRequest, error)
	SendMessage(ctx context.Context, requestID, senderID bson.ObjectID, content string) (*data.Message, error)
	Conversation(ctx context.Context, requestID, readerID bson.ObjectID) ([]*data.Message, error)
	Conversations(ctx context.Context, userID bson.ObjectID) ([]*data.ConversationSummary, error)
	Received(ctx context.Context, mentorID bson.ObjectID) ([]mentorship.RequestView, error)
	Sent(ctx context.Context, menteeID bson.ObjectID) ([]mentorship.RequestView, error)
	SubmitFeedback(ctx context.Context, requestID, menteeID bson.ObjectID, rating int, comment string) (*data.Feedback, error)
	MentorFeedback(ctx context.Context, mentorID bson.ObjectID) (*mentorship.FeedbackSummary, error)
	DeleteAccount(ctx context.Context, userID bson.ObjectID) error
}

type notifier interface {
	Feed(ctx context.Context, userID bson.ObjectID) notify.Feed
	UnreadMessages(ctx context.Context, userID bson.ObjectID) int64
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	users      userStore
	tokens     resetTokenStore
	mentorship mentorshipService
	notify     notifier
	store      pinger

	auth    *auth.JWTManager
	google  *auth.GoogleOAuth
	mail    mailer.Sender
	limiter *middleware.LimiterStore

	appURL       string
	cookieSecure bool
	corsOrigins  []string

	// background tracks work that outlives its request, such as reset mail.
	background sync.WaitGroup
}

// serverDeps is everything newServer needs; it keeps main readable.
type serverDeps struct {
	Users        userStore
	Tokens       resetTokenStore
	Mentorship   mentorshipService
	Notify       notifier
	Store        pinger
	Auth         *auth.JWTManager
	Google       *auth.GoogleOAuth
	Mail         mailer.Sender
	Limiter      *middleware.LimiterStore
	AppURL       string
	CookieSecure bool
	CORSOrigins  []string
}

// newServer returns a ready-to-use Server wired with stores and auth manager.
func newServer(d serverDeps) *Server {
	if d.Mail == nil {
		d.Mail = mailer.Noop{}
	}
	if d.Google == nil {
		d.Google = auth.NewGoogleOAuth("", "", "")
	}
	return &Server{
		users:        d.Users,
		tokens:       d.Tokens,
		mentorship:   d.Mentorship,
		notify:       d.Notify,
		store:        d.Store,
		auth:         d.Auth,
		google:       d.Google,
		mail:         d.Mail,
		limiter:      d.Limiter,
		appURL:       d.AppURL,
		cookieSecure: d.CookieSecure,
		corsOrigins:  d.CORSOrigins,
	}
}

// routes builds the HTTP handler tree.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.CleanPath)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler)
	r.Use(session(s.auth))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if s.limiter != nil {
					r.Use(middleware.RateLimit(s.limiter))
				}
				r.Post("/register", s.handleRegister)
				r.Post("/login", s.handleLogin)
				r.Post("/forgot-password", s.handleForgotPassword)
				// each lookup runs a bcrypt compare per live token
				r.Get("/reset-password", s.handleValidateResetToken)
				r.Post("/reset-password", s.handleResetPassword)
			})
			r.Post("/logout", s.handleLogout)
			r.Get("/google", s.handleGoogleLogin)
			r.Get("/google/callback", s.handleGoogleCallback)
		})

		r.Get("/mentors", s.handleListMentors)
		r.Get("/feedback", s.handleListFeedback)
		r.Get("/notifications", s.handleNotifications)
		r.Get("/chat/unread-count", s.handleUnreadCount)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/user/profile", s.handleGetProfile)
			r.Put("/user/profile", s.handleUpdateProfile)
			r.Delete("/user/account", s.handleDeleteAccount)

			r.Post("/mentorship-requests", s.handleCreateRequest)
			r.Get("/mentorship-requests", s.handleReceivedRequests)
			r.Get("/mentorship-requests/sent", s.handleSentRequests)
			r.Put("/mentorship-requests", s.handleResolveRequest)

			r.Get("/chat", s.handleConversation)
			r.Post("/chat", s.handleSendMessage)
			r.Get("/chat/conversations", s.handleConversations)

			r.Post("/feedback", s.handleSubmitFeedback)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
