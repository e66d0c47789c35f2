package handlers

import (
	"net/http"

	"walipheros/internal/config"
	"walipheros/internal/db"
	"walipheros/internal/middleware"
	"walipheros/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	cfg      config.Config
	txRunner db.TxRunner
	users    UserStore
	sessions *SessionManager
	hub      *websocket.Hub
}

func New(cfg config.Config, txRunner db.TxRunner, users UserStore, sessions *SessionManager, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:      cfg,
		txRunner: txRunner,
		users:    users,
		sessions: sessions,
		hub:      hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))

		r.Get("/state", h.GetState)
		r.Post("/state/reset", h.ResetDashboard)

		r.Route("/finance", func(r chi.Router) {
			r.Get("/", h.GetFinance)
			r.Post("/income", h.RecordIncome)
			r.Post("/expense", h.RecordExpense)
			r.Post("/transfer", h.Transfer)
			r.Post("/credit/pay", h.PayCreditDebt)
			r.Put("/credit/limit", h.SetCreditLimit)
			r.Post("/bills", h.AddPendingBill)
			r.Post("/bills/{index}/pay", h.PayPendingBill)
			r.Post("/rollover", h.MonthRollover)
			r.Post("/wipe", h.WipeFinance)
		})

		r.Route("/todos", func(r chi.Router) {
			r.Get("/", h.ListTodos)
			r.Post("/", h.AddTodo)
			r.Post("/{id}/toggle", h.ToggleTodo)
			r.Delete("/{id}", h.DeleteTodo)
		})

		r.Route("/schedule", func(r chi.Router) {
			r.Get("/", h.ListSchedule)
			r.Post("/", h.AddSubject)
			r.Put("/{index}", h.UpdateSubject)
			r.Delete("/{index}", h.DeleteSubject)
		})

		r.Get("/notes", h.GetNotes)
		r.Put("/notes", h.PutNotes)

		r.Route("/links", func(r chi.Router) {
			r.Get("/", h.ListLinks)
			r.Post("/", h.AddLink)
			r.Delete("/{index}", h.DeleteLink)
		})

		r.Put("/preferences", h.PutPreferences)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Post("/{id}/ack", h.AcknowledgeNotification)
			r.Delete("/", h.ClearNotifications)
		})
	})

	router.Get("/ws", h.WSDashboard)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
