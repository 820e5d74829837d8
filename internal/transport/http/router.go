package http

import (
	"net/http"
	"time"

	httpmw "github.com/medsim-planet/session-service/internal/transport/http/middleware"
	"github.com/medsim-planet/session-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, verifier httpmw.TokenVerifier, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	// WS endpoint
	r.Get("/ws", wsServer.HandleWS)

	// валидация кода — публичная, её дергает студент до join-а
	r.Get("/sessions/code/{code}/validate", h.ValidateCode)

	// привилегированные маршруты требуют токен экзаменатора
	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.AuthMiddleware(verifier))
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Route("/sessions", func(sr chi.Router) {
			sr.Post("/", h.CreateSession)
			sr.Get("/", h.ListSessions)

			sr.Route("/code/{code}", func(cr chi.Router) {
				cr.Get("/students", h.GetStudents)
				cr.Post("/deactivate", h.DeactivateSession)
				cr.Post("/reconcile", h.Reconcile)
			})

			sr.Route("/{id}", func(ir chi.Router) {
				ir.Patch("/", h.UpdateSession)
				ir.Delete("/students/{studentId}", h.RemoveStudent)
			})
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
