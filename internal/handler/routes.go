package handler

import "github.com/go-chi/chi/v5"

// Routes mounts the public, private and admin API on r.
func Routes(r chi.Router, events *EventHandler, requests *RequestHandler) {
	r.Get("/health", HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", events.ListPublished)
		r.Get("/{id}", events.GetPublished)
	})

	r.Route("/users/{userId}", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Post("/", events.CreateEvent)
			r.Get("/", events.ListMyEvents)
			r.Get("/{eventId}", events.GetMyEvent)
			r.Patch("/{eventId}", events.UpdateMyEvent)
			r.Get("/{eventId}/requests", requests.ListEventRequests)
			r.Patch("/{eventId}/requests", requests.ChangeStatuses)
		})
		r.Route("/requests", func(r chi.Router) {
			r.Post("/", requests.CreateRequest)
			r.Get("/", requests.ListMyRequests)
			r.Patch("/{requestId}/cancel", requests.CancelRequest)
		})
	})

	r.Route("/admin/events", func(r chi.Router) {
		r.Get("/", events.AdminListEvents)
		r.Patch("/{eventId}", events.AdminUpdateEvent)
	})
}
