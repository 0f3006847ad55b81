package handlers

import (
	"net/http"

	"github.com/ukydev/campus-rath/internal/middleware"
)

// Routes collects the handlers mounted by NewRouter. Store may be nil when
// the document store is hosted elsewhere.
type Routes struct {
	Admin    *AdminHandler
	Tracker  *TrackerHandler
	Store    *StoreHandler
	Sessions *middleware.SessionMiddleware
}

// NewRouter wires every endpoint onto a single mux.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", Health)

	mux.Handle("/api/admin/session", routes.Sessions.Load(http.HandlerFunc(routes.Admin.Session)))
	mux.Handle("/api/admin/events", routes.Sessions.Load(http.HandlerFunc(routes.Admin.Events)))
	mux.HandleFunc("/api/admin/reasons", routes.Admin.Reasons)

	mux.HandleFunc("/api/tracker", routes.Tracker.View)
	mux.HandleFunc("/ws/tracker", routes.Tracker.Stream)

	if routes.Store != nil {
		mux.Handle(StorePrefix, routes.Store)
	}
	return middleware.Logging(mux)
}
