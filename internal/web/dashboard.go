package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/stockboard/internal/model"
	"github.com/erazemk/stockboard/internal/store"
)

// recentActivity is how many activity entries the dashboard shows.
const recentActivity = 10

// Dashboard handles GET /dashboard.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	activity, err := store.ListActivity(r.Context(), s.DB, recentActivity)
	if err != nil {
		slog.Error("failed to list activity for dashboard", "error", err)
	}

	s.Templates.Render(w, "dashboard.html", &struct {
		PageData
		Activity  []model.Activity
		APIOnline bool
		APIURL    string
	}{
		PageData:  pageData(r, "Dashboard"),
		Activity:  activity,
		APIOnline: s.Backend.Health(r.Context()),
		APIURL:    s.Backend.BaseURL(),
	})
}
