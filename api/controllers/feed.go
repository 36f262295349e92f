package controllers

import (
	"net/http"

	"github.com/housebook/housebook-backend/api/responses"
	"github.com/housebook/housebook-backend/pkg/logger"
)

type feedServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string, logg *logger.Logger)
}

// PropertyFeed upgrades to a websocket that pushes refresh signals whenever
// property data changes.
func PropertyFeed(hub feedServer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("realtime feed"))
			return
		}
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hub.Serve(w, r, userID.String(), logg)
	}
}
