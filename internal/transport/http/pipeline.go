package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"grubdash/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Exchange is the request-scoped state a pipeline threads through its guards
// into the terminal handler.
type Exchange struct {
	OrderID string
	Input   models.OrderInput
	Dishes  []models.Dish
	Order   models.Order
}

// Guard inspects the request and the exchange. A non-nil error stops the
// pipeline and becomes the response.
type Guard func(r *http.Request, ex *Exchange) error

// Terminal performs the operation and returns the status and the value for
// the "data" envelope. A nil value is sent as an empty body.
type Terminal func(r *http.Request, ex *Exchange) (int, any, error)

// Pipeline is an ordered list of guards run before a terminal handler.
type Pipeline []Guard

func Guards(guards ...Guard) Pipeline {
	return Pipeline(guards)
}

func (p Pipeline) Then(terminal Terminal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ex := &Exchange{OrderID: chi.URLParam(r, "orderId")}

		for _, guard := range p {
			if err := guard(r, ex); err != nil {
				writeError(w, r, err)
				return
			}
		}

		status, data, err := terminal(r, ex)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if data == nil {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, models.DataResponse{Data: data}, status)
	}
}

// writeError sends an *models.APIError as is. Anything else is an internal
// failure: it is logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *models.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		apiErr = models.NewInternal()
	}
	writeJSON(w, apiErr, apiErr.Status)
}

func writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON", "error", err)
	}
}
