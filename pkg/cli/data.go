package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mchmarny/rentprice/pkg/data"
	"github.com/mchmarny/rentprice/pkg/estimator"
)

// ImportanceSeries is the chart payload of the importance endpoint.
type ImportanceSeries struct {
	data.SeriesData[float64]
	Available bool   `json:"available" yaml:"available"`
	Message   string `json:"message,omitempty" yaml:"message,omitempty"`
}

type errorList struct {
	Errors []string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func optionsAPIHandler() http.HandlerFunc {
	opts := estimator.Options()
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, opts)
	}
}

func predictAPIHandler(est *estimator.Estimator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Fields the client leaves out stay zero and fail validation.
		req := &estimator.Request{}
		r.Body = http.MaxBytesReader(w, r.Body, serverMaxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			slog.Error("error binding json", "error", err)
			writeError(w, http.StatusBadRequest, "error binding json")
			return
		}

		res, err := predict(est, req)
		if err != nil {
			var verr *estimator.ValidationError
			if errors.As(err, &verr) {
				writeJSON(w, http.StatusBadRequest, errorList{Errors: verr.Messages})
				return
			}
			slog.Error("failed to predict", "error", err)
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func importanceAPIHandler(est *estimator.Estimator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		res := importances(est)
		s := &ImportanceSeries{
			SeriesData: data.SeriesData[float64]{
				Labels: make([]string, 0, len(res.Importances)),
				Data:   make([]float64, 0, len(res.Importances)),
			},
			Available: res.Available,
			Message:   res.Message,
		}
		for _, v := range res.Importances {
			s.Labels = append(s.Labels, v.Column)
			s.Data = append(s.Data, v.Importance)
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func citiesAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		res, err := data.GetCityAverages(db)
		if err != nil {
			slog.Error("failed to get city averages", "error", err)
			writeError(w, http.StatusInternalServerError, "error querying city averages")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
