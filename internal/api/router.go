package api

import (
	"net/http"
)

func NewRouter(h *APIHandler) http.Handler {

	mux := http.NewServeMux()

	mux.HandleFunc("POST /rankings", h.HandleRank)

	mux.HandleFunc("POST /jobs", h.HandleCreateJob)

	mux.HandleFunc("GET /jobs/{jobId}", h.HandleViewJob)

	mux.HandleFunc("GET /healthz", h.HandleHealth)

	return mux
}
