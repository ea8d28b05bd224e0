package handler

import "net/http"

// apiRootResponse describes the API for anyone who opens /api/v1/ in a browser.
type apiRootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// HandleAPIRoot lists the available endpoints.
//
// HTTP: GET /api/v1/
func HandleAPIRoot(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, apiRootResponse{
		Message: "Base Project API",
		Version: "v1",
		Endpoints: map[string]string{
			"health":    "/health/",
			"readiness": "/readiness/",
		},
	})
}
