package handlers

import (
	"net/http"

	"geometryConverter/api/dto"
)

func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok"})
}
