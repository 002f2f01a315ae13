package gateway

import (
	"encoding/json"
	"net/http"
)

func writeError(w http.ResponseWriter, statusCode int, endpoint string, err error) {
	log.Debugw("serving request", "endpoint", endpoint, "err", err)

	w.WriteHeader(statusCode)
	_, err = w.Write([]byte(err.Error()))
	if err != nil {
		log.Errorw("writing error response", "endpoint", endpoint, "err", err)
	}
}

func writeJSON(w http.ResponseWriter, endpoint string, v any) {
	resp, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, endpoint, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(resp)
	if err != nil {
		log.Errorw("serving request", "endpoint", endpoint, "err", err)
	}
}
