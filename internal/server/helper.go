package server

import (
	"encoding/json"
	"net/http"
)

func (*Server) writeJSON(w http.ResponseWriter, data any, status int, headers http.Header) error {
	jsonBytes, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	for k, v := range headers {
		w.Header()[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(jsonBytes)
	return err
}
