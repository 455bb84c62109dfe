package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/lockana/errs"
)

// ErrorBody is the JSON shape written by [WriteError].
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError answers with the status of err's kind and its public code and
// message. Causes never reach the response.
func WriteError(w http.ResponseWriter, err error) {
	code, message := errs.Public(err)
	status := errs.KindOf(err).HTTPStatus()

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="lockana"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Code: code, Message: message})
}
