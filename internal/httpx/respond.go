package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/ariefcatur/go-vendormart.git/internal/apperr"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeData wraps a successful payload in the {success,data} envelope.
func writeData(w http.ResponseWriter, code int, v any) {
	writeJSON(w, code, map[string]any{"success": true, "data": v})
}

// writeError renders every failure as {success:false, message} with the
// status code the taxonomy maps it to.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), map[string]any{
		"success": false,
		"message": err.Error(),
	})
}
