package httpx

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// requestID returns the inbound request id, generating one when the client did
// not supply it, and echoes it on the response.
func requestID(w http.ResponseWriter, req *http.Request) string {
	id := strings.TrimSpace(req.Header.Get(requestIDHeader))
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, id)
	return id
}
