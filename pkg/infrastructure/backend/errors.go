package backend

import (
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/vsinha/requisition/pkg/domain/repositories"
)

// messagePaths are tried in order for a human-readable error message
var messagePaths = []string{
	"error.detail",
	"error",
	"detail",
	"message",
	"non_field_errors.0",
}

// classify maps a non-2xx response onto the error taxonomy. The backend's
// own message is kept verbatim.
func classify(status int, body []byte) *repositories.BackendError {
	err := &repositories.BackendError{Status: status, Message: extractMessage(body)}
	if err.Message == "" {
		err.Message = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		err.Kind = repositories.KindAuth
	case status == http.StatusNotFound:
		err.Kind = repositories.KindNotFound
	case status >= 500:
		err.Kind = repositories.KindTransport
	default:
		err.Kind = repositories.KindRejection
	}
	return err
}

// extractMessage finds the first human-readable message in an error body:
// a known message field, else the first entry of a field error map
func extractMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	root := gjson.ParseBytes(body)

	for _, path := range messagePaths {
		if v := root.Get(path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}

	if !root.IsObject() {
		return ""
	}
	var message string
	root.ForEach(func(key, value gjson.Result) bool {
		switch {
		case value.IsArray() && value.Get("0").Type == gjson.String:
			message = key.String() + ": " + value.Get("0").String()
			return false
		case value.Type == gjson.String && value.String() != "":
			message = key.String() + ": " + value.String()
			return false
		}
		return true
	})
	return message
}
