package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"charchat-client/internal/models"
)

// unwrapEnvelope разворачивает {success, data} и декодирует data в out.
// Тело без поля success декодируется целиком.
func unwrapEnvelope(status int, body []byte, requestID string, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	if env, ok := parseEnvelope(trimmed); ok {
		if !env.Success {
			return &APIError{Status: status, Code: env.Code, Message: envelopeMessage(env), RequestID: requestID}
		}
		if out == nil || len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("invalid response data format: %w", err)
		}
		return nil
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("invalid response format: %w", err)
	}
	return nil
}

// errorFromBody собирает APIError из тела ошибки (конверт или {"error": "..."}).
func errorFromBody(status int, body []byte, requestID string) *APIError {
	apiErr := &APIError{Status: status, RequestID: requestID}
	trimmed := bytes.TrimSpace(body)
	if env, ok := parseEnvelope(trimmed); ok {
		apiErr.Code = env.Code
		apiErr.Message = envelopeMessage(env)
		return apiErr
	}
	var plain struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(trimmed, &plain); err == nil {
		apiErr.Code = plain.Code
		apiErr.Message = plain.Error
		if apiErr.Message == "" {
			apiErr.Message = plain.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func parseEnvelope(body []byte) (*models.Envelope, bool) {
	if len(body) == 0 || body[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, false
	}
	if _, ok := fields["success"]; !ok {
		return nil, false
	}
	var env models.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, false
	}
	return &env, true
}

func envelopeMessage(env *models.Envelope) string {
	if env.Error != "" {
		return env.Error
	}
	return env.Message
}
