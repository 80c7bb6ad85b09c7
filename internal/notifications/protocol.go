package notifications

import (
	"encoding/json"
	"errors"

	"charchat-client/internal/models"
)

var errAckTimeout = errors.New("notification request was not acknowledged in time")

// AckError - сервер отклонил запрос, отправленный через сокет.
type AckError struct {
	Event   string
	Message string
}

func (e *AckError) Error() string {
	return e.Event + " rejected: " + e.Message
}

// Unwrap сопоставляет текст ошибки сервера с известными ошибками.
func (e *AckError) Unwrap() error {
	switch e.Message {
	case models.ErrNotFound.Error():
		return models.ErrNotFound
	case models.ErrForbidden.Error():
		return models.ErrForbidden
	}
	return nil
}

func encodeFrame(event, id string, payload any) ([]byte, error) {
	frame := models.SocketFrame{Event: event, ID: id}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		frame.Data = raw
	}
	return json.Marshal(frame)
}
