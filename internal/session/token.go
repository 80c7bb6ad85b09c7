package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"charchat-client/internal/models"
)

// TokenExpiry читает claim exp из access токена без проверки подписи:
// у клиента нет секрета, подпись проверяет сервер.
// Нулевое время означает, что exp не задан.
func TokenExpiry(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", models.ErrTokenMalformed, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// needsRefresh сообщает, истекает ли токен в пределах skew от now.
func needsRefresh(token string, now time.Time, skew time.Duration) bool {
	exp, err := TokenExpiry(token)
	if err != nil {
		// Некорректный токен сервер все равно отклонит, пробуем обновить
		return true
	}
	if exp.IsZero() {
		return false
	}
	return !now.Add(skew).Before(exp)
}
