package middleware

import (
	"context"
	"net/http"
	"strings"

	"scout-sync-server/pkg/jwt"
	"scout-sync-server/pkg/response"
)

type contextKey string

const (
	DeviceIDKey   contextKey = "deviceID"
	DeviceRoleKey contextKey = "deviceRole"
)

func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			token := parts[1]
			claims, err := jwt.ValidateToken(token, jwtSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), DeviceIDKey, claims.DeviceID)
			ctx = context.WithValue(ctx, DeviceRoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetDeviceID(r *http.Request) string {
	deviceID, ok := r.Context().Value(DeviceIDKey).(string)
	if !ok {
		return ""
	}
	return deviceID
}

func GetDeviceRole(r *http.Request) string {
	role, ok := r.Context().Value(DeviceRoleKey).(string)
	if !ok {
		return ""
	}
	return role
}
