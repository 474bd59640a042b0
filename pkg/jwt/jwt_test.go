package jwt

import (
	"testing"
	"time"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name       string
		deviceID   string
		expiration time.Duration
		secret     string
	}{
		{
			name:       "valid token generation",
			deviceID:   "device-123",
			expiration: 15 * time.Minute,
			secret:     "test-secret-key-32-characters!",
		},
		{
			name:       "short expiration",
			deviceID:   "device-456",
			expiration: 1 * time.Second,
			secret:     "test-secret",
		},
		{
			name:       "long expiration",
			deviceID:   "device-789",
			expiration: 72 * time.Hour,
			secret:     "test-secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.deviceID, "Pit Tablet", "scout", tt.expiration, tt.secret)
			if err != nil {
				t.Errorf("GenerateToken() error = %v", err)
				return
			}

			if token == "" {
				t.Error("GenerateToken() returned empty token")
			}

			if len(token) < 100 {
				t.Errorf("GenerateToken() token too short, len = %d", len(token))
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	deviceID := "test-device-id"
	secret := "validation-secret-key-32-chars"

	validToken, _ := GenerateToken(deviceID, "Lead Station", "lead", 1*time.Hour, secret)
	expiredToken, _ := GenerateToken(deviceID, "Lead Station", "lead", -1*time.Hour, secret)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr bool
		checkID bool
	}{
		{
			name:    "valid token",
			token:   validToken,
			secret:  secret,
			wantErr: false,
			checkID: true,
		},
		{
			name:    "expired token",
			token:   expiredToken,
			secret:  secret,
			wantErr: true,
		},
		{
			name:    "wrong secret",
			token:   validToken,
			secret:  "some-other-secret",
			wantErr: true,
		},
		{
			name:    "garbage token",
			token:   "not.a.token",
			secret:  secret,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)

			if tt.wantErr {
				if err == nil {
					t.Error("ValidateToken() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("ValidateToken() error = %v", err)
				return
			}

			if tt.checkID && claims.DeviceID != deviceID {
				t.Errorf("ValidateToken() deviceID = %s, want %s", claims.DeviceID, deviceID)
			}
			if tt.checkID && claims.Role != "lead" {
				t.Errorf("ValidateToken() role = %s, want lead", claims.Role)
			}
		})
	}
}
