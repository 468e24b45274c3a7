package api

// DeviceKeyRequest registers a device and requests an access token.
// AccountKey is the shared secret that authorizes device enrollment.
type DeviceKeyRequest struct {
	DeviceID   string `json:"device_id"`
	AccountKey string `json:"account_key"`
	AppVersion string `json:"app_version"`
}

// TokenResponse carries an issued device access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ErrorResponse is the generic error body returned by the server.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
