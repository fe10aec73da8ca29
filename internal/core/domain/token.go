package domain

// TokenPair is the access/refresh pair handed out on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AccessClaims is the identity carried by a verified access token.
type AccessClaims struct {
	UserID   string
	Email    string
	UserName string
	FullName string
}

// RefreshClaims is the identity carried by a verified refresh token.
type RefreshClaims struct {
	UserID string
}
