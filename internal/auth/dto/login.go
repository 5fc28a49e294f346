package dto

type LoginInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	MfaCode   string `json:"mfa_code"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type LoginOutput struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	User         *UserOutput `json:"user"`
}

type OAuthLoginInput struct {
	Provider  string `json:"provider"`
	Code      string `json:"code"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}
