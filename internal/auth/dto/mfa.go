package dto

type MfaSetupOutput struct {
	Secret     string `json:"secret"`
	QRCode     string `json:"qr_code"`
	SetupToken string `json:"setup_token"`
}

type MfaVerifyInput struct {
	SetupToken string `json:"setup_token"`
	Code       string `json:"code"`
}

type MfaVerifyOutput struct {
	Message       string   `json:"message"`
	RecoveryCodes []string `json:"recovery_codes"`
}

type MfaDisableInput struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}
