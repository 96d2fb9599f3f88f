package service

import "golang.org/x/oauth2"

// PKCE = Proof Key for Code Exchange
// PKCEService defines methods for handling PKCE-related operations
// such as generating code verifiers and their challenges. The provider checks
// the verifier during the token exchange.
type PKCEService interface {
	// gen a 32-byte random value and encode with URL-safe base64
	GenerateCodeVerifier() string
	// compute SHA256(verifier) and base64url-encode the result.
	GenerateCodeChallenge(verifier string) string
}

type pkceService struct{}

func NewPKCEService() PKCEService {
	return pkceService{}
}

func (pkceService) GenerateCodeVerifier() string {
	return oauth2.GenerateVerifier()
}

func (pkceService) GenerateCodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
