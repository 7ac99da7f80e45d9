package jwt

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Alcances que habilitan cada operación del API de facturación.
const (
	ScopeSend   = "billing:send"
	ScopeStatus = "billing:status"
)

// Claims incluye los claims estándar JWT más el cliente que consume el API.
// IssuerNIT restringe el token a un emisor; vacío permite cualquiera.
type Claims struct {
	jwt.RegisteredClaims
	ClientID  string   `json:"client_id"`
	IssuerNIT string   `json:"issuer_nit,omitempty"`
	Scopes    []string `json:"scopes"`
}

// HasScope indica si el token incluye el alcance.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// Generate genera un token JWT firmado para un cliente del API.
func Generate(secret, clientID, issuerNIT string, scopes []string, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		ClientID:  clientID,
		IssuerNIT: issuerNIT,
		Scopes:    scopes,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse valida el token y devuelve sus claims.
// Retorna error si el token es inválido, expirado o tiene firma incorrecta.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("claims inválidos")
	}
	if claims.ClientID == "" {
		return nil, fmt.Errorf("claims inválidos: client_id vacío")
	}
	return claims, nil
}
