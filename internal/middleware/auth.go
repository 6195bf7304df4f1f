package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type contextKey string

const (
	ownerIDKey  contextKey = "owner_id"
	clientIDKey contextKey = "client_id"
)

type TokenClaims struct {
	OwnerID  string
	ClientID string
}

// TokenVerifier checks HS256 bearer tokens. Tokens are issued elsewhere;
// only the subject (owner) and the optional device_id (client) are read.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// GenerateToken signs a token for ownerID. The sync service itself never
// issues tokens; this exists for tooling and tests.
func (v *TokenVerifier) GenerateToken(ownerID, clientID string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": ownerID,
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
	}
	if clientID != "" {
		claims["device_id"] = clientID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

func (v *TokenVerifier) VerifyToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	ownerID, ok := claims["sub"].(string)
	if !ok || ownerID == "" {
		return nil, ErrInvalidToken
	}

	// device_id is optional
	clientID, _ := claims["device_id"].(string)

	return &TokenClaims{OwnerID: ownerID, ClientID: clientID}, nil
}

// Authenticate rejects requests without a valid bearer token and stores the
// token's owner and client in the request context.
func Authenticate(verifier *TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				unauthorized(w)
				return
			}

			claims, err := verifier.VerifyToken(tokenString)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), ownerIDKey, claims.OwnerID)
			ctx = context.WithValue(ctx, clientIDKey, claims.ClientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func OwnerID(ctx context.Context) string {
	id, _ := ctx.Value(ownerIDKey).(string)
	return id
}

func ClientID(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey).(string)
	return id
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"code":  "UNAUTHORIZED",
		"error": ErrInvalidToken.Error(),
	})
}
