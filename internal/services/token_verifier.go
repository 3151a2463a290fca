package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/fraudguard-backend/internal/platform/ctxutil"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

var knownRoles = map[string]bool{
	"admin":   true,
	"analyst": true,
	"vendor":  true,
}

// JWTClaims are issued by the identity service; this process only verifies them.
type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type TokenVerifier interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type tokenVerifier struct {
	log       *logger.Logger
	secretKey []byte
}

func NewTokenVerifier(log *logger.Logger, secretKey string) TokenVerifier {
	return &tokenVerifier{
		log:       log.With("service", "TokenVerifier"),
		secretKey: []byte(secretKey),
	}
}

func (v *tokenVerifier) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ctx, fmt.Errorf("missing token")
	}
	if len(v.secretKey) == 0 {
		return ctx, fmt.Errorf("token verification not configured (JWT_SECRET_KEY)")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secretKey, nil
	})
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	userID, err := strconv.ParseUint(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || userID == 0 {
		return ctx, fmt.Errorf("invalid user id in token")
	}
	role := strings.ToLower(strings.TrimSpace(claims.Role))
	if !knownRoles[role] {
		return ctx, fmt.Errorf("unknown role %q", claims.Role)
	}

	rd := ctxutil.GetRequestData(ctx)
	if rd == nil {
		rd = &ctxutil.RequestData{}
	}
	next := *rd
	next.UserID = uint(userID)
	next.Role = role
	return ctxutil.WithRequestData(ctx, &next), nil
}
