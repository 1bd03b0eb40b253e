package jwttoken

import (
	id "volunteerhub/pkg/domain"
	authmw "volunteerhub/pkg/platform/middleware/auth"
	"volunteerhub/pkg/requestcontext"
)

func ToMiddlewareClaims(claims *Claims) (*authmw.JWTClaims, error) {
	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{
		UserID: userID,
		Role:   requestcontext.Role(claims.Role),
		JTI:    claims.ID,
	}, nil
}

type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims)
}
