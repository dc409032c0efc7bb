package jwt

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type JWTClaim struct {
	MemberId uint   `json:"member_id"`
	Slug     string `json:"member_slug"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

const JWT_EXPIRATION = 24 * 7 * time.Hour

func GenerateJWT(memberId uint, slug string, role string) (token string, err error) {

	var claims = JWTClaim{
		memberId,
		slug,
		role,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(JWT_EXPIRATION)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	resToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	secret := os.Getenv("JWT_SECRET")
	signedToken, err := resToken.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func ValidateToken(signedToken string) (memberId uint, slug string, role string, err error) {
	token, err := jwt.ParseWithClaims(signedToken, &JWTClaim{}, func(t *jwt.Token) (interface{}, error) { return []byte(os.Getenv("JWT_SECRET")), nil })
	if err != nil {
		return 0, "", "", err
	}
	claims, ok := token.Claims.(*JWTClaim)
	if !ok {
		return 0, "", "", errors.New("error parsing claims")
	}
	if claims.MemberId == 0 && claims.Slug == "" {
		return 0, "", "", errors.New("malformed data")
	}

	return claims.MemberId, claims.Slug, claims.Role, nil
}
