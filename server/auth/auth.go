package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/idowu-gb/MAD-Project/server/auth/key"
	"golang.org/x/crypto/bcrypt"
)

const TOKEN_TTL = 24 * time.Hour

// SafetripTokenClaims identifies a session: Subject is the user id the session acts as
// and Id is the server side session id
type SafetripTokenClaims struct {
	IsContact bool `json:"is_contact"`
	jwt.StandardClaims
}

func NewTokenClaims(userID uint, sessionID string, isContact bool, now time.Time) SafetripTokenClaims {
	return SafetripTokenClaims{
		IsContact: isContact,
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Id:        sessionID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(TOKEN_TTL).Unix(),
			Issuer:    "safetrip",
		},
	}
}

// UserID returns the claims' Subject as a user id
func (claims *SafetripTokenClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject '%v': %v", claims.Subject, err)
	}
	return uint(id), nil
}

// bcrypt only looks at the first 72 bytes
const MAX_BCRYPT_PASSWORD_LENGTH = 72

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(bcryptInput(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password))
	return err == nil
}

// bcryptInput digests passwords bcrypt would truncate, so every byte counts
func bcryptInput(password string) []byte {
	if len(password) <= MAX_BCRYPT_PASSWORD_LENGTH {
		return []byte(password)
	}

	digest := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(digest[:]))
}

func EncodeJWT(claims SafetripTokenClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)
	token.Header["kid"] = keyPair.Kid

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func DecodeJWT(tokenString string, keyPair *key.KeyPair) (*SafetripTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SafetripTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// validate the alg is what you expect:
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return keyPair.PublicKey, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid jwt: %v", err)
	}

	tokenClaims, ok := token.Claims.(*SafetripTokenClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to SafetripTokenClaims")
	}

	return tokenClaims, nil
}
