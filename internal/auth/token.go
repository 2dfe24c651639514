package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/safar/farm-market/internal/models"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrInvalidToken        = errors.New("invalid token")
)

// Principal is the authenticated caller carried in the request context.
type Principal struct {
	UserID int64
	Role   models.Role
	FarmID *int64
}

func (p Principal) IsFarmer() bool {
	return p.Role == models.RoleFarmer && p.FarmID != nil
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *TokenIssuer) Issue(user *models.User) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(user.ID, 10),
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}
	if user.FarmID != nil {
		claims["farm_id"] = strconv.FormatInt(*user.FarmID, 10)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (i *TokenIssuer) Parse(raw string) (*Principal, error) {
	parser := jwt.Parser{}
	token, err := parser.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return nil, ErrInvalidToken
	}

	role, _ := claims["role"].(string)
	if role != string(models.RoleCustomer) && role != string(models.RoleFarmer) {
		return nil, ErrInvalidToken
	}

	p := &Principal{UserID: userID, Role: models.Role(role)}
	if raw, ok := claims["farm_id"].(string); ok {
		farmID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, ErrInvalidToken
		}
		p.FarmID = &farmID
	}

	return p, nil
}
