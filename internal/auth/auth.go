package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/reservation-api/internal/apperr"
	"github.com/gdg-garage/reservation-api/internal/inventory"
	"github.com/gdg-garage/reservation-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenDuration = 24 * time.Hour
	CookieName    = "auth_token"
)

type AuthHandler struct {
	secret []byte
	users  *inventory.Store
}

func NewAuthHandler(secret string, users *inventory.Store) *AuthHandler {
	return &AuthHandler{secret: []byte(secret), users: users}
}

// AuthInput carries the credentials huma operations accept: a bearer token
// or the auth_token cookie.
type AuthInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
	Cookie        string `header:"Cookie" doc:"Cookie carrying auth_token"`
}

func (in AuthInput) token() string {
	if t, ok := strings.CutPrefix(in.Authorization, "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	if in.Cookie == "" {
		return ""
	}
	header := http.Header{}
	header.Add("Cookie", in.Cookie)
	req := http.Request{Header: header}
	if c, err := req.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func (h *AuthHandler) GenerateToken(user models.User) (string, error) {
	return h.generateToken(models.Actor{UserID: user.ID, Role: user.Role})
}

func (h *AuthHandler) generateToken(actor models.Actor) (string, error) {
	claims := jwt.MapClaims{
		"user_id": actor.UserID,
		"role":    string(actor.Role),
		"exp":     time.Now().Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.secret)
}

type parsedToken struct {
	actor   models.Actor
	expires time.Time
}

func (h *AuthHandler) parse(tokenString string) (*parsedToken, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return nil, errors.New("invalid token claims")
	}
	p := &parsedToken{actor: models.Actor{UserID: uint(userIDFloat)}}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		p.expires = exp.Time
	}
	return p, nil
}

// resolve verifies tokenString and loads the caller from the store. The role
// always comes from the stored user, never from the token, so a demotion
// takes effect on the next request.
func (h *AuthHandler) resolve(ctx context.Context, tokenString string) (*parsedToken, error) {
	p, err := h.parse(tokenString)
	if err != nil {
		return nil, huma.Error401Unauthorized("Unauthorized: Invalid token")
	}
	user, err := h.users.GetUser(ctx, p.actor.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, huma.Error401Unauthorized("Unauthorized: Unknown user")
	}
	if err != nil {
		return nil, huma.Error503ServiceUnavailable(apperr.MessageOf(err))
	}
	p.actor.Role = user.Role
	return p, nil
}

// Authorize resolves the caller, preferring an actor the middleware already
// put on ctx.
func (h *AuthHandler) Authorize(ctx context.Context, in AuthInput) (models.Actor, error) {
	if actor, ok := ActorFrom(ctx); ok {
		return actor, nil
	}
	tokenString := in.token()
	if tokenString == "" {
		return models.Actor{}, huma.Error401Unauthorized("Unauthorized: No token found")
	}
	p, err := h.resolve(ctx, tokenString)
	if err != nil {
		return models.Actor{}, err
	}
	return p.actor, nil
}

type MeInput struct {
	AuthInput
}

type MeResponse struct {
	Body struct {
		ID    uint        `json:"id"`
		Name  string      `json:"name"`
		Email string      `json:"email"`
		Role  models.Role `json:"role"`
	}
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *MeInput) (*MeResponse, error) {
	actor, err := h.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	user, err := h.users.GetUser(ctx, actor.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, huma.Error404NotFound("User not found")
	}
	if err != nil {
		return nil, huma.Error503ServiceUnavailable(apperr.MessageOf(err))
	}

	res := &MeResponse{}
	res.Body.ID = user.ID
	res.Body.Name = user.Name
	res.Body.Email = user.Email
	res.Body.Role = user.Role
	return res, nil
}
