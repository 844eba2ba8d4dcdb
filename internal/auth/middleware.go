package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/reservation-api/internal/models"
)

type contextKey string

const actorKey contextKey = "actor"

func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(models.Actor)
	return actor, ok
}

// AuthMiddleware attaches the caller to the request context when it carries
// a valid token. Requests without one pass through; operations that need a
// caller reject them in Authorize.
func (h *AuthHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		in := AuthInput{Authorization: r.Header.Get("Authorization")}
		if c, err := r.Cookie(CookieName); err == nil {
			in.Cookie = CookieName + "=" + c.Value
		}
		tokenString := in.token()
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		p, err := h.resolve(r.Context(), tokenString)
		if err != nil {
			writeProblem(w, err)
			return
		}

		// Sliding session: refresh token if it's more than halfway through its duration
		if !p.expires.IsZero() && time.Until(p.expires) < TokenDuration/2 {
			if newToken, err := h.generateToken(p.actor); err == nil {
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    newToken,
					Expires:  time.Now().Add(TokenDuration),
					HttpOnly: true,
					Path:     "/",
				})
			}
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), p.actor)))
	})
}

// writeProblem renders err as the same problem document huma operations
// return.
func writeProblem(w http.ResponseWriter, err error) {
	var se huma.StatusError
	if !errors.As(err, &se) {
		se = huma.Error500InternalServerError("authentication failed")
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(se.GetStatus())
	json.NewEncoder(w).Encode(se)
}
