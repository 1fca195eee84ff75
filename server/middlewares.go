package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/idowu-gb/MAD-Project/server/auth"
	"github.com/idowu-gb/MAD-Project/server/logger"
	"github.com/idowu-gb/MAD-Project/server/session"
)

type RequestContextKey string

const (
	decodedJWTKey RequestContextKey = "decodedJWT"
	sessionKey    RequestContextKey = "session"
)

type DecodedJWT struct {
	Claims   *auth.SafetripTokenClaims
	ErrorMsg string
}

type ResponseWriterWithStatus struct {
	http.ResponseWriter
	Status int
}

func (r *ResponseWriterWithStatus) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades through the wrapper
func (r *ResponseWriterWithStatus) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer doesn't support hijacking")
	}

	r.Status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := &ResponseWriterWithStatus{
			ResponseWriter: w,
			Status:         http.StatusOK,
		}

		defer func() {
			responseStatus := logger.Green(responseWriter.Status)
			if responseWriter.Status >= http.StatusBadRequest {
				responseStatus = logger.Red(responseWriter.Status)
			}

			logg.Info(
				r.Method, " ",
				r.URL.Path, " ",
				responseStatus, " ",
				logger.Yellow(fmt.Sprintf("[%v]", time.Since(start))))
		}()

		next.ServeHTTP(responseWriter, r)
	})
}

func (app *App) initialContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "application/json")

		// Add decoded token to request context
		ctx := context.WithValue(r.Context(), decodedJWTKey, app.decodeAndVerifyToken(r))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// protectedRouteMiddleware only lets through requests carrying a valid token for a live session
func (app *App) protectedRouteMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodedJWT, _ := r.Context().Value(decodedJWTKey).(DecodedJWT)
		if decodedJWT.ErrorMsg != "" || decodedJWT.Claims == nil {
			writeResponse(w, ResponsePayload{Errors: []string{decodedJWT.ErrorMsg}}, http.StatusUnauthorized)
			return
		}

		s, ok := app.sessions.get(decodedJWT.Claims.Id)
		if !ok || !s.Snapshot().LoggedIn() {
			writeResponse(w, ResponsePayload{Errors: []string{"session has ended"}}, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

// decodeAndVerifyToken reads the token from the Authorization header or, for websocket
// clients that can't set headers, from the 'token' query param
func (app *App) decodeAndVerifyToken(r *http.Request) DecodedJWT {
	token := ""
	authHeaderList := strings.Split(r.Header.Get("Authorization"), "Bearer ")
	if len(authHeaderList) >= 2 {
		token = authHeaderList[1]
	} else {
		token = r.URL.Query().Get("token")
	}

	if token == "" {
		return DecodedJWT{ErrorMsg: "no token provided"}
	}

	tokenClaims, err := auth.DecodeJWT(token, app.keyPair)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	return DecodedJWT{Claims: tokenClaims}
}

func sessionFromContext(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

func claimsFromContext(ctx context.Context) *auth.SafetripTokenClaims {
	decodedJWT, _ := ctx.Value(decodedJWTKey).(DecodedJWT)
	return decodedJWT.Claims
}
