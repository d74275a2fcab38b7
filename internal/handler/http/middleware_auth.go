package http

import (
	"net/http"
	"strings"

	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/service"
	"github.com/MKhiriev/go-custody-ledger/internal/utils"
	"github.com/MKhiriev/go-custody-ledger/models"
	"github.com/rs/zerolog"
)

// auth is an HTTP middleware that enforces JWT-based authentication.
//
// It extracts the bearer token from the "Authorization" header, validates it
// via [service.AuthService.ParseToken] and stores the resulting
// [models.Caller] in the request context under [utils.CallerCtxKey]. The
// request logger is enriched with the tenant and subject.
//
// Requests are rejected with HTTP 401 Unauthorized when the header is
// absent, malformed, or the token does not validate.
func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Err(ErrEmptyAuthorizationHeader).Send()
			writeCodedError(w, http.StatusUnauthorized, service.CodeUnauthorized, ErrEmptyAuthorizationHeader.Error())
			return
		}

		tokenString, err := getTokenFromAuthHeader(authHeader)
		if err != nil {
			log.Err(err).Send()
			writeCodedError(w, http.StatusUnauthorized, service.CodeUnauthorized, err.Error())
			return
		}

		ctx := r.Context()
		token, err := h.services.AuthService.ParseToken(ctx, tokenString)
		if err != nil {
			log.Err(err).Msg("error occurred during parsing token")
			writeCodedError(w, http.StatusUnauthorized, service.CodeUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}

		caller := token.Caller
		log.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("tenant_id", caller.TenantID).Str("subject", caller.Subject)
		})
		ctx = utils.WithCaller(log.WithContext(ctx), caller)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getTokenFromAuthHeader extracts the token from "Bearer <token>".
func getTokenFromAuthHeader(authHeader string) (string, error) {
	scheme, tokenString, found := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidAuthorizationHeader
	}

	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrEmptyToken
	}

	return tokenString, nil
}

// callerFrom returns the authenticated caller or answers 401.
func callerFrom(w http.ResponseWriter, r *http.Request) (models.Caller, bool) {
	caller, ok := utils.GetCallerFromContext(r.Context())
	if !ok {
		logger.FromRequest(r).Error().Msg(ErrNoCaller.Error())
		writeCodedError(w, http.StatusUnauthorized, service.CodeUnauthorized, ErrNoCaller.Error())
	}
	return caller, ok
}
