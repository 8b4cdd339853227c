package server

import (
	"errors"
	"net/http"
	"path"

	"github.com/jrsteele09/go-clinic-client/auth"
	clinicerrors "github.com/jrsteele09/go-clinic-client/internal/errors"
	refreshtoken "github.com/jrsteele09/go-clinic-client/token/refresh"
	"github.com/jrsteele09/go-clinic-client/users"
	"github.com/rs/zerolog/log"
)

// LoginHandler exchanges credentials for an access token and a refresh cookie
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds auth.Credentials
		if !decodeJSON(w, r, &creds) {
			return
		}
		if err := s.validator.ValidateCredentials(creds); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		user, err := s.repos.Users.GetByEmail(creds.Email)
		if err != nil || !users.CheckPasswordHash(creds.Password, user.PasswordHash) {
			// Same answer for unknown email and wrong password
			writeError(w, http.StatusUnauthorized, "wrong email or password")
			return
		}

		s.startSession(w, r, user, http.StatusOK, "login")
	}
}

// RegisterHandler creates a patient account and signs it in
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var profile auth.Profile
		if !decodeJSON(w, r, &profile) {
			return
		}
		if err := s.validator.ValidateProfile(profile); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		if _, err := s.repos.Users.GetByEmail(profile.Email); err == nil {
			writeError(w, http.StatusConflict, "an account with this email already exists")
			return
		} else if !errors.Is(err, clinicerrors.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "failed to look up account")
			return
		}

		hash, err := users.HashPassword(profile.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}

		roles := profile.Roles
		if len(roles) == 0 {
			roles = []users.RoleType{users.RolePatient}
		}
		user := &users.User{
			FirstName:    profile.FirstName,
			LastName:     profile.LastName,
			Email:        profile.Email,
			Roles:        roles,
			PasswordHash: hash,
		}
		if err := s.repos.Users.Upsert(user); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create account")
			return
		}
		log.Info().Str("user", user.ID).Str("email", user.Email).Msg("account registered")

		s.startSession(w, r, user, http.StatusCreated, "register")
	}
}

// RefreshHandler rotates the refresh cookie and issues a new access token.
// It is the only route that reads the cookie.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(refreshCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "no refresh token")
			return
		}

		rotated, userID, err := s.refresh.Rotate(cookie.Value)
		if errors.Is(err, refreshtoken.ErrInvalidRefreshToken) {
			s.clearRefreshCookie(w, r)
			writeError(w, http.StatusUnauthorized, "refresh token is invalid or expired")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to rotate refresh token")
			return
		}

		user, err := s.repos.Users.GetByID(userID)
		if err != nil {
			_ = s.refresh.Delete(rotated)
			s.clearRefreshCookie(w, r)
			writeError(w, http.StatusUnauthorized, "account no longer exists")
			return
		}

		accessToken, err := s.issuer.CreateAccessToken(user)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to issue access token")
			return
		}
		s.metrics.issued.WithLabelValues("refresh").Inc()
		s.setRefreshCookie(w, r, rotated)
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": accessToken})
	}
}

// LogoutHandler revokes whatever credentials the request carries. It always
// succeeds: a client that is already signed out is not an error.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
			if err := s.refresh.Delete(cookie.Value); err != nil && !errors.Is(err, clinicerrors.ErrNotFound) {
				log.Warn().Err(err).Msg("failed to delete refresh token")
			}
		}
		if raw, ok := bearerToken(r); ok {
			if vt, err := s.issuer.Verify(raw); err == nil {
				s.issuer.Revoke(vt)
			}
		}
		s.clearRefreshCookie(w, r)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, user *users.User, status int, grant string) {
	accessToken, err := s.issuer.CreateAccessToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue access token")
		return
	}
	refreshToken, err := s.refresh.Create(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue refresh token")
		return
	}

	s.metrics.issued.WithLabelValues(grant).Inc()
	s.setRefreshCookie(w, r, refreshToken)
	writeJSON(w, status, auth.Result{AccessToken: accessToken, User: user})
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, r *http.Request, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     s.cookiePath(),
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.refresh.Expiry().Seconds()),
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     s.cookiePath(),
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

// cookiePath scopes the refresh cookie to the auth routes.
func (s *Server) cookiePath() string {
	return path.Dir(s.config.GetRefreshPath())
}
