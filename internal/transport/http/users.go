package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eventra/eventra/internal/app"
	"github.com/eventra/eventra/internal/domain"
)

// UserRegistrar is the minimal interface needed to register an account.
type UserRegistrar interface {
	Register(ctx context.Context, in app.RegisterInput) (domain.User, error)
}

// UserAuthenticator is the minimal interface needed to log in.
type UserAuthenticator interface {
	Login(ctx context.Context, email, password string) (domain.User, string, error)
}

// ProfileGetter is the minimal interface needed to read a profile.
type ProfileGetter interface {
	GetProfile(ctx context.Context, userID string) (domain.User, error)
}

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	ProfileInfo string `json:"profile_info"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	ProfileInfo string `json:"profile_info,omitempty"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        string(u.Role),
		ProfileInfo: u.ProfileInfo,
	}
}

// HandleRegister returns a POST handler creating an account.
func HandleRegister(svc UserRegistrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		user, err := svc.Register(r.Context(), app.RegisterInput{
			Name:        req.Name,
			Email:       req.Email,
			Password:    req.Password,
			Role:        domain.Role(req.Role),
			ProfileInfo: req.ProfileInfo,
		})
		if err != nil {
			writeUserError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toUserResponse(user))
	}
}

// HandleLogin returns a POST handler exchanging credentials for a token.
func HandleLogin(svc UserAuthenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		user, token, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeUserError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, loginResponse{
			Token: token,
			User:  toUserResponse(user),
		})
	}
}

// HandleProfile returns a GET handler for a user profile by id.
func HandleProfile(svc ProfileGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.GetProfile(r.Context(), r.PathValue("id"))
		if err != nil {
			writeUserError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

func writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidRegistration):
		writeError(w, http.StatusBadRequest, codeInvalidRegistration, err.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, codeEmailTaken, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, codeInvalidCredentials, err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, codeUserNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
