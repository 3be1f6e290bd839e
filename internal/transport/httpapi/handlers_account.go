package httpapi

import (
	"net/http"

	"github.com/criptofacil/criptofacil/internal/model"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body")
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "name, email and password are required")
		return
	}

	user, err := s.service.RegisterUser(r.Context(), req.Name, req.Phone, req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body")
		return
	}

	token, user, err := s.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Logout(r.Context(), bearerToken(r)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	user, err := s.service.GetUser(r.Context(), userIDFromCtx(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Email string `json:"email"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body")
		return
	}

	if req.Email == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "email is required")
		return
	}

	userID := userIDFromCtx(r.Context())
	if err := s.service.UpdateContact(r.Context(), userID, req.Phone, req.Email); err != nil {
		respondServiceError(w, err)
		return
	}

	user, err := s.service.GetUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body")
		return
	}

	if req.NewPassword == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "new_password is required")
		return
	}

	if err := s.service.ChangePassword(r.Context(), userIDFromCtx(r.Context()), req.OldPassword, req.NewPassword); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteAccount(r.Context(), userIDFromCtx(r.Context())); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
