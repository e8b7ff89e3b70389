package api

import (
	"errors"
	"net/http"

	"github.com/gustavobizon/sprint-programacao/internal/auth"
)

// registerRequest is the body of POST /register.
type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DogName  string `json:"dogName"`
	Role     string `json:"role"`
}

// recoverRequest is the body of POST /recover-password.
type recoverRequest struct {
	Username string `json:"username"`
	DogName  string `json:"dogName"`
}

// changePasswordRequest is the body of POST /change-password.
type changePasswordRequest struct {
	Username    string `json:"username"`
	NewPassword string `json:"newPassword"`
}

// loginRequest is the body of POST /login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleRegister creates an account. Any valid role may be requested,
// admin included.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeAccountBody(w, r, &req) {
		return
	}

	account, err := s.accounts.Register(r.Context(), auth.RegisterInput{
		Username:       req.Username,
		Password:       req.Password,
		RecoverySecret: req.DogName,
		Role:           auth.Role(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameExists):
			writeConflict(w, msgUserExists)
		case errors.Is(err, auth.ErrRecoverySecretExists):
			writeConflict(w, msgRecoverySecretTaken)
		case errors.Is(err, auth.ErrMissingField):
			writeBadRequest(w, msgRegisterFields)
		case errors.Is(err, auth.ErrInvalidRole):
			writeBadRequest(w, msgInvalidRole)
		case errors.Is(err, auth.ErrPasswordTooLong):
			writeBadRequest(w, msgPasswordTooLong)
		default:
			s.logger.Error("registering account failed", "username", req.Username, "error", err)
			writeInternalError(w, msgRegisterFailed)
		}
		return
	}

	s.logger.Info("account registered", "account_id", account.ID, "role", string(account.Role))
	writeMessage(w, http.StatusCreated, "Usuário cadastrado com sucesso", nil)
}

// handleRecoverPassword answers with the stored password hash when the
// username and dog name both match.
func (s *Server) handleRecoverPassword(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if !s.decodeAccountBody(w, r, &req) {
		return
	}

	hash, err := s.accounts.Recover(r.Context(), req.Username, req.DogName)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRecovery) {
			writeBadRequest(w, msgInvalidRecovery)
			return
		}
		s.logger.Error("password recovery failed", "error", err)
		writeInternalError(w, msgDatabaseAccess)
		return
	}

	writeMessage(w, http.StatusOK, "Validação bem-sucedida.", map[string]any{"password": hash})
}

// handleChangePassword overwrites the password of the named account.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !s.decodeAccountBody(w, r, &req) {
		return
	}

	err := s.accounts.ChangePassword(r.Context(), req.Username, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountNotFound):
			writeNotFound(w, msgUserNotFound)
		case errors.Is(err, auth.ErrMissingField):
			writeBadRequest(w, msgNewPasswordRequired)
		case errors.Is(err, auth.ErrPasswordTooLong):
			writeBadRequest(w, msgPasswordTooLong)
		default:
			s.logger.Error("changing password failed", "username", req.Username, "error", err)
			writeInternalError(w, msgUpdatePassword)
		}
		return
	}

	writeMessage(w, http.StatusOK, "Senha alterada com sucesso!", nil)
}

// handleLogin checks credentials and returns a one-hour session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeAccountBody(w, r, &req) {
		return
	}

	session, err := s.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeBadRequest(w, msgInvalidCredentials)
			return
		}
		s.logger.Error("login failed", "error", err)
		writeInternalError(w, msgDatabaseAccess)
		return
	}

	writeMessage(w, http.StatusOK, "Login realizado com sucesso", map[string]any{
		"token":      session.Token,
		"token_type": "Bearer",
		"expires_in": int(auth.TokenTTL.Seconds()),
	})
}

// decodeAccountBody decodes a JSON account request, writing the error
// response itself when it returns false.
func (s *Server) decodeAccountBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(r, v); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, msgBodyTooLarge)
			return false
		}
		writeBadRequest(w, msgInvalidBody)
		return false
	}
	return true
}
