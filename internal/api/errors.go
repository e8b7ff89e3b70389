package api

import (
	"encoding/json"
	"net/http"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// Client-facing messages. Existing clients match on these strings.
const (
	msgUserExists          = "Usuário já existe"
	msgRecoverySecretTaken = "Nome do cachorro já cadastrado"
	msgRegisterFailed      = "Erro ao cadastrar usuário"
	msgRegisterFields      = "Usuário, senha e nome do cachorro são obrigatórios."
	msgInvalidRole         = "Perfil inválido."
	msgInvalidRecovery     = "Usuário ou nome do cachorro incorretos"
	msgUserNotFound        = "Usuário não encontrado."
	msgDatabaseAccess      = "Erro ao acessar o banco de dados."
	msgNewPasswordRequired = "Nova senha obrigatória."
	msgPasswordTooLong     = "Senha muito longa."
	msgUpdatePassword      = "Erro ao atualizar a senha."
	msgInvalidCredentials  = "Usuário ou senha incorretos"
	msgTokenMissing        = "Token não fornecido"
	msgAccessDenied        = "Acesso negado"
	msgFetchFailed         = "Erro ao buscar os dados."
	msgProcessFailed       = "Erro ao processar os dados."
	msgClearFailed         = "Erro ao limpar os dados."
	msgInvalidStatus       = "Status inválido."
	msgServicePaused       = "Serviço pausado."
	msgInvalidBody         = "Corpo da requisição inválido."
	msgBodyTooLarge        = "Corpo da requisição muito grande."
	msgInvalidTicket       = "Ticket inválido ou expirado."
	msgInternal            = "Erro interno do servidor."
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeMessage writes a {"message": ...} body, optionally with extra fields.
func writeMessage(w http.ResponseWriter, status int, message string, extra map[string]any) {
	body := map[string]any{"message": message}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeValidationError writes a 400 response for a rejected reading.
func writeValidationError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeValidation, message)
}

// writeConflict reports a duplicate unique field. Existing clients expect
// 400 here, so the status stays Bad Request and the code carries the kind.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeConflict, message)
}

// writeNotFound reports a missing account. The status is 400 for the same
// reason as writeConflict.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}
