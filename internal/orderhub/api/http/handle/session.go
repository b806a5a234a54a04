package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"tableflow/internal/orderhub/app/services"
	"tableflow/internal/orderhub/domain/dto"
	"tableflow/internal/xpkg/logger"
)

type SessionHandler struct {
	authService *services.AuthService
	mylog       logger.Logger
}

func NewSessionHandler(authService *services.AuthService, mylog logger.Logger) *SessionHandler {
	return &SessionHandler{
		authService: authService,
		mylog:       mylog,
	}
}

// JoinTable opens a customer session for an open table. The raw token is
// returned here and never again.
func (sh *SessionHandler) JoinTable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.JoinTableRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}
		if req.TableID == "" {
			jsonError(w, http.StatusBadRequest, errors.New("table_id is required"))
			return
		}

		raw, session, err := sh.authService.JoinTable(r.Context(), req.TableID)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusCreated, dto.JoinTableResponse{
			Token:     raw,
			SessionID: session.SessionID,
			TableID:   session.TableID,
			ExpiresAt: session.ExpiresAt,
		})
	}
}

// StaffLogin exchanges a live shift QR token for a staff credential.
func (sh *SessionHandler) StaffLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.StaffLoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		raw, token, err := sh.authService.StaffLogin(r.Context(), req.QRToken, req.StaffName, req.Role)
		if err != nil {
			serviceError(w, err)
			return
		}

		sh.mylog.Action("staff_login").Info("staff credential issued", "staff_name", token.StaffName, "role", string(token.Role))
		jsonResponse(w, http.StatusCreated, dto.StaffLoginResponse{
			Token:     raw,
			StaffName: token.StaffName,
			Role:      token.Role,
			ShiftID:   token.ShiftID,
			ExpiresAt: token.ExpiresAt,
		})
	}
}

// ManagerLogin authenticates a password-backed account.
func (sh *SessionHandler) ManagerLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.ManagerLoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}
		if req.Username == "" || req.Password == "" {
			jsonError(w, http.StatusBadRequest, errors.New("username and password are required"))
			return
		}

		token, user, err := sh.authService.ManagerLogin(r.Context(), req.Username, req.Password)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, dto.ManagerLoginResponse{Token: token, Role: user.Role})
	}
}
