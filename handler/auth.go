package handler

import (
	"net/http"

	"github.com/instaflow/authcore"
	"github.com/instaflow/authcore/internal/httpx"
	"github.com/instaflow/authcore/middleware"
)

type meResponse struct {
	User *authcore.PublicUser `json:"user"`
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req authcore.SignUpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.SignUp(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusCreated, res, res.Message)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req authcore.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.Login(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, res, res.Message)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req authcore.RefreshTokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.RefreshToken(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, res, "")
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req authcore.ForgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.ForgotPassword(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, nil, res.Message)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req authcore.ResetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.ResetPassword(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, nil, res.Message)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req authcore.ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.ChangePassword(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, nil, res.Message)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetMe(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, meResponse{User: user}, "")
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Logout(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, nil, res.Message)
}
