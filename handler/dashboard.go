package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/instaflow/authcore"
	"github.com/instaflow/authcore/internal/httpx"
	"github.com/instaflow/authcore/middleware"
	"github.com/instaflow/authcore/store"
)

// identity is what the dashboard needs to route a user by type and scope
// its data by owner.
type identity struct {
	UserID  string         `json:"userId"`
	Email   string         `json:"email"`
	Type    store.UserType `json:"type"`
	OwnerID *string        `json:"ownerId"`
	Page    store.Page     `json:"page,omitempty"`
}

func currentIdentity(r *http.Request) identity {
	claims := middleware.GetClaims(r.Context())
	ownerID, _ := middleware.GetOwnerID(r.Context())
	return identity{
		UserID:  claims.UserID,
		Email:   claims.Email,
		Type:    claims.Type,
		OwnerID: ownerID,
	}
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	httpx.WriteOK(w, http.StatusOK, currentIdentity(r), "")
}

// pageGate dispatches to the read gate of the requested page.
func (h *Handler) pageGate(w http.ResponseWriter, r *http.Request) {
	gate, ok := h.pages[store.Page(chi.URLParam(r, "page"))]
	if !ok {
		notFound(w, r)
		return
	}
	gate.ServeHTTP(w, r)
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	id := currentIdentity(r)
	id.Page = store.Page(chi.URLParam(r, "page"))
	httpx.WriteOK(w, http.StatusOK, id, "")
}

var _ AuthService = (*authcore.Service)(nil)
