package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/pliu/anonchat/internal/auth"
)

const operatorName = "operator"

type Credentials struct {
	Password string `json:"password"`
}

// AuthHandler logs the dashboard operator in against a single bcrypt hash.
type AuthHandler struct {
	Sessions     *auth.Sessions
	PasswordHash string
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := auth.CheckPassword(h.PasswordHash, creds.Password); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.Sessions.SignCookie(operatorName)
	if err != nil {
		log.Printf("[dashboard] signing session failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.Sessions.TTL.Seconds()),
	})
	writeJSON(w, http.StatusOK, map[string]string{"operator": operatorName})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}
