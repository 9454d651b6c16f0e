package controllers

import (
	"encoding/json"
	"net/http"

	"authvault/authserver/services"
	"authvault/core"
)

// AuthController provides HTTP handlers for the nine authentication flows.
type AuthController struct {
	svc *services.AuthService
}

func NewAuthController(svc *services.AuthService) *AuthController {
	return &AuthController{svc: svc}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sessionFromRequest(r *http.Request, svc *services.AuthService) (string, *core.Engine, bool) {
	token := r.Header.Get("X-Session-Token")
	if token == "" {
		return "", nil, false
	}
	engine, ok := svc.Session(token)
	return token, engine, ok
}

// Create handles POST /api/auth/create: builds system packets and the
// first TMID, then registers the resulting session.
func (ac *AuthController) Create(w http.ResponseWriter, r *http.Request) {
	var req struct{ Username, PIN, Password string }
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !core.CheckUsername(req.Username) || !core.CheckPin(req.PIN) || !core.CheckPassword(req.Password) {
		http.Error(w, "invalid username, PIN, or password", http.StatusBadRequest)
		return
	}

	token, engine := ac.svc.NewSession()
	if code := engine.CreateUserSysPackets(req.Username, req.PIN); code != core.ResultSuccess {
		ac.svc.EndSession(token)
		writeJSON(w, http.StatusConflict, map[string]string{"result": code.String()})
		return
	}
	if code := engine.CreateTmidPacket(req.Username, req.PIN, req.Password, []byte{}); code != core.ResultSuccess {
		ac.svc.EndSession(token)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"result": code.String()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": token, "result": core.ResultSuccess.String()})
}

// Login handles POST /api/auth/login: resolves the account, then verifies
// the password, returning a session token on success.
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req struct{ Username, PIN, Password string }
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, engine := ac.svc.NewSession()
	if code := engine.GetUserInfo(req.Username, req.PIN); code != core.ResultUserExists {
		ac.svc.EndSession(token)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"result": code.String()})
		return
	}
	code, _ := engine.GetUserData(req.Password)
	if code != core.ResultSuccess {
		ac.svc.EndSession(token)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"result": code.String()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "result": core.ResultSuccess.String()})
}

// SaveSession handles POST /api/auth/save-session.
func (ac *AuthController) SaveSession(w http.ResponseWriter, r *http.Request) {
	_, engine, ok := sessionFromRequest(r, ac.svc)
	if !ok {
		http.Error(w, "missing or unknown session token", http.StatusUnauthorized)
		return
	}
	var req struct{ DataMap []byte }
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	code := engine.SaveSession(req.DataMap)
	writeJSON(w, http.StatusOK, map[string]string{"result": code.String()})
}

// ChangePassword handles POST /api/auth/change-password.
func (ac *AuthController) ChangePassword(w http.ResponseWriter, r *http.Request) {
	_, engine, ok := sessionFromRequest(r, ac.svc)
	if !ok {
		http.Error(w, "missing or unknown session token", http.StatusUnauthorized)
		return
	}
	var req struct {
		DataMap     []byte
		NewPassword string
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	code := engine.ChangePassword(req.DataMap, req.NewPassword)
	writeJSON(w, http.StatusOK, map[string]string{"result": code.String()})
}

// ChangeUsername handles POST /api/auth/change-username.
func (ac *AuthController) ChangeUsername(w http.ResponseWriter, r *http.Request) {
	_, engine, ok := sessionFromRequest(r, ac.svc)
	if !ok {
		http.Error(w, "missing or unknown session token", http.StatusUnauthorized)
		return
	}
	var req struct {
		DataMap     []byte
		NewUsername string
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	code := engine.ChangeUsername(req.DataMap, req.NewUsername)
	writeJSON(w, http.StatusOK, map[string]string{"result": code.String()})
}

// ChangePin handles POST /api/auth/change-pin.
func (ac *AuthController) ChangePin(w http.ResponseWriter, r *http.Request) {
	_, engine, ok := sessionFromRequest(r, ac.svc)
	if !ok {
		http.Error(w, "missing or unknown session token", http.StatusUnauthorized)
		return
	}
	var req struct {
		DataMap []byte
		NewPin  string
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	code := engine.ChangePin(req.DataMap, req.NewPin)
	writeJSON(w, http.StatusOK, map[string]string{"result": code.String()})
}

// PublicName handles POST /api/auth/public-name.
func (ac *AuthController) PublicName(w http.ResponseWriter, r *http.Request) {
	_, engine, ok := sessionFromRequest(r, ac.svc)
	if !ok {
		http.Error(w, "missing or unknown session token", http.StatusUnauthorized)
		return
	}
	var req struct{ PublicUsername string }
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	code := engine.CreatePublicName(req.PublicUsername)
	writeJSON(w, http.StatusOK, map[string]string{"result": code.String()})
}

// Remove handles POST /api/auth/remove.
func (ac *AuthController) Remove(w http.ResponseWriter, r *http.Request) {
	token, engine, ok := sessionFromRequest(r, ac.svc)
	if !ok {
		http.Error(w, "missing or unknown session token", http.StatusUnauthorized)
		return
	}
	rows := []core.KeyAtlasRow{
		{Kind: core.KindANMID}, {Kind: core.KindANSMID}, {Kind: core.KindANTMID},
		{Kind: core.KindMAID}, {Kind: core.KindANMAID},
	}
	code := engine.RemoveMe(rows)
	ac.svc.EndSession(token)
	writeJSON(w, http.StatusOK, map[string]string{"result": code.String()})
}
