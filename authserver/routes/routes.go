package routes

import (
	"github.com/gorilla/mux"

	"authvault/authserver/controllers"
	"authvault/authserver/middleware"
)

// Register mounts the authentication endpoints on r.
func Register(r *mux.Router, ctrl *controllers.AuthController) {
	r.Use(middleware.Logger)

	api := r.PathPrefix("/api/auth").Subrouter()
	api.HandleFunc("/create", ctrl.Create).Methods("POST")
	api.HandleFunc("/login", ctrl.Login).Methods("POST")
	api.HandleFunc("/save-session", ctrl.SaveSession).Methods("POST")
	api.HandleFunc("/change-password", ctrl.ChangePassword).Methods("POST")
	api.HandleFunc("/change-username", ctrl.ChangeUsername).Methods("POST")
	api.HandleFunc("/change-pin", ctrl.ChangePin).Methods("POST")
	api.HandleFunc("/public-name", ctrl.PublicName).Methods("POST")
	api.HandleFunc("/remove", ctrl.Remove).Methods("POST")
}
