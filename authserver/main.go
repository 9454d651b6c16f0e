// Command authserver exposes the authentication engine over HTTP, adapted
// from walletserver's config -> service -> controller -> router wiring.
package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"authvault/authserver/config"
	"authvault/authserver/controllers"
	"authvault/authserver/routes"
	"authvault/authserver/services"
	pkgconfig "authvault/pkg/config"
)

func main() {
	if err := config.Load(); err != nil {
		logrus.Fatalf("load server config: %v", err)
	}

	cfg, err := pkgconfig.LoadFromEnv()
	if err != nil {
		logrus.Fatalf("load engine config: %v", err)
	}

	svc, err := services.NewService(cfg)
	if err != nil {
		logrus.Fatalf("init auth service: %v", err)
	}
	defer svc.Close()

	ctrl := controllers.NewAuthController(svc)

	r := mux.NewRouter()
	routes.Register(r, ctrl)

	addr := ":" + config.AppConfig.Port
	logrus.Infof("authserver listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logrus.Fatalf("server error: %v", err)
	}
}
