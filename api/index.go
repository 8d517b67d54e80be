package handler

import (
	"benzback/config"
	"benzback/di"
	"benzback/shared/logger"
	"net/http"
	"sync"
)

var (
	server     http.Handler
	serverOnce sync.Once
)

func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()

	serverOnce.Do(func() {
		cfg := config.Get()

		logger.InitLogger()

		logger.SetLogLevel(cfg)

		server = di.InitializeService()
	})

	server.ServeHTTP(w, r)
}
