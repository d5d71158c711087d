// @title CourseForge API
// @version 1.0
// @description Backend for CourseForge, a course generation platform. Turns
// @description documents, links and topic requests into structured courses
// @description with multi-level explanations and quizzes.

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"

	"github.com/courseforge/backend/internal/app"
	"github.com/courseforge/backend/internal/config"
	"github.com/courseforge/backend/pkg/configwatcher"
	"github.com/courseforge/backend/pkg/logger"
)

func main() {
	configDir := flag.String("config", "configs", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	go configwatcher.WatchConfig(*configDir+"/config.yaml", application.ReloadAIConfig)

	application.Run()
}
