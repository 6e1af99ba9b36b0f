package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"draftloop/plugins/llm"
	"draftloop/plugins/sqlite"
	"draftloop/runtime"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var llmConfig llm.Config
	err := runtime.InitializeConfig(&llmConfig, map[string]any{
		"base_url": os.Getenv("LLM_BASE_URL"),
		"api_key":  os.Getenv("LLM_API_KEY"),
	})
	if err != nil {
		log.Fatalf("Error initializing llm config: %v", err)
	}

	checkpoints, err := sqlite.NewStore(sqlite.Config{Path: "draftloop.db"})
	if err != nil {
		log.Fatalf("Error opening checkpoint store: %v", err)
	}
	defer checkpoints.Close()

	registry := runtime.NewRegistry()
	if err := registry.Register(llm.NewGenerateStep()); err != nil {
		log.Fatalf("Error registering step: %v", err)
	}
	if err := registry.Register(llm.NewCritiqueStep("generate")); err != nil {
		log.Fatalf("Error registering step: %v", err)
	}

	engine := runtime.NewEngine(logger)
	orchestrator := runtime.NewOrchestrator(logger, registry, engine, checkpoints)

	app, err := runtime.NewApp("workflows", registry, orchestrator, llm.NewClient(llmConfig), nil)
	if err != nil {
		log.Fatalf("Error initializing app: %v", err)
	}

	g := gin.Default()

	runtime.RegisterRoutes(g, app, logger)

	if err := g.Run(":8080"); err != nil {
		log.Fatalf("Error running server: %v", err)
	}
}
