package main

import (
	"storydesk/cmd/handlers"
	"storydesk/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
