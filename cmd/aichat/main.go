package main

import (
	"github.com/joho/godotenv"

	"github.com/diogo/aichat/internal/commands"
)

func main() {
	// A missing .env is normal; the environment and config file still apply.
	_ = godotenv.Load()

	commands.Execute()
}
