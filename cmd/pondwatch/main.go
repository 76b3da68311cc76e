// Command pondwatch is a terminal dashboard for the AquaSeer API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env file not loaded: %v", err)
	}

	api := flag.String("api", envOr("POND_API_URL", "http://localhost:8080"), "AquaSeer API base URL")
	token := flag.String("token", os.Getenv("POND_API_TOKEN"), "session token")
	email := flag.String("email", os.Getenv("POND_EMAIL"), "sign in with this email when no token is given")
	password := flag.String("password", os.Getenv("POND_PASSWORD"), "password for -email")
	interval := flag.Duration("interval", 5*time.Second, "refresh interval")
	flag.Parse()

	m := newModel(newAPIClient(*api, *token), *email, *password, *interval)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
