// Package config loads layered .env files. It only needs to run once in main;
// everything else reads configuration through os.Getenv at the point of use.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnvs loads .env files in priority order. Missing files are fine;
// real environment variables always win over file contents.
func LoadDotEnvs() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	godotenv.Load(".env." + env + ".local")
	godotenv.Load(".env.local")
	godotenv.Load(".env." + env)
	godotenv.Load(".env")
}

// Getenv returns the value of key, or fallback when unset or empty.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
