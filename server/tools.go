package livedemo

import (
	"log/slog"
	"os"
	"strconv"
)

// FillEnvVar returns the value of a runtime Environment Variable
func FillEnvVar(ev string) string {
	// If the EnvVar doesn't exist return a default string
	value := os.Getenv(ev)
	if value == "" {
		value = "ENOENT"
	}
	return value
}

// FillEnvVarInt returns an integer Environment Variable,
// or the fallback when unset or not a number
func FillEnvVarInt(ev string, fallback int) int {
	value := FillEnvVar(ev)
	if value == "ENOENT" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		slog.Error("Environment variable is not an integer, using default",
			slog.String("var", ev),
			slog.String("value", value),
			slog.Int("default", fallback))
		return fallback
	}
	return i
}

// FillEnvVarBool accepts anything strconv.ParseBool does
func FillEnvVarBool(ev string, fallback bool) bool {
	value := FillEnvVar(ev)
	if value == "ENOENT" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		slog.Error("Environment variable is not a boolean, using default",
			slog.String("var", ev),
			slog.String("value", value),
			slog.Bool("default", fallback))
		return fallback
	}
	return b
}

// UrlCat is variadic, concatenating any set of strings into a URL.
// It can be used to embed a dynamic string alongside static parts of a URI.
func UrlCat(u ...string) string {
	var completeURL string
	for _, p := range u {
		completeURL = completeURL + p
	}
	slog.Debug("New endpoint", slog.String("URL", completeURL))
	return completeURL
}
