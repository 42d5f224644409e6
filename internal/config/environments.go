package config

import (
	"fmt"
	"sort"
)

// DefaultEnvironment is used when no environment is configured.
const DefaultEnvironment = "production"

// Environment holds the endpoint URLs of one Korgan deployment.
type Environment struct {
	AccountsServer string
	APIBase        string
}

// Environments maps environment names to their endpoints.
var Environments = map[string]Environment{
	"production": {
		AccountsServer: "https://accounts.korgan.io",
		APIBase:        "https://api.korgan.io",
	},
	"staging": {
		AccountsServer: "https://accounts.staging.korgan.io",
		APIBase:        "https://api.staging.korgan.io",
	},
	"local": {
		AccountsServer: "http://localhost:8081",
		APIBase:        "http://localhost:8080",
	},
}

// GetEnvironment returns the endpoints for name. An empty name selects
// DefaultEnvironment.
func GetEnvironment(name string) (Environment, error) {
	if name == "" {
		name = DefaultEnvironment
	}
	env, ok := Environments[name]
	if !ok {
		return Environment{}, fmt.Errorf("unknown environment: %s", name)
	}
	return env, nil
}

// ValidEnvironments returns the environment names, sorted.
func ValidEnvironments() []string {
	names := make([]string, 0, len(Environments))
	for name := range Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
