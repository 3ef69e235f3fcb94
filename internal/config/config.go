package config

import (
	"fmt"
)

type Config struct {
	ServerAddr     string
	AllowedOrigins []string
}

func NewConfig(serverAddr string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:8000"}
	}

	return &Config{
		ServerAddr:     serverAddr,
		AllowedOrigins: allowedOrigins,
	}, nil
}
