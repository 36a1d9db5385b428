package config

import (
	"fmt"
)

type Config struct {
	ServerAddr     string
	DatabaseDSN    string
	UploadsDir     string
	AvatarsDir     string
	UsersFile      string
	AllowedOrigins []string
}

func NewConfig(serverAddr, databaseDSN, uploadsDir, avatarsDir, usersFile string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if uploadsDir == "" {
		return nil, fmt.Errorf("uploads directory cannot be empty")
	}

	return &Config{
		ServerAddr:     serverAddr,
		DatabaseDSN:    databaseDSN,
		UploadsDir:     uploadsDir,
		AvatarsDir:     avatarsDir,
		UsersFile:      usersFile,
		AllowedOrigins: allowedOrigins,
	}, nil
}
