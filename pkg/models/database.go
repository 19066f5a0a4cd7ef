package models

import "time"

// Database holds connection settings for the relational store.
type Database struct {
	Host               string            `json:"host"`
	Port               int               `json:"port"`
	Database           string            `json:"database"`
	Username           string            `json:"username"`
	Password           string            `json:"password"`
	SSLMode            string            `json:"ssl_mode"`
	ApplicationName    string            `json:"application_name"`
	MaxConnections     int32             `json:"max_connections"`
	MinConnections     int32             `json:"min_connections"`
	StatementTimeout   time.Duration     `json:"statement_timeout"`
	HealthCheckPeriod  time.Duration     `json:"health_check_period"`
	ExtraRuntimeParams map[string]string `json:"extra_runtime_params,omitempty"`
}
