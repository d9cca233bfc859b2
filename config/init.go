package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	cron_config "github.com/customeros/lexsync/internal/cron/config"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/tracing"
)

type Config struct {
	AppConfig       *AppConfig
	Logger          *logger.Config
	Tracing         *tracing.JaegerConfig
	DatabaseConfig  *DatabaseConfig
	ImapConfig      *ImapConfig
	LexwareConfig   *LexwareConfig
	InspectorConfig *InspectorConfig
	StorageConfig   *StorageConfig
	R2StorageConfig *R2StorageConfig
	NotifierConfig  *NotifierConfig
	RabbitMQConfig  *RabbitMQConfig
	ServerConfig    *ServerConfig
	CronConfig      *cron_config.Config
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:       &AppConfig{},
		Logger:          &logger.Config{},
		Tracing:         &tracing.JaegerConfig{},
		DatabaseConfig:  &DatabaseConfig{},
		ImapConfig:      &ImapConfig{},
		LexwareConfig:   &LexwareConfig{},
		InspectorConfig: &InspectorConfig{},
		StorageConfig:   &StorageConfig{},
		R2StorageConfig: &R2StorageConfig{},
		NotifierConfig:  &NotifierConfig{},
		RabbitMQConfig:  &RabbitMQConfig{},
		ServerConfig:    &ServerConfig{},
		CronConfig:      &cron_config.Config{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
