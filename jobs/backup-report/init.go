package main

import (
	"log/slog"
	"os"

	"gopkg.in/yaml.v2"

	sc "github.com/joannku/unity-scheduler/pkg/smtp-client"
	"github.com/joannku/unity-scheduler/pkg/utils"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_SMTP_PASSWORD = "SMTP_PASSWORD"
)

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Directory holding the live CSV files to report on
	DataDir string `json:"data_dir" yaml:"data_dir"`

	SMTPServerConfig sc.SmtpServerList `json:"smtp_server_config" yaml:"smtp_server_config"`

	Report struct {
		To []string `json:"to" yaml:"to"`
	} `json:"report" yaml:"report"`
}

var conf config

var smtpClients *sc.SmtpClients

func init() {
	// Read config from file
	yamlFile, err := os.ReadFile(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		panic(err)
	}

	err = yaml.UnmarshalStrict(yamlFile, &conf)
	if err != nil {
		panic(err)
	}

	// Init logger:
	utils.InitLogger(
		conf.Logging.LogLevel,
		conf.Logging.IncludeSrc,
		conf.Logging.LogToFile,
		conf.Logging.Filename,
		conf.Logging.MaxSize,
		conf.Logging.MaxAge,
		conf.Logging.MaxBackups,
		conf.Logging.CompressOldLogs,
	)

	// Override secrets from environment variables
	secretsOverride()

	smtpClients, err = sc.NewSmtpClients(conf.SMTPServerConfig)
	if err != nil {
		slog.Error("Error creating SMTP clients", slog.String("error", err.Error()))
		panic("Error creating SMTP clients")
	}
}

func secretsOverride() {
	if password := os.Getenv(ENV_SMTP_PASSWORD); password != "" {
		for i := range conf.SMTPServerConfig.Servers {
			conf.SMTPServerConfig.Servers[i].SetPassword(password)
		}
	}
}
