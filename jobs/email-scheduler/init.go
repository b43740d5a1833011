package main

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/joannku/unity-scheduler/pkg/backup"
	"github.com/joannku/unity-scheduler/pkg/messaging/dispatch"
	"github.com/joannku/unity-scheduler/pkg/scheduling"
	sc "github.com/joannku/unity-scheduler/pkg/smtp-client"
	"github.com/joannku/unity-scheduler/pkg/store"
	"github.com/joannku/unity-scheduler/pkg/utils"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_SMTP_PASSWORD = "SMTP_PASSWORD"
)

const defaultCourtesyDelay = 2 * time.Second

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Record store file locations
	StorePaths store.Paths `json:"store_paths" yaml:"store_paths"`

	Backup struct {
		LocalDir      string `json:"local_dir" yaml:"local_dir"`
		BackupDir     string `json:"backup_dir" yaml:"backup_dir"`
		RetentionDays int    `json:"retention_days" yaml:"retention_days"`
	} `json:"backup" yaml:"backup"`

	Scheduler struct {
		ArmSuffixes      map[string]string `json:"arm_suffixes" yaml:"arm_suffixes"`
		RetryFailedSends bool              `json:"retry_failed_sends" yaml:"retry_failed_sends"`
		CourtesyDelay    string            `json:"courtesy_delay" yaml:"courtesy_delay"`
		CalendarLocation string            `json:"calendar_location" yaml:"calendar_location"`
	} `json:"scheduler" yaml:"scheduler"`

	SMTPServerConfig sc.SmtpServerList `json:"smtp_server_config" yaml:"smtp_server_config"`

	Report struct {
		Enabled bool     `json:"enabled" yaml:"enabled"`
		To      []string `json:"to" yaml:"to"`
	} `json:"report" yaml:"report"`
}

var conf config

var (
	storeService     *store.StoreService
	schedulerService *scheduling.Scheduler
	backupService    *backup.Service
	smtpClients      *sc.SmtpClients
	dispatcher       *dispatch.Dispatcher
)

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

	// init services
	storeService = store.NewStoreService(conf.StorePaths)
	schedulerService = scheduling.New(storeService, scheduling.Options{
		ArmSuffixes:      conf.Scheduler.ArmSuffixes,
		RetryFailedSends: conf.Scheduler.RetryFailedSends,
	})
	backupService = backup.NewService(conf.Backup.LocalDir, conf.Backup.BackupDir, conf.Backup.RetentionDays)

	smtpClients, err = sc.NewSmtpClients(conf.SMTPServerConfig)
	if err != nil {
		slog.Error("Error creating SMTP clients", slog.String("error", err.Error()))
		panic("Error creating SMTP clients")
	}

	courtesyDelay := defaultCourtesyDelay
	if conf.Scheduler.CourtesyDelay != "" {
		courtesyDelay, err = utils.ParseDurationString(conf.Scheduler.CourtesyDelay)
		if err != nil {
			panic(err)
		}
	}
	dispatcher = dispatch.NewDispatcher(
		storeService,
		smtpClients,
		conf.Scheduler.CalendarLocation,
		courtesyDelay,
	)
}

func secretsOverride() {
	if password := os.Getenv(ENV_SMTP_PASSWORD); password != "" {
		for i := range conf.SMTPServerConfig.Servers {
			conf.SMTPServerConfig.Servers[i].SetPassword(password)
		}
	}
}
