package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/joannku/unity-scheduler/pkg/botsync"
	"github.com/joannku/unity-scheduler/pkg/store"
	"github.com/joannku/unity-scheduler/pkg/utils"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_BOT_PLATFORM_AUTH_KEY = "BOT_PLATFORM_AUTH_KEY"
)

const defaultRequestTimeout = 30 * time.Second

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Record store file locations
	StorePaths store.Paths `json:"store_paths" yaml:"store_paths"`

	BotPlatform botsync.Config `json:"bot_platform" yaml:"bot_platform"`

	// Local CSV mirror of the bot platform's user table
	BotUsersPath string `json:"bot_users_path" yaml:"bot_users_path"`

	// Directory the pulled bot platform tables are written into
	PullDir string `json:"pull_dir" yaml:"pull_dir"`

	RequestTimeout string `json:"request_timeout" yaml:"request_timeout"`
}

var conf config

var syncService *botsync.SyncService

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

	requestTimeout := defaultRequestTimeout
	if conf.RequestTimeout != "" {
		requestTimeout, err = utils.ParseDurationString(conf.RequestTimeout)
		if err != nil {
			panic(err)
		}
	}

	storeService := store.NewStoreService(conf.StorePaths)
	client := botsync.NewClient(conf.BotPlatform, requestTimeout)
	syncService = botsync.NewSyncService(client, storeService, conf.BotUsersPath)
}

func secretsOverride() {
	if authKey := os.Getenv(ENV_BOT_PLATFORM_AUTH_KEY); authKey != "" {
		conf.BotPlatform.AuthKey = authKey
	}
}
