package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v2"

	"github.com/joannku/unity-scheduler/pkg/scheduling"
	"github.com/joannku/unity-scheduler/pkg/store"
	"github.com/joannku/unity-scheduler/pkg/utils"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_EXPERIMENTER_JWT_SIGN_KEY = "EXPERIMENTER_JWT_SIGN_KEY"
	ENV_ADMIN_API_KEY             = "ADMIN_API_KEY"
)

const defaultTokenExpiresIn = 4 * time.Hour

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`
		Port         string   `json:"port" yaml:"port"`
	} `json:"gin_config" yaml:"gin_config"`

	// JWT configs
	ExperimenterJWTSignKey   string `json:"experimenter_jwt_sign_key" yaml:"experimenter_jwt_sign_key"`
	ExperimenterJWTExpiresIn string `json:"experimenter_jwt_expires_in" yaml:"experimenter_jwt_expires_in"`

	// Experimenter login passcodes by experimenter ID
	ExperimenterPasscodes map[string]string `json:"experimenter_passcodes" yaml:"experimenter_passcodes"`

	// Keys accepted on the reconcile trigger endpoint
	APIKeys []string `json:"api_keys" yaml:"api_keys"`

	// Record store file locations
	StorePaths store.Paths `json:"store_paths" yaml:"store_paths"`

	Scheduler struct {
		ArmSuffixes      map[string]string `json:"arm_suffixes" yaml:"arm_suffixes"`
		RetryFailedSends bool              `json:"retry_failed_sends" yaml:"retry_failed_sends"`
	} `json:"scheduler" yaml:"scheduler"`
}

var conf config

var (
	storeService     *store.StoreService
	schedulerService *scheduling.Scheduler
	tokenExpiresIn   time.Duration
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

	if conf.ExperimenterJWTSignKey == "" {
		panic("Experimenter JWT sign key not set")
	}
	tokenExpiresIn = defaultTokenExpiresIn
	if conf.ExperimenterJWTExpiresIn != "" {
		tokenExpiresIn, err = utils.ParseDurationString(conf.ExperimenterJWTExpiresIn)
		if err != nil {
			panic(err)
		}
	}

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// init services
	storeService = store.NewStoreService(conf.StorePaths)
	schedulerService = scheduling.New(storeService, scheduling.Options{
		ArmSuffixes:      conf.Scheduler.ArmSuffixes,
		RetryFailedSends: conf.Scheduler.RetryFailedSends,
	})
}

func secretsOverride() {
	if signKey := os.Getenv(ENV_EXPERIMENTER_JWT_SIGN_KEY); signKey != "" {
		conf.ExperimenterJWTSignKey = signKey
	}
	if apiKey := os.Getenv(ENV_ADMIN_API_KEY); apiKey != "" {
		conf.APIKeys = append(conf.APIKeys, apiKey)
	}
}
