// Package config provides the static process configuration: defaults,
// optional config file (viper) and environment overrides, in that order of
// precedence. Runtime-tunable gameplay values live in the cvar store, not
// here.
package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ServerConfig holds everything the server process needs before the cvar
// store exists.
type ServerConfig struct {
	Port        int
	StatusPort  int
	Hostname    string
	MOTD        string
	Password    string
	TickRate    int
	PlayerLimit int
	MapFile     string
	DataDir     string
	GameVersion string
	MetaServer  string
	ConfigFile  string
}

// DefaultServer returns the stock server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:        25605,
		StatusPort:  8080,
		Hostname:    "gridfort server",
		MOTD:        "Welcome!",
		TickRate:    60,
		PlayerLimit: 32,
		MapFile:     "maps/ctf_well.txt",
		DataDir:     ".",
		GameVersion: "1.0",
	}
}

// Load builds the configuration: defaults, then the optional config file,
// then environment variables.
func Load(configFile string) (ServerConfig, error) {
	cfg := DefaultServer()
	cfg.ConfigFile = configFile

	if configFile != "" {
		v := viper.New()
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, missing := err.(viper.ConfigFileNotFoundError); !missing && !os.IsNotExist(errors.Cause(err)) {
				return cfg, errors.Wrap(err, "read config file")
			}
		} else {
			if v.IsSet("port") {
				cfg.Port = v.GetInt("port")
			}
			if v.IsSet("status_port") {
				cfg.StatusPort = v.GetInt("status_port")
			}
			if v.IsSet("hostname") {
				cfg.Hostname = v.GetString("hostname")
			}
			if v.IsSet("motd") {
				cfg.MOTD = v.GetString("motd")
			}
			if v.IsSet("password") {
				cfg.Password = v.GetString("password")
			}
			if v.IsSet("tickrate") {
				cfg.TickRate = v.GetInt("tickrate")
			}
			if v.IsSet("playerlimit") {
				cfg.PlayerLimit = v.GetInt("playerlimit")
			}
			if v.IsSet("map") {
				cfg.MapFile = v.GetString("map")
			}
			if v.IsSet("data_dir") {
				cfg.DataDir = v.GetString("data_dir")
			}
			if v.IsSet("meta_server") {
				cfg.MetaServer = v.GetString("meta_server")
			}
		}
	}

	if p := getEnvInt("GRIDFORT_PORT", 0); p > 0 {
		cfg.Port = p
	}
	if p := getEnvInt("GRIDFORT_STATUS_PORT", 0); p > 0 {
		cfg.StatusPort = p
	}
	if h := os.Getenv("GRIDFORT_HOSTNAME"); h != "" {
		cfg.Hostname = h
	}
	if pw := os.Getenv("GRIDFORT_PASSWORD"); pw != "" {
		cfg.Password = pw
	}
	if t := getEnvInt("GRIDFORT_TICKRATE", 0); t > 0 {
		cfg.TickRate = t
	}
	if m := os.Getenv("GRIDFORT_MAP"); m != "" {
		cfg.MapFile = m
	}

	return cfg, nil
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
