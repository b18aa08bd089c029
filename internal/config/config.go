package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sagikazarmark/locafero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var errViperConfigNotFound viper.ConfigFileNotFoundError

type BrokerConfig struct {
	ConfigDir      string `mapstructure:"config-dir" yaml:"config-dir"`
	ListenAddress  string `mapstructure:"address" yaml:"address"`
	RendezvousPort int    `mapstructure:"rendezvous-port" yaml:"rendezvous-port"`
	ReplyCeiling   int    `mapstructure:"reply-ceiling" yaml:"reply-ceiling"`
	InventoryURL   string `mapstructure:"inventory-url" yaml:"inventory-url"`
	RefreshSeconds int    `mapstructure:"refresh-interval" yaml:"refresh-interval"`
	API            APIConfig
}

type APIConfig struct {
	Address string `mapstructure:"api-address" yaml:"api-address"`
	Port    string `mapstructure:"api-port" yaml:"api-port"`
}

type WorkerConfig struct {
	Channel       string `mapstructure:"channel" yaml:"channel"`
	BrokerAddress string `mapstructure:"broker-address" yaml:"broker-address"`
	BrokerPort    int    `mapstructure:"broker-port" yaml:"broker-port"`
	Threads       int    `mapstructure:"threads" yaml:"threads"`
	WorkerID      string `mapstructure:"worker-id" yaml:"worker-id"`
}

func SetupBrokerFlags() {
	pflag.String("config-dir", ".", "configuration directory")
	pflag.String("address", DefaultBrokerAddress, "broker listen address for worker sockets")
	pflag.Int("rendezvous-port", DefaultRendezvousPort, "port answering worker channel queries")
	pflag.Int("reply-ceiling", int(DefaultReplyCeiling.Seconds()), "maximum seconds to wait for a worker reply")
	pflag.String("inventory-url", "", "external device inventory URL for credential refresh")
	pflag.Int("refresh-interval", int(DirectoryRefreshInterval.Seconds()), "credential refresh interval in seconds")
	pflag.String("api-address", DefaultAPIAddress, "HTTP API listen address")
	pflag.String("api-port", DefaultAPIPort, "HTTP API listen port")
	pflag.String("config", "", "config file path")
}

func SetupWorkerFlags() {
	pflag.StringP("channel", "c", "", "channel this worker serves (cisco, huawei, f5, snmp, test, ...)")
	pflag.StringP("broker-address", "s", DefaultBrokerAddress, "broker address")
	pflag.Int("broker-port", DefaultRendezvousPort, "broker rendezvous port")
	pflag.IntP("threads", "t", DefaultPoolSize, "number of concurrent sessions")
	pflag.String("worker-id", "", "worker identity, defaults to hostname-pid")
	pflag.String("config", "", "config file path")
}

func LoadBrokerConfig(configFile string) (*BrokerConfig, error) {
	finder := locafero.Finder{
		Paths: []string{".", "/etc/netgate"},
		Names: locafero.NameWithExtensions("broker", viper.SupportedExts...),
		Type:  locafero.FileTypeFile,
	}

	if configFile != "" {
		path, file := filepath.Split(configFile)
		finder.Paths = []string{path}
		finder.Names = locafero.NameWithExtensions(file, viper.SupportedExts...)
	}

	v := viper.NewWithOptions(viper.WithFinder(finder))

	v.SetDefault("config-dir", ".")
	v.SetDefault("address", DefaultBrokerAddress)
	v.SetDefault("rendezvous-port", DefaultRendezvousPort)
	v.SetDefault("reply-ceiling", int(DefaultReplyCeiling.Seconds()))
	v.SetDefault("inventory-url", "")
	v.SetDefault("refresh-interval", int(DirectoryRefreshInterval.Seconds()))
	v.SetDefault("api-address", DefaultAPIAddress)
	v.SetDefault("api-port", DefaultAPIPort)

	v.SetEnvPrefix("NETGATE_BROKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &errViperConfigNotFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	var config BrokerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.API.Address = v.GetString("api-address")
	config.API.Port = v.GetString("api-port")

	return &config, nil
}

func LoadWorkerConfig(configFile string) (*WorkerConfig, error) {
	v := viper.New()

	v.SetDefault("channel", "")
	v.SetDefault("broker-address", DefaultBrokerAddress)
	v.SetDefault("broker-port", DefaultRendezvousPort)
	v.SetDefault("threads", DefaultPoolSize)
	v.SetDefault("worker-id", "")

	v.SetEnvPrefix("NETGATE_WORKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("worker")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/netgate/")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			if !errors.As(err, &errViperConfigNotFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	var config WorkerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Channel == "" {
		return nil, errors.New("channel is required")
	}

	if config.WorkerID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("failed to get hostname, please set the worker-id")
		}
		config.WorkerID = fmt.Sprintf("%s-%05d", hostname, os.Getpid())
	}

	return &config, nil
}
