package conf

import (
	_ "embed"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

//go:embed config-sample.yaml
var configSample []byte

// Path holds the config file location after Init, for the change watcher.
var Path string

var App struct {
	Interval  time.Duration
	Timeout   time.Duration
	CacheTTL  time.Duration
	StateFile string
}

var Retry struct {
	Attempts int
	Backoff  time.Duration
}

type SourceConf struct {
	Type    string   `mapstructure:"type"`
	Iface   string   `mapstructure:"iface"`
	URLs    []string `mapstructure:"urls"`
	Address string   `mapstructure:"address"`
	Filters []string `mapstructure:"filters"`
}

type ProviderConf struct {
	Type          string `mapstructure:"type"`
	Token         string `mapstructure:"token"`
	CreateRecords bool   `mapstructure:"create_records"`
	TTL           int    `mapstructure:"ttl"`
}

type RecordConf struct {
	Name     string   `mapstructure:"name"`
	Type     string   `mapstructure:"type"`
	Provider string   `mapstructure:"provider"`
	Sources  []string `mapstructure:"sources"`
	Check    string   `mapstructure:"check"`
}

var (
	Sources   map[string]SourceConf
	Providers map[string]ProviderConf
	Records   []RecordConf
	Resolvers []string
)

func Init(file string) {
	if _, err := os.Stat(file); err != nil {
		if !os.IsNotExist(err) {
			log.Fatal().Err(err).Msgf("get stat of %s failed", file)
		}
		log.Info().Msgf("config not existed, creating at %s", file)
		if err := os.WriteFile(file, configSample, 0600); err != nil {
			log.Fatal().Err(err).Msgf("create config at %s failed", file)
		}
	}
	Path = file

	viper.SetConfigFile(file)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal().Err(err).Msgf("read config from %s failed", file)
	}

	viper.SetDefault("interval", "5m")
	viper.SetDefault("timeout", "10s")
	viper.SetDefault("cache_ttl", "1h")
	viper.SetDefault("state_file", "/var/lib/ddnswolf/state.json")
	viper.SetDefault("retry.attempts", 5)
	viper.SetDefault("retry.backoff", "2s")

	update()
	validate()
}

func update() {
	App.Interval = viper.GetDuration("interval")
	App.Timeout = viper.GetDuration("timeout")
	App.CacheTTL = viper.GetDuration("cache_ttl")
	App.StateFile = viper.GetString("state_file")
	Retry.Attempts = viper.GetInt("retry.attempts")
	Retry.Backoff = viper.GetDuration("retry.backoff")
	Resolvers = viper.GetStringSlice("resolvers")

	Sources = make(map[string]SourceConf)
	if err := viper.UnmarshalKey("sources", &Sources); err != nil {
		log.Fatal().Err(err).Msg("parse sources failed")
	}
	Providers = make(map[string]ProviderConf)
	if err := viper.UnmarshalKey("providers", &Providers); err != nil {
		log.Fatal().Err(err).Msg("parse providers failed")
	}
	Records = nil
	if err := viper.UnmarshalKey("records", &Records); err != nil {
		log.Fatal().Err(err).Msg("parse records failed")
	}

	if App.Interval < time.Minute {
		log.Warn().Msgf("interval %s too short, clamping to 1m", App.Interval)
		App.Interval = time.Minute
	}
}

func validate() {
	if len(Records) == 0 {
		log.Fatal().Msg("no records configured")
	}
	for _, r := range Records {
		if r.Name == "" {
			log.Fatal().Msg("record without a name")
		}
		if r.Type != "A" && r.Type != "AAAA" {
			log.Fatal().Msgf("record %s: type must be A or AAAA, got %q", r.Name, r.Type)
		}
		if _, ok := Providers[r.Provider]; !ok {
			log.Fatal().Msgf("record %s: unknown provider %q", r.Name, r.Provider)
		}
		if len(r.Sources) == 0 {
			log.Fatal().Msgf("record %s: no sources", r.Name)
		}
		for _, s := range r.Sources {
			if _, ok := Sources[s]; !ok {
				log.Fatal().Msgf("record %s: unknown source %q", r.Name, s)
			}
		}
		if r.Check != "" && r.Check != "provider" && r.Check != "dns" {
			log.Fatal().Msgf("record %s: check must be provider or dns, got %q", r.Name, r.Check)
		}
		if r.Check == "dns" && len(Resolvers) == 0 {
			log.Fatal().Msgf("record %s: check dns requires resolvers", r.Name)
		}
	}
}
