package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const DefaultPath = "./config/application.yaml"

type Application struct {
	Server     Server     `koanf:"server"`
	Dashboard  Dashboard  `koanf:"dashboard"`
	Source     Source     `koanf:"source"`
	Refresh    Refresh    `koanf:"refresh"`
	Simulation Simulation `koanf:"simulation"`
	Database   Database   `koanf:"db"`
	Otel       Otel       `koanf:"otel"`
}

type Server struct {
	Addr string `koanf:"addr"`
}

// Dashboard serves the static monitor page.
type Dashboard struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

type Source struct {
	// Type is "http" or "file".
	Type    string `koanf:"type"`
	BaseURL string `koanf:"baseurl"`
	Dir     string `koanf:"dir"`
	// KnownFiles are probed when the base URL does not return a directory listing.
	KnownFiles  []string      `koanf:"knownfiles"`
	Timeout     time.Duration `koanf:"timeout"`
	Concurrency int           `koanf:"concurrency"`
	OAuth       OAuth         `koanf:"oauth"`
}

// OAuth enables client-credentials auth against the plan source when TokenURL is set.
type OAuth struct {
	TokenURL     string   `koanf:"tokenurl"`
	ClientId     string   `koanf:"clientid"`
	ClientSecret string   `koanf:"clientsecret"`
	Scopes       []string `koanf:"scopes"`
}

type Refresh struct {
	Schedule string `koanf:"schedule"`
}

type Simulation struct {
	// Seed makes simulated week hours reproducible. 0 draws from the global generator.
	Seed uint64 `koanf:"seed"`
}

type Database struct {
	Enabled bool   `koanf:"enabled"`
	Host    string `koanf:"host"`
	Port    int    `koanf:"port"`
	User    string `koanf:"user"`
	Pass    string `koanf:"pass"`
	Name    string `koanf:"name"`
	Schema  string `koanf:"schema"`
}

type Otel struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
	Insecure bool   `koanf:"insecure"`
}

func Defaults() Application {
	return Application{
		Server: Server{
			Addr: ":8181",
		},
		Dashboard: Dashboard{
			Enabled: true,
			Dir:     "dashboard",
		},
		Source: Source{
			Type:    "http",
			BaseURL: "http://localhost:8000/.state",
			Dir:     ".state",
			KnownFiles: []string{
				"hydrogen_implementation.json",
				"processor_implementation.json",
				"pre_processor_implementation.json",
			},
			Timeout:     30 * time.Second,
			Concurrency: 4,
		},
		Refresh: Refresh{
			Schedule: "@every 60s",
		},
		Database: Database{
			Enabled: false,
			Host:    "localhost",
			Port:    5432,
			User:    "buildmonitor",
			Pass:    "",
			Name:    "buildmonitor",
			Schema:  "buildmonitor",
		},
	}
}

// Load layers struct defaults, the optional YAML file at path and
// BUILDMONITOR_* environment variables, in that order.
func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "BUILDMONITOR_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "BUILDMONITOR_")), "_", ".")
			if k == "source.knownfiles" || k == "source.oauth.scopes" {
				return k, strings.Split(v, ",")
			}
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
