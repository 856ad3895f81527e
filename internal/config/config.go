// Copyright 2024 Redpanda Data, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/redpanda-data/slack-flow-bridge/internal/log"
)

// Environment variables read at start-up.
const (
	EnvConfig              = "SLACK_FLOW_CONFIG"
	EnvConfigPath          = "SLACK_FLOW_CONFIG_PATH"
	EnvSigningSecret       = "SLACK_SIGNING_SECRET"
	EnvBotToken            = "SLACK_BOT_TOKEN"
	EnvCommand             = "SLACK_COMMAND"
	EnvResponseType        = "SLACK_RESPONSE_TYPE"
	EnvFlowIdentifier      = "FLOW_IDENTIFIER"
	EnvFlowAliasIdentifier = "FLOW_ALIAS_IDENTIFIER"
	EnvFlowRegion          = "FLOW_REGION"
	EnvFlowEndpoint        = "FLOW_ENDPOINT"
	EnvLogLevel            = "LOG_LEVEL"
	EnvLogFormat           = "LOG_FORMAT"
	EnvHTTPAddress         = "HTTP_ADDRESS"
)

// ErrMissingConfig is returned by Validate when a required field is empty.
var ErrMissingConfig = errors.New("missing required configuration")

// Slack holds the settings used to talk to Slack.
type Slack struct {
	SigningSecret string `yaml:"signing_secret"`
	BotToken      string `yaml:"bot_token"`
	Command       string `yaml:"command"`
	ResponseType  string `yaml:"response_type"`
}

// Credentials optionally overrides the default AWS credential chain.
type Credentials struct {
	Profile        string `yaml:"profile"`
	ID             string `yaml:"id"`
	Secret         string `yaml:"secret"`
	Token          string `yaml:"token"`
	Role           string `yaml:"role"`
	RoleExternalID string `yaml:"role_external_id"`
}

// Flow selects the Bedrock flow that answers commands.
type Flow struct {
	Identifier      string      `yaml:"identifier"`
	AliasIdentifier string      `yaml:"alias_identifier"`
	Region          string      `yaml:"region"`
	Endpoint        string      `yaml:"endpoint"`
	Credentials     Credentials `yaml:"credentials"`
}

// HTTP configures the standalone HTTP entry point.
type HTTP struct {
	Address string `yaml:"address"`
}

// Config is the process wide, read-only configuration. It is built once at
// start-up and injected into the handlers.
type Config struct {
	Slack  Slack      `yaml:"slack"`
	Flow   Flow       `yaml:"flow"`
	Logger log.Config `yaml:"logger"`
	HTTP   HTTP       `yaml:"http"`
}

// New returns a Config populated with defaults.
func New() Config {
	return Config{
		Slack: Slack{
			Command:      "/question",
			ResponseType: "ephemeral",
		},
		Flow: Flow{
			Region: "eu-central-1",
		},
		Logger: log.NewConfig(),
		HTTP: HTTP{
			Address: ":3000",
		},
	}
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return load(os.LookupEnv, os.ReadFile)
}

func load(lookupFn func(string) (string, bool), readFn func(string) ([]byte, error)) (Config, error) {
	conf := New()

	confBytes := []byte(getenv(lookupFn, EnvConfig))
	if len(confBytes) == 0 {
		if path := getenv(lookupFn, EnvConfigPath); path != "" {
			var err error
			if confBytes, err = readFn(path); err != nil {
				return conf, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if len(confBytes) > 0 {
		replaced, err := ReplaceEnvVariables(confBytes, lookupFn)
		if err != nil {
			return conf, err
		}
		if err := yaml.Unmarshal(replaced, &conf); err != nil {
			return conf, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	for env, field := range map[string]*string{
		EnvSigningSecret:       &conf.Slack.SigningSecret,
		EnvBotToken:            &conf.Slack.BotToken,
		EnvCommand:             &conf.Slack.Command,
		EnvResponseType:        &conf.Slack.ResponseType,
		EnvFlowIdentifier:      &conf.Flow.Identifier,
		EnvFlowAliasIdentifier: &conf.Flow.AliasIdentifier,
		EnvFlowRegion:          &conf.Flow.Region,
		EnvFlowEndpoint:        &conf.Flow.Endpoint,
		EnvLogLevel:            &conf.Logger.Level,
		EnvLogFormat:           &conf.Logger.Format,
		EnvHTTPAddress:         &conf.HTTP.Address,
	} {
		if v := getenv(lookupFn, env); v != "" {
			*field = v
		}
	}

	return conf, conf.Validate()
}

func getenv(lookupFn func(string) (string, bool), key string) string {
	v, _ := lookupFn(key)
	return v
}

// Validate checks that every required field has been set.
func (c Config) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		EnvSigningSecret:       c.Slack.SigningSecret,
		EnvBotToken:            c.Slack.BotToken,
		EnvFlowIdentifier:      c.Flow.Identifier,
		EnvFlowAliasIdentifier: c.Flow.AliasIdentifier,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: %v", ErrMissingConfig, missing)
	}
	switch c.Slack.ResponseType {
	case "ephemeral", "in_channel":
	default:
		return fmt.Errorf("slack response type must be ephemeral or in_channel, got %q", c.Slack.ResponseType)
	}
	return nil
}
