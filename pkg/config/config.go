package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	VNDB struct {
		Host           string  `yaml:"host"`
		Port           int     `yaml:"port"`
		TokenFile      string  `yaml:"token_file"`
		TimeoutSeconds float64 `yaml:"timeout_seconds"`
	} `yaml:"vndb"`
	Bot struct {
		Prefix               string  `yaml:"prefix"`
		PromptTimeoutSeconds float64 `yaml:"prompt_timeout_seconds"`
	} `yaml:"bot"`
	Data struct {
		Tags   string `yaml:"tags"`
		Traits string `yaml:"traits"`
	} `yaml:"data"`
}

func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		config.setDefaults()
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(file, config)
	if err != nil {
		return nil, err
	}

	config.setDefaults()
	return config, nil
}

// setDefaults fills in anything the file left unset.
func (c *Config) setDefaults() {
	if c.VNDB.Host == "" {
		c.VNDB.Host = "api.vndb.org"
	}
	if c.VNDB.Port == 0 {
		c.VNDB.Port = 19535
	}
	if c.VNDB.TokenFile == "" {
		c.VNDB.TokenFile = "tokens/vndb"
	}
	if c.VNDB.TimeoutSeconds == 0 {
		c.VNDB.TimeoutSeconds = 30
	}
	if c.Bot.Prefix == "" {
		c.Bot.Prefix = ".vn"
	}
	if c.Bot.PromptTimeoutSeconds == 0 {
		c.Bot.PromptTimeoutSeconds = 10
	}
	if c.Data.Tags == "" {
		c.Data.Tags = "data/vndb-tags.json"
	}
	if c.Data.Traits == "" {
		c.Data.Traits = "data/vndb-traits.json"
	}
}
