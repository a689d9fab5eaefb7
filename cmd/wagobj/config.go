// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "wagobj"

// Config is read from a YAML file and overridden by WAGOBJ_* environment
// variables and command-line flags, in that order.
type Config struct {
	LogLevel  string `yaml:"log_level" envconfig:"log_level"`
	LogFormat string `yaml:"log_format" envconfig:"log_format"`

	Disasm   bool   `yaml:"disasm" envconfig:"disasm"`
	Hex      bool   `yaml:"hex" envconfig:"hex"`
	TextAddr uint64 `yaml:"text_addr" envconfig:"text_addr"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
	}
}

func loadConfig(filename string) (c Config, err error) {
	c = defaultConfig()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, err
		}
	}

	err = envconfig.Process(envPrefix, &c)
	return
}
