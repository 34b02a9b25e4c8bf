// go-uhf
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-uhf.
//
// go-uhf is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-uhf is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-uhf; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/ZaparooProject/go-uhf/polling"
	"github.com/ZaparooProject/go-uhf/transport/serialport"
)

// Config is the bridge configuration.
type Config struct {
	// ClientID names this bridge on the broker and in topics
	ClientID string `yaml:"client_id"`

	// Serial names the reader's serial port
	Serial SerialConfig `yaml:"serial"`

	// Reader tunes the reader and presence tracking
	Reader ReaderConfig `yaml:"reader"`

	// MQTT holds broker connection settings
	MQTT MQTTConfig `yaml:"mqtt"`
}

// SerialConfig holds serial port settings.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// ReaderConfig holds reader and presence tracking settings.
type ReaderConfig struct {
	// PowerDBm sets the transmit power on startup; zero leaves the
	// module setting alone
	PowerDBm         int `yaml:"power_dbm"`
	RemovalTimeoutMS int `yaml:"removal_timeout_ms"`
	SweepIntervalMS  int `yaml:"sweep_interval_ms"`
}

// MQTTConfig holds MQTT broker connection settings.
type MQTTConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()

	if cfg.Serial.Port == "" {
		return nil, fmt.Errorf("serial.port missing in %s", path)
	}
	if cfg.MQTT.Host == "" {
		return nil, fmt.Errorf("mqtt.host missing in %s", path)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "uhfbridge"
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = serialport.DefaultBaudRate
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "uhf"
	}
}

// monitorConfig converts the millisecond knobs into a polling config,
// keeping the library defaults for anything unset.
func (c *Config) monitorConfig() *polling.Config {
	config := polling.DefaultConfig()
	if c.Reader.RemovalTimeoutMS > 0 {
		config.RemovalTimeout = time.Duration(c.Reader.RemovalTimeoutMS) * time.Millisecond
	}
	if c.Reader.SweepIntervalMS > 0 {
		config.SweepInterval = time.Duration(c.Reader.SweepIntervalMS) * time.Millisecond
	}
	return config
}

// topic builds a bridge topic like "<prefix>/<client_id>/<suffix>".
func (c *Config) topic(suffix string) string {
	return fmt.Sprintf("%s/%s/%s", c.MQTT.TopicPrefix, c.ClientID, suffix)
}
