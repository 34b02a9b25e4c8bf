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

// uhfbridge publishes UHF tag arrivals and departures to an MQTT broker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/polling"
	"github.com/ZaparooProject/go-uhf/transport/serialport"
)

// tagEvent is the JSON payload published for arrivals and departures.
type tagEvent struct {
	EPC       string    `json:"epc"`
	Event     string    `json:"event"`
	RSSI      int8      `json:"rssi_dbm"`
	PC        uint16    `json:"pc"`
	SeenCount int       `json:"seen_count"`
	FirstSeen time.Time `json:"first_seen"`
}

type bridge struct {
	cfg     *Config
	log     zerolog.Logger
	device  *uhf.Device
	monitor *polling.Monitor
	mqtt    paho.Client
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func (b *bridge) connectReader() error {
	transport, err := serialport.New(b.cfg.Serial.Port,
		serialport.WithBaudRate(b.cfg.Serial.Baud))
	if err != nil {
		return fmt.Errorf("open serial transport: %w", err)
	}

	device, err := uhf.New(transport)
	if err != nil {
		_ = transport.Close()
		return fmt.Errorf("create device: %w", err)
	}
	if err := device.Connect(); err != nil {
		_ = transport.Close()
		return fmt.Errorf("connect reader: %w", err)
	}
	b.device = device

	if identity, err := device.GetFirmwareIdentity(); err == nil {
		b.log.Info().Str("firmware", identity).Str("port", b.cfg.Serial.Port).Msg("reader connected")
	} else {
		b.log.Warn().Err(err).Msg("reader connected, firmware query failed")
	}

	if b.cfg.Reader.PowerDBm != 0 {
		if err := device.SetRFPower(b.cfg.Reader.PowerDBm); err != nil {
			return fmt.Errorf("set transmit power: %w", err)
		}
		b.log.Info().Int("dbm", b.cfg.Reader.PowerDBm).Msg("transmit power set")
	}

	b.monitor = polling.NewMonitor(device, b.cfg.monitorConfig())
	b.monitor.OnTagDetected = func(tag *polling.TagState) {
		b.publish("arrive", tag)
	}
	b.monitor.OnTagRemoved = func(tag *polling.TagState) {
		b.publish("depart", tag)
	}
	return nil
}

func (b *bridge) connectBroker() error {
	broker := fmt.Sprintf("tcp://%s:%d", b.cfg.MQTT.Host, b.cfg.MQTT.Port)
	statusTopic := b.cfg.topic("status")

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(b.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(60 * time.Second).
		SetWill(statusTopic, `{"status":"offline"}`, 0, true).
		SetOnConnectHandler(func(client paho.Client) {
			client.Publish(statusTopic, 0, true, `{"status":"online"}`)
			b.log.Info().Str("broker", broker).Msg("mqtt connected")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			b.log.Warn().Err(err).Msg("mqtt connection lost")
		})

	if b.cfg.MQTT.Username != "" {
		opts.SetUsername(b.cfg.MQTT.Username)
		opts.SetPassword(b.cfg.MQTT.Password)
	}

	b.mqtt = paho.NewClient(opts)
	if token := b.mqtt.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect broker %s: %w", broker, token.Error())
	}
	return nil
}

func (b *bridge) publish(event string, tag *polling.TagState) {
	payload, err := json.Marshal(tagEvent{
		EPC:       tag.EPC,
		Event:     event,
		RSSI:      tag.RSSI,
		PC:        tag.PC,
		SeenCount: tag.SeenCount,
		FirstSeen: tag.FirstSeen,
	})
	if err != nil {
		b.log.Error().Err(err).Msg("marshal tag event")
		return
	}
	b.mqtt.Publish(b.cfg.topic(event), 0, false, payload)
	b.log.Info().Str("epc", tag.EPC).Int("rssi", int(tag.RSSI)).Msg("tag " + event)
}

func (b *bridge) shutdown() {
	if b.mqtt != nil && b.mqtt.IsConnected() {
		token := b.mqtt.Publish(b.cfg.topic("status"), 0, true, `{"status":"offline"}`)
		token.WaitTimeout(time.Second)
		b.mqtt.Disconnect(250)
	}
	if b.device != nil {
		if err := b.device.Close(); err != nil {
			b.log.Error().Err(err).Msg("close device")
		}
	}
}

func main() {
	cfgPath := flag.String("cfg", "uhfbridge.yaml", "Config file")
	debug := flag.Bool("debug", false, "Enable debug output")
	flag.Parse()

	logger := newLogger(*debug)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	uhf.SetLogger(logger)

	b := &bridge{cfg: cfg, log: logger}
	if err := b.connectReader(); err != nil {
		logger.Fatal().Err(err).Msg("failed to set up reader")
	}
	if err := b.connectBroker(); err != nil {
		b.shutdown()
		logger.Fatal().Err(err).Msg("failed to reach broker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- b.monitor.Start(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutting down")
		cancel()
		<-runDone
	case err := <-runDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("monitor stopped")
		}
	}

	b.shutdown()
	logger.Info().Msg("shutdown complete")
}
