// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config defines the global configuration structure
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Serial  SerialConfig  `mapstructure:"serial"`
	Sniffer SnifferConfig `mapstructure:"sniffer"`
	Capture CaptureConfig `mapstructure:"capture"`

	Send      string `mapstructure:"send"`       // hex payload transmitted once the port is open
	Export    string `mapstructure:"export"`     // CSV file the capture is written to on shutdown
	ListPorts bool   `mapstructure:"list_ports"` // print the serial ports and exit

	ConfigFile string `mapstructure:"-"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// SerialConfig defines the sniffed line
type SerialConfig struct {
	Device   string        `mapstructure:"device"`
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	Parity   string        `mapstructure:"parity"`
	StopBits int           `mapstructure:"stop_bits"`
	Timeout  time.Duration `mapstructure:"timeout"` // Read timeout

	// RS485 specific
	RS485              bool          `mapstructure:"rs485"`
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`
}

// SnifferConfig defines how the stream is framed and decoded
type SnifferConfig struct {
	Mode           string   `mapstructure:"mode"`             // "rtu", "ascii"
	Widths         []string `mapstructure:"widths"`           // register widths, e.g. "uint16", "float32"
	PlausibleOnly  bool     `mapstructure:"plausible_only"`   // drop RTU CRC matches with unknown function codes
	MinFrameLength int      `mapstructure:"min_frame_length"` // shortest RTU frame accepted, CRC included
}

// CaptureConfig defines where decoded frames are kept
type CaptureConfig struct {
	Type  string `mapstructure:"type"`  // "memory", "file", "mmap", "sql"
	Path  string `mapstructure:"path"`  // File path for "file", "mmap" and "sql"
	Limit int    `mapstructure:"limit"` // Entries kept by "memory" and "mmap"
}

// LoadConfig loads configuration from command line arguments and the config
// file they name (or the first config.yaml found in the search path).
func LoadConfig(args []string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("serial.device", "/dev/ttyUSB0")
	v.SetDefault("serial.baud_rate", 9600)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.parity", "N")
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.timeout", 500*time.Millisecond)
	v.SetDefault("sniffer.mode", "rtu")
	v.SetDefault("sniffer.widths", []string{"uint16", "int16"})
	v.SetDefault("sniffer.plausible_only", false)
	v.SetDefault("sniffer.min_frame_length", 4)
	v.SetDefault("capture.type", "memory")
	v.SetDefault("capture.path", "")
	v.SetDefault("capture.limit", 1000)

	fs := pflag.NewFlagSet("modbus-sniffer", pflag.ContinueOnError)
	fs.StringP("config", "c", "", "Configuration file path.")
	fs.StringP("device", "p", v.GetString("serial.device"), "Serial port device name.")
	fs.IntP("baud_rate", "s", v.GetInt("serial.baud_rate"), "Serial port speed.")
	fs.Int("data_bits", v.GetInt("serial.data_bits"), "Serial port data bits.")
	fs.String("parity", v.GetString("serial.parity"), "Serial port parity (N, E, O).")
	fs.Int("stop_bits", v.GetInt("serial.stop_bits"), "Serial port stop bits.")
	fs.DurationP("timeout", "W", v.GetDuration("serial.timeout"), "Serial read timeout.")
	fs.StringP("mode", "m", v.GetString("sniffer.mode"), "Transmission mode (rtu, ascii).")
	fs.StringSlice("widths", v.GetStringSlice("sniffer.widths"), "Register widths to decode (uint8, int8, uint16, int16, uint32, int32, float32, uint64, int64, float64).")
	fs.Bool("plausible_only", v.GetBool("sniffer.plausible_only"), "Only accept RTU frames with a known function code.")
	fs.Int("min_frame_length", v.GetInt("sniffer.min_frame_length"), "Shortest RTU frame accepted, CRC included.")
	fs.String("capture_type", v.GetString("capture.type"), "Capture store (memory, file, mmap, sql).")
	fs.String("capture_path", v.GetString("capture.path"), "Capture store path.")
	fs.Int("capture_limit", v.GetInt("capture.limit"), "Entries kept by the memory and mmap stores.")
	fs.StringP("log_level", "v", v.GetString("log.level"), "Log verbosity level (debug, info, warn, error).")
	fs.StringP("log_file", "L", v.GetString("log.file"), "Log file name ('-' for logging to STDOUT only).")
	fs.String("send", "", "Hex payload (slave address, function code, data) to transmit once.")
	fs.String("export", "", "Write the capture to this CSV file on shutdown.")
	fs.Bool("list_ports", false, "List the serial ports and exit.")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	bindings := map[string]string{
		"serial.device":            "device",
		"serial.baud_rate":         "baud_rate",
		"serial.data_bits":         "data_bits",
		"serial.parity":            "parity",
		"serial.stop_bits":         "stop_bits",
		"serial.timeout":           "timeout",
		"sniffer.mode":             "mode",
		"sniffer.widths":           "widths",
		"sniffer.plausible_only":   "plausible_only",
		"sniffer.min_frame_length": "min_frame_length",
		"capture.type":             "capture_type",
		"capture.path":             "capture_path",
		"capture.limit":            "capture_limit",
		"log.level":                "log_level",
		"log.file":                 "log_file",
		"send":                     "send",
		"export":                   "export",
		"list_ports":               "list_ports",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	configFile, _ := fs.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/modbus-sniffer/")
		v.AddConfigPath("$HOME/.modbus-sniffer")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// Flags alone are a complete configuration.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.ConfigFile = v.ConfigFileUsed()

	fixup(&config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func fixup(c *Config) {
	c.Serial.Parity = strings.ToUpper(c.Serial.Parity)
	if c.Serial.Timeout == 0 {
		c.Serial.Timeout = 500 * time.Millisecond
	}
	c.Sniffer.Mode = strings.ToLower(c.Sniffer.Mode)
	c.Capture.Type = strings.ToLower(c.Capture.Type)
	if c.Capture.Limit <= 0 {
		c.Capture.Limit = 1000
	}
}

// Validate reports settings that cannot be acted upon.
func (c *Config) Validate() error {
	switch c.Serial.Parity {
	case "N", "E", "O":
	default:
		return fmt.Errorf("invalid parity %q", c.Serial.Parity)
	}
	switch c.Sniffer.Mode {
	case "rtu", "ascii":
	default:
		return fmt.Errorf("invalid sniffer mode %q", c.Sniffer.Mode)
	}
	switch c.Capture.Type {
	case "memory":
	case "file", "mmap", "sql":
		if c.Capture.Path == "" {
			return fmt.Errorf("capture type %q requires a path", c.Capture.Type)
		}
	default:
		return fmt.Errorf("invalid capture type %q", c.Capture.Type)
	}
	return nil
}
