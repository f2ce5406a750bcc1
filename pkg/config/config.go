package config

import (
	"fmt"
	"strconv"
	"strings"

	bxcan "github.com/samsamfire/gobxcan"
	"github.com/samsamfire/gobxcan/pkg/irq"
	"github.com/samsamfire/gobxcan/pkg/peripheral"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// Simulator configuration, loaded from an .ini file
type Config struct {
	Interface    string
	Channel      string
	Peripheral   peripheral.Config
	MaxReentries int
	Enable       bxcan.Interrupts
	LogLevel     log.Level
}

// Default configuration : loopback bus, all receive conditions and the tx condition enabled
func Default() *Config {
	return &Config{
		Interface:    "loopback",
		Channel:      "sim0",
		Peripheral:   peripheral.Config{Loopback: true},
		MaxReentries: irq.DefaultMaxReentries,
		Enable: bxcan.NewInterrupts(
			bxcan.TransmitMailboxEmpty,
			bxcan.Fifo0MessagePending,
			bxcan.Fifo0Overrun,
		),
		LogLevel: log.InfoLevel,
	}
}

// Load a configuration
// file can be either a path or an *os.File or []byte
// Missing keys keep their default value
func Load(file any) (*Config, error) {
	cfgFile, err := ini.Load(file)
	if err != nil {
		return nil, err
	}
	cfg := Default()

	bus := cfgFile.Section("bus")
	cfg.Interface = bus.Key("interface").MustString(cfg.Interface)
	cfg.Channel = bus.Key("channel").MustString(cfg.Channel)

	periph := cfgFile.Section("peripheral")
	cfg.Peripheral.Loopback = periph.Key("loopback").MustBool(cfg.Peripheral.Loopback)
	cfg.Peripheral.Silent = periph.Key("silent").MustBool(cfg.Peripheral.Silent)
	cfg.Peripheral.AutoWakeup = periph.Key("auto_wakeup").MustBool(cfg.Peripheral.AutoWakeup)
	if periph.HasKey("reserved_status_bits") {
		reserved, err := strconv.ParseUint(periph.Key("reserved_status_bits").String(), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("reserved_status_bits : %w", err)
		}
		cfg.Peripheral.ReservedStatusBits = uint32(reserved)
	}
	cfg.MaxReentries = periph.Key("max_reentries").MustInt(cfg.MaxReentries)

	interrupts := cfgFile.Section("interrupts")
	if interrupts.HasKey("enable") {
		enable, err := ParseInterrupts(interrupts.Key("enable").String())
		if err != nil {
			return nil, err
		}
		cfg.Enable = enable
	}

	if cfgFile.Section("log").HasKey("level") {
		level, err := log.ParseLevel(cfgFile.Section("log").Key("level").String())
		if err != nil {
			return nil, err
		}
		cfg.LogLevel = level
	}
	return cfg, nil
}

// Parse a list of interrupt names separated by commas or '|'.
// "all" selects every interrupt, "none" or an empty list selects nothing.
func ParseInterrupts(list string) (bxcan.Interrupts, error) {
	var set bxcan.Interrupts
	fields := strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == '|' })
	for _, field := range fields {
		name := strings.TrimSpace(field)
		switch strings.ToLower(name) {
		case "":
			continue
		case "none":
			continue
		case "all":
			set = set.Union(bxcan.AllInterruptsMask)
			continue
		}
		interrupt, err := bxcan.ParseInterrupt(name)
		if err != nil {
			return 0, err
		}
		set.Insert(interrupt)
	}
	return set, nil
}
