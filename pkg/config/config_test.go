package config

import (
	"errors"
	"testing"

	bxcan "github.com/samsamfire/gobxcan"
	"github.com/samsamfire/gobxcan/pkg/irq"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

const testConfig = `
[bus]
interface = socketcan
channel   = vcan0

[peripheral]
loopback             = false
silent               = true
auto_wakeup          = true
reserved_status_bits = 0x00F00000
max_reentries        = 16

[interrupts]
enable = TransmitMailboxEmpty, fifo1full | Error

[log]
level = debug
`

func TestLoad(t *testing.T) {
	cfg, err := Load([]byte(testConfig))
	assert.Nil(t, err)
	assert.Equal(t, "socketcan", cfg.Interface)
	assert.Equal(t, "vcan0", cfg.Channel)
	assert.False(t, cfg.Peripheral.Loopback)
	assert.True(t, cfg.Peripheral.Silent)
	assert.True(t, cfg.Peripheral.AutoWakeup)
	assert.EqualValues(t, 0x00F00000, cfg.Peripheral.ReservedStatusBits)
	assert.Equal(t, 16, cfg.MaxReentries)
	assert.Equal(t, bxcan.NewInterrupts(bxcan.TransmitMailboxEmpty, bxcan.Fifo1Full, bxcan.Error), cfg.Enable)
	assert.Equal(t, log.DebugLevel, cfg.LogLevel)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load([]byte("[bus]\nchannel = other\n"))
	assert.Nil(t, err)
	assert.Equal(t, "other", cfg.Channel)
	assert.Equal(t, "loopback", cfg.Interface)
	assert.True(t, cfg.Peripheral.Loopback)
	assert.Equal(t, irq.DefaultMaxReentries, cfg.MaxReentries)
	assert.Equal(t, Default().Enable, cfg.Enable)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load([]byte("[interrupts]\nenable = Fifo2Full\n"))
	assert.True(t, errors.Is(err, bxcan.ErrUnknownInterrupt))

	_, err = Load([]byte("[peripheral]\nreserved_status_bits = zz\n"))
	assert.NotNil(t, err)

	_, err = Load([]byte("[log]\nlevel = loud\n"))
	assert.NotNil(t, err)
}

func TestParseInterrupts(t *testing.T) {
	set, err := ParseInterrupts("all")
	assert.Nil(t, err)
	assert.Equal(t, bxcan.AllInterruptsMask, set)

	set, err = ParseInterrupts("none")
	assert.Nil(t, err)
	assert.True(t, set.IsEmpty())

	set, err = ParseInterrupts("Sleep,,Wakeup")
	assert.Nil(t, err)
	assert.Equal(t, bxcan.NewInterrupts(bxcan.Sleep, bxcan.Wakeup), set)
}
