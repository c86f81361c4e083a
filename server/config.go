package livedemo

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	Lp "github.com/maroda/livedemo/plugin"
)

// ErrConfigInvalid wraps every cross-field validation failure
var ErrConfigInvalid = errors.New("invalid configuration")

// Config is everything one livedemo process needs.
// It is read from a JSON file and then overridden by LIVEDEMO_* variables.
type Config struct {
	HTTPPort      int    `json:"httpPort"`
	WebDir        string `json:"webDir"`        // static host page files
	Countdown     int    `json:"countdown"`     // seconds
	VideoID       string `json:"videoId"`       // default video identity
	FrameInterval int    `json:"frameInterval"` // milliseconds

	// Exactly one source is used
	FakeData   bool   `json:"fakeData"`
	ReplayFile string `json:"replayFile"`
	Device     string `json:"device"`     // serial device path
	DeviceKind string `json:"deviceKind"` // arduino or umyo
	Baud       int    `json:"baud"`       // 0 uses the kind's DefaultBaud
	PollURL    string `json:"pollUrl"`

	PollMetric    string `json:"pollMetric"`
	PollDelim     string `json:"pollDelim"`
	PollTransform string `json:"pollTransform"` // named ValueTransformer
	PollInterval  int    `json:"pollInterval"`  // milliseconds

	// Outputs
	RecordFile string `json:"recordFile"`
	BadgerPath string `json:"badgerPath"`
	BatchSize  int    `json:"batchSize"`
	MIDI       bool   `json:"midi"`
	MIDIPort   int    `json:"midiPort"`
	MIDINote   int    `json:"midiNote"`

	SeriesLen int `json:"seriesLen"` // retained points per series
}

// DefaultConfig matches the original demo setup
func DefaultConfig() *Config {
	return &Config{
		HTTPPort:      4000,
		WebDir:        "./web/",
		Countdown:     10,
		VideoID:       "p_LVOPX37SY",
		FrameInterval: int(DefaultFrameInterval / time.Millisecond),
		DeviceKind:    "arduino",
		PollDelim:     "=",
		PollTransform: "kv",
		PollInterval:  1000,
		BatchSize:     100,
		MIDINote:      60,
		SeriesLen:     6000,
	}
}

// LoadConfigFileName pulls a given filename config off local disk
// on top of DefaultConfig. Validation is performed on the file before opening.
func LoadConfigFileName(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// validation
	err = validateLoad(file)
	if err != nil {
		slog.Error("Validation failed", slog.Any("Error", err))
		return nil, err
	}

	return LoadConfig(file)
}

func validateLoad(file *os.File) error {
	// validate file
	info, err := file.Stat()
	if err != nil {
		slog.Error("could not stat file")
		return err
	}

	// validate size
	if info.Size() == 0 {
		slog.Error("file is empty")
		return errors.New("file is empty")
	}

	return nil
}

// LoadConfig decodes an already opened config file
func LoadConfig(file *os.File) (*Config, error) {
	config := DefaultConfig()
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(config); err != nil {
		slog.Error("could not decode file", slog.Any("Error", err))
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields from LIVEDEMO_* environment variables
func (c *Config) ApplyEnv() {
	c.HTTPPort = FillEnvVarInt("LIVEDEMO_HTTP_PORT", c.HTTPPort)
	c.Baud = FillEnvVarInt("LIVEDEMO_BAUD", c.Baud)
	c.Countdown = FillEnvVarInt("LIVEDEMO_COUNTDOWN", c.Countdown)
	c.FakeData = FillEnvVarBool("LIVEDEMO_FAKE_DATA", c.FakeData)
	c.MIDI = FillEnvVarBool("LIVEDEMO_MIDI", c.MIDI)

	strs := map[string]*string{
		"LIVEDEMO_WEB_DIR":        &c.WebDir,
		"LIVEDEMO_VIDEO":          &c.VideoID,
		"LIVEDEMO_DEVICE":         &c.Device,
		"LIVEDEMO_DEVICE_KIND":    &c.DeviceKind,
		"LIVEDEMO_REPLAY_FILE":    &c.ReplayFile,
		"LIVEDEMO_RECORD_FILE":    &c.RecordFile,
		"LIVEDEMO_BADGER_PATH":    &c.BadgerPath,
		"LIVEDEMO_POLL_URL":       &c.PollURL,
		"LIVEDEMO_POLL_METRIC":    &c.PollMetric,
		"LIVEDEMO_POLL_TRANSFORM": &c.PollTransform,
	}
	for ev, field := range strs {
		if v := FillEnvVar(ev); v != "ENOENT" {
			*field = v
		}
	}
}

// ValidateView checks what a terminal host needs, it has no source of its own
func (c *Config) ValidateView() error {
	if c.Countdown <= 0 {
		return fmt.Errorf("%w: countdown must be positive, got %d", ErrConfigInvalid, c.Countdown)
	}
	return nil
}

// Validate checks the combinations a run cannot work with
func (c *Config) Validate() error {
	if err := c.ValidateView(); err != nil {
		return err
	}

	sources := 0
	for _, set := range []bool{c.FakeData, c.ReplayFile != "", c.Device != "", c.PollURL != ""} {
		if set {
			sources++
		}
	}

	switch {
	case sources == 0:
		return fmt.Errorf("%w: no source, set one of fakeData, replayFile, device, pollUrl", ErrConfigInvalid)
	case sources > 1:
		return fmt.Errorf("%w: %d sources configured, only one may be used", ErrConfigInvalid, sources)
	case c.ReplayFile != "" && c.RecordFile != "":
		return fmt.Errorf("%w: cannot record while replaying", ErrConfigInvalid)
	case c.Device != "" && c.DeviceKind != "arduino" && c.DeviceKind != "umyo":
		return fmt.Errorf("%w: unknown device kind %q", ErrConfigInvalid, c.DeviceKind)
	case c.PollURL != "" && c.PollMetric == "":
		return fmt.Errorf("%w: pollUrl needs a pollMetric", ErrConfigInvalid)
	case c.Baud < 0:
		return fmt.Errorf("%w: baud cannot be negative", ErrConfigInvalid)
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: pollInterval must be positive, got %d", ErrConfigInvalid, c.PollInterval)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batchSize must be positive", ErrConfigInvalid)
	case c.MIDINote < 0 || c.MIDINote > Lp.MaxCueRoot:
		return fmt.Errorf("%w: midiNote must be 0-%d, got %d", ErrConfigInvalid, Lp.MaxCueRoot, c.MIDINote)
	}
	return nil
}

// CountdownDuration is Countdown as a time.Duration
func (c *Config) CountdownDuration() time.Duration {
	return time.Duration(c.Countdown) * time.Second
}

// FrameDuration is FrameInterval as a time.Duration
func (c *Config) FrameDuration() time.Duration {
	return time.Duration(c.FrameInterval) * time.Millisecond
}

// PollDuration is PollInterval as a time.Duration
func (c *Config) PollDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Millisecond
}
