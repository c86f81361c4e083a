package livedemo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	Lt "github.com/maroda/livedemo/types"
	"github.com/tarm/serial"
)

// Decoder reads raw samples off a device stream until it fails or ends
type Decoder func(r io.Reader, emit func(float64)) error

// Decoders is the map of supported device kinds
var Decoders = map[string]Decoder{
	"arduino": ReadArduino,
	"umyo":    ReadUmyo,
}

// DefaultBaud is the line speed each device kind talks at
var DefaultBaud = map[string]int{
	"arduino": 115200,
	"umyo":    921600,
}

func DecoderLookup(kind string) (Decoder, error) {
	d, ok := Decoders[kind]
	if !ok {
		return nil, fmt.Errorf("unknown device kind: %s", kind)
	}
	return d, nil
}

// OpenSerial opens the port and sets its line speed
func OpenSerial(path string, baud int) (io.ReadCloser, error) {
	port, err := serial.OpenPort(&serial.Config{Name: path, Baud: baud})
	if err != nil {
		return nil, err
	}
	return port, nil
}

// DeviceSource reads a serial device, reopening it after Retry
// whenever it is missing or the stream breaks.
// Open defaults to OpenSerial.
type DeviceSource struct {
	Path   string
	Kind   string
	Baud   int
	Decode Decoder
	Retry  time.Duration
	Open   func(path string, baud int) (io.ReadCloser, error)
}

// NewDeviceSource picks the decoder and, when baud is 0, the line speed for kind
func NewDeviceSource(path, kind string, baud int) (*DeviceSource, error) {
	decode, err := DecoderLookup(kind)
	if err != nil {
		return nil, err
	}
	if baud <= 0 {
		baud = DefaultBaud[kind]
	}
	return &DeviceSource{
		Path:   path,
		Kind:   kind,
		Baud:   baud,
		Decode: decode,
		Retry:  time.Second,
		Open:   OpenSerial,
	}, nil
}

func (d *DeviceSource) Name() string { return "device:" + d.Kind }

func (d *DeviceSource) Generate(ctx context.Context, emit func(*Lt.Update)) error {
	for {
		if err := d.readOnce(ctx, emit); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Device stream ended", slog.String("path", d.Path), slog.Any("Error", err))
		}
		if !sleepCtx(ctx, d.Retry) {
			return ctx.Err()
		}
	}
}

func (d *DeviceSource) readOnce(ctx context.Context, emit func(*Lt.Update)) error {
	open := d.Open
	if open == nil {
		open = OpenSerial
	}
	stream, err := open(d.Path, d.Baud)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s at %d baud: %w", d.Path, d.Baud, err)
	}

	// Closing the stream is the only way to unblock a pending Read
	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-ctx.Done():
			stream.Close()
		case <-closed:
			stream.Close()
		}
	}()

	slog.Info("Device opened", slog.String("path", d.Path), slog.String("kind", d.Kind), slog.Int("baud", d.Baud))
	err = d.Decode(stream, func(v float64) {
		emit(&Lt.Update{Value: &v})
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// ReadArduino expects one integer sample per line
func ReadArduino(r io.Reader, emit func(float64)) error {
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			// partial lines show up right after the port opens
			slog.Debug("Skipping malformed device line", slog.String("line", line))
			continue
		}
		emit(v)
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("scanning error: %w", err)
	}
	return io.EOF
}

const (
	umyoSync0     = 79
	umyoSync1     = 213
	umyoHeaderLen = 5 // sync(2), two unused bytes, length(1)
	umyoLenIndex  = 4
	umyoValueBias = 80
	umyoMaxValues = 40
	umyoSkip      = 5
)

// UmyoPacket is one decoded uMyo radio packet
type UmyoPacket struct {
	UnitID uint32
	Values []int
}

// ParseUmyoPacket decodes the packet body that follows the header.
// https://github.com/ultimaterobotics/uMyo_python_tools/blob/main/umyo_parser.py
func ParseUmyoPacket(buf []byte) (*UmyoPacket, error) {
	if len(buf) < 5+umyoSkip {
		return nil, fmt.Errorf("umyo packet too short: %d bytes", len(buf))
	}

	p := &UmyoPacket{}
	i := 0
	for ; i < 4; i++ {
		p.UnitID = p.UnitID<<8 + uint32(buf[i])
	}

	numValues := int(buf[i]) - umyoValueBias
	i++
	if numValues <= 0 || numValues >= umyoMaxValues {
		return nil, fmt.Errorf("umyo value count out of range: %d", numValues)
	}
	i += umyoSkip

	if len(buf) < i+2*numValues {
		return nil, fmt.Errorf("umyo packet truncated: want %d values, have %d bytes", numValues, len(buf)-i)
	}
	for j := 0; j < numValues; j++ {
		hb := buf[i]
		lb := buf[i+1]
		i += 2
		v := int(hb)<<8 + int(lb)
		if hb >= 1<<7 {
			v -= 1 << 16
		}
		p.Values = append(p.Values, v)
	}
	return p, nil
}

// ReadUmyo scans for the sync bytes, reads one length-prefixed packet,
// and emits its samples, over and over
func ReadUmyo(r io.Reader, emit func(float64)) error {
	br := bufio.NewReader(r)
	for {
		buf := make([]byte, 0, 64)

		// sync
		for {
			b, err := br.ReadByte()
			if err != nil {
				return err
			}
			buf = append(buf, b)
			if len(buf) == 2 {
				if buf[0] == umyoSync0 && buf[1] == umyoSync1 {
					break
				}
				buf = buf[1:]
			}
		}

		// header and body
		packetLen := -1
		for packetLen < 0 || len(buf) < packetLen+3 {
			b, err := br.ReadByte()
			if err != nil {
				return err
			}
			buf = append(buf, b)
			if len(buf) == umyoHeaderLen {
				packetLen = int(buf[umyoLenIndex])
			}
		}

		p, err := ParseUmyoPacket(buf[umyoHeaderLen:])
		if err != nil {
			slog.Debug("Dropping umyo packet", slog.Any("Error", err))
			continue
		}
		for _, v := range p.Values {
			emit(float64(v))
		}
	}
}
