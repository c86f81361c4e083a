package plugin

/*
	FileOutput

	Records updates as JSON lines, one Update per line.
	The same format is read back by ReadUpdatesFile for replays.
*/

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	Lt "github.com/maroda/livedemo/types"
)

type FileOutput struct {
	MU   sync.Mutex
	Path string
	file *os.File
	w    *bufio.Writer
}

// NewFileOutput truncates or creates the record file
func NewFileOutput(path string) (*FileOutput, error) {
	f, err := os.Create(path)
	if err != nil {
		slog.Error("FileOutput failed to create file", slog.String("path", path), slog.Any("error", err))
		return nil, fmt.Errorf("record file error: %w", err)
	}
	slog.Info("FileOutput recording", slog.String("path", path))
	return &FileOutput{
		Path: path,
		file: f,
		w:    bufio.NewWriter(f),
	}, nil
}

func (fo *FileOutput) WriteUpdate(u *Lt.Update) error {
	fo.MU.Lock()
	defer fo.MU.Unlock()
	return fo.writeLocked(u)
}

func (fo *FileOutput) writeLocked(u *Lt.Update) error {
	buf, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	buf = append(buf, '\n')
	if _, err := fo.w.Write(buf); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}

func (fo *FileOutput) WriteBatch(us []*Lt.Update) error {
	fo.MU.Lock()
	defer fo.MU.Unlock()

	for _, u := range us {
		if err := fo.writeLocked(u); err != nil {
			return err
		}
	}
	return fo.w.Flush()
}

// QueryRange flushes pending lines and scans the whole file
func (fo *FileOutput) QueryRange(start, end time.Time) ([]*Lt.Update, error) {
	if err := fo.Flush(); err != nil {
		return nil, err
	}

	all, err := ReadUpdatesFile(fo.Path)
	if err != nil {
		return nil, err
	}

	var updates []*Lt.Update
	for i := range all {
		if inRange(&all[i], start, end) {
			updates = append(updates, &all[i])
		}
	}
	return updates, nil
}

func (fo *FileOutput) Flush() error {
	fo.MU.Lock()
	defer fo.MU.Unlock()
	return fo.w.Flush()
}

func (fo *FileOutput) Close() error {
	flushErr := fo.Flush()
	closeErr := fo.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flush failed, close may have failed: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close failed: %w", closeErr)
	}
	slog.Info("FileOutput closed", slog.String("path", fo.Path))
	return nil
}

func (fo *FileOutput) Type() string { return "JSONL" }

// ReadUpdatesFile loads a JSON lines recording
func ReadUpdatesFile(name string) ([]Lt.Update, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadUpdates(f)
}

// ReadUpdates decodes one Update per line, blank lines are skipped
func ReadUpdates(r io.Reader) ([]Lt.Update, error) {
	var res []Lt.Update
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var u Lt.Update
		if err := json.Unmarshal(scanner.Bytes(), &u); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		res = append(res, u)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning error: %w", err)
	}
	return res, nil
}
