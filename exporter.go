package yarpwbi

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Exporter defines an export interface.
type Exporter interface {
	Write(Snapshot) error
	Close() error
}

// CSVExporter writes snapshots to a CSV file, one row per channel and cycle:
// cycle, time, channel, then the channel values.
type CSVExporter struct {
	delimiter string
	channels  []Channel
	hdlr      *os.File
}

// Close closes the file.
func (e CSVExporter) Close() (err error) {
	err = e.WriteRawLn(fmt.Sprintf("# Closing date (UTC): %s", time.Now().UTC()))
	if err != nil {
		return
	}
	return e.hdlr.Close()
}

// Write writes the exported channels of the snapshot to the CSV file.
func (e CSVExporter) Write(snap Snapshot) error {
	var b strings.Builder
	for _, ch := range e.channels {
		values := snap.Get(ch)
		row := make([]string, 3, 3+len(values))
		row[0] = strconv.FormatUint(snap.Cycle, 10)
		row[1] = strconv.FormatFloat(float64(snap.Time.UnixNano())/1e9, 'f', 6, 64)
		row[2] = ch.String()
		for _, v := range values {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		b.WriteString(strings.Join(row, e.delimiter))
		b.WriteByte('\n')
	}
	_, err := e.hdlr.WriteString(b.String())
	return err
}

// WriteRawLn writes a raw line to the CSV file.
func (e CSVExporter) WriteRawLn(s string) error {
	_, err := e.hdlr.WriteString(s + "\n")
	return err
}

// Name returns the path of the CSV file.
func (e CSVExporter) Name() string {
	return e.hdlr.Name()
}

// NewCSVExporter initializes a new CSV export of the provided channels, or of
// every channel if none is provided.
func NewCSVExporter(channels []Channel, dir, filename string) (e *CSVExporter, err error) {
	if len(channels) == 0 {
		channels = Channels()
	}
	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return
	}
	delimiter := ","
	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = ch.String()
	}
	hdr := []string{"cycle", "time", "channel", "values..."}
	if _, err = f.WriteString(fmt.Sprintf("# Creation date (UTC): %s\n# Channels: %s\n%s\n", time.Now().UTC(), strings.Join(names, " "), strings.Join(hdr, delimiter))); err != nil {
		f.Close()
		return nil, err
	}
	e = &CSVExporter{delimiter, channels, f}
	return
}
