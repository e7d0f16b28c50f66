package sensoruploader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	serial "github.com/tarm/goserial"
	"go.uber.org/zap"

	"storm-sync/internal/models"
	"storm-sync/shared/config"
	"storm-sync/shared/logging"
	"storm-sync/shared/scheduler"
	"storm-sync/shared/storage"
)

// UploadMetrics represents one upload tick
type UploadMetrics struct {
	Uploaded    bool                   `json:"uploaded"`
	Reading     models.RawSensorRecord `json:"reading"`
	LinesRead   int                    `json:"lines_read"`
	ParseErrors int                    `json:"parse_errors"`
}

// GetSummary implements the scheduler.Metrics interface
func (m UploadMetrics) GetSummary() string {
	counts := fmt.Sprintf("%d lines read, %d unparseable", m.LinesRead, m.ParseErrors)
	if !m.Uploaded {
		return "no new reading, " + counts
	}
	return fmt.Sprintf("uploaded %.1f°C, %.1f mb, wetness %d, %s",
		m.Reading.TemperatureC, m.Reading.PressureMb, m.Reading.Wetness, counts)
}

// ReadingWriter is the part of the weather store the uploader writes to
type ReadingWriter interface {
	AddReading(ctx context.Context, rec models.RawSensorRecord) error
}

// Uploader implements the scheduler.Agent interface. A background reader
// keeps the newest parsed serial line; each tick uploads it if it is new.
type Uploader struct {
	config *config.Config
	store  ReadingWriter
	open   func() (io.ReadCloser, error)
	log    *zap.SugaredLogger

	mu          sync.Mutex
	port        io.ReadCloser
	reading     bool
	readErr     error
	latest      *models.RawSensorRecord
	seq         uint64
	uploadedSeq uint64
	linesRead   int
	parseErrors int
}

func NewUploader(cfg *config.Config) *Uploader {
	return &Uploader{
		config: cfg,
		log:    logging.Named("sensor-uploader"),
	}
}

func (u *Uploader) Name() string {
	return "Sensor Uploader"
}

func (u *Uploader) Initialize() error {
	u.log.Infof("Initializing %s...", u.Name())

	if err := u.initDeps(); err != nil {
		return err
	}
	if err := u.connect(); err != nil {
		return err
	}

	u.log.Infof("Reading %s at %d baud, uploading every %s",
		u.config.Sensor.SerialDevice, u.config.Sensor.Baud, u.config.Sensor.UploadInterval)
	return nil
}

func (u *Uploader) initDeps() error {
	if u.store == nil {
		store, err := storage.Open(context.Background(), &u.config.Store)
		if err != nil {
			return fmt.Errorf("failed to open weather store: %w", err)
		}
		u.store = store
		u.log.Infof("Weather store initialized (%s)", u.config.Store.Backend)
	}

	if u.open == nil {
		u.open = serialOpener(&u.config.Sensor)
	}
	return nil
}

func serialOpener(cfg *config.SensorConfig) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		rwc, err := serial.OpenPort(&serial.Config{Name: cfg.SerialDevice, Baud: cfg.Baud})
		if err != nil {
			return nil, err
		}
		return rwc, nil
	}
}

// connect opens the port and starts the background reader
func (u *Uploader) connect() error {
	port, err := u.open()
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", u.config.Sensor.SerialDevice, err)
	}

	u.mu.Lock()
	old := u.port
	u.port = port
	u.reading = true
	u.readErr = nil
	u.mu.Unlock()

	if old != nil {
		old.Close()
	}
	go u.readLoop(port)
	return nil
}

func (u *Uploader) readLoop(r io.Reader) {
	err := u.consume(r)
	if err == nil {
		err = io.EOF
	}

	u.mu.Lock()
	u.reading = false
	u.readErr = err
	u.mu.Unlock()

	u.log.Warnf("Serial reader stopped: %v", err)
}

// consume reads lines until r is exhausted, keeping the newest valid one
func (u *Uploader) consume(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		rec, err := ParseLine(line)

		u.mu.Lock()
		u.linesRead++
		if err != nil {
			u.parseErrors++
		} else {
			u.latest = &rec
			u.seq++
		}
		u.mu.Unlock()

		if err != nil {
			u.log.Debugf("Skipping serial line %q: %v", line, err)
			continue
		}
		u.log.Debugf("Sensor: %.2f°C, %.2f mb, wetness %d", rec.TemperatureC, rec.PressureMb, rec.Wetness)
	}
	return scanner.Err()
}

// UploadOnce reads the port until the first valid line and uploads it,
// without starting the background reader.
func (u *Uploader) UploadOnce(ctx context.Context) (models.RawSensorRecord, error) {
	if err := u.initDeps(); err != nil {
		return models.RawSensorRecord{}, err
	}

	port, err := u.open()
	if err != nil {
		return models.RawSensorRecord{}, fmt.Errorf("failed to open serial port %s: %w", u.config.Sensor.SerialDevice, err)
	}
	defer port.Close()

	rec, err := FirstValid(ctx, port)
	if err != nil {
		return models.RawSensorRecord{}, err
	}
	if err := u.store.AddReading(ctx, rec); err != nil {
		return models.RawSensorRecord{}, fmt.Errorf("failed to upload reading: %w", err)
	}
	return rec, nil
}

// FirstValid returns the first line of r that parses as a sensor report
func FirstValid(ctx context.Context, r io.Reader) (models.RawSensorRecord, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return models.RawSensorRecord{}, err
		}
		if rec, err := ParseLine(scanner.Text()); err == nil {
			return rec, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return models.RawSensorRecord{}, fmt.Errorf("failed to read serial port: %w", err)
	}
	return models.RawSensorRecord{}, fmt.Errorf("%w: no valid line before end of input", ErrMalformedLine)
}

// RunOnce uploads the newest reading if it has not been uploaded yet. A
// stopped serial reader is reopened first.
func (u *Uploader) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()

	if err := u.reconnectIfStopped(); err != nil {
		if events != nil && events.OnPartialFailure != nil {
			events.OnPartialFailure(err, time.Since(startTime))
		}
	}

	u.mu.Lock()
	metrics := UploadMetrics{LinesRead: u.linesRead, ParseErrors: u.parseErrors}
	u.linesRead, u.parseErrors = 0, 0
	var rec models.RawSensorRecord
	pending := u.latest != nil && u.seq != u.uploadedSeq
	if pending {
		rec = *u.latest
	}
	seq := u.seq
	u.mu.Unlock()

	if pending {
		if err := u.store.AddReading(ctx, rec); err != nil {
			return fmt.Errorf("failed to upload reading: %w", err)
		}

		u.mu.Lock()
		u.uploadedSeq = seq
		u.mu.Unlock()

		metrics.Uploaded = true
		metrics.Reading = rec
	}

	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, time.Since(startTime))
	}
	u.log.Debugf("Upload tick: %s", metrics.GetSummary())
	return nil
}

func (u *Uploader) reconnectIfStopped() error {
	u.mu.Lock()
	stopped := !u.reading && u.readErr != nil
	readErr := u.readErr
	u.mu.Unlock()

	if !stopped || u.open == nil {
		return nil
	}

	u.log.Infof("Reopening serial port after reader stopped: %v", readErr)
	return u.connect()
}

// Close stops the serial reader and releases the store
func (u *Uploader) Close() error {
	u.mu.Lock()
	port := u.port
	u.port = nil
	u.mu.Unlock()

	var errs []error
	if port != nil {
		errs = append(errs, port.Close())
	}
	if c, ok := u.store.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
