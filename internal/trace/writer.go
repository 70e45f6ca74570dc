// Package trace implements the call-capture trace writer: one active
// compressed output session, the monotonic call counter, the per-kind
// definition caches, and the ENTER/LEAVE framing protocol the
// interception layer drives for every captured call.
//
// All writer entry points serialize on one session mutex. A call's
// enter frame and leave frame are two separate critical sections, so
// frames of different calls may interleave in the stream while each
// individual frame stays contiguous at the byte level. Each frame ends
// with a synchronous flush of the compressed stream, trading throughput
// for crash-safety of the trace.
package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/coral-mesh/tracecap/internal/config"
	"github.com/coral-mesh/tracecap/internal/mem"
	"github.com/coral-mesh/tracecap/internal/region"
	"github.com/coral-mesh/tracecap/internal/wire"
)

// traceExtension is the suffix of derived trace filenames.
const traceExtension = "trace"

// Options configures a Writer.
type Options struct {
	// Inspector resolves addresses and reads live memory for region
	// updates. Defaults to the /proc inspector of the current process.
	Inspector mem.Inspector

	// Logger is the diagnostic channel.
	Logger zerolog.Logger

	// CompressionLevel is the gzip level, 1 to 9. Zero and -1 both
	// select the library default.
	CompressionLevel int
}

// DefaultOptions returns options suitable for tracing the current
// process, with compression taken from the environment.
func DefaultOptions(logger zerolog.Logger) Options {
	level := gzip.DefaultCompression
	if cfg, err := config.Load(); err == nil {
		level = cfg.Compression
	}
	return Options{
		Inspector:        mem.NewProcMaps(),
		Logger:           logger,
		CompressionLevel: level,
	}
}

// Writer records intercepted calls into a compressed, append-only
// trace stream. One session is active at a time; opening a new one
// discards the previous session's state.
type Writer struct {
	mu  sync.Mutex
	log zerolog.Logger

	enc  wire.Encoder
	file *os.File
	zw   *gzip.Writer

	callNo    uint
	functions defCache
	structs   defCache
	enums     defCache
	bitmasks  defCache

	regions *region.Engine
	level   int

	// autoCount persists across auto-opens so successive derived
	// filenames never collide within one process.
	autoCount uint
}

// New creates a Writer. No stream is open until Open, OpenAuto, or the
// first BeginEnter (which auto-opens).
func New(opts Options) *Writer {
	insp := opts.Inspector
	if insp == nil {
		insp = mem.NewProcMaps()
	}
	level := opts.CompressionLevel
	if level == 0 {
		level = gzip.DefaultCompression
	}

	w := &Writer{
		log:   opts.Logger,
		level: level,
	}
	w.regions = region.NewEngine(insp, synthEmitter{w}, opts.Logger)
	return w
}

// Open starts a new session writing to path, closing any previous
// session first. The call counter and all definition caches reset, and
// the format version header is written.
func (w *Writer) Open(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.openLocked(path)
}

func (w *Writer) openLocked(path string) error {
	if err := w.closeLocked(); err != nil {
		w.log.Warn().Err(err).Msg("failed to close previous trace stream")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace file: %w", err)
	}
	zw, err := gzip.NewWriterLevel(f, w.level)
	if err != nil {
		// Invalid level; fall back rather than refuse to trace.
		w.log.Warn().Err(err).Int("level", w.level).Msg("invalid compression level")
		zw = gzip.NewWriter(f)
	}

	w.file = f
	w.zw = zw
	w.enc.Attach(zw)

	w.callNo = 0
	w.functions.reset()
	w.structs.reset()
	w.enums.reset()
	w.bitmasks.reset()

	w.enc.UVarint(wire.Version)
	return nil
}

// OpenAuto starts a new session on a derived path: the TRACECAP_FILE
// environment override if set, otherwise <process-name>.trace in the
// working directory, disambiguated with a numeric suffix until an
// unused name is found.
func (w *Writer) OpenAuto() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.openAutoLocked()
}

func (w *Writer) openAutoLocked() error {
	path, err := derivePath(&w.autoCount)
	if err != nil {
		return err
	}
	w.log.Info().Str("path", path).Msg("tracing to")
	return w.openLocked(path)
}

// Close ends the active session, flushing and releasing the stream.
// Safe to call when no session is open.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) closeLocked() error {
	if w.zw == nil {
		return nil
	}
	w.enc.Detach()

	err := w.zw.Close()
	if ferr := w.file.Close(); err == nil {
		err = ferr
	}
	w.zw = nil
	w.file = nil
	return err
}

// Active reports whether a session is currently open.
func (w *Writer) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Attached()
}

// DefaultPath returns the output path an auto-opened session would
// choose right now, without opening anything.
func DefaultPath() (string, error) {
	var counter uint
	return derivePath(&counter)
}

// derivePath picks the auto-open output path. counter persists between
// calls so repeated auto-opens within one process keep advancing past
// names they already used.
func derivePath(counter *uint) (string, error) {
	cfg, err := config.Load()
	if err == nil && cfg.File != "" {
		return cfg.File, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	name := processName()

	for {
		var path string
		if *counter == 0 {
			path = filepath.Join(dir, fmt.Sprintf("%s.%s", name, traceExtension))
		} else {
			path = filepath.Join(dir, fmt.Sprintf("%s.%d.%s", name, *counter, traceExtension))
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
		*counter++
	}
}

// processName resolves the current process name, falling back to the
// executable basename.
func processName() string {
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if name, err := p.Name(); err == nil && name != "" {
			return name
		}
	}
	if exe, err := os.Executable(); err == nil {
		return filepath.Base(exe)
	}
	return traceExtension
}
