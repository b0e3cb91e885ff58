// Package journal keeps an append-only record of placed orders as JSON Lines,
// one file per UTC day, with size rotation, retention cleanup and an
// in-memory window of the most recent orders.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/lumenshop/storefront/internal/service"
)

const dateLayout = "2006-01-02"

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("order journal is closed")

// orders-YYYY-MM-DD.jsonl or orders-YYYY-MM-DD.N.jsonl
var segmentPattern = regexp.MustCompile(`^orders-(\d{4}-\d{2}-\d{2})(?:\.(\d+))?\.jsonl$`)

// segment identifies one journal file.
type segment struct {
	name string
	day  string
	part int
}

func parseSegment(name string) (segment, bool) {
	m := segmentPattern.FindStringSubmatch(name)
	if m == nil {
		return segment{}, false
	}
	seg := segment{name: name, day: m[1]}
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return segment{}, false
		}
		seg.part = n
	}
	return seg, true
}

func (s segment) less(o segment) bool {
	if s.day != o.day {
		return s.day < o.day
	}
	return s.part < o.part
}

func segmentName(day string, part int) string {
	if part == 0 {
		return "orders-" + day + ".jsonl"
	}
	return fmt.Sprintf("orders-%s.%d.jsonl", day, part)
}

// Config configures a FileJournal. Zero values take the defaults.
type Config struct {
	// Dir holds the journal files. Created with 0700 if missing.
	Dir string
	// RetentionDays is how long day files are kept. Default 30.
	RetentionDays int
	// MaxFileBytes rotates the current file once it grows past this. Default 10 MiB.
	MaxFileBytes int64
	// Window is how many recent orders Recent can return. Default 100.
	Window int
}

func (c *Config) setDefaults() {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = 10 << 20
	}
	if c.Window <= 0 {
		c.Window = 100
	}
}

// FileJournal implements service.OrderJournal on the local filesystem.
type FileJournal struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	file   *os.File
	day    string
	part   int
	size   int64
	recent []service.Order // oldest first, at most cfg.Window
	closed bool

	stop chan struct{}
	done chan struct{}
}

// Open opens the journal in cfg.Dir, prunes expired files, loads the most
// recent orders and starts the hourly retention sweep. Close stops it.
func Open(cfg Config, logger *slog.Logger) (*FileJournal, error) {
	return open(cfg, logger, time.Now)
}

func open(cfg Config, logger *slog.Logger, now func() time.Time) (*FileJournal, error) {
	cfg.setDefaults()
	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	j := &FileJournal{
		cfg:    cfg,
		logger: logger,
		now:    now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	j.prune()
	j.load()
	if err := j.switchTo(now().UTC().Format(dateLayout), j.lastPart(now().UTC().Format(dateLayout))); err != nil {
		return nil, err
	}

	go j.sweep(time.Hour)
	return j, nil
}

// Append writes order as one JSON line. The file rolls over when the
// order's day differs from the current file or the size cap is reached.
func (j *FileJournal) Append(_ context.Context, order service.Order) error {
	line, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", order.ID, err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}

	day := order.PlacedAt.UTC().Format(dateLayout)
	switch {
	case day != j.day:
		err = j.switchTo(day, j.lastPart(day))
	case j.size >= j.cfg.MaxFileBytes:
		err = j.switchTo(j.day, j.part+1)
	}
	if err != nil {
		return fmt.Errorf("rotate journal: %w", err)
	}

	n, err := j.file.Write(line)
	j.size += int64(n)
	if err != nil {
		return fmt.Errorf("write order %s: %w", order.ID, err)
	}
	j.remember(order)
	return nil
}

// Recent returns up to n orders, newest first.
func (j *FileJournal) Recent(n int) []service.Order {
	j.mu.Lock()
	defer j.mu.Unlock()

	if n <= 0 || len(j.recent) == 0 {
		return nil
	}
	if n > len(j.recent) {
		n = len(j.recent)
	}
	out := make([]service.Order, n)
	for i := range out {
		out[i] = j.recent[len(j.recent)-1-i]
	}
	return out
}

// Close stops the sweep and closes the current file. Safe to call more than once.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.stop)
	var err error
	if j.file != nil {
		_ = j.file.Sync()
		err = j.file.Close()
		j.file = nil
	}
	j.mu.Unlock()

	<-j.done
	return err
}

func (j *FileJournal) remember(order service.Order) {
	j.recent = append(j.recent, order)
	if over := len(j.recent) - j.cfg.Window; over > 0 {
		j.recent = append(j.recent[:0:0], j.recent[over:]...)
	}
}

// switchTo closes the current file and opens day/part for appending.
// Must be called with j.mu held, or before the journal is shared.
func (j *FileJournal) switchTo(day string, part int) error {
	if j.file != nil {
		_ = j.file.Sync()
		_ = j.file.Close()
		j.file = nil
	}

	name := segmentName(day, part)
	f, err := os.OpenFile(filepath.Join(j.cfg.Dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat %s: %w", name, err)
	}

	j.file, j.day, j.part, j.size = f, day, part, info.Size()
	return nil
}

// segments lists the journal files in chronological order.
func (j *FileJournal) segments() []segment {
	entries, err := os.ReadDir(j.cfg.Dir)
	if err != nil {
		return nil
	}
	var segs []segment
	for _, e := range entries {
		if seg, ok := parseSegment(e.Name()); ok {
			segs = append(segs, seg)
		}
	}
	sort.Slice(segs, func(a, b int) bool { return segs[a].less(segs[b]) })
	return segs
}

func (j *FileJournal) lastPart(day string) int {
	last := 0
	for _, seg := range j.segments() {
		if seg.day == day && seg.part > last {
			last = seg.part
		}
	}
	return last
}

// prune removes day files older than the retention period. The day of the
// open file is kept until Append rolls past it. Callers hold j.mu once the
// journal is open.
func (j *FileJournal) prune() {
	cutoff := j.now().UTC().AddDate(0, 0, -j.cfg.RetentionDays).Format(dateLayout)
	removed := 0
	for _, seg := range j.segments() {
		if seg.day >= cutoff || seg.day == j.day {
			continue
		}
		if err := os.Remove(filepath.Join(j.cfg.Dir, seg.name)); err != nil {
			j.logger.Error("failed to remove expired order file", "file", seg.name, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		j.logger.Info("pruned order journal", "removed", removed)
	}
}

// load fills the recent window from the newest files, walking back until
// the window is full.
func (j *FileJournal) load() {
	segs := j.segments()
	var loaded []service.Order
	for i := len(segs) - 1; i >= 0 && len(loaded) < j.cfg.Window; i-- {
		orders := j.readSegment(segs[i].name)
		loaded = append(orders, loaded...)
	}
	for _, o := range loaded {
		j.remember(o)
	}
}

func (j *FileJournal) readSegment(name string) []service.Order {
	f, err := os.Open(filepath.Join(j.cfg.Dir, name))
	if err != nil {
		j.logger.Error("failed to open order file", "file", name, "error", err)
		return nil
	}
	defer func() { _ = f.Close() }()

	var orders []service.Order
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var o service.Order
		if err := json.Unmarshal(scanner.Bytes(), &o); err != nil {
			j.logger.Warn("skipping malformed order line", "file", name, "error", err)
			continue
		}
		orders = append(orders, o)
	}
	if err := scanner.Err(); err != nil {
		j.logger.Error("failed to read order file", "file", name, "error", err)
	}
	return orders
}

func (j *FileJournal) sweep(every time.Duration) {
	defer close(j.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			j.sweepOnce()
		}
	}
}

func (j *FileJournal) sweepOnce() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	j.prune()
}

var _ service.OrderJournal = (*FileJournal)(nil)
