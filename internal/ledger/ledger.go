package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Header is the fixed first row of the attendance file
var Header = []string{"Name", "Time", "Last Attendance Time"}

// Mirror receives every persisted change. Failures are logged and never undo
// the file write.
type Mirror interface {
	Upsert(ctx context.Context, record domain.AttendanceRecord) error
	Delete(ctx context.Context, name string) error
}

type Option func(*Ledger)

func WithCooldown(d time.Duration) Option {
	return func(l *Ledger) { l.cooldown = d }
}

func WithMirror(m Mirror) Option {
	return func(l *Ledger) { l.mirror = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// Ledger keeps one attendance record per identity and rewrites the whole file
// after every change. All methods are safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	path     string
	cooldown time.Duration
	records  map[string]domain.AttendanceRecord
	order    []string
	mirror   Mirror
	logger   *slog.Logger
}

// Open loads the ledger at path, creating it with only the header row when absent
func Open(path string, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		path:     path,
		cooldown: domain.DefaultCooldown,
		records:  make(map[string]domain.AttendanceRecord),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}

	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := l.persist(); err != nil {
			return nil, err
		}
		l.logger.Info("attendance file created", "path", path)
		return l, nil
	case err != nil:
		return nil, domain.ErrLedgerRead.WithError(err)
	}
	defer f.Close()

	if err := l.load(f); err != nil {
		return nil, domain.ErrLedgerRead.WithError(fmt.Errorf("%s: %w", path, err))
	}

	l.logger.Info("attendance file loaded", "path", path, "records", len(l.order))
	return l, nil
}

func (l *Ledger) load(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	rows, err := cr.ReadAll()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		// empty file: rewrite the header so the file matches the schema
		return l.persist()
	}
	if !slices.Equal(rows[0], Header) {
		return fmt.Errorf("unexpected header %q", rows[0])
	}

	for i, row := range rows[1:] {
		name := row[0]
		if name == "" {
			return fmt.Errorf("row %d: empty name", i+2)
		}
		at, err := domain.ParseTimestamp(row[1])
		if err != nil {
			return fmt.Errorf("row %d: time: %w", i+2, err)
		}
		last, err := domain.ParseTimestamp(row[2])
		if err != nil {
			return fmt.Errorf("row %d: last attendance time: %w", i+2, err)
		}
		if _, seen := l.records[name]; !seen {
			l.order = append(l.order, name)
		}
		l.records[name] = domain.AttendanceRecord{Name: name, Time: at, LastAttendanceTime: last}
	}
	return nil
}

// TryMark records identity as present at now unless it was marked less than
// the cooldown ago. A Marked result means the file has been rewritten.
func (l *Ledger) TryMark(ctx context.Context, identity string, now time.Time) (domain.MarkResult, error) {
	identity = strings.Clone(identity)
	now = fileTime(now)

	l.mu.Lock()
	defer l.mu.Unlock()

	prev, exists := l.records[identity]
	if exists && now.Sub(prev.LastAttendanceTime) < l.cooldown {
		return domain.AlreadyMarked, nil
	}

	record := domain.AttendanceRecord{Name: identity, Time: now, LastAttendanceTime: now}
	if err := l.apply(record, prev, exists); err != nil {
		return domain.AlreadyMarked, err
	}

	l.mirrorUpsert(ctx, record)
	return domain.Marked, nil
}

// Update overwrites the timestamps of an existing record
func (l *Ledger) Update(ctx context.Context, name string, at time.Time) (domain.AttendanceRecord, error) {
	name = strings.Clone(name)
	at = fileTime(at)

	l.mu.Lock()
	defer l.mu.Unlock()

	prev, exists := l.records[name]
	if !exists {
		return domain.AttendanceRecord{}, domain.ErrRecordNotFound
	}

	record := domain.AttendanceRecord{Name: name, Time: at, LastAttendanceTime: at}
	if err := l.apply(record, prev, true); err != nil {
		return domain.AttendanceRecord{}, err
	}

	l.mirrorUpsert(ctx, record)
	return record, nil
}

// Delete removes a record. The capture loop never calls this.
func (l *Ledger) Delete(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, exists := l.records[name]
	if !exists {
		return domain.ErrRecordNotFound
	}
	prevOrder := l.order

	delete(l.records, name)
	l.order = removeName(l.order, name)

	if err := l.persist(); err != nil {
		l.records[name] = prev
		l.order = prevOrder
		return err
	}

	if l.mirror != nil {
		if err := l.mirror.Delete(ctx, name); err != nil {
			l.logger.Warn("attendance mirror delete failed", "name", name, "error", err)
		}
	}
	return nil
}

// apply stores record and persists, restoring prev on failure
func (l *Ledger) apply(record, prev domain.AttendanceRecord, existed bool) error {
	l.records[record.Name] = record
	if !existed {
		l.order = append(l.order, record.Name)
	}

	if err := l.persist(); err != nil {
		if existed {
			l.records[record.Name] = prev
		} else {
			delete(l.records, record.Name)
			l.order = l.order[:len(l.order)-1]
		}
		return err
	}
	return nil
}

// fileTime is t as it reads back from the file: local wall clock, whole seconds
func fileTime(t time.Time) time.Time {
	return t.Local().Truncate(time.Second)
}

func (l *Ledger) mirrorUpsert(ctx context.Context, record domain.AttendanceRecord) {
	if l.mirror == nil {
		return
	}
	if err := l.mirror.Upsert(ctx, record); err != nil {
		l.logger.Warn("attendance mirror upsert failed", "name", record.Name, "error", err)
	}
}

// Get returns the record for name
func (l *Ledger) Get(name string) (domain.AttendanceRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[name]
	return r, ok
}

// Records returns a copy of all records sorted by name
func (l *Ledger) Records() []domain.AttendanceRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.AttendanceRecord, 0, len(l.records))
	for _, r := range l.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *Ledger) Path() string {
	return l.path
}

// Export writes the ledger in file format to w
func (l *Ledger) Export(w io.Writer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeCSV(w)
}

// ExportFile writes a copy of the ledger to path
func (l *Ledger) ExportFile(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := writeAtomic(path, l.writeCSV); err != nil {
		return domain.ErrLedgerWrite.WithError(err)
	}
	return nil
}

func (l *Ledger) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, name := range l.order {
		r := l.records[name]
		row := []string{r.Name, domain.FormatTimestamp(r.Time), domain.FormatTimestamp(r.LastAttendanceTime)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// persist rewrites the whole file. Callers hold mu.
func (l *Ledger) persist() error {
	if err := writeAtomic(l.path, l.writeCSV); err != nil {
		return domain.ErrLedgerWrite.WithError(err)
	}
	return nil
}

// writeAtomic writes to a temp file in the target directory, syncs it and
// renames it over path, so readers see either the old or the new content
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

func removeName(names []string, name string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
