package ledger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

var t0 = time.Date(2024, 3, 5, 8, 0, 0, 0, time.Local)

func openTemp(t *testing.T, opts ...Option) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attendance.csv")
	l, err := Open(path, opts...)
	require.NoError(t, err)
	return l, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

type MockMirror struct {
	mock.Mock
}

func (m *MockMirror) Upsert(ctx context.Context, record domain.AttendanceRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockMirror) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func TestOpen_CreatesHeader(t *testing.T) {
	l, path := openTemp(t)

	assert.Equal(t, "Name,Time,Last Attendance Time\n", readFile(t, path))
	assert.Equal(t, 0, l.Len())
}

func TestOpen_LoadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.csv")
	content := "Name,Time,Last Attendance Time\n" +
		"alice,2024-03-05 08:00:00,2024-03-05 08:00:00\n" +
		"bob,2024-03-05 09:10:11,2024-03-05 09:10:11\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, 2, l.Len())
	bob, ok := l.Get("bob")
	require.True(t, ok)
	assert.Equal(t, "2024-03-05 09:10:11", domain.FormatTimestamp(bob.LastAttendanceTime))

	// loading alone never rewrites the file
	assert.Equal(t, content, readFile(t, path))
}

func TestOpen_EmptyFileGetsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, "Name,Time,Last Attendance Time\n", readFile(t, path))
}

func TestOpen_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"wrong header", "Nome,Hora,Ultima\n"},
		{"bad timestamp", "Name,Time,Last Attendance Time\nalice,05/03/2024,2024-03-05 08:00:00\n"},
		{"missing column", "Name,Time,Last Attendance Time\nalice,2024-03-05 08:00:00\n"},
		{"empty name", "Name,Time,Last Attendance Time\n,2024-03-05 08:00:00,2024-03-05 08:00:00\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "attendance.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Open(path)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrLedgerRead)
		})
	}
}

func TestOpen_Unreadable(t *testing.T) {
	// a directory cannot be read as a file
	_, err := Open(t.TempDir())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLedgerRead)
}

func TestTryMark_Cooldown(t *testing.T) {
	tests := []struct {
		name   string
		second time.Duration
		want   domain.MarkResult
	}{
		{"within cooldown", 30 * time.Minute, domain.AlreadyMarked},
		{"one second short", time.Hour - time.Second, domain.AlreadyMarked},
		{"exactly one hour", time.Hour, domain.Marked},
		{"after cooldown", 61 * time.Minute, domain.Marked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := openTemp(t)
			ctx := context.Background()

			first, err := l.TryMark(ctx, "alice", t0)
			require.NoError(t, err)
			assert.Equal(t, domain.Marked, first)

			second, err := l.TryMark(ctx, "alice", t0.Add(tt.second))
			require.NoError(t, err)
			assert.Equal(t, tt.want, second)
		})
	}
}

func TestTryMark_PersistsFullRewrite(t *testing.T) {
	l, path := openTemp(t)
	ctx := context.Background()

	_, err := l.TryMark(ctx, "alice", t0)
	require.NoError(t, err)
	_, err = l.TryMark(ctx, "bob", t0.Add(time.Minute))
	require.NoError(t, err)
	_, err = l.TryMark(ctx, "alice", t0.Add(2*time.Hour))
	require.NoError(t, err)

	want := "Name,Time,Last Attendance Time\n" +
		"alice,2024-03-05 10:00:00,2024-03-05 10:00:00\n" +
		"bob,2024-03-05 08:01:00,2024-03-05 08:01:00\n"
	assert.Equal(t, want, readFile(t, path))

	// reopening yields the same state
	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())
	result, err := reopened.TryMark(ctx, "alice", t0.Add(2*time.Hour+time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyMarked, result)
}

func TestTryMark_CooldownAgreesWithReload(t *testing.T) {
	l, path := openTemp(t)
	ctx := context.Background()

	markedAt := t0.Add(2*time.Hour + 900*time.Millisecond)
	_, err := l.TryMark(ctx, "alice", markedAt)
	require.NoError(t, err)

	// 10:00:00.9 then 11:00:00.5: the file says 10:00:00, so an hour has passed
	retry := t0.Add(3*time.Hour + 500*time.Millisecond)

	reopened, err := Open(path)
	require.NoError(t, err)
	afterReload, err := reopened.TryMark(ctx, "alice", retry)
	require.NoError(t, err)

	inSession, err := l.TryMark(ctx, "alice", retry)
	require.NoError(t, err)

	assert.Equal(t, domain.Marked, afterReload)
	assert.Equal(t, afterReload, inSession)

	rec, _ := l.Get("alice")
	assert.Equal(t, t0.Add(3*time.Hour), rec.LastAttendanceTime, "stored at file precision")
}

func TestTryMark_KeepsOwnCopyOfName(t *testing.T) {
	l, path := openTemp(t)
	ctx := context.Background()

	buf := []byte("alice")
	_, err := l.TryMark(ctx, unsafe.String(&buf[0], len(buf)), t0)
	require.NoError(t, err)
	copy(buf, "zzzzz")

	_, err = l.Update(ctx, "alice", t0.Add(-time.Hour))
	require.NoError(t, err)
	_, err = l.TryMark(ctx, "bob", t0)
	require.NoError(t, err)

	assert.Equal(t, "Name,Time,Last Attendance Time\n"+
		"alice,2024-03-05 07:00:00,2024-03-05 07:00:00\n"+
		"bob,2024-03-05 08:00:00,2024-03-05 08:00:00\n", readFile(t, path))
}

func TestTryMark_AlreadyMarkedDoesNotRewrite(t *testing.T) {
	l, path := openTemp(t)
	ctx := context.Background()

	_, err := l.TryMark(ctx, "alice", t0)
	require.NoError(t, err)
	before, err := os.Stat(path)
	require.NoError(t, err)

	result, err := l.TryMark(ctx, "alice", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyMarked, result)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, os.SameFile(before, after), "file must not be replaced")
}

func TestTryMark_WriteFailureRollsBack(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.Mkdir(dir, 0o755))
	l, err := Open(filepath.Join(dir, "attendance.csv"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.TryMark(ctx, "alice", t0)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))

	_, err = l.TryMark(ctx, "bob", t0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLedgerWrite)
	_, ok := l.Get("bob")
	assert.False(t, ok, "failed mark must not stay in memory")

	_, err = l.TryMark(ctx, "alice", t0.Add(2*time.Hour))
	require.Error(t, err)
	alice, _ := l.Get("alice")
	assert.Equal(t, t0, alice.LastAttendanceTime)
}

func TestTryMark_Mirror(t *testing.T) {
	mirror := new(MockMirror)
	mirror.On("Upsert", mock.Anything, domain.AttendanceRecord{Name: "alice", Time: t0, LastAttendanceTime: t0}).
		Return(errors.New("connection refused")).Once()

	l, path := openTemp(t, WithMirror(mirror))

	result, err := l.TryMark(context.Background(), "alice", t0)

	require.NoError(t, err, "mirror failures never fail the mark")
	assert.Equal(t, domain.Marked, result)
	assert.Contains(t, readFile(t, path), "alice,")
	mirror.AssertExpectations(t)
}

func TestUpdateAndDelete(t *testing.T) {
	mirror := new(MockMirror)
	mirror.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	mirror.On("Delete", mock.Anything, "alice").Return(nil).Once()

	l, path := openTemp(t, WithMirror(mirror))
	ctx := context.Background()

	_, err := l.TryMark(ctx, "alice", t0)
	require.NoError(t, err)

	edited := t0.Add(-24 * time.Hour)
	rec, err := l.Update(ctx, "alice", edited)
	require.NoError(t, err)
	assert.Equal(t, edited, rec.Time)
	assert.Contains(t, readFile(t, path), "alice,2024-03-04 08:00:00,2024-03-04 08:00:00")

	_, err = l.Update(ctx, "nobody", edited)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	require.NoError(t, l.Delete(ctx, "alice"))
	assert.Equal(t, "Name,Time,Last Attendance Time\n", readFile(t, path))
	assert.ErrorIs(t, l.Delete(ctx, "alice"), domain.ErrRecordNotFound)

	mirror.AssertExpectations(t)
}

func TestRecordsSortedAndExport(t *testing.T) {
	l, _ := openTemp(t)
	ctx := context.Background()

	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := l.TryMark(ctx, name, t0)
		require.NoError(t, err)
	}

	records := l.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "alice", records[0].Name)
	assert.Equal(t, "carol", records[2].Name)

	var buf bytes.Buffer
	require.NoError(t, l.Export(&buf))
	assert.Equal(t, "Name,Time,Last Attendance Time\n"+
		"carol,2024-03-05 08:00:00,2024-03-05 08:00:00\n"+
		"alice,2024-03-05 08:00:00,2024-03-05 08:00:00\n"+
		"bob,2024-03-05 08:00:00,2024-03-05 08:00:00\n", buf.String())

	exportPath := filepath.Join(t.TempDir(), "attendance_export.csv")
	require.NoError(t, l.ExportFile(exportPath))
	assert.Equal(t, buf.String(), readFile(t, exportPath))
}

func TestTryMark_Concurrent(t *testing.T) {
	l, _ := openTemp(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan domain.MarkResult, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := l.TryMark(ctx, "alice", t0)
			assert.NoError(t, err)
			results <- r
		}()
	}
	wg.Wait()
	close(results)

	marked := 0
	for r := range results {
		if r == domain.Marked {
			marked++
		}
	}
	assert.Equal(t, 1, marked)
}
