package csvfile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"playreviews/internal/core/period"
	"playreviews/internal/core/review"
	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/logger"
	"playreviews/internal/platform/testkit"
)

func str(s string) *string { return &s }

func week(t *testing.T) *period.Period {
	t.Helper()
	return &period.Period{Start: testkit.Day(t, "2024-01-01"), End: testkit.Day(t, "2024-01-07")}
}

func TestPath(t *testing.T) {
	w := New("out", nil, logger.Nop())

	got := w.Path(File{Kind: "single", App: "com.example"})
	if want := filepath.Join("out", "single", "com.example_single.csv"); got != want {
		t.Fatalf("single path = %q, want %q", got, want)
	}

	got = w.Path(File{Kind: "periodic", App: "com.example", Frequency: "weekly", Period: week(t)})
	want := filepath.Join("out", "periodic", "weekly", "com.example_weekly_20240101-20240107.csv")
	if got != want {
		t.Fatalf("periodic path = %q, want %q", got, want)
	}
}

func TestPath_StaysUnderRoot(t *testing.T) {
	w := New("out", nil, logger.Nop())
	for _, app := range []string{"../escape", "../../etc/passwd", `..\\win`, "/abs"} {
		got := w.Path(File{Kind: "single", App: app})
		if filepath.Dir(got) != filepath.Join("out", "single") {
			t.Fatalf("%q wrote to %q", app, got)
		}
		got = w.Path(File{Kind: "schedule", App: app, Frequency: "weekly", Period: week(t)})
		if filepath.Dir(got) != filepath.Join("out", "schedule", "weekly") {
			t.Fatalf("%q wrote to %q", app, got)
		}
	}
}

func TestNewDefaultsRoot(t *testing.T) {
	if w := New("", nil, logger.Nop()); w.Root != "output" || w.Loc != time.UTC {
		t.Fatalf("defaults = %q %v", w.Root, w.Loc)
	}
}

func TestWriteRecords(t *testing.T) {
	root := t.TempDir()
	w := New(root, time.UTC, logger.Nop())

	recs := []review.Record{
		{Author: str("Ann"), Text: str("great, really"), Rating: 5, At: testkit.At(t, "2024-01-03T10:15:00Z"), AppVersion: str("1.2")},
		{Author: str("Bo"), Rating: 0},
	}
	path, err := w.Write(context.Background(), File{Kind: "schedule", App: "app", Frequency: "weekly", Period: week(t)}, recs)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.HasPrefix(b, bom) {
		t.Fatalf("missing byte order mark")
	}
	body := string(bytes.TrimPrefix(b, bom))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3\n%s", len(lines), body)
	}
	if lines[0] != "name,content,score,at,appversion" {
		t.Fatalf("header = %q", lines[0])
	}
	testkit.MustContain(t, lines[1], `Ann,"great, really",5,2024-01-03 10:15:00,1.2`)
	if lines[2] != "Bo,,,," {
		t.Fatalf("sparse row = %q", lines[2])
	}
}

func TestWriteRendersInLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	w := New(t.TempDir(), loc, logger.Nop())
	path, err := w.Write(context.Background(), File{Kind: "single", App: "app"},
		[]review.Record{{At: testkit.At(t, "2024-01-01T20:00:00Z")}})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	b, _ := os.ReadFile(path)
	testkit.MustContain(t, string(b), "2024-01-02 05:00:00")
}

func TestWriteEmptyUnit(t *testing.T) {
	w := New(t.TempDir(), nil, logger.Nop())
	path, err := w.Write(context.Background(), File{Kind: "single", App: "app"}, nil)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	b, _ := os.ReadFile(path)
	if got := string(bytes.TrimPrefix(b, bom)); strings.TrimSpace(got) != EmptyMarker {
		t.Fatalf("empty file body = %q", got)
	}
}

func TestWriteOverwrites(t *testing.T) {
	w := New(t.TempDir(), nil, logger.Nop())
	f := File{Kind: "single", App: "app"}
	ctx := context.Background()
	if _, err := w.Write(ctx, f, []review.Record{{Author: str("first")}}); err != nil {
		t.Fatal(err)
	}
	path, err := w.Write(ctx, f, []review.Record{{Author: str("second")}})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(path)
	testkit.MustNotContain(t, string(b), "first")
	testkit.MustContain(t, string(b), "second")

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestWriteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(t.TempDir(), nil, logger.Nop()).Write(ctx, File{Kind: "single", App: "a"}, nil); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestWriteUnwritableRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(root, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := New(root, nil, logger.Nop()).Write(context.Background(), File{Kind: "single", App: "a"}, nil)
	if !perr.IsCode(err, perr.ErrorCodeIO) {
		t.Fatalf("want io error, got %v", err)
	}
}

func TestReadRoundTrip(t *testing.T) {
	w := New(t.TempDir(), time.UTC, logger.Nop())
	at := testkit.At(t, "2024-02-10T08:30:00Z")
	path, err := w.Write(context.Background(), File{Kind: "single", App: "app"},
		[]review.Record{{Author: str("Ann"), Text: str("multi\nline"), Rating: 4, At: at}})
	if err != nil {
		t.Fatal(err)
	}

	got, err := Read(path, time.UTC)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("records = %d", len(got))
	}
	r := got[0]
	if review.Str(r.Author) != "Ann" || review.Str(r.Text) != "multi\nline" || r.Rating != 4 || !r.At.Equal(at) {
		t.Fatalf("record = %+v", r)
	}
	if r.AppVersion != nil {
		t.Fatalf("blank app version should be nil")
	}
}

func TestReadEmptyMarker(t *testing.T) {
	w := New(t.TempDir(), nil, logger.Nop())
	path, _ := w.Write(context.Background(), File{Kind: "single", App: "app"}, nil)
	got, err := Read(path, nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestDecodeLenient(t *testing.T) {
	in := "content,score,extra,at\nhi,3.0,x,2024-01-01T00:00:00Z\nbad,9,,not a date\n"
	got, err := Decode(strings.NewReader(in), nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records = %d", len(got))
	}
	if got[0].Rating != 3 || !got[0].Dated() || got[0].Author != nil {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Rating != 0 || got[1].Dated() {
		t.Fatalf("second should drop out of range score and bad date: %+v", got[1])
	}
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.csv"), nil)
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}
