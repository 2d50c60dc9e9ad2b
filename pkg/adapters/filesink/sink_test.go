package filesink

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/user/h264play/pkg/mocks"
	"github.com/user/h264play/pkg/ports"
)

// testBaseDir is a platform-independent base directory for tests
var testBaseDir = filepath.Join("debug")

func TestSink_Enabled(t *testing.T) {
	sink := New(testBaseDir, mocks.NewFileSystem(), &mocks.Renderer{})

	if !sink.Enabled() {
		t.Error("expected Enabled to return true")
	}
}

func TestSink_SaveFrame(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{})

	if err := sink.SaveFrame(42, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("SaveFrame failed: %v", err)
	}

	expectedPath := filepath.Join(testBaseDir, "frames", "frame-000042.png")
	saved, ok := fs.GetFile(expectedPath)
	if !ok {
		t.Fatalf("expected file at %s, have %v", expectedPath, fs.Paths())
	}
	// the mock renderer encodes to the format extension
	if string(saved) != "png" {
		t.Errorf("saved %q", saved)
	}
	if exists, _ := fs.Exists(filepath.Join(testBaseDir, "frames")); !exists {
		t.Error("expected frames directory to be created")
	}
}

func TestSink_SaveFrame_EncodeError(t *testing.T) {
	fs := mocks.NewFileSystem()
	renderer := &mocks.Renderer{
		EncodeImageFunc: func(image.Image, ports.ImageFormat, int) ([]byte, error) {
			return nil, errors.New("boom")
		},
	}
	sink := New(testBaseDir, fs, renderer)

	if err := sink.SaveFrame(1, image.NewRGBA(image.Rect(0, 0, 1, 1))); err == nil {
		t.Error("expected encode error")
	}
	if len(fs.Paths()) != 0 {
		t.Errorf("files written after failure: %v", fs.Paths())
	}
}

func TestSink_SaveContactSheet(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{})

	if err := sink.SaveContactSheet(image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("SaveContactSheet failed: %v", err)
	}
	if _, ok := fs.GetFile(filepath.Join(testBaseDir, "sheet.png")); !ok {
		t.Error("expected sheet.png to be saved")
	}
}

func TestSink_SaveStreamJSON(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{})

	data := []byte(`{"frames": 3}`)
	if err := sink.SaveStreamJSON("decode", data); err != nil {
		t.Fatalf("SaveStreamJSON failed: %v", err)
	}

	saved, ok := fs.GetFile(filepath.Join(testBaseDir, "decode.json"))
	if !ok {
		t.Fatal("expected decode.json to be saved")
	}
	if string(saved) != string(data) {
		t.Errorf("expected %q, got %q", data, saved)
	}

	for _, bad := range []string{"", "../escape", "a/b"} {
		if err := sink.SaveStreamJSON(bad, data); err == nil {
			t.Errorf("expected error for name %q", bad)
		}
	}
}
