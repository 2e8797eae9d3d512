package mdoc_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tomopipe/internal/mdoc"
)

const sampleMdoc = `PixelSpacing = 2.702
Voltage = 300
ImageFile = TS_01.mrc
ImageSize = 4096 4096
DataMode = 1

[T = SerialEM: Digitized on Krios        24-Jun-2025  10:15:32]

[T =     Tilt axis angle = 85.3, binning = 1  spot = 8  camera = 0]

[ZValue = 0]
TiltAngle = -0.00434968
StagePosition = -153.519 -59.8936
Magnification = 42000
Intensity = 0.0868657
ExposureDose = 3.2
TargetDefocus = -4
Defocus = -3.95213

[ZValue = 1]
TiltAngle = 3.00521
TargetDefocus = -4
Defocus = -4.04787

[ZValue = 2]
TiltAngle = -2.99765
TargetDefocus = -4
Defocus = -4.0
`

func TestParseReadsAcquisitionMetadata(t *testing.T) {
	info, err := mdoc.Parse(strings.NewReader(sampleMdoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	wantAngles := []int{0, 3, -3}
	if len(info.TiltAngles) != len(wantAngles) {
		t.Fatalf("got %d tilt angles, want %d", len(info.TiltAngles), len(wantAngles))
	}
	for i, angle := range wantAngles {
		if info.TiltAngles[i] != angle {
			t.Errorf("tilt angle %d = %d, want %d", i, info.TiltAngles[i], angle)
		}
	}
	if info.TiltMin != -3 || info.TiltMax != 3 {
		t.Errorf("tilt range = [%d, %d]", info.TiltMin, info.TiltMax)
	}
	if info.TiltStep != 2 {
		t.Errorf("tilt step = %d, want 2", info.TiltStep)
	}
	if len(info.Defocus) != 3 {
		t.Fatalf("got %d defocus values, want 3 (targets must be excluded)", len(info.Defocus))
	}
	if info.DefocusAvg != -4.0 {
		t.Errorf("defocus average = %v, want -4", info.DefocusAvg)
	}
	if info.Magnification != "42000" {
		t.Errorf("magnification = %q", info.Magnification)
	}
	if info.PixelSpacing != "0.27" {
		t.Errorf("pixel spacing = %q, want 0.27 nm", info.PixelSpacing)
	}
}

func TestParseRequiresTiltAngles(t *testing.T) {
	_, err := mdoc.Parse(strings.NewReader("PixelSpacing = 2.7\nVoltage = 300\n"))
	if err == nil || !strings.Contains(err.Error(), "no tilt angles") {
		t.Fatalf("err = %v", err)
	}
}

func TestParseToleratesMissingDefocus(t *testing.T) {
	info, err := mdoc.Parse(strings.NewReader("[ZValue = 0]\nTiltAngle = 12.4\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if info.DefocusAvg != 0 {
		t.Fatalf("defocus average = %v for a document without defocus", info.DefocusAvg)
	}
}

func TestParseRejectsMalformedValues(t *testing.T) {
	if _, err := mdoc.Parse(strings.NewReader("TiltAngle = sideways\n")); err == nil {
		t.Fatal("expected error for unparsable tilt angle")
	}
}

func TestWaitForFirstReturnsExisting(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "TS_01", "TS_01.mrc.mdoc")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte(sampleMdoc), 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := mdoc.WaitForFirst(context.Background(), root, time.Second)
	if err != nil {
		t.Fatalf("WaitForFirst: %v", err)
	}
	if path != target {
		t.Fatalf("path = %s, want %s", path, target)
	}
}

func TestWaitForFirstSeesArrival(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "TS_02", "TS_02.mrc.mdoc")
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.MkdirAll(filepath.Dir(target), 0o755)
		_ = os.WriteFile(target, []byte(sampleMdoc), 0o644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	path, err := mdoc.WaitForFirst(ctx, root, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForFirst: %v", err)
	}
	if path != target {
		t.Fatalf("path = %s, want %s", path, target)
	}
}

func TestWaitForFirstHonorsDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := mdoc.WaitForFirst(ctx, t.TempDir(), 10*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}
