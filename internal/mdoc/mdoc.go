// Package mdoc parses SerialEM acquisition metadata sidecars and waits for
// their arrival under a processing directory.
package mdoc

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Info holds the acquisition parameters read from one mdoc file. Tilt angles
// are rounded to whole degrees; pixel spacing is converted from ångströms to
// nanometers and kept as a string so directive files render it verbatim.
type Info struct {
	TiltAngles    []int
	Defocus       []float64
	Magnification string
	PixelSpacing  string

	TiltMin    int
	TiltMax    int
	TiltStep   int
	DefocusAvg float64
}

// ParseFile reads and parses the mdoc at path.
func ParseFile(path string) (*Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mdoc: %w", err)
	}
	defer file.Close()

	info, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return info, nil
}

// Parse extracts tilt angles, defocus values, magnification, and pixel
// spacing from mdoc text and derives the tilt range and defocus average.
// A document without tilt angles is rejected; defocus lines are optional.
func Parse(r io.Reader) (*Info, error) {
	info := &Info{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		value, ok := splitValue(line)
		if !ok {
			continue
		}
		switch {
		case strings.Contains(line, "TiltAngle"):
			angle, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("tilt angle %q: %w", value, err)
			}
			info.TiltAngles = append(info.TiltAngles, int(math.Round(angle)))
		case strings.Contains(line, "Defocus") && !strings.Contains(line, "Target"):
			defocus, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("defocus %q: %w", value, err)
			}
			info.Defocus = append(info.Defocus, defocus)
		case strings.Contains(line, "Magnification"):
			info.Magnification = value
		case strings.Contains(line, "PixelSpacing"):
			spacing, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("pixel spacing %q: %w", value, err)
			}
			info.PixelSpacing = formatSpacing(spacing)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read mdoc: %w", err)
	}

	if len(info.TiltAngles) == 0 {
		return nil, fmt.Errorf("no tilt angles recorded")
	}

	info.TiltMin = info.TiltAngles[0]
	info.TiltMax = info.TiltAngles[0]
	for _, angle := range info.TiltAngles[1:] {
		if angle < info.TiltMin {
			info.TiltMin = angle
		}
		if angle > info.TiltMax {
			info.TiltMax = angle
		}
	}
	span := math.Abs(float64(info.TiltMax - info.TiltMin))
	info.TiltStep = int(math.Round(span / float64(len(info.TiltAngles))))

	if len(info.Defocus) > 0 {
		sum := 0.0
		for _, defocus := range info.Defocus {
			sum += defocus
		}
		info.DefocusAvg = math.Round(sum/float64(len(info.Defocus))*100) / 100
	}

	return info, nil
}

func splitValue(line string) (string, bool) {
	key, value, found := strings.Cut(line, "=")
	if !found || strings.TrimSpace(key) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// formatSpacing converts an ångström spacing to nanometers rounded to two
// decimals, without trailing zeros.
func formatSpacing(angstroms float64) string {
	nm := math.Round(angstroms/10*100) / 100
	return strconv.FormatFloat(nm, 'f', -1, 64)
}
