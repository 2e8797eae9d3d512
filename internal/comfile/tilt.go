package comfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TiltTemplate is the etomo-produced tilt command file a dataset may carry.
// When present it seeds the per-half files so reconstruction parameters the
// operator tuned survive into the halves.
const TiltTemplate = "tilt.com"

// TiltFileName returns the per-half tilt command file name.
func TiltFileName(half string) string {
	return "tilt_" + half + ".com"
}

// TiltParams capture everything a tilt command file needs. Thickness and the
// full image size only apply when synthesizing from scratch; template renders
// keep the template's values.
type TiltParams struct {
	Name      string
	Bin       int
	GPU       int
	SIRTIters int
	Thickness int
	FullX     int
	FullY     int
	Views     int
}

// SynthesizeTilt renders a tilt command file for one half from scratch.
func SynthesizeTilt(p TiltParams, half string) string {
	var b strings.Builder
	b.WriteString("$setenv IMOD_OUTPUT_FORMAT MRC\n")
	b.WriteString("$tilt -StandardInput\n")
	fmt.Fprintf(&b, "FakeSIRTiterations\t%d\n", p.SIRTIters)
	fmt.Fprintf(&b, "InputProjections %s_ali.mrc\n", p.Name)
	fmt.Fprintf(&b, "OutputFile\t%s_full_rec_%s.mrc\n", p.Name, half)
	fmt.Fprintf(&b, "IMAGEBINNED\t%d\n", p.Bin)
	fmt.Fprintf(&b, "TILTFILE %s.tlt\n", p.Name)
	fmt.Fprintf(&b, "XTILTFILE %s.xtilt\n", p.Name)
	fmt.Fprintf(&b, "UseGPU\t%d\n", p.GPU)
	fmt.Fprintf(&b, "THICKNESS\t%d\n", p.Thickness)
	b.WriteString("RADIAL .35 .035\n")
	b.WriteString("FalloffIsTrueSigma 1\n")
	b.WriteString("SCALE 0 0.00144\n")
	b.WriteString("PERPENDICULAR\n")
	b.WriteString("MODE 1\n")
	fmt.Fprintf(&b, "FULLIMAGE\t %d %d\n", p.FullX, p.FullY)
	b.WriteString("SUBSETSTART\t0 0\n")
	b.WriteString("AdjustOrigin 1\n")
	b.WriteString(IncludeLine(p.Views, half) + "\n")
	b.WriteString("$if (-e ./savework) ./savework")
	return b.String()
}

// RenderTiltFromTemplate adapts an existing tilt.com for one half.
// Substitution is anchored on each line's first field, so TILTFILE never
// rewrites an XTILTFILE line and key matches are exact. Lines without a
// keyed first field pass through byte for byte. The view selection is
// appended as the final line.
func RenderTiltFromTemplate(template string, p TiltParams, half string) string {
	lines := strings.Split(template, "\n")
	for i, line := range lines {
		switch firstField(line) {
		case "InputProjections":
			lines[i] = fmt.Sprintf("InputProjections %s_ali.mrc", p.Name)
		case "OutputFile":
			lines[i] = fmt.Sprintf("OutputFile\t%s_full_rec_%s.mrc", p.Name, half)
		case "IMAGEBINNED":
			lines[i] = fmt.Sprintf("IMAGEBINNED\t%d", p.Bin)
		case "TILTFILE":
			lines[i] = fmt.Sprintf("TILTFILE %s.tlt", p.Name)
		case "XTILTFILE":
			lines[i] = fmt.Sprintf("XTILTFILE %s.xtilt", p.Name)
		case "UseGPU":
			lines[i] = fmt.Sprintf("UseGPU\t%d", p.GPU)
		}
	}
	out := strings.Join(lines, "\n")
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out + IncludeLine(p.Views, half)
}

func firstField(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// RecThickness derives the THICKNESS value for a synthesized tilt file from
// the full stack width and the completed reconstruction's dimensions. The
// integer division recovers the binning factor the reconstruction used.
func RecThickness(fullX, recX, recZ int) int {
	if recX <= 0 {
		return 0
	}
	return (fullX / recX) * recZ
}

// WriteTiltComs writes tilt_evens.com and tilt_odds.com into the dataset
// directory, seeding from an existing tilt.com when one is present and
// synthesizing otherwise. It reports whether a template was used.
func WriteTiltComs(dir string, p TiltParams) (bool, error) {
	template, err := os.ReadFile(filepath.Join(dir, TiltTemplate))
	fromTemplate := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("read %s: %w", TiltTemplate, err)
	}

	for _, half := range []string{HalfEvens, HalfOdds} {
		var content string
		if fromTemplate {
			content = RenderTiltFromTemplate(string(template), p, half)
		} else {
			content = SynthesizeTilt(p, half)
		}
		name := TiltFileName(half)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fromTemplate, fmt.Errorf("write %s: %w", name, err)
		}
	}
	return fromTemplate, nil
}
