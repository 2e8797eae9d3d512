package comfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NewstFile is the newstack command file name within a dataset directory.
const NewstFile = "newst.com"

// RenderNewst produces the newstack command file that regenerates an aligned
// stack from the raw tilt series and its transform.
func RenderNewst(name string, bin int) string {
	var b strings.Builder
	b.WriteString("$setenv IMOD_OUTPUT_FORMAT MRC\n")
	b.WriteString("$newstack -StandardInput\n")
	b.WriteString("AntialiasFilter\t4\n")
	fmt.Fprintf(&b, "InputFile\t%s.mrc\n", name)
	fmt.Fprintf(&b, "OutputFile\t%s_ali.mrc\n", name)
	fmt.Fprintf(&b, "TransformFile\t%s.xf\n", name)
	b.WriteString("LinearInterpolation\t0\n")
	fmt.Fprintf(&b, "BinByFactor\t%d\n", bin)
	b.WriteString("TaperAtFill\t1,1\n")
	b.WriteString("AdjustOrigin\n")
	b.WriteString("OffsetsInXandY\t0,0\n")
	b.WriteString("#DistortionField\t.idf\n")
	b.WriteString("ImagesAreBinned\t1\n")
	fmt.Fprintf(&b, "#GradientFile\t%s.maggrad\n", name)
	b.WriteString("$if (-e ./savework) ./savework")
	return b.String()
}

// WriteNewst renders and writes newst.com into the dataset directory.
func WriteNewst(dir, name string, bin int) error {
	path := filepath.Join(dir, NewstFile)
	if err := os.WriteFile(path, []byte(RenderNewst(name, bin)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", NewstFile, err)
	}
	return nil
}
