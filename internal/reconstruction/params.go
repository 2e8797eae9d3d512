package reconstruction

import (
	"fmt"
	"strconv"
	"strings"
)

// ParamCount is the number of positional parameters the launcher takes,
// in the order the acquisition shell passes them.
const ParamCount = 33

// EmptyValue is the sentinel passed for parameters the pipeline should
// derive instead of take verbatim.
const EmptyValue = "EMPTY"

// Tracking methods accepted by the batch reconstructor.
const (
	TrackFiducial = 0
	TrackPatch    = 1
)

// Params carries the launch parameters in shell order. Values that are only
// rendered into the directive file stay strings so the output reproduces the
// operator's input exactly; values the launcher branches on are parsed.
type Params struct {
	CPUs               string
	GPUs               string
	OutputDir          string
	ReadMdoc           int
	RemoveXrays        int
	PrealignBin        string
	TrackMethod        int
	GoldSize           string
	FinalBin           int
	DoSIRT             int
	DoTrimvol          int
	PixelSize          string
	TiltAxis           string
	DoseSymmetric      int
	Voltage            string
	Cs                 string
	Reorient           string
	Thickness          string
	UseSobel           int
	NumBeads           string
	SobelSigma         string
	PatchSize          [2]string
	PatchOverlap       [2]string
	CorrectCTF         int
	DefocusRange       [2]string
	AutofitRange       string
	AutofitStep        string
	TuneFittingSample  string
	FakeSIRTIterations string
}

// ParseParams validates the positional launch parameters. Flags must be 0 or
// 1, counts must be positive integers, and the unbinned reconstruction
// thickness is derived from the binned value when one is given.
func ParseParams(args []string) (*Params, error) {
	if len(args) != ParamCount {
		return nil, fmt.Errorf("expected %d pipeline parameters, got %d", ParamCount, len(args))
	}
	trimmed := make([]string, len(args))
	for i, arg := range args {
		trimmed[i] = strings.TrimSpace(arg)
	}
	args = trimmed

	p := &Params{
		CPUs:               args[0],
		GPUs:               args[1],
		OutputDir:          args[2],
		PrealignBin:        args[5],
		GoldSize:           args[7],
		PixelSize:          args[11],
		TiltAxis:           args[12],
		Voltage:            args[14],
		Cs:                 args[15],
		Reorient:           args[16],
		NumBeads:           args[20],
		SobelSigma:         args[21],
		PatchSize:          [2]string{args[22], args[23]},
		PatchOverlap:       [2]string{args[24], args[25]},
		DefocusRange:       [2]string{args[27], args[28]},
		AutofitRange:       args[29],
		AutofitStep:        args[30],
		TuneFittingSample:  args[31],
		FakeSIRTIterations: args[32],
	}

	var err error
	if p.ReadMdoc, err = parseFlag("read_mdoc", args[3]); err != nil {
		return nil, err
	}
	if p.RemoveXrays, err = parseFlag("remove_xrays", args[4]); err != nil {
		return nil, err
	}
	if p.TrackMethod, err = strconv.Atoi(args[6]); err != nil || (p.TrackMethod != TrackFiducial && p.TrackMethod != TrackPatch) {
		return nil, fmt.Errorf("tracking method %q is not supported", args[6])
	}
	if p.FinalBin, err = parseCount("final_bin", args[8]); err != nil {
		return nil, err
	}
	if p.DoSIRT, err = parseFlag("do_sirt", args[9]); err != nil {
		return nil, err
	}
	if p.DoTrimvol, err = parseFlag("do_trimvol", args[10]); err != nil {
		return nil, err
	}
	if p.DoseSymmetric, err = parseFlag("dose_sym", args[13]); err != nil {
		return nil, err
	}
	if p.UseSobel, err = parseFlag("use_sobel", args[19]); err != nil {
		return nil, err
	}
	if p.CorrectCTF, err = parseFlag("do_ctf", args[26]); err != nil {
		return nil, err
	}
	if _, err = parseCount("cpus", p.CPUs); err != nil {
		return nil, err
	}
	if p.OutputDir == "" {
		return nil, fmt.Errorf("out_dir is required")
	}

	if p.Thickness, err = resolveThickness(args[17], args[18], p.FinalBin); err != nil {
		return nil, err
	}

	return p, nil
}

// resolveThickness applies the binned-thickness fixup: when a binned value is
// given, unbinned thickness = binned x final binning.
func resolveThickness(binned, unbinned string, finalBin int) (string, error) {
	if binned != EmptyValue {
		value, err := parseCount("thickness_binned", binned)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(value * finalBin), nil
	}
	if unbinned == EmptyValue {
		return "", fmt.Errorf("either thickness_binned or thickness_unbinned is required")
	}
	value, err := parseCount("thickness_unbinned", unbinned)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(value), nil
}

func parseFlag(name, value string) (int, error) {
	switch value {
	case "0":
		return 0, nil
	case "1":
		return 1, nil
	default:
		return 0, fmt.Errorf("%s must be 0 or 1 (got %q)", name, value)
	}
}

func parseCount(name, value string) (int, error) {
	count, err := strconv.Atoi(value)
	if err != nil || count <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer (got %q)", name, value)
	}
	return count, nil
}
