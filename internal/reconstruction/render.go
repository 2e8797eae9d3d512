package reconstruction

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File names of the batch reconstructor's master inputs.
const (
	MasterComName  = "BRT_MASTER.com"
	MasterADOCName = "BRT_MASTER.adoc"
)

// WriteMasterFiles renders the master command file and directive file into
// comsDir and returns their paths. outDir is the processing location the
// command file points the reconstructor at.
func WriteMasterFiles(comsDir, outDir string, p *Params) (string, string, error) {
	if err := os.MkdirAll(comsDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create %s: %w", comsDir, err)
	}
	comPath := filepath.Join(comsDir, MasterComName)
	adocPath := filepath.Join(comsDir, MasterADOCName)

	if err := os.WriteFile(adocPath, []byte(masterADOC(p)), 0o644); err != nil {
		return "", "", fmt.Errorf("write directive file: %w", err)
	}
	if err := os.WriteFile(comPath, []byte(masterCom(p, adocPath, outDir)), 0o644); err != nil {
		return "", "", fmt.Errorf("write command file: %w", err)
	}
	return comPath, adocPath, nil
}

func masterCom(p *Params, adocPath, outDir string) string {
	var b strings.Builder
	b.WriteString("$batchruntomo -StandardInput\n")
	b.WriteString("NamingStyle     1\n")
	b.WriteString("MakeSubDirectory\n")
	fmt.Fprintf(&b, "CPUMachineList  localhost:%s\n", p.CPUs)
	fmt.Fprintf(&b, "GPUMachineList  %s\n", p.GPUs)
	b.WriteString("NiceValue       15\n")
	b.WriteString("EtomoDebug      0\n")
	fmt.Fprintf(&b, "DirectiveFile   %s\n", adocPath)
	fmt.Fprintf(&b, "CurrentLocation %s\n", outDir)
	b.WriteString("BypassEtomo\n")
	return b.String()
}

// masterADOC renders the directive document. The fixed block comes first,
// then the tracking-method block, the CTF block when correction is enabled,
// and the SIRT-like iteration count when true SIRT is off.
func masterADOC(p *Params) string {
	var b strings.Builder
	b.WriteString("setupset.systemTemplate = /usr/local/IMOD/SystemTemplate/cryoSample.adoc\n")
	fmt.Fprintf(&b, "runtime.Preprocessing.any.removeXrays = %d\n", p.RemoveXrays)
	fmt.Fprintf(&b, "comparam.prenewst.newstack.BinByFactor = %s\n", p.PrealignBin)
	fmt.Fprintf(&b, "runtime.Fiducials.any.trackingMethod = %d\n", p.TrackMethod)
	fmt.Fprintf(&b, "setupset.copyarg.gold = %s\n", p.GoldSize)
	fmt.Fprintf(&b, "runtime.AlignedStack.any.binByFactor = %d\n", p.FinalBin)
	fmt.Fprintf(&b, "runtime.Reconstruction.any.useSirt = %d\n", p.DoSIRT)
	b.WriteString("runtime.Trimvol.any.scaleFromZ = \n")
	fmt.Fprintf(&b, "runtime.Postprocess.any.doTrimvol = %d\n", p.DoTrimvol)
	fmt.Fprintf(&b, "setupset.copyarg.pixel = %s\n", p.PixelSize)
	fmt.Fprintf(&b, "setupset.copyarg.rotation = %s\n", p.TiltAxis)
	fmt.Fprintf(&b, "setupset.copyarg.dosesym = %d\n", p.DoseSymmetric)
	fmt.Fprintf(&b, "setupset.copyarg.voltage = %s\n", p.Voltage)
	fmt.Fprintf(&b, "setupset.copyarg.Cs = %s\n", p.Cs)
	b.WriteString("comparam.prenewst.newstack.AntialiasFilter = 4\n")
	b.WriteString("comparam.newst.newstack.AntialiasFilter = 4\n")
	fmt.Fprintf(&b, "runtime.Trimvol.any.reorient = %s\n", p.Reorient)
	fmt.Fprintf(&b, "comparam.tilt.tilt.THICKNESS = %s\n", p.Thickness)

	switch p.TrackMethod {
	case TrackFiducial:
		b.WriteString("runtime.Fiducials.any.seedingMethod = 1\n")
		fmt.Fprintf(&b, "comparam.track.beadtrack.SobelFilterCentering = %d\n", p.UseSobel)
		fmt.Fprintf(&b, "comparam.autofidseed.autofidseed.TargetNumberOfBeads = %s\n", p.NumBeads)
		if p.UseSobel == 1 {
			fmt.Fprintf(&b, "comparam.track.beadtrack.KernelSigmaForSobel = %s\n", p.SobelSigma)
		}
	case TrackPatch:
		fmt.Fprintf(&b, "comparam.xcorr_pt.tiltxcorr.SizeOfPatchesXandY = %s,%s\n", p.PatchSize[0], p.PatchSize[1])
		fmt.Fprintf(&b, "comparam.xcorr_pt.tiltxcorr.OverlapOfPatchesXandY = %s,%s\n", p.PatchOverlap[0], p.PatchOverlap[1])
	}

	if p.CorrectCTF == 1 {
		fmt.Fprintf(&b, "runtime.AlignedStack.any.correctCTF = %d\n", p.CorrectCTF)
		fmt.Fprintf(&b, "comparam.ctfplotter.ctfplotter.ScanDefocusRange = %s,%s\n", p.DefocusRange[0], p.DefocusRange[1])
		fmt.Fprintf(&b, "runtime.CTFplotting.any.autoFitRangeAndStep = %s,%s\n", p.AutofitRange, p.AutofitStep)
		b.WriteString("comparam.ctfplotter.ctfplotter.BaselineFittingOrder = 4\n")
		b.WriteString("comparam.ctfplotter.ctfplotter.SearchAstigmatism = 1\n")
	}

	if p.DoSIRT == 0 {
		fmt.Fprintf(&b, "comparam.tilt.tilt.FakeSIRTiterations = %s", p.FakeSIRTIterations)
	}
	return b.String()
}
