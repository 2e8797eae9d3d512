package denoise

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"tomopipe/internal/config"
)

// File names of the rendered trainer configuration documents, written at the
// scan root where the denoiser is pointed.
const (
	FitConfigName    = "fit_config.yaml"
	RefineConfigName = "refine_config.yaml"
)

// projectDirName is the trainer's working directory under the scan root.
const projectDirName = "DDW"

// Trainer parameters the wrapper pins rather than exposing through the
// config file. Values match the DeepDeWedge defaults this pipeline was tuned
// with.
const (
	missingWedgeAngle  = 60
	samplingSeed       = 42
	minMaskFraction    = 0.3
	validationFraction = 0.2
	unetChannels       = 64
	unetDownsample     = 3
	unetDropProb       = 0.0
	wedgeUpdateCadence = 10
	valCheckCadence    = 10
	keepBestByVal      = 5
	keepBestByFit      = 5
	saveEveryNEpochs   = 50
	trainerLogger      = "csv"
	refineOverlap      = 32
	refineBatchSize    = 10
)

// Document is the full configuration consumed by both `ddw fit-model` and
// `ddw refine-tomogram`. Field order matters: the file is reviewed by
// operators and diffs between runs should stay stable.
type Document struct {
	Shared         Shared         `yaml:"shared"`
	PrepareData    PrepareData    `yaml:"prepare_data"`
	FitModel       FitModel       `yaml:"fit_model"`
	RefineTomogram RefineTomogram `yaml:"refine_tomogram"`
}

// Shared holds the parameters every ddw subcommand reads.
type Shared struct {
	ProjectDir  string   `yaml:"project_dir"`
	Tomo0Files  []string `yaml:"tomo0_files"`
	Tomo1Files  []string `yaml:"tomo1_files"`
	SubtomoSize int      `yaml:"subtomo_size"`
	MWAngle     int      `yaml:"mw_angle"`
	NumWorkers  int      `yaml:"num_workers"`
	GPU         int      `yaml:"gpu"`
	Seed        int      `yaml:"seed"`
	Overwrite   bool     `yaml:"overwrite"`
}

// PrepareData holds the subtomogram extraction parameters. MaskFiles is a
// pointer so an unset value renders as an explicit null, which is how the
// trainer expects "no masks".
type PrepareData struct {
	MaskFiles                       *[]string `yaml:"mask_files"`
	MinNonzeroMaskFractionInSubtomo float64   `yaml:"min_nonzero_mask_fraction_in_subtomo"`
	SubtomoExtractionStrides        []int     `yaml:"subtomo_extraction_strides"`
	ValFraction                     float64   `yaml:"val_fraction"`
}

// UNetParams configures the denoising network.
type UNetParams struct {
	Chans               int     `yaml:"chans"`
	NumDownsampleLayers int     `yaml:"num_downsample_layers"`
	DropProb            float64 `yaml:"drop_prob"`
}

// AdamParams configures the optimizer.
type AdamParams struct {
	LR float64 `yaml:"lr"`
}

// FitModel holds the training parameters.
type FitModel struct {
	UNetParams                             UNetParams `yaml:"unet_params_dict"`
	AdamParams                             AdamParams `yaml:"adam_params_dict"`
	NumEpochs                              int        `yaml:"num_epochs"`
	BatchSize                              int        `yaml:"batch_size"`
	UpdateSubtomoMissingWedgesEveryNEpochs int        `yaml:"update_subtomo_missing_wedges_every_n_epochs"`
	CheckValEveryNEpochs                   int        `yaml:"check_val_every_n_epochs"`
	SaveNModelsWithLowestValLoss           int        `yaml:"save_n_models_with_lowest_val_loss"`
	SaveNModelsWithLowestFittingLoss       int        `yaml:"save_n_models_with_lowest_fitting_loss"`
	SaveModelEveryNEpochs                  int        `yaml:"save_model_every_n_epochs"`
	Logger                                 string     `yaml:"logger"`
}

// RefineTomogram holds the refinement parameters. The checkpoint is null in
// the fitting document and filled in for refinement.
type RefineTomogram struct {
	ModelCheckpointFile *string `yaml:"model_checkpoint_file"`
	SubtomoOverlap      int     `yaml:"subtomo_overlap"`
	BatchSize           int     `yaml:"batch_size"`
}

// ProjectDir returns the trainer's working directory under the scan root.
func ProjectDir(root string) string {
	return filepath.Join(root, projectDirName)
}

// NewDocument assembles the configuration document for the given pairs with
// the pinned defaults and the tunable values from cfg.
func NewDocument(cfg *config.Config, root string, pairs []Pair) Document {
	evens := make([]string, 0, len(pairs))
	odds := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		evens = append(evens, pair.Evens)
		odds = append(odds, pair.Odds)
	}

	return Document{
		Shared: Shared{
			ProjectDir:  ProjectDir(root),
			Tomo0Files:  evens,
			Tomo1Files:  odds,
			SubtomoSize: cfg.Denoise.SubtomoSize,
			MWAngle:     missingWedgeAngle,
			NumWorkers:  cfg.Denoise.NumWorkers,
			GPU:         cfg.Denoise.GPU,
			Seed:        samplingSeed,
			Overwrite:   true,
		},
		PrepareData: PrepareData{
			MinNonzeroMaskFractionInSubtomo: minMaskFraction,
			SubtomoExtractionStrides:        []int{64, 80, 80},
			ValFraction:                     validationFraction,
		},
		FitModel: FitModel{
			UNetParams: UNetParams{
				Chans:               unetChannels,
				NumDownsampleLayers: unetDownsample,
				DropProb:            unetDropProb,
			},
			AdamParams:                             AdamParams{LR: cfg.Denoise.LearningRate},
			NumEpochs:                              cfg.Denoise.Epochs,
			BatchSize:                              cfg.Denoise.BatchSize,
			UpdateSubtomoMissingWedgesEveryNEpochs: wedgeUpdateCadence,
			CheckValEveryNEpochs:                   valCheckCadence,
			SaveNModelsWithLowestValLoss:           keepBestByVal,
			SaveNModelsWithLowestFittingLoss:       keepBestByFit,
			SaveModelEveryNEpochs:                  saveEveryNEpochs,
			Logger:                                 trainerLogger,
		},
		RefineTomogram: RefineTomogram{
			SubtomoOverlap: refineOverlap,
			BatchSize:      refineBatchSize,
		},
	}
}

// WriteFitConfig renders the fitting document for the training pairs and
// returns its path.
func WriteFitConfig(cfg *config.Config, root string, training []Pair) (string, error) {
	doc := NewDocument(cfg, root, training)
	return writeDocument(doc, filepath.Join(root, FitConfigName))
}

// WriteRefineConfig renders the refinement document listing every pair and
// the selected model checkpoint, and returns its path.
func WriteRefineConfig(cfg *config.Config, root string, pairs []Pair, checkpoint string) (string, error) {
	doc := NewDocument(cfg, root, pairs)
	doc.RefineTomogram.ModelCheckpointFile = &checkpoint
	return writeDocument(doc, filepath.Join(root, RefineConfigName))
}

func writeDocument(doc Document, path string) (string, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return path, nil
}
