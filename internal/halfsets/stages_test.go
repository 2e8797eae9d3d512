package halfsets_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tomopipe/internal/dataset"
	"tomopipe/internal/halfsets"
	"tomopipe/internal/logging"
	"tomopipe/internal/queue"
	"tomopipe/internal/services/imod"
	"tomopipe/internal/testsupport"
)

func newItem(dir, name string) *queue.Item {
	return &queue.Item{Name: name, Directory: dir, Status: queue.StatusPending}
}

func TestClassifierRoutesByMetadata(t *testing.T) {
	cases := []struct {
		name      string
		metadata  []string
		wantState dataset.MetadataState
		wantErr   bool
	}{
		{name: "direct", metadata: []string{"_ali.mrc", ".tlt", ".xtilt"}, wantState: dataset.StateDirect},
		{name: "realign", metadata: []string{".xf", ".tlt", ".xtilt"}, wantState: dataset.StateRealign},
		{name: "absent", metadata: []string{".xf", ".tlt"}, wantState: dataset.StateAbsent, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeDataset(t, t.TempDir(), "TS_01", tc.metadata...)
			item := newItem(dir, "TS_01")

			classifier := halfsets.NewClassifier(logging.NewNop())
			if err := classifier.Prepare(context.Background(), item); err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			err := classifier.Execute(context.Background(), item)
			if tc.wantErr && err == nil {
				t.Fatal("expected classification error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if item.MetadataState != string(tc.wantState) {
				t.Fatalf("metadata state = %q, want %q", item.MetadataState, tc.wantState)
			}
		})
	}
}

func TestAlignerSkipsDirectDatasets(t *testing.T) {
	dir := writeDataset(t, t.TempDir(), "TS_01", "_ali.mrc", ".tlt", ".xtilt")
	cfg := testsupport.NewConfig(t)
	stub := &scriptedExecutor{}
	client, err := imod.New("subm", "trimvol", 0, imod.WithExecutor(stub))
	if err != nil {
		t.Fatalf("imod.New: %v", err)
	}

	item := newItem(dir, "TS_01")
	item.MetadataState = string(dataset.StateDirect)
	aligner := halfsets.NewAligner(cfg, logging.NewNop(), client)
	if err := aligner.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := aligner.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(stub.calls) != 0 {
		t.Fatalf("aligner ran tools for a direct dataset: %v", stub.names())
	}
	if _, err := os.Stat(filepath.Join(dir, "newst.com")); err == nil {
		t.Fatal("newst.com written for a direct dataset")
	}
}

func TestStageHealthWithoutTools(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	t.Setenv("IMOD_DIR", t.TempDir())

	cfg := testsupport.NewConfig(t)
	client, err := imod.New("subm", "trimvol", 0)
	if err != nil {
		t.Fatalf("imod.New: %v", err)
	}

	if health := halfsets.NewClassifier(logging.NewNop()).HealthCheck(context.Background()); !health.Ready {
		t.Errorf("classifier unhealthy: %s", health.Detail)
	}
	if health := halfsets.NewAligner(cfg, logging.NewNop(), client).HealthCheck(context.Background()); health.Ready {
		t.Error("aligner healthy without subm on PATH")
	}
	if health := halfsets.NewReconstructor(cfg, logging.NewNop(), client).HealthCheck(context.Background()); health.Ready {
		t.Error("reconstructor healthy without subm on PATH")
	}
	if health := halfsets.NewRotator(cfg, logging.NewNop(), client).HealthCheck(context.Background()); health.Ready {
		t.Error("rotator healthy without trimvol on PATH")
	}
}

func TestStageHealthWithStubbedTools(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("subm", "trimvol"))
	client, err := imod.New("subm", "trimvol", 0)
	if err != nil {
		t.Fatalf("imod.New: %v", err)
	}

	if health := halfsets.NewAligner(cfg, logging.NewNop(), client).HealthCheck(context.Background()); !health.Ready {
		t.Errorf("aligner unhealthy: %s", health.Detail)
	}
	if health := halfsets.NewRotator(cfg, logging.NewNop(), client).HealthCheck(context.Background()); !health.Ready {
		t.Errorf("rotator unhealthy: %s", health.Detail)
	}
}
