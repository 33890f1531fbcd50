package models

import (
	"errors"
	"testing"

	"github.com/HatiCode/demandcast/pkg/models"
)

func TestBuild(t *testing.T) {
	ms, err := Build([]string{"croston_optimized", " CROSTON_CLASSIC ", "ses_optimized"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []string{"croston_optimized", "croston_classic", "ses_optimized"}
	if len(ms) != len(want) {
		t.Fatalf("len = %d, want %d", len(ms), len(want))
	}
	for i, m := range ms {
		if m.Name() != want[i] {
			t.Errorf("ms[%d].Name() = %q, want %q", i, m.Name(), want[i])
		}
	}
}

func TestBuild_Unknown(t *testing.T) {
	_, err := Build([]string{"croston_optimized", "prophet"})
	if !errors.Is(err, models.ErrUnknownModel) {
		t.Errorf("Build() error = %v, want ErrUnknownModel", err)
	}
}
