package led

import (
	"slices"
	"testing"
)

func TestNew(t *testing.T) {
	ctrl := New(discardLogger())
	if ctrl == nil {
		t.Fatal("New() returned nil")
	}
	if ctrl.Available() == nil || ctrl.Patterns() == nil {
		t.Error("Available() and Patterns() should never be nil")
	}
}

func TestNewForModel(t *testing.T) {
	tests := []struct {
		model     string
		wantRoles []string
	}{
		{"FriendlyElec NanoPC-T6", []string{RoleFlash, RoleTally}},
		{"Orange Pi 5 Plus", []string{RoleFlash, RoleTally}},
		{"Raspberry Pi 4 Model B Rev 1.4", []string{RoleTally}},
		{"unknown", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			ctrl := newForModel(tt.model, t.TempDir(), discardLogger())
			if got := ctrl.Available(); !slices.Equal(got, tt.wantRoles) {
				t.Errorf("Available() = %v, want %v", got, tt.wantRoles)
			}
		})
	}
}

func TestDetectBoard(t *testing.T) {
	if model := detectBoard(); model == "" {
		t.Error("detectBoard() returned empty string")
	}
}
