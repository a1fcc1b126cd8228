// Package cmd holds camseq's subcommands.
package cmd

import (
	"errors"
	"os"

	"github.com/smazurov/camseq/internal/config"
)

// loadProfile reads the profile at path, falling back to the built-in
// default when the file does not exist.
func loadProfile(path string) (*config.Profile, error) {
	p, err := config.LoadProfile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.DefaultProfile(), nil
	}
	return p, err
}
