package main

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"tlog.app/go/errors"
)

// profile is the optional minicc.toml build profile, found by walking
// parent directories from the working directory.
type profile struct {
	Build buildConfig `toml:"build"`
}

type buildConfig struct {
	Output string `toml:"output"` // "-" writes to stdout
}

func loadProfile(startDir string) (*profile, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolve start directory")
	}

	for {
		candidate := filepath.Join(dir, "minicc.toml")

		_, err := os.Stat(candidate)
		if err == nil {
			var p profile

			_, err = toml.DecodeFile(candidate, &p)
			if err != nil {
				return nil, errors.Wrap(err, "decode %v", candidate)
			}

			return &p, nil
		}
		if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "stat %v", candidate)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}

		dir = parent
	}
}
