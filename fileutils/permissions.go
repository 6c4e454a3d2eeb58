package fileutils

import (
	"errors"
	"os"
)

// VerifyWritable returns nil when dirPath is a directory new files can be
// created in.
func VerifyWritable(dirPath string) error {
	probe, err := os.CreateTemp(dirPath, ".probe-*")
	if err != nil {
		return err
	}
	return errors.Join(probe.Close(), os.Remove(probe.Name()))
}
