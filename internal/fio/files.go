package fio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jtjones1001/nvmeharness/internal/conversions"
)

// Target file sizes. The big file covers most of the drive so stress
// workloads touch cold media; the small file keeps short functional tests
// fast.
const (
	smallFileBytes  = conversions.BytesInGiB
	bigFileDiskFrac = 0.9
)

// Files locates and creates the files fio workloads read and write on the
// volume under test.
type Files struct {
	// Directory receives fio logs for file creation runs.
	Directory string

	// Volume is the mounted filesystem backing the drive under test.
	Volume string
}

// File describes one created workload target file.
type File struct {
	Path string
	Size int64
}

// BigFilePath returns the path of the big stress file, whether or not it
// exists yet.
func (f *Files) BigFilePath() string {
	return filepath.Join(f.Volume, "nvmeharness", "fio_big_file.bin")
}

// SmallFilePath returns the path of the small workload file.
func (f *Files) SmallFilePath() string {
	return filepath.Join(f.Volume, "nvmeharness", "fio_small_file.bin")
}

// Create lays out a workload file if it does not already exist, using fio
// itself so the data carries verification patterns when verify is set.
// diskSizeBytes is only consulted for the big file.
func (f *Files) Create(ctx context.Context, big, verify bool, diskSizeBytes float64) (*File, error) {
	path := f.SmallFilePath()
	size := int64(smallFileBytes)
	if big {
		path = f.BigFilePath()
		size = int64(diskSizeBytes * bigFileDiskFrac)
	}

	if info, err := os.Stat(path); err == nil {
		return &File{Path: path, Size: info.Size()}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create fio file directory: %w", err)
	}

	args := []string{
		"--direct=1",
		"--thread",
		"--numjobs=1",
		"--rw=write",
		"--iodepth=32",
		"--bs=1M",
		fmt.Sprintf("--filesize=%d", size),
		fmt.Sprintf("--filename=%s", path),
		fmt.Sprintf("--output=%s", filepath.Join(f.Directory, OutputFile)),
		"--output-format=json",
		"--name=create-file",
	}
	if verify {
		args = append(args,
			"--verify=crc32c",
			"--verify_state_save=0",
		)
	}

	if _, err := Run(ctx, args, f.Directory); err != nil {
		return nil, fmt.Errorf("create fio file: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat created fio file: %w", err)
	}
	return &File{Path: path, Size: info.Size()}, nil
}
