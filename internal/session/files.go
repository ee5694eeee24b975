package session

import (
	"encoding/csv"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/mrz1836/aegir/internal/device"
	"github.com/mrz1836/aegir/internal/errors"
)

const (
	dirPerm  = 0o750
	filePerm = 0o640
)

// writeAtomic writes through a temp file in the target directory and
// renames it into place, so readers never see a partial file.
func writeAtomic(path string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp file")
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return errors.Wrap(err, "failed to set file mode")
	}
	return errors.Wrapf(os.Rename(tmpName, path), "failed to rename into %s", path)
}

func writeJSON(path string, v any) error {
	return writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "failed to encode json")
	})
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path is inside the configured sessions dir
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writePNG stores f as 16-bit grayscale, scaling pixel values up from the
// frame's bit depth.
func writePNG(path string, f *device.Frame) error {
	if f == nil || f.Width <= 0 || f.Height <= 0 || len(f.Pixels) < f.Width*f.Height {
		return errors.Wrap(errors.ErrCaptureFailed, "frame has no usable pixels")
	}

	shift := 0
	if f.BitDepth > 0 && f.BitDepth < 16 {
		shift = 16 - f.BitDepth
	}

	img := image.NewGray16(image.Rect(0, 0, f.Width, f.Height))
	for i, v := range f.Pixels[:f.Width*f.Height] {
		v <<= shift
		img.Pix[2*i] = byte(v >> 8)
		img.Pix[2*i+1] = byte(v)
	}

	return writeAtomic(path, func(w io.Writer) error {
		return errors.Wrap(png.Encode(w, img), "failed to encode png")
	})
}

// appendCSV appends one row to path, writing the header first when the
// file is new or empty.
func appendCSV(path string, header, row []string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, filePerm) // #nosec G304 -- path is inside the configured sessions dir
	if err != nil {
		return errors.Wrap(err, "failed to open csv")
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "failed to stat csv")
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return errors.Wrap(err, "failed to write csv header")
		}
	}
	if err := w.Write(row); err != nil {
		return errors.Wrap(err, "failed to write csv row")
	}
	w.Flush()
	return errors.Wrap(w.Error(), "failed to flush csv")
}
