package download

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"
)

// Format is an archive container format.
type Format string

const (
	FormatZip   Format = "zip"
	FormatTarGz Format = "tar.gz"
	FormatTarXz Format = "tar.xz"
)

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// DetectFormat guesses the archive format from the URL path, falling back to
// the leading bytes of the downloaded data.
func DetectFormat(rawURL string, r io.ReaderAt) (Format, error) {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		name = u.Path
	}
	name = strings.ToLower(name)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return FormatTarXz, nil
	}

	head := make([]byte, len(xzMagic))
	n, err := r.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read archive header: %w", err)
	}
	head = head[:n]
	switch {
	case bytes.HasPrefix(head, zipMagic):
		return FormatZip, nil
	case bytes.HasPrefix(head, gzipMagic):
		return FormatTarGz, nil
	case bytes.HasPrefix(head, xzMagic):
		return FormatTarXz, nil
	}
	return "", fmt.Errorf("unsupported archive format: %s", rawURL)
}

// Extract unpacks the archive held by r (of the given size) into dest and
// returns the extracted file paths.
func Extract(r io.ReaderAt, size int64, format Format, dest string) ([]string, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, err
	}
	switch format {
	case FormatZip:
		return Unzip(r, size, dest)
	case FormatTarGz:
		zr, err := gzip.NewReader(io.NewSectionReader(r, 0, size))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return Untar(zr, dest)
	case FormatTarXz:
		xr, err := xz.NewReader(io.NewSectionReader(r, 0, size))
		if err != nil {
			return nil, err
		}
		return Untar(xr, dest)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", format)
	}
}

// safeJoin joins an archive entry name onto dest, refusing names that would escape it.
func safeJoin(dest, name string) (string, error) {
	slashed := strings.ReplaceAll(name, "\\", "/")
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return "", fmt.Errorf("illegal path in archive: %s", name)
		}
	}
	return filepath.Join(dest, filepath.FromSlash(path.Clean("/" + slashed)[1:])), nil
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if mode.Perm() == 0 {
		mode = 0o644
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.CopyBuffer(f, r, make([]byte, ChunkSize)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Unzip extracts every entry of the zip archive, preserving its folder structure.
func Unzip(r io.ReaderAt, size int64, dest string) ([]string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}

	var fNames []string

	// Closure to address file descriptors issue with all the deferred .Close() methods
	extractAndWriteFile := func(f *zip.File) error {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		if err := writeFile(target, rc, f.Mode()); err != nil {
			return err
		}
		fNames = append(fNames, target)
		return nil
	}

	for _, f := range zr.File {
		if err := extractAndWriteFile(f); err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
	}

	return fNames, nil
}

// Untar extracts a tar stream into dest. Symlinks are only created when they
// resolve inside dest.
func Untar(r io.Reader, dest string) ([]string, error) {
	var fNames []string

	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar header: %w", err)
		}

		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return nil, err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, header.FileInfo().Mode()); err != nil {
				return nil, fmt.Errorf("failed to extract %s: %w", header.Name, err)
			}
			fNames = append(fNames, target)
		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) {
				return nil, fmt.Errorf("illegal symlink in archive: %s -> %s", header.Name, header.Linkname)
			}
			resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(header.Linkname))
			if rel, err := filepath.Rel(dest, resolved); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return nil, fmt.Errorf("illegal symlink in archive: %s -> %s", header.Name, header.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return nil, err
			}
			os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return nil, err
			}
			fNames = append(fNames, target)
		case tar.TypeXGlobalHeader:
			continue
		default:
			log.WithField("entry", header.Name).Debugf("skipping tar entry of type %q", header.Typeflag)
		}
	}
	return fNames, nil
}
