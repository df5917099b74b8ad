package pose

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/banshee-data/tracklets/internal/fsutil"
	"github.com/banshee-data/tracklets/internal/monitoring"
	"github.com/banshee-data/tracklets/internal/tracklet"
)

const jsonSuffix = ".json"

// Source yields the OpenPose frame records of one video, in frame order.
type Source interface {
	Frames(ctx context.Context) ([]Frame, error)
}

// ZipSource reads frame records from a zip archive. A nil FS reads from
// the OS.
type ZipSource struct {
	FS   fsutil.FileSystem
	Path string
}

// Frames implements Source.
func (s ZipSource) Frames(ctx context.Context) ([]Frame, error) {
	fs := s.FS
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	data, err := fs.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", s.Path, err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", s.Path, err)
	}
	return ReadZip(ctx, zr)
}

// ReadZip reads every .json member of zr in lexicographic name order.
func ReadZip(ctx context.Context, zr *zip.Reader) ([]Frame, error) {
	var members []*zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, jsonSuffix) {
			members = append(members, f)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })

	monitoring.Logf("loading %d json records from archive", len(members))

	frames := make([]Frame, 0, len(members))
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rc, err := m.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", m.Name, err)
		}
		frame, err := DecodeFrame(m.Name, rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// DirSource reads frame records from a directory of JSON files.
type DirSource struct {
	FS  fsutil.FileSystem
	Dir string
}

// Frames implements Source.
func (s DirSource) Frames(ctx context.Context) ([]Frame, error) {
	names, err := s.FS.ListFiles(s.Dir, jsonSuffix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.Dir, err)
	}

	monitoring.Logf("loading %d json records from %s", len(names), s.Dir)

	frames := make([]Frame, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := s.FS.Open(filepath.Join(s.Dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		frame, err := DecodeFrame(name, f)
		f.Close()
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// OpenSource returns a DirSource when path is a directory and a ZipSource
// otherwise.
func OpenSource(fs fsutil.FileSystem, path string) (Source, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("input %s: %w", path, err)
	}
	if info.IsDir() {
		return DirSource{FS: fs, Dir: path}, nil
	}
	return ZipSource{FS: fs, Path: path}, nil
}

// Load reads a source and extracts its feature matrix. It returns
// ErrNoPoses when no skeleton was found.
func Load(ctx context.Context, src Source) (tracklet.Features, int, error) {
	frames, err := src.Frames(ctx)
	if err != nil {
		return nil, 0, err
	}
	features, err := Extract(frames)
	if err != nil {
		return nil, len(frames), err
	}
	if len(features) == 0 {
		return nil, len(frames), ErrNoPoses
	}
	return features, len(frames), nil
}
