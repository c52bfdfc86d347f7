package monitor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmharper/cimg/v2"
	"github.com/vigiacam/vigia/pkg/nn"
)

// DirectorySource replays a directory of JPEG frames in filename order.
// A frame "000123.jpg" may have a sidecar "000123.json" holding the object
// detections for that frame (a JSON array of nn.ObjectDetection); frames
// without a sidecar are fed through with no detections.
//
// This is the offline ingest path: a decoder/detector pair upstream dumps
// frames and detections to disk, and we process them at the configured fps.
type DirectorySource struct {
	FPS float64

	dir   string
	files []string
	next  int
}

// NewDirectorySource scans dir for .jpg/.jpeg files. fps defines the video
// timestamp of frame i as i/fps.
func NewDirectorySource(dir string, fps float64) (*DirectorySource, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("Directory source fps must be positive, got %v", fps)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("Failed to scan frame directory %v: %w", dir, err)
	}
	files := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".jpg" || ext == ".jpeg" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return &DirectorySource{
		FPS:   fps,
		dir:   dir,
		files: files,
	}, nil
}

// NumFrames returns the number of frames found in the directory.
func (s *DirectorySource) NumFrames() int {
	return len(s.files)
}

// Dimensions decodes the first frame to report the video dimensions, without
// consuming it.
func (s *DirectorySource) Dimensions() (width, height int, err error) {
	if len(s.files) == 0 {
		return 0, 0, fmt.Errorf("No frames in %v", s.dir)
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, s.files[0]))
	if err != nil {
		return 0, 0, err
	}
	img, err := cimg.Decompress(raw)
	if err != nil {
		return 0, 0, fmt.Errorf("Failed to decode frame %v: %w", s.files[0], err)
	}
	return img.Width, img.Height, nil
}

func (s *DirectorySource) NextFrame() (*Frame, error) {
	if s.next >= len(s.files) {
		return nil, io.EOF
	}
	name := s.files[s.next]
	idx := s.next
	s.next++

	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("Failed to read frame %v: %w", name, err)
	}
	img, err := cimg.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("Failed to decode frame %v: %w", name, err)
	}
	if img.NChan() != 3 {
		img = img.ToRGB()
	}

	frame := &Frame{
		Image:     nn.WholeImage(img.NChan(), img.Pixels, img.Width, img.Height),
		Timestamp: float64(idx) / s.FPS,
	}

	sidecar := strings.TrimSuffix(name, filepath.Ext(name)) + ".json"
	if dets, err := os.ReadFile(filepath.Join(s.dir, sidecar)); err == nil {
		if err := json.Unmarshal(dets, &frame.Detections); err != nil {
			return nil, fmt.Errorf("Invalid detections sidecar %v: %w", sidecar, err)
		}
	}

	return frame, nil
}
