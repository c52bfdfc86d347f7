package monitor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/stretchr/testify/require"
	"github.com/vigiacam/vigia/pkg/nn"
)

func writeTestJPEG(t *testing.T, path string, r, g, b uint8) {
	pixels := make([]byte, 64*48*3)
	for i := 0; i < len(pixels); i += 3 {
		pixels[i] = r
		pixels[i+1] = g
		pixels[i+2] = b
	}
	img := cimg.WrapImage(64, 48, cimg.PixelFormatRGB, pixels)
	jpg, err := cimg.Compress(img, cimg.MakeCompressParams(cimg.Sampling420, 90, 0))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, jpg, 0644))
}

func TestDirectorySource(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		writeTestJPEG(t, filepath.Join(dir, fmt.Sprintf("%06d.jpg", i)), 0, 0, 255)
	}
	// Not a frame, must be ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	dets := []nn.ObjectDetection{{
		Class:      nn.ClassCar,
		Confidence: 0.9,
		Box:        nn.MakeRect(10, 10, 40, 30),
	}}
	detsJSON, err := json.Marshal(dets)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001.json"), detsJSON, 0644))

	src, err := NewDirectorySource(dir, 25)
	require.NoError(t, err)
	require.Equal(t, 3, src.NumFrames())

	width, height, err := src.Dimensions()
	require.NoError(t, err)
	require.Equal(t, 64, width)
	require.Equal(t, 48, height)

	f0, err := src.NextFrame()
	require.NoError(t, err)
	require.Equal(t, 0.0, f0.Timestamp)
	require.Equal(t, 64, f0.Image.ImageWidth)
	require.Equal(t, 48, f0.Image.ImageHeight)
	require.Empty(t, f0.Detections)

	f1, err := src.NextFrame()
	require.NoError(t, err)
	require.Equal(t, 1.0/25, f1.Timestamp)
	require.Len(t, f1.Detections, 1)
	require.Equal(t, nn.ClassCar, f1.Detections[0].Class)

	_, err = src.NextFrame()
	require.NoError(t, err)
	_, err = src.NextFrame()
	require.Equal(t, io.EOF, err)
}

func TestDirectorySourceBadInputs(t *testing.T) {
	_, err := NewDirectorySource(t.TempDir(), 0)
	require.Error(t, err)
	_, err = NewDirectorySource("/does/not/exist", 25)
	require.Error(t, err)
}
