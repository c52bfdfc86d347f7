package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
	"github.com/vigiacam/vigia/pkg/colorclass"
	"github.com/vigiacam/vigia/pkg/nn"
	"github.com/vigiacam/vigia/server/monitor"
)

const (
	testWidth  = 320
	testHeight = 240
	testFPS    = 30.0
)

func solidFrame(r, g, b uint8, centerY int, frameIndex int) *monitor.Frame {
	pixels := make([]byte, testWidth*testHeight*3)
	for i := 0; i < len(pixels); i += 3 {
		pixels[i] = r
		pixels[i+1] = g
		pixels[i+2] = b
	}
	return &monitor.Frame{
		Image: nn.WholeImage(3, pixels, testWidth, testHeight),
		Detections: []nn.ObjectDetection{{
			Class:      nn.ClassCar,
			Confidence: 0.9,
			Box:        nn.MakeRect(140, centerY-20, 180, centerY+20),
		}},
		Timestamp: float64(frameIndex) / testFPS,
	}
}

func runBlueCar(t *testing.T) *monitor.Monitor {
	centers := []int{90, 96, 102, 108, 114, 120, 126, 132}
	frames := make([]*monitor.Frame, 0, len(centers))
	for i, cy := range centers {
		frames = append(frames, solidFrame(0, 0, 255, cy, i))
	}
	m, err := monitor.NewMonitor(logs.NewTestingLog(t), &monitor.FrameList{Frames: frames}, monitor.Options{
		FrameWidth:   testWidth,
		FrameHeight:  testHeight,
		FPS:          testFPS,
		LinePosition: 0.5,
	})
	require.NoError(t, err)
	m.WaitFinished()
	return m
}

func TestBuildAndJSON(t *testing.T) {
	m := runBlueCar(t)
	defer m.Close()

	r := Build(m)
	require.Equal(t, 1, r.Counting.TotalEntrada)
	require.Len(t, r.Records, 1)
	require.Equal(t, colorclass.Azul, r.MostCommonColor)
	require.Equal(t, 1, r.ColorDistribution[colorclass.Azul])
	require.Equal(t, 1, r.Summary.TotalVehicles)

	buf := bytes.Buffer{}
	require.NoError(t, r.WriteJSON(&buf))

	decoded := map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "azul", decoded["mostCommonColor"])
}

func TestWritePDF(t *testing.T) {
	m := runBlueCar(t)
	defer m.Close()

	buf := bytes.Buffer{}
	require.NoError(t, Build(m).WritePDF(&buf))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestEmptyReport(t *testing.T) {
	m, err := monitor.NewMonitor(logs.NewTestingLog(t), &monitor.FrameList{}, monitor.Options{
		FrameWidth:   testWidth,
		FrameHeight:  testHeight,
		FPS:          testFPS,
		LinePosition: 0.5,
	})
	require.NoError(t, err)
	defer m.Close()
	m.WaitFinished()

	r := Build(m)
	require.Equal(t, colorclass.Color(""), r.MostCommonColor)

	buf := bytes.Buffer{}
	require.NoError(t, r.WritePDF(&buf))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}
