// Package nn is the interface layer between the vehicle monitoring core and
// the external object detector + multi-object tracker.
// The core never runs a neural network itself; it consumes the per-frame
// output defined here.
package nn

import (
	"time"
)

const DefaultProbabilityThreshold = 0.5

// Vehicle classes, using the COCO class ids emitted by the detector.
const (
	ClassCar        = 2
	ClassMotorcycle = 3
	ClassBus        = 5
	ClassTruck      = 7
)

// VehicleClasses maps detector class ids to the vehicle type names used in
// counting and analytics records.
var VehicleClasses = map[int]string{
	ClassCar:        "car",
	ClassMotorcycle: "motorcycle",
	ClassBus:        "bus",
	ClassTruck:      "truck",
}

// IsVehicleClass returns true if the detector class id is one of the vehicle
// classes that we count.
func IsVehicleClass(class int) bool {
	_, ok := VehicleClasses[class]
	return ok
}

// VehicleTypeName returns the record name of a detector class id, or "car"
// when the class is unknown. "car" is the dominant class in practice, and a
// safe default for a box that the tracker handed us without a class name.
func VehicleTypeName(class int) string {
	if name, ok := VehicleClasses[class]; ok {
		return name
	}
	return "car"
}

// ObjectDetection is one raw detection in a frame, before tracking.
type ObjectDetection struct {
	Class      int     `json:"class"`
	Confidence float32 `json:"confidence"`
	Box        Rect    `json:"box"`
}

// TrackedBox is a detection that the tracker has bound to a stable identity.
// TrackID is a process-unique non-negative integer. A negative TrackID means
// the tracker has not (yet) assigned an identity; such boxes are ignored by
// counting and analytics.
type TrackedBox struct {
	TrackID    int64   `json:"trackID"`
	Class      int     `json:"class"`
	ClassName  string  `json:"className"`
	Confidence float32 `json:"confidence"`
	Box        Rect    `json:"box"`
}

// DetectionResult is the full output of one detector run on one frame.
type DetectionResult struct {
	ImageWidth  int               `json:"imageWidth"`
	ImageHeight int               `json:"imageHeight"`
	Objects     []ObjectDetection `json:"objects"`
	FramePTS    time.Time         `json:"framePTS"`
}

// ObjectDetector is given an image, and returns zero or more detected objects.
// Implementations live outside this repository (the detector is an external
// collaborator); pkg/tracker consumes this interface.
type ObjectDetector interface {
	// Close releases the detector's resources.
	Close()

	// DetectObjects returns a list of objects detected in the image.
	// img is expected to be 24-bit RGB.
	DetectObjects(img ImageCrop, minConfidence float32) ([]ObjectDetection, error)
}
