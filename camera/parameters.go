package camera

import (
	"encoding/json"
	"io"
	"os"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/stereopipeline/bundleadjust/spatialmath"
)

// PinholeParameters is the JSON description of a pinhole camera.
type PinholeParameters struct {
	Focal      float64              `json:"focal_px"`
	Center     []float64            `json:"center_px"`
	Pose       []float64            `json:"pose"`
	Distortion DistortionParameters `json:"distortion"`
}

// DistortionParameters is the JSON description of a lens distortion model.
type DistortionParameters struct {
	Type       DistortionType `json:"type"`
	Parameters []float64      `json:"parameters"`
}

// Camera constructs the pinhole camera the parameters describe.
func (pp *PinholeParameters) Camera() (*Pinhole, error) {
	if len(pp.Center) != 2 {
		return nil, errors.Errorf("center_px must have 2 elements, got %d", len(pp.Center))
	}
	pose := spatialmath.NewZeroPose()
	if len(pp.Pose) != 0 {
		var err error
		pose, err = spatialmath.NewPoseFromVector(pp.Pose)
		if err != nil {
			return nil, err
		}
	}
	distortionType := pp.Distortion.Type
	if distortionType == "" {
		distortionType = NoDistortionType
	}
	distortion, err := NewDistorter(distortionType, pp.Distortion.Parameters)
	if err != nil {
		return nil, err
	}
	return NewPinhole(pose, pp.Focal, r2.Point{X: pp.Center[0], Y: pp.Center[1]}, distortion)
}

// NewPinholeFromJSONFile reads a camera description from a JSON file.
func NewPinholeFromJSONFile(jsonPath string) (*Pinhole, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	params := &PinholeParameters{}
	if err := json.Unmarshal(byteValue, params); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	return params.Camera()
}
