package camera

import "github.com/pkg/errors"

// DistortionType is the name of the distortion model.
type DistortionType string

const (
	// NoDistortionType is an ideal lens with no distortion at all.
	NoDistortionType = DistortionType("none")
	// BrownConradyDistortionType is for simple lenses of narrow field easily modeled as a pinhole camera.
	BrownConradyDistortionType = DistortionType("brown_conrady")
)

// Distorter maps undistorted normalized image-plane coordinates (x, y) to
// their distorted location according to the lens model. Implementations must
// be read-only after construction so projections can run concurrently.
type Distorter interface {
	ModelType() DistortionType
	CheckValid() error
	Parameters() []float64
	Transform(x, y float64) (float64, float64)
}

// InvalidDistortionError is used when the distortion parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrap(errors.New("invalid distortion parameters"), msg)
}

// NewDistorter returns a Distorter given a valid DistortionType and its parameters.
func NewDistorter(distortionType DistortionType, parameters []float64) (Distorter, error) {
	switch distortionType {
	case NoDistortionType:
		return &NoDistortion{}, nil
	case BrownConradyDistortionType:
		return NewBrownConrady(parameters)
	default:
		return nil, errors.Errorf("do not know how to parse %q distortion model", distortionType)
	}
}

// NoDistortion is the identity lens model.
type NoDistortion struct{}

// ModelType returns the type of distortion model.
func (nd *NoDistortion) ModelType() DistortionType { return NoDistortionType }

// CheckValid checks if the fields for NoDistortion have valid inputs.
func (nd *NoDistortion) CheckValid() error { return nil }

// Parameters returns the parameters of the distortion model as a list of floats.
func (nd *NoDistortion) Parameters() []float64 { return []float64{} }

// Transform is the identity: the undistorted input is returned unchanged.
func (nd *NoDistortion) Transform(x, y float64) (float64, float64) { return x, y }
