package adjust

import "github.com/pkg/errors"

// Internal axis weights for PoseAnchorCost. Translation components are in
// meters while rotation components are radian-scale and numerically much
// smaller, so rotation deltas get a far larger weight to keep both halves
// comparable under a single external weight.
const (
	poseTranslationScale = 1e-2
	poseRotationScale    = 5e1
)

func copyPoseVector(original []float64) ([6]float64, error) {
	var out [6]float64
	if len(original) != NumPoseParams {
		return out, errors.Errorf("pose prior needs a %d-element pose vector, got %d", NumPoseParams, len(original))
	}
	copy(out[:], original)
	return out, nil
}

// PoseAnchorCost keeps a camera near its original pose. The residual is the
// raw difference from a snapshot of the 6-dof pose vector taken at setup,
// scaled by hardcoded per-axis weights and one external weight per camera.
type PoseAnchorCost struct {
	original [6]float64
	weight   float64
}

// NewPoseAnchorCost snapshots the camera's current pose vector.
func NewPoseAnchorCost(original []float64, weight float64) (*PoseAnchorCost, error) {
	snap, err := copyPoseVector(original)
	if err != nil {
		return nil, err
	}
	return &PoseAnchorCost{original: snap, weight: weight}, nil
}

// NumResiduals is the fixed length of the residual vector.
func (pc *PoseAnchorCost) NumResiduals() int {
	return NumPoseParams
}

// BlockSizes is the declared size of each parameter block.
func (pc *PoseAnchorCost) BlockSizes() []int {
	return []int{NumPoseParams}
}

// Evaluate computes the weighted difference from the original pose.
func (pc *PoseAnchorCost) Evaluate(blocks [][]float64, residuals []float64) bool {
	pose := blocks[0]
	for i := 0; i < NumPoseParams/2; i++ {
		residuals[i] = poseTranslationScale * pc.weight * (pose[i] - pc.original[i])
	}
	for i := NumPoseParams / 2; i < NumPoseParams; i++ {
		residuals[i] = poseRotationScale * pc.weight * (pose[i] - pc.original[i])
	}
	return true
}

// PoseWeightedCost is the finer-grained variant of PoseAnchorCost: the
// translation and rotation halves get independently supplied weights and no
// internal scaling, so a larger rotation weight directly means less rotation
// change in the final result. Choosing both constants correctly is entirely
// on the caller.
type PoseWeightedCost struct {
	original          [6]float64
	translationWeight float64
	rotationWeight    float64
}

// NewPoseWeightedCost snapshots the camera's current pose vector.
func NewPoseWeightedCost(original []float64, translationWeight, rotationWeight float64) (*PoseWeightedCost, error) {
	snap, err := copyPoseVector(original)
	if err != nil {
		return nil, err
	}
	return &PoseWeightedCost{
		original:          snap,
		translationWeight: translationWeight,
		rotationWeight:    rotationWeight,
	}, nil
}

// NumResiduals is the fixed length of the residual vector.
func (pwc *PoseWeightedCost) NumResiduals() int {
	return NumPoseParams
}

// BlockSizes is the declared size of each parameter block.
func (pwc *PoseWeightedCost) BlockSizes() []int {
	return []int{NumPoseParams}
}

// Evaluate computes the weighted difference from the original pose.
func (pwc *PoseWeightedCost) Evaluate(blocks [][]float64, residuals []float64) bool {
	pose := blocks[0]
	for i := 0; i < NumPoseParams/2; i++ {
		residuals[i] = pwc.translationWeight * (pose[i] - pwc.original[i])
	}
	for i := NumPoseParams / 2; i < NumPoseParams; i++ {
		residuals[i] = pwc.rotationWeight * (pose[i] - pwc.original[i])
	}
	return true
}
