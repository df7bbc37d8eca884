// Package main contains a command to evaluate every residual of a
// bundle-adjustment problem definition and print summary statistics, useful
// for inspecting measurement quality before and after a solve.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"github.com/stereopipeline/bundleadjust/adjust"
	"github.com/stereopipeline/bundleadjust/camera"
	"github.com/stereopipeline/bundleadjust/disparity"
	"github.com/stereopipeline/bundleadjust/geodesy"
)

var logger = golog.NewDevelopmentLogger("adjustreport")

// ProblemConfig is the JSON description of a full adjustment problem.
type ProblemConfig struct {
	Cameras       []CameraConfig        `json:"cameras"`
	Points        [][]float64           `json:"points"`
	Observations  []ObservationConfig   `json:"observations"`
	GroundControl []GroundControlConfig `json:"ground_control"`
	PosePriors    []PosePriorConfig     `json:"pose_priors"`
	Disparity     *DisparityConfig      `json:"disparity"`
}

// CameraConfig is one camera plus how it should be parameterized.
type CameraConfig struct {
	Name            string                   `json:"name"`
	Model           camera.PinholeParameters `json:"model"`
	SolveIntrinsics bool                     `json:"solve_intrinsics"`
}

// ObservationConfig is one pixel observation of one point by one camera.
type ObservationConfig struct {
	Camera int       `json:"camera"`
	Point  int       `json:"point"`
	Pixel  []float64 `json:"pixel"`
	Sigma  []float64 `json:"sigma"`
}

// GroundControlConfig pins one point to surveyed coordinates.
type GroundControlConfig struct {
	Point    int       `json:"point"`
	XYZ      []float64 `json:"xyz"`
	Sigma    []float64 `json:"sigma"`
	Geodetic bool      `json:"geodetic"`
}

// PosePriorConfig keeps one camera near its starting pose.
type PosePriorConfig struct {
	Camera int     `json:"camera"`
	Weight float64 `json:"weight"`
}

// DisparityConfig ties camera pairs to a stereo disparity field on disk.
type DisparityConfig struct {
	File          string  `json:"file"`
	LeftCamera    int     `json:"left_camera"`
	RightCamera   int     `json:"right_camera"`
	MaxError      float64 `json:"max_error"`
	TerrainWeight float64 `json:"terrain_weight"`
	PointIndices  []int   `json:"point_indices"`
}

func main() {
	app := &cli.App{
		Name:  "adjustreport",
		Usage: "evaluate bundle-adjustment residuals and print statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "problem",
				Usage:    "path to the problem definition JSON",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "bins",
				Usage: "number of histogram bins",
				Value: 10,
			},
		},
		Action: func(c *cli.Context) error {
			return runReport(c.String("problem"), c.Int("bins"), os.Stdout)
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}

func loadProblemConfig(path string) (*ProblemConfig, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening problem definition")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := &ProblemConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing problem definition")
	}
	return cfg, nil
}

type assembledProblem struct {
	problem *adjust.Problem
	// one span per registered cost, in registration order, so residuals can
	// be attributed back to the cost family that produced them
	spans []residualSpan
}

type residualSpan struct {
	family string
	count  int
}

func (ap *assembledProblem) record(family string, cost adjust.Cost) {
	ap.spans = append(ap.spans, residualSpan{family: family, count: cost.NumResiduals()})
}

func vec3(v []float64, what string) (r3.Vector, error) {
	if len(v) != 3 {
		return r3.Vector{}, errors.Errorf("%s must have 3 elements, got %d", what, len(v))
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
}

func vec2(v []float64, what string) (r2.Point, error) {
	if len(v) != 2 {
		return r2.Point{}, errors.Errorf("%s must have 2 elements, got %d", what, len(v))
	}
	return r2.Point{X: v[0], Y: v[1]}, nil
}

func assemble(cfg *ProblemConfig, logger golog.Logger) (*assembledProblem, error) {
	problem := adjust.NewProblem(logger)
	ap := &assembledProblem{problem: problem}

	// one shared point block per point, owned here the way an optimizer
	// would own them
	pointBlocks := make([][]float64, len(cfg.Points))
	for i, p := range cfg.Points {
		if len(p) != 3 {
			return nil, errors.Errorf("point %d must have 3 elements, got %d", i, len(p))
		}
		pointBlocks[i] = append([]float64{}, p...)
	}

	cams := make([]adjust.BundleCamera, len(cfg.Cameras))
	camBlocks := make([][][]float64, len(cfg.Cameras))
	for i, cc := range cfg.Cameras {
		pinhole, err := cc.Model.Camera()
		if err != nil {
			return nil, errors.Wrapf(err, "camera %q", cc.Name)
		}
		if cc.SolveIntrinsics {
			bc, err := adjust.NewPinholeBundleCamera(pinhole)
			if err != nil {
				return nil, err
			}
			cams[i] = bc
			unit := make([]float64, bc.NumDistortionParams())
			for j := range unit {
				unit[j] = 1
			}
			camBlocks[i] = [][]float64{pinhole.Pose.Vector(), {1, 1}, {1}, unit}
		} else {
			bc, err := adjust.NewAdjustedBundleCamera(pinhole)
			if err != nil {
				return nil, err
			}
			cams[i] = bc
			camBlocks[i] = [][]float64{{0, 0, 0, 0, 0, 0}}
		}
	}

	for i, oc := range cfg.Observations {
		if oc.Camera < 0 || oc.Camera >= len(cams) {
			return nil, errors.Errorf("observation %d references camera %d which does not exist", i, oc.Camera)
		}
		if oc.Point < 0 || oc.Point >= len(pointBlocks) {
			return nil, errors.Errorf("observation %d references point %d which does not exist", i, oc.Point)
		}
		pixel, err := vec2(oc.Pixel, "pixel")
		if err != nil {
			return nil, err
		}
		sigma, err := vec2(oc.Sigma, "sigma")
		if err != nil {
			return nil, err
		}
		cost, err := adjust.NewReprojectionCost(pixel, sigma, cams[oc.Camera], problem.Diagnostics())
		if err != nil {
			return nil, err
		}
		blocks := append([][]float64{pointBlocks[oc.Point]}, camBlocks[oc.Camera]...)
		if err := problem.AddCost(cost, blocks...); err != nil {
			return nil, err
		}
		ap.record("reprojection", cost)
	}

	for i, gc := range cfg.GroundControl {
		if gc.Point < 0 || gc.Point >= len(pointBlocks) {
			return nil, errors.Errorf("ground control %d references point %d which does not exist", i, gc.Point)
		}
		xyz, err := vec3(gc.XYZ, "xyz")
		if err != nil {
			return nil, err
		}
		sigma, err := vec3(gc.Sigma, "sigma")
		if err != nil {
			return nil, err
		}
		var cost adjust.Cost
		if gc.Geodetic {
			cost, err = adjust.NewGeodeticAnchorCost(xyz, sigma, geodesy.WGS84)
		} else {
			cost, err = adjust.NewPointAnchorCost(xyz, sigma)
		}
		if err != nil {
			return nil, err
		}
		if err := problem.AddCost(cost, pointBlocks[gc.Point]); err != nil {
			return nil, err
		}
		ap.record("ground_control", cost)
	}

	for i, pp := range cfg.PosePriors {
		if pp.Camera < 0 || pp.Camera >= len(cams) {
			return nil, errors.Errorf("pose prior %d references camera %d which does not exist", i, pp.Camera)
		}
		poseBlock := camBlocks[pp.Camera][0]
		cost, err := adjust.NewPoseAnchorCost(poseBlock, pp.Weight)
		if err != nil {
			return nil, err
		}
		if err := problem.AddCost(cost, poseBlock); err != nil {
			return nil, err
		}
		ap.record("pose_prior", cost)
	}

	if dc := cfg.Disparity; dc != nil {
		field, err := disparity.ParseField(dc.File)
		if err != nil {
			return nil, errors.Wrap(err, "error loading disparity field")
		}
		if dc.LeftCamera < 0 || dc.LeftCamera >= len(cams) ||
			dc.RightCamera < 0 || dc.RightCamera >= len(cams) {
			return nil, errors.New("disparity config references a camera which does not exist")
		}
		left, right := cams[dc.LeftCamera], cams[dc.RightCamera]
		for _, pi := range dc.PointIndices {
			if pi < 0 || pi >= len(pointBlocks) {
				return nil, errors.Errorf("disparity config references point %d which does not exist", pi)
			}
			ref, err := vec3(pointBlocks[pi], "reference point")
			if err != nil {
				return nil, err
			}
			cost, err := adjust.NewDisparityCost(ref, field, left, right, dc.MaxError, dc.TerrainWeight)
			if err != nil {
				return nil, err
			}
			blocks := append([][]float64{}, camBlocks[dc.LeftCamera]...)
			blocks = append(blocks, camBlocks[dc.RightCamera]...)
			if err := problem.AddCost(cost, blocks...); err != nil {
				return nil, err
			}
			ap.record("disparity", cost)
		}
	}

	return ap, nil
}

func runReport(path string, bins int, out io.Writer) error {
	cfg, err := loadProblemConfig(path)
	if err != nil {
		return err
	}
	ap, err := assemble(cfg, logger)
	if err != nil {
		return err
	}

	residuals, failures := ap.problem.Evaluate()
	logger.Infow("evaluated problem",
		"costs", ap.problem.NumCosts(),
		"residuals", len(residuals),
		"failed", failures,
		"projection_failures", ap.problem.Diagnostics().Failures(),
	)

	magnitudes := make([]float64, 0, len(residuals))
	familySums := map[string]float64{}
	familyCounts := map[string]int{}
	offset := 0
	for _, span := range ap.spans {
		for _, r := range residuals[offset : offset+span.count] {
			if r == adjust.FailedResidual {
				continue
			}
			magnitudes = append(magnitudes, math.Abs(r))
			familySums[span.family] += math.Abs(r)
			familyCounts[span.family]++
		}
		offset += span.count
	}
	if len(magnitudes) == 0 {
		return errors.New("no finite residuals to report")
	}

	sort.Float64s(magnitudes)
	mean := 0.0
	for _, m := range magnitudes {
		mean += m
	}
	mean /= float64(len(magnitudes))
	median := magnitudes[len(magnitudes)/2]
	max := magnitudes[len(magnitudes)-1]

	fmt.Fprintf(out, "residuals: %d (%d excluded by failure)\n", len(magnitudes), len(residuals)-len(magnitudes))
	fmt.Fprintf(out, "mean abs: %.6f  median abs: %.6f  max abs: %.6f\n", mean, median, max)
	families := make([]string, 0, len(familySums))
	for family := range familySums {
		families = append(families, family)
	}
	sort.Strings(families)
	for _, family := range families {
		fmt.Fprintf(out, "  %-14s count %-6d mean abs %.6f\n",
			family, familyCounts[family], familySums[family]/float64(familyCounts[family]))
	}

	hist := histogram.Hist(bins, magnitudes)
	return histogram.Fprint(out, hist, histogram.Linear(40))
}
