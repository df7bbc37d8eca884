package adjust

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// Problem collects costs together with the parameter blocks they read,
// validating every registration against the cost's declared layout. It is
// the assembly surface handed to the optimizer; the solving algorithm itself
// lives elsewhere.
type Problem struct {
	logger golog.Logger
	diag   *Diagnostics
	costs  []registeredCost
}

type registeredCost struct {
	cost   Cost
	blocks [][]float64
}

// NewProblem creates an empty problem whose diagnostics report through the
// given logger.
func NewProblem(logger golog.Logger) *Problem {
	return &Problem{
		logger: logger,
		diag:   NewDiagnostics(logger),
	}
}

// Diagnostics returns the failure tracker shared by this problem's costs.
func (p *Problem) Diagnostics() *Diagnostics {
	return p.diag
}

// NumCosts returns the number of registered costs.
func (p *Problem) NumCosts() int {
	return len(p.costs)
}

// NumResiduals returns the total residual count across registered costs.
func (p *Problem) NumResiduals() int {
	total := 0
	for _, rc := range p.costs {
		total += rc.cost.NumResiduals()
	}
	return total
}

// AddCost registers a cost with the parameter blocks it will read. A layout
// mismatch between the blocks and the cost's declaration is a configuration
// error: the registration is rejected outright, never truncated or padded.
func (p *Problem) AddCost(cost Cost, blocks ...[]float64) error {
	if cost == nil {
		return errors.New("cannot register a nil cost")
	}
	sizes := cost.BlockSizes()
	var err error
	if len(blocks) != len(sizes) {
		err = errors.Errorf("cost declares %d parameter blocks, got %d", len(sizes), len(blocks))
	}
	for i := 0; i < len(sizes) && i < len(blocks); i++ {
		if len(blocks[i]) != sizes[i] {
			err = multierr.Append(err,
				errors.Errorf("parameter block %d must have %d elements, got %d", i, sizes[i], len(blocks[i])))
		}
	}
	if err != nil {
		return err
	}
	p.costs = append(p.costs, registeredCost{cost: cost, blocks: blocks})
	return nil
}

// Evaluate runs every registered cost against the current contents of its
// parameter blocks. It returns the concatenated residual vector and the
// number of costs that reported failure; failed costs leave their sentinel
// residuals in place.
func (p *Problem) Evaluate() ([]float64, int) {
	residuals := make([]float64, p.NumResiduals())
	failures := 0
	offset := 0
	for _, rc := range p.costs {
		n := rc.cost.NumResiduals()
		if !rc.cost.Evaluate(rc.blocks, residuals[offset:offset+n]) {
			failures++
		}
		offset += n
	}
	if failures > 0 {
		p.logger.Debugw("residual evaluation had failing costs", "failed", failures, "total", len(p.costs))
	}
	return residuals, failures
}

// NumericJacobian differentiates a cost at the given parameter values with
// central differences, the same scheme the optimizer's numeric
// differentiation applies to registered costs. Rows are residuals, columns
// are parameters in block order. The blocks are copied before perturbation;
// the caller's data is never written. An evaluation failure at any
// perturbed point aborts with an error since the derivative is meaningless
// there.
func NumericJacobian(cost Cost, blocks [][]float64, step float64) (*mat.Dense, error) {
	if cost == nil {
		return nil, errors.New("cannot differentiate a nil cost")
	}
	if step <= 0 {
		return nil, errors.Errorf("step must be positive, got %v", step)
	}
	sizes := cost.BlockSizes()
	if len(blocks) != len(sizes) {
		return nil, errors.Errorf("cost declares %d parameter blocks, got %d", len(sizes), len(blocks))
	}

	scratch := make([][]float64, len(blocks))
	for i, b := range blocks {
		if len(b) != sizes[i] {
			return nil, errors.Errorf("parameter block %d must have %d elements, got %d", i, sizes[i], len(b))
		}
		scratch[i] = make([]float64, len(b))
		copy(scratch[i], b)
	}

	numRes := cost.NumResiduals()
	jac := mat.NewDense(numRes, blockSizesTotal(sizes), nil)
	forward := make([]float64, numRes)
	backward := make([]float64, numRes)

	col := 0
	for bi := range scratch {
		for pi := range scratch[bi] {
			orig := scratch[bi][pi]

			scratch[bi][pi] = orig + step
			if !cost.Evaluate(scratch, forward) {
				return nil, errors.Errorf("cost evaluation failed at +step for parameter %d of block %d", pi, bi)
			}
			scratch[bi][pi] = orig - step
			if !cost.Evaluate(scratch, backward) {
				return nil, errors.Errorf("cost evaluation failed at -step for parameter %d of block %d", pi, bi)
			}
			scratch[bi][pi] = orig

			for row := 0; row < numRes; row++ {
				jac.Set(row, col, (forward[row]-backward[row])/(2*step))
			}
			col++
		}
	}
	return jac, nil
}
