package adjust

// Cost is the residual-function contract registered with the optimizer. A
// cost declares a fixed residual count and an ordered list of parameter
// block sizes at construction; neither may change afterwards. The optimizer
// calls Evaluate repeatedly, potentially from many goroutines at once with
// different parameter values, so implementations must not mutate their own
// state during evaluation.
type Cost interface {
	// NumResiduals is the fixed length of the residual vector.
	NumResiduals() int
	// BlockSizes is the declared size of each parameter block.
	BlockSizes() []int
	// Evaluate fills residuals from the given parameter blocks. It returns
	// false when the residual could not be computed, letting the optimizer's
	// robust loss layer treat the term specially. Evaluate never panics on a
	// bad geometric hypothesis; residuals always hold finite or sentinel
	// values on return.
	Evaluate(blocks [][]float64, residuals []float64) bool
}

func blockSizesTotal(sizes []int) int {
	total := 0
	for _, s := range sizes {
		total += s
	}
	return total
}
