package calculator

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// pathFromSteps turns percentage moves into a positive price path starting at 100.
func pathFromSteps(steps []float64) []float64 {
	out := make([]float64, 0, len(steps)+1)
	p := 100.0
	out = append(out, p)
	for _, s := range steps {
		p *= 1 + s/100
		out = append(out, p)
	}
	return out
}

func TestRSI_BoundsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("RSI stays within [0, 100] for any path", prop.ForAll(
		func(steps []float64) bool {
			closes := pathFromSteps(steps)
			for _, period := range []int{RSIShort, 14, RSILong} {
				s, err := RSISeries(closes, period)
				if err != nil {
					continue
				}
				for _, v := range s {
					if v < 0 || v > 100 {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(-9.9, 9.9)),
	))

	properties.Property("rising paths read high and never exceed 100", prop.ForAll(
		func(steps []float64) bool {
			if len(steps) < 15 {
				return true
			}
			v, err := RSI(pathFromSteps(steps), 14)
			return err == nil && v > 99.999 && v <= 100
		},
		gen.SliceOfN(40, gen.Float64Range(0.01, 5)),
	))

	properties.Property("falling paths read low and never go negative", prop.ForAll(
		func(steps []float64) bool {
			if len(steps) < 15 {
				return true
			}
			v, err := RSI(pathFromSteps(steps), 14)
			return err == nil && v >= 0 && v < 0.001
		},
		gen.SliceOfN(40, gen.Float64Range(-5, -0.01)),
	))

	properties.TestingRun(t)
}
