// Package qmc produces energy surfaces by variational Monte Carlo on the
// hydrogen atom with the trial wave function (1 + c r) exp(-alpha r).
package qmc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// ErrInvalidSampler is returned for non-physical sampler settings.
var ErrInvalidSampler = errors.New("invalid sampler settings")

// ctxCheckInterval is how many Metropolis steps run between cancellation checks.
const ctxCheckInterval = 4096

// Sampler is a Metropolis walker over the radial coordinate.
type Sampler struct {
	C     float64 // trial wave function parameter c
	Alpha float64 // trial wave function parameter alpha
	Step  float64 // maximum move; each move is clamped to the current radius
}

// Estimate is the outcome of one sampling run.
type Estimate struct {
	Mean        float64
	Std         float64 // population standard deviation of the local energy
	AcceptRatio float64
	Steps       int
	FinalStep   float64 // move size of the last step
	FinalR      float64
}

// DensityRatio returns rho(r1)/rho(r2) for the radial density
// rho = r^2 |(1 + c r) exp(-alpha r)|^2.
func (s *Sampler) DensityRatio(r1, r2 float64) float64 {
	n1 := (s.C*r1 + 1) * r1
	n2 := (s.C*r2 + 1) * r2
	return (n1 * n1) / (n2 * n2) * math.Exp(2*s.Alpha*(r2-r1))
}

// LocalEnergy returns the local energy in hartree at radius r (bohr):
//
//	-alpha^2/2 + (alpha-1)/r + c(alpha r - 1)/(r(1 + c r))
//
// For c = 0, alpha = 1 it is exactly -1/2 at every r.
func (s *Sampler) LocalEnergy(r float64) float64 {
	c, a := s.C, s.Alpha
	e := -a*a/2 + (a-1)/r
	if c != 0 {
		e += c * (a*r - 1) / (r * (1 + c*r))
	}
	return e
}

// Sample runs steps Metropolis-Hastings moves starting from r = 1 and averages
// the local energy over every step, accepted or not. Each move is at most
// min(Step, r) so the walker never crosses r = 0.
func (s *Sampler) Sample(ctx context.Context, steps int, rng *rand.Rand) (Estimate, error) {
	if steps <= 0 {
		return Estimate{}, fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidSampler, steps)
	}
	if !(s.Step > 0) {
		return Estimate{}, fmt.Errorf("%w: step must be positive, got %g", ErrInvalidSampler, s.Step)
	}
	if !(s.Alpha > 0) {
		return Estimate{}, fmt.Errorf("%w: alpha must be positive for a bound state, got %g", ErrInvalidSampler, s.Alpha)
	}

	var step float64
	rOld := 1.0
	energy := s.LocalEnergy(rOld)
	var eTot, eTotSq float64
	accepted := 0

	for i := 0; i < steps; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Estimate{}, err
			}
		}

		step = math.Min(s.Step, rOld)
		rNew := rOld + step*(2*rng.Float64()-1)
		// The move size depends on r, so the reverse move must be reachable
		// and the acceptance carries the ratio of proposal widths.
		if back := math.Min(s.Step, rNew); rNew > 0 && math.Abs(rNew-rOld) < back {
			ratio := s.DensityRatio(rNew, rOld) * step / back
			if ratio > 1 || ratio > rng.Float64() {
				rOld = rNew
				energy = s.LocalEnergy(rOld)
				accepted++
			}
		}

		eTot += energy
		eTotSq += energy * energy
	}

	n := float64(steps)
	mean := eTot / n
	variance := eTotSq/n - mean*mean
	if variance < 0 { // rounding when every sample is identical
		variance = 0
	}

	return Estimate{
		Mean:        mean,
		Std:         math.Sqrt(variance),
		AcceptRatio: float64(accepted) / n,
		Steps:       steps,
		FinalStep:   step,
		FinalR:      rOld,
	}, nil
}
