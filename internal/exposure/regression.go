package exposure

import (
	"errors"
	"math"
)

// ErrDegenerateRegressor signals a zero-variance independent series; no
// slope can be fitted.
var ErrDegenerateRegressor = errors.New("zero-variance regressor")

// OLSResult holds an intercept+slope least-squares fit.
type OLSResult struct {
	Alpha    float64
	Beta     float64
	RSquared float64
	N        int
}

// OLS fits y = alpha + beta*x by ordinary least squares.
// A zero-variance dependent series is reported as RSquared=0, since the
// slope is still defined.
func OLS(x, y []float64) (OLSResult, error) {
	if len(x) != len(y) {
		return OLSResult{}, errors.New("mismatched sample lengths")
	}
	n := len(x)
	if n < 3 {
		return OLSResult{}, errors.New("too few samples for regression")
	}

	var sumX, sumY, sumXY, sumXX float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumXX += x[i] * x[i]
	}

	denominator := float64(n)*sumXX - sumX*sumX
	if math.Abs(denominator) < 1e-12 {
		return OLSResult{}, ErrDegenerateRegressor
	}

	beta := (float64(n)*sumXY - sumX*sumY) / denominator
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)
	alpha := meanY - beta*meanX

	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		residual := y[i] - (alpha + beta*x[i])
		ssRes += residual * residual
		ssTot += (y[i] - meanY) * (y[i] - meanY)
	}

	rSquared := 0.0
	if ssTot > 0 {
		rSquared = 1 - ssRes/ssTot
	}

	return OLSResult{Alpha: alpha, Beta: beta, RSquared: rSquared, N: n}, nil
}
