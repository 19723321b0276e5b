package pid

import "time"

const (
	// Deadband is the error magnitude (°C) inside which the integral is active
	Deadband = 0.1

	// IntegralMaxInterval caps the time accounted for a single integral step
	IntegralMaxInterval = 30 * time.Minute
	// DerivativeMaxInterval caps the time accounted for a single derivative step
	DerivativeMaxInterval = 10 * time.Minute

	// DerivativeErrorAlpha smooths the error before differentiating
	DerivativeErrorAlpha = 0.5
	// DerivativeAlpha1 and DerivativeAlpha2 smooth the raw derivative twice
	DerivativeAlpha1 = 0.8
	DerivativeAlpha2 = 0.6
	// DerivativeRawCap bounds the raw derivative (°C/s)
	DerivativeRawCap = 0.005

	// AutomaticGainTimeConstant (s) derives ki and kd from kp in automatic mode
	AutomaticGainTimeConstant = 8400.0
	AutomaticDerivativeFactor = 0.07

	AutomaticGainValueUnderfloor = 4.0
	AutomaticGainValueDefault    = 3.0
)
