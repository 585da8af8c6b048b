package robust

type Config struct {
	// Share of rows in the raw MCD support, 0 selects (n+p+1)/2
	SupportFraction float64 `envconfig:"SOD_ROBUST_SUPPORT_FRACTION" default:"0"`
	// Random initial supports tried by FastMCD
	Trials int `envconfig:"SOD_ROBUST_TRIALS" default:"30"`
}
