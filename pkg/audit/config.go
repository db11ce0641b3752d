package audit

// Config consolidates every detector and simulator threshold in one place.
// The zero value is not usable; start from DefaultConfig and override.
type Config struct {
	// CorrThreshold is the |Pearson| / R² cutoff above which a numeric
	// feature is considered to leak the target.
	CorrThreshold float64 `koanf:"corr_threshold"`

	// PurityEpsilon bounds conditional class probability from 0 or 1 for
	// the categorical purity check: p <= eps or p >= 1-eps counts as pure.
	PurityEpsilon float64 `koanf:"purity_epsilon"`

	// PurityMinGroup is the minimum category size considered by the purity
	// check. Smaller groups are noise, not evidence.
	PurityMinGroup int `koanf:"purity_min_group"`

	// PurityMinShare is the minimum share of rows that must fall in pure
	// categories before the purity finding fires.
	PurityMinShare float64 `koanf:"purity_min_share"`

	// MaxMissingRatio: columns with a higher null ratio are skipped by the
	// target-leak detector as degenerate rather than risky.
	MaxMissingRatio float64 `koanf:"max_missing_ratio"`

	// CVariationCutoff is the coefficient-of-variation ceiling below which
	// a column counts as near-constant for the statistical-leak heuristic.
	CVariationCutoff float64 `koanf:"cvariation_cutoff"`

	// SecondaryCorrThreshold is the statistical-leak heuristic's
	// correlation floor; combined with a low coefficient of variation it
	// marks suspected target-encoding features.
	SecondaryCorrThreshold float64 `koanf:"secondary_corr_threshold"`

	// AggregatePatterns are substrings of column names that suggest the
	// column is an aggregate of the target (target encoding, WOE, rolling
	// statistics). Matched case-insensitively; heuristic by design.
	AggregatePatterns []string `koanf:"aggregate_patterns"`

	// TemporalPatterns are substrings suggesting a column holds timestamps.
	TemporalPatterns []string `koanf:"temporal_patterns"`

	// DupRatioThreshold is the duplicate ratio above which a column is
	// recommended as a GroupKFold key.
	DupRatioThreshold float64 `koanf:"dup_ratio_threshold"`

	// MinGroupRows is the minimum table size for the group-leak check.
	MinGroupRows int `koanf:"min_group_rows"`

	// PrimaryKeyDupRatio: columns at or below this duplicate ratio are
	// treated as primary keys and excluded from group recommendations.
	PrimaryKeyDupRatio float64 `koanf:"primary_key_dup_ratio"`

	// TimeParseFailThreshold is the parse-failure rate above which a
	// declared time column is reported unparsable.
	TimeParseFailThreshold float64 `koanf:"time_parse_fail_threshold"`

	// LeakThreshold is the kfold-vs-timeseries score delta the simulator
	// treats as evidence of temporal leakage.
	LeakThreshold float64 `koanf:"leak_threshold"`

	// Folds is the number of cross-validation folds used by the simulator.
	Folds int `koanf:"folds"`

	// MinSimRows is the minimum row count below which the simulator
	// reports a skipped status.
	MinSimRows int `koanf:"min_sim_rows"`

	// Seed drives every random decision in the simulator. Required for
	// reproducibility; recorded in the simulation evidence.
	Seed int64 `koanf:"seed"`

	// MediumScoreThreshold / HighScoreThreshold define the monotonic
	// leak-score to severity mapping.
	MediumScoreThreshold float64 `koanf:"medium_score_threshold"`
	HighScoreThreshold   float64 `koanf:"high_score_threshold"`

	// Parallelism bounds the executor's worker pool; 1 means sequential.
	Parallelism int `koanf:"parallelism"`

	// MemoryCapMB is a soft memory budget forwarded to the loader.
	MemoryCapMB int `koanf:"memory_cap_mb"`
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() *Config {
	return &Config{
		CorrThreshold:          0.98,
		PurityEpsilon:          0.02,
		PurityMinGroup:         20,
		PurityMinShare:         0.30,
		MaxMissingRatio:        0.50,
		CVariationCutoff:       0.05,
		SecondaryCorrThreshold: 0.80,
		AggregatePatterns: []string{
			"_te", "te_", "_woe", "woe_", "rolling_", "_rolling",
			"_mean", "_avg", "_enc", "target_",
		},
		TemporalPatterns: []string{
			"date", "time", "timestamp", "_ts", "ts_", "_at", "day", "month",
		},
		DupRatioThreshold:      0.90,
		MinGroupRows:           1000,
		PrimaryKeyDupRatio:     0.01,
		TimeParseFailThreshold: 0.05,
		LeakThreshold:          0.02,
		Folds:                  5,
		MinSimRows:             50,
		Seed:                   42,
		MediumScoreThreshold:   0.50,
		HighScoreThreshold:     0.90,
		Parallelism:            4,
		MemoryCapMB:            1024,
	}
}
