package core

// CoverageDimension is one axis of the estimated possibility space.
type CoverageDimension struct {
	Key         string   `json:"key,omitempty" yaml:"key" koanf:"key"`
	Name        string   `json:"name" yaml:"name" koanf:"name"`
	Count       int      `json:"count" yaml:"count" koanf:"count"`
	Description string   `json:"description" yaml:"description" koanf:"description"`
	Items       []string `json:"items,omitempty" yaml:"items,omitempty" koanf:"items"`
}

// CoverageFormula carries human-readable formula strings for display.
type CoverageFormula struct {
	Expression            string `json:"expression"`
	EstimatedTotalFormula string `json:"estimated_total_formula"`
	Note                  string `json:"note,omitempty"`
}

// CoverageStats summarizes how much of the possibility space is observed.
type CoverageStats struct {
	CoveredCount        int     `json:"covered_count"`
	EstimatedTotal      int     `json:"estimated_total"`
	CoverageRate        float64 `json:"coverage_rate"`
	ServiceNodeCount    int     `json:"service_node_count"`
	CoveredServiceCount int     `json:"covered_service_count"`
	ServiceCoverageRate float64 `json:"service_coverage_rate"`

	Dimensions []CoverageDimension `json:"dimensions,omitempty"`
	Formula    CoverageFormula     `json:"formula"`
}
