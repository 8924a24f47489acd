package assign

// validateConfig checks every tunable against its documented range.
// The first violation wins; callers fail fast before any trial runs.
func validateConfig(cfg Config) error {
	switch {
	case cfg.Weights.First <= 0:
		return configErrorf("weights.first", "must be positive, got %v", cfg.Weights.First)
	case cfg.Weights.Second <= 0:
		return configErrorf("weights.second", "must be positive, got %v", cfg.Weights.Second)
	case cfg.Weights.Third <= 0:
		return configErrorf("weights.third", "must be positive, got %v", cfg.Weights.Third)
	case cfg.BoostWeight < 0:
		return configErrorf("boost_weight", "must be non-negative, got %v", cfg.BoostWeight)
	case cfg.QBoostProbability < 0 || cfg.QBoostProbability > 1:
		return configErrorf("q_boost_probability", "must be in [0,1], got %v", cfg.QBoostProbability)
	case cfg.NumPatterns < 1:
		return configErrorf("num_patterns", "must be at least 1, got %d", cfg.NumPatterns)
	case cfg.MaxWorkers < 1:
		return configErrorf("max_workers", "must be at least 1, got %d", cfg.MaxWorkers)
	case cfg.LocalSearchIterations < 0:
		return configErrorf("local_search_iterations", "must be non-negative, got %d", cfg.LocalSearchIterations)
	case cfg.InitialTemperature <= 0:
		return configErrorf("initial_temperature", "must be positive, got %v", cfg.InitialTemperature)
	case cfg.CoolingRate <= 0 || cfg.CoolingRate >= 1:
		return configErrorf("cooling_rate", "must be in (0,1), got %v", cfg.CoolingRate)
	}
	return nil
}

// validateDomain checks the seminar and student records themselves.
// Capacity infeasibility across the whole population is deliberately
// not an error here; see Problem.CapacityDiagnostic.
func validateDomain(seminars []Seminar, students []Student) error {
	if len(seminars) == 0 {
		return configErrorf("seminars", "at least one seminar is required")
	}
	seen := make(map[string]struct{}, len(seminars))
	for _, s := range seminars {
		if s.ID == "" {
			return configErrorf("seminars", "seminar id must not be empty")
		}
		if _, dup := seen[s.ID]; dup {
			return configErrorf("seminars", "duplicate seminar id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.MinSize <= 0 {
			return configErrorf("seminars", "seminar %q: min_size must be positive, got %d", s.ID, s.MinSize)
		}
		if s.MinSize > s.MaxSize {
			return configErrorf("seminars", "seminar %q: min_size %d exceeds max_size %d", s.ID, s.MinSize, s.MaxSize)
		}
		if s.Magnification < 0 {
			return configErrorf("seminars", "seminar %q: magnification must be non-negative, got %v", s.ID, s.Magnification)
		}
	}
	if len(students) == 0 {
		return configErrorf("students", "at least one student is required")
	}
	ids := make(map[int]struct{}, len(students))
	for _, st := range students {
		if _, dup := ids[st.ID]; dup {
			return configErrorf("students", "duplicate student id %d", st.ID)
		}
		ids[st.ID] = struct{}{}
		if len(st.Preferences) > MaxPreferences {
			return configErrorf("students", "student %d lists %d preferences, at most %d allowed", st.ID, len(st.Preferences), MaxPreferences)
		}
	}
	return nil
}
