package forecast

// ApplyMode selects how a meal template combines with existing selections.
type ApplyMode string

const (
	// ApplyFillMissing adds the template's meals on top of what is already
	// selected; it never deselects anything.
	ApplyFillMissing ApplyMode = "fill-missing"
	// ApplyOverride replaces each target date's meals wholesale.
	ApplyOverride ApplyMode = "override"
)

// ApplyDefaultUnit assigns unit to every unlocked date still carrying the
// configured default unit. Dates with meals already selected get their queued
// changes re-emitted with the new unit, mirroring SetUnit. Returns the number
// of dates changed.
func (s *Session) ApplyDefaultUnit(unit string) int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}

	cutoff := lockCutoff(s.cfg.Now(), s.cfg.LockWindowDays)
	changed := 0
	for _, date := range s.dates {
		if date <= cutoff {
			continue
		}
		if cur := s.units[date]; cur != s.cfg.DefaultUnit && cur != "" {
			continue // already deliberately assigned
		}
		if s.units[date] == unit {
			continue
		}
		s.units[date] = unit
		changed++
		for _, meal := range Meals {
			if s.selections[date].Get(meal) {
				s.ledger.Upsert(PendingChange{Date: date, Meal: meal, Value: true, Unit: unit})
			}
		}
	}
	s.mu.Unlock()

	if changed > 0 {
		s.notifyChange()
	}
	return changed
}

// ApplyTemplate applies a meal template to the given target dates. Locked and
// out-of-window dates are skipped, regardless of what the caller passes in.
// Only cells whose resulting value differs from the current one are queued,
// so a no-op apply inflates nothing. Returns the number of cells changed.
func (s *Session) ApplyTemplate(tpl DayMeals, mode ApplyMode, dates []string) int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}

	cutoff := lockCutoff(s.cfg.Now(), s.cfg.LockWindowDays)
	changed := 0
	for _, date := range dates {
		cur, ok := s.selections[date]
		if !ok || date <= cutoff {
			continue
		}

		target := tpl
		if mode != ApplyOverride {
			target = cur.Union(tpl)
		}
		if target == cur {
			continue
		}

		for _, meal := range Meals {
			if target.Get(meal) == cur.Get(meal) {
				continue
			}
			s.ledger.Upsert(PendingChange{Date: date, Meal: meal, Value: target.Get(meal), Unit: s.units[date]})
			changed++
		}
		s.selections[date] = target
	}
	s.mu.Unlock()

	if changed > 0 {
		s.notifyChange()
	}
	return changed
}
