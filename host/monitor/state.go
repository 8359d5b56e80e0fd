package monitor

import (
	"sort"
	"sync"
)

type keyID struct{ col, row int }

// State holds the latest report of every key and sensor seen.
type State struct {
	mu       sync.RWMutex
	config   *ConfigReport
	uptime   *UptimeReport
	keys     map[keyID]KeyReport
	sensors  map[int]SensorReport
	analyses map[int]AnalysisReport
}

func NewState() *State {
	return &State{
		keys:     make(map[keyID]KeyReport),
		sensors:  make(map[int]SensorReport),
		analyses: make(map[int]AnalysisReport),
	}
}

// Apply records r and reports whether it changed the table.
func (s *State) Apply(r Report) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r := r.(type) {
	case KeyReport:
		id := keyID{r.Col, r.Row}
		old, ok := s.keys[id]
		s.keys[id] = r
		return !ok || old != r
	case SensorReport:
		old, ok := s.sensors[r.OID]
		s.sensors[r.OID] = r
		if !r.Status.Usable() {
			// Kinematics of a lost sensor are stale
			delete(s.analyses, r.OID)
		}
		return !ok || old != r
	case AnalysisReport:
		old, ok := s.analyses[r.OID]
		s.analyses[r.OID] = r
		return !ok || old != r
	case ConfigReport:
		changed := s.config == nil || *s.config != r
		s.config = &r
		return changed
	case UptimeReport:
		s.uptime = &r
		return true
	}
	return false
}

// Pressed returns the keys currently reported pressed, by column then row.
func (s *State) Pressed() []KeyReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []KeyReport
	for _, k := range s.keys {
		if k.Pressed {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Col != out[j].Col {
			return out[i].Col < out[j].Col
		}
		return out[i].Row < out[j].Row
	})
	return out
}

func (s *State) Key(col, row int) (KeyReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[keyID{col, row}]
	return k, ok
}

// Sensor returns the last status of sensor oid and, while it is detected,
// its last analysis.
func (s *State) Sensor(oid int) (status SensorReport, analysis *AnalysisReport, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok = s.sensors[oid]
	if a, found := s.analyses[oid]; found {
		analysis = &a
	}
	return status, analysis, ok
}

// Faults returns the sensors whose last status is a hardware fault.
func (s *State) Faults() []SensorReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []SensorReport
	for _, r := range s.sensors {
		if r.Status.Fault() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OID < out[j].OID })
	return out
}

func (s *State) Config() (ConfigReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return ConfigReport{}, false
	}
	return *s.config, true
}

// Uptime returns the last uptime report, if any.
func (s *State) Uptime() (UptimeReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.uptime == nil {
		return UptimeReport{}, false
	}
	return *s.uptime, true
}

// Clear forgets every key and sensor, e.g. after reset_matrix.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[keyID]KeyReport)
	s.sensors = make(map[int]SensorReport)
	s.analyses = make(map[int]AnalysisReport)
}
