package observ

import "time"

// Phase records the duration and metadata of one build phase.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks the phases of one workspace build. Not goroutine-safe: a
// build drives its timer from a single goroutine, fan-out happens inside
// phases.
type Timer struct {
	phases []Phase
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Running is an in-progress phase handed out by Begin.
type Running struct {
	timer *Timer
	idx   int
}

// Begin starts a new phase.
func (t *Timer) Begin(name string) *Running {
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return &Running{timer: t, idx: len(t.phases) - 1}
}

// End finishes the phase and attaches a note ("" for none). Ending twice
// keeps the first measurement.
func (r *Running) End(note string) {
	if r == nil || r.timer == nil {
		return
	}
	p := &r.timer.phases[r.idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
	r.timer = nil
}

// PhaseReport представляет сжатую информацию о фазе таймера для сериализации.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report описывает агрегированные данные таймера.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report формирует срез фаз и общую длительность в миллисекундах. Фазы,
// не завершённые к моменту вызова, попадают с нулевой длительностью.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{
		Phases: make([]PhaseReport, len(t.phases)),
	}
	var total time.Duration
	for i, phase := range t.phases {
		total += phase.Dur
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Note:       phase.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
