package nutrition

// EventKind 追蹤事件種類
type EventKind int

const (
	// EventContribution 單一食材對某營養素的貢獻
	EventContribution EventKind = iota
	// EventTotals 一份食譜在換算前的累加結果
	EventTotals
)

func (k EventKind) String() string {
	switch k {
	case EventContribution:
		return "contribution"
	case EventTotals:
		return "totals"
	default:
		return "unknown"
	}
}

// Event 解析過程中的追蹤事件
type Event struct {
	Kind   EventKind
	Recipe string
	Depth  int

	// EventContribution
	Product      string
	Nutrient     Nutrition
	Per100g      float64
	Amount       float64
	Contribution float64

	// EventTotals
	Totals    Facts
	TotalMass float64
}

// Tracer 接收追蹤事件
type Tracer interface {
	Trace(e Event)
}

// TracerFunc 讓普通函數實現 Tracer
type TracerFunc func(e Event)

func (f TracerFunc) Trace(e Event) { f(e) }

// MultiTracer 將事件轉發給多個 Tracer
func MultiTracer(tracers ...Tracer) Tracer {
	return TracerFunc(func(e Event) {
		for _, t := range tracers {
			if t != nil {
				t.Trace(e)
			}
		}
	})
}
