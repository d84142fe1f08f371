package nutrition

import (
	"fmt"
	"strings"
)

// Amount 有序輸出用的單一營養素數值
type Amount struct {
	Nutrient Nutrition `json:"nutrient"`
	Amount   float64   `json:"amount"`
}

// Ordered 依固定順序列出存在的營養素
func (f Facts) Ordered() []Amount {
	out := make([]Amount, 0, len(f))
	for _, n := range All {
		if v, ok := f[n]; ok {
			out = append(out, Amount{Nutrient: n, Amount: v})
		}
	}
	return out
}

// Format 以文字格式輸出營養成分，每行一個營養素，保留兩位小數
func Format(f Facts) string {
	var sb strings.Builder
	for _, a := range f.Ordered() {
		fmt.Fprintf(&sb, "%s:  %.2f\n", a.Nutrient, a.Amount)
	}
	return sb.String()
}

func (f Facts) String() string {
	return Format(f)
}
