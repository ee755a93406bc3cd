package classify

// Level is the discrete risk bucket derived from a score.
type Level string

const (
	LevelSafe   Level = "SAFE"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Result is the classification output for a single URL. It is built once per
// call and never mutated afterwards.
type Result struct {
	URL       string   `json:"url"`
	Host      string   `json:"host"`
	Score     int      `json:"score"`
	Level     Level    `json:"level"`
	Reasons   []string `json:"reasons"`
	Timestamp int64    `json:"ts"`
}
