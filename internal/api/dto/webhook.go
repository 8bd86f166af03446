package dto

// IngestResult 单次 webhook 的处理统计
type IngestResult struct {
	Created       int `json:"created"`
	StatusUpdates int `json:"statusUpdates"`
	Skipped       int `json:"skipped"`
	Failed        int `json:"failed"`
}
