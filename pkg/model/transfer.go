package model

// TransferStats aggregates the in-flight transfers of the current thread.
type TransferStats struct {
	Active      int     `json:"active"`
	AvgSpeed    float64 `json:"avg_speed"` // bytes/s over transfers reporting a speed
	AvgProgress float64 `json:"avg_progress"`
}
