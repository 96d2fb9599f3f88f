package dto

// Dashboard is the admin overview.
type Dashboard struct {
	TotalUsers        int64                `json:"total_users"`
	TotalApplications int64                `json:"total_applications"`
	TotalComments     int64                `json:"total_comments"`
	TotalRatings      int64                `json:"total_ratings"`
	TotalDownloads    int64                `json:"total_downloads"`
	NewUsers30Days    int64                `json:"new_users_30_days"`
	TopApplications   []ApplicationSummary `json:"top_applications"`
}

// ChartPoint is one labelled value of a chart series.
type ChartPoint struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

type Chart struct {
	Title  string       `json:"title"`
	Points []ChartPoint `json:"points"`
}

// EmptyChart is served when a chart query fails.
func EmptyChart(title string) *Chart {
	return &Chart{Title: title, Points: []ChartPoint{}}
}

type SystemInfo struct {
	Hostname        string  `json:"hostname"`
	OS              string  `json:"os"`
	Platform        string  `json:"platform"`
	UptimeSeconds   uint64  `json:"uptime_seconds"`
	CPUCount        int     `json:"cpu_count"`
	CPUPercent      float64 `json:"cpu_percent"`
	MemoryTotal     uint64  `json:"memory_total"`
	MemoryUsed      uint64  `json:"memory_used"`
	MemoryPercent   float64 `json:"memory_percent"`
	GoVersion       string  `json:"go_version"`
	Goroutines      int     `json:"goroutines"`
	HeapAllocBytes  uint64  `json:"heap_alloc_bytes"`
	ProcessUptimeMs int64   `json:"process_uptime_ms"`
}
