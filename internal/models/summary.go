package models

import "time"

// Summary describes the current snapshot for headers and health checks
type Summary struct {
	GeneratedAt       time.Time   `json:"generatedAt"`
	SummaryCounts     map[int]int `json:"summaryCounts"`
	ActualCounts      map[int]int `json:"actualCounts"`
	Tiers             []int       `json:"tiers"`
	Total             int         `json:"total"`
	Changed           int         `json:"changed"`
	DataQualityIssues int         `json:"dataQualityIssues"`
	LastRefresh       time.Time   `json:"lastRefresh"`
	LastError         string      `json:"lastError,omitempty"`
	Stale             bool        `json:"stale"`
}

// NewSummary builds the dataset part of a summary
func NewSummary(ds *Dataset) Summary {
	s := Summary{
		GeneratedAt:       ds.GeneratedAt,
		SummaryCounts:     ds.SummaryCounts,
		ActualCounts:      make(map[int]int, len(ds.TierGroups)),
		Tiers:             ds.Tiers(),
		Total:             ds.Len(),
		Changed:           ds.ChangedCount(),
		DataQualityIssues: ds.DataQualityIssues,
	}
	for tier, group := range ds.TierGroups {
		s.ActualCounts[tier] = len(group)
	}
	return s
}
