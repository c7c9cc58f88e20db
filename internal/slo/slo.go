// Package slo holds the service level objective domain model and the builder
// that maps a structurally valid OpenSLO document onto it.
package slo

import (
	"time"
)

const (
	APIVersionV1      = "openslo/v1"
	APIVersionV1Alpha = "openslo/v1alpha"
	KindSLO           = "SLO"
)

// SLO is built once per document and treated as read-only afterwards.
type SLO struct {
	Name        string
	DisplayName string
	Service     string
	Description string
	Labels      map[string]string
	Indicators  []SLI
	Objectives  []Objective
}

// SLI is a ratio indicator. Both queries carry the {{.window}} substitution point.
type SLI struct {
	Name       string
	GoodQuery  string
	TotalQuery string
}

type Objective struct {
	DisplayName  string
	Target       float64
	TimeWindow   time.Duration
	IndicatorRef string
}

func (s SLO) Indicator(name string) (SLI, bool) {
	for _, sli := range s.Indicators {
		if sli.Name == name {
			return sli, true
		}
	}
	return SLI{}, false
}

func (s SLO) Title() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

