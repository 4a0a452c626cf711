// Package chart holds the dashboard's two chart components. Each component
// owns its render state and changes only through Update; readers get copies.
package chart

import (
	"sync"

	"github.com/okian/igot/internal/domain/aggregate"
)

// Chart kinds understood by the dashboard renderer.
const (
	KindBar  = "bar"
	KindLine = "line"
)

// Dataset is one plotted series.
type Dataset struct {
	Label           string `json:"label"`
	BackgroundColor string `json:"backgroundColor"`
	BorderColor     string `json:"borderColor"`
	BorderWidth     int    `json:"borderWidth"`
	Fill            bool   `json:"fill,omitempty"`
	Data            []int  `json:"data"`
}

// Data is the renderable state of a chart.
type Data struct {
	Kind     string    `json:"type"`
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
	Version  uint64    `json:"version"`
}

func (d Data) clone() Data {
	out := Data{
		Kind:     d.Kind,
		Labels:   append([]string(nil), d.Labels...),
		Datasets: make([]Dataset, len(d.Datasets)),
		Version:  d.Version,
	}
	if out.Labels == nil {
		out.Labels = []string{}
	}
	for i, ds := range d.Datasets {
		ds.Data = append([]int(nil), ds.Data...)
		if ds.Data == nil {
			ds.Data = []int{}
		}
		out.Datasets[i] = ds
	}
	return out
}

type series struct {
	label string
	color string
}

// base is the shared state of both components.
type base struct {
	mu   sync.RWMutex
	data Data
}

func (b *base) init(kind string, sets []series, fill bool, alpha string, width int) {
	ds := make([]Dataset, len(sets))
	for i, s := range sets {
		ds[i] = Dataset{
			Label:           s.label,
			BackgroundColor: "rgba(" + s.color + ", " + alpha + ")",
			BorderColor:     "rgba(" + s.color + ", 1)",
			BorderWidth:     width,
			Fill:            fill,
			Data:            []int{},
		}
	}
	b.data = Data{Kind: kind, Labels: []string{}, Datasets: ds}
}

func (b *base) set(labels []string, values ...[]int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data.Labels = append([]string{}, labels...)
	for i := range b.data.Datasets {
		b.data.Datasets[i].Data = append([]int{}, values[i]...)
	}
	b.data.Version++
}

// Data returns a copy of the current render state.
func (b *base) Data() Data {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data.clone()
}

// Version counts the updates applied so far.
func (b *base) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data.Version
}

const (
	colorTotal      = "102, 126, 234"
	colorRegistered = "42, 245, 152"
	colorEnrolled   = "246, 211, 101"
	colorCompleted  = "255, 154, 158"
)

// OfficeChart is the office-wise bar chart of latest snapshots.
type OfficeChart struct {
	base
}

// NewOfficeChart returns an empty office chart.
func NewOfficeChart() *OfficeChart {
	c := &OfficeChart{}
	c.init(KindBar, []series{
		{label: "Total Employees", color: colorTotal},
		{label: "Registered on iGOT", color: colorRegistered},
		{label: "Enrolled in Courses", color: colorEnrolled},
		{label: "Courses Completed", color: colorCompleted},
	}, false, "0.6", 1)
	return c
}

// Update replaces the chart content with s.
func (c *OfficeChart) Update(s aggregate.OfficeSeries) {
	c.set(s.Offices, s.Total, s.Registered, s.Enrolled, s.Completed)
}

// DateChart is the date-wise trend line.
type DateChart struct {
	base
}

// NewDateChart returns an empty date chart.
func NewDateChart() *DateChart {
	c := &DateChart{}
	c.init(KindLine, []series{
		{label: "Registered on iGOT", color: colorRegistered},
		{label: "Enrolled in Courses", color: colorEnrolled},
		{label: "Courses Completed", color: colorCompleted},
	}, true, "0.1", 2)
	return c
}

// Update replaces the chart content with s. Labels are the display labels of s.
func (c *DateChart) Update(s aggregate.DateSeries) {
	c.set(s.Labels, s.Registered, s.Enrolled, s.Completed)
}

// Set is the data for both dashboard charts.
type Set struct {
	Office Data `json:"office"`
	Date   Data `json:"date"`
}
