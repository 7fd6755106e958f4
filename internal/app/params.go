package app

import (
	"fmt"

	"github.com/chrissnell/gliderprofile/internal/export"
	"github.com/chrissnell/gliderprofile/internal/filter"
	"github.com/chrissnell/gliderprofile/internal/profile"
	"github.com/chrissnell/gliderprofile/pkg/config"
)

// AssignParams converts the segmentation section into assigner parameters.
func AssignParams(seg config.SegmentationData) (profile.AssignParams, error) {
	params := profile.DefaultAssignParams()

	interval, err := seg.IntervalDuration()
	if err != nil {
		return params, err
	}
	edge, err := profile.ParseEdgePolicy(seg.Edge)
	if err != nil {
		return params, err
	}
	method, err := profile.ParseInterpolation(seg.Interpolation)
	if err != nil {
		return params, err
	}

	params.Interval = interval
	params.SmoothingWindow = seg.SmoothingWindow
	params.Edge = edge
	params.Interpolation = method
	params.DespikeKernel = seg.DespikeKernel
	if seg.LookAhead > 0 {
		params.LookAhead = seg.LookAhead
	}
	if seg.MaxGridPoints > 0 {
		params.MaxGridPoints = seg.MaxGridPoints
	}
	return params, nil
}

// FilterParams converts the filters section into pipeline thresholds.
func FilterParams(f config.FilterData) (filter.Params, error) {
	policy, err := filter.ParsePolicy(f.Policy)
	if err != nil {
		return filter.Params{}, err
	}
	return filter.Params{
		MinDepth:    f.MinDepth,
		MinPoints:   f.MinPoints,
		MinSeconds:  f.MinSeconds,
		MinDistance: f.MinDistance,
		Policy:      policy,
	}, nil
}

// OutputFormat converts the output section's format.
func OutputFormat(o config.OutputData) (export.Format, error) {
	format, err := export.ParseFormat(o.Format)
	if err != nil {
		return "", fmt.Errorf("output: %w", err)
	}
	return format, nil
}
