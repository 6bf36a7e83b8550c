package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// GraphResult is the payload of a finished network analysis job.
type GraphResult struct {
	PlotData      json.RawMessage `json:"plot_data"`
	AIExplanation string          `json:"ai_explanation"`
	Error         string          `json:"error,omitempty"`
}

// Explanation returns the AI report or a placeholder.
func (g GraphResult) Explanation() string {
	if strings.TrimSpace(g.AIExplanation) == "" {
		return "No AI explanation."
	}
	return g.AIExplanation
}

// Network is a terminal-friendly digest of a plotted network.
type Network struct {
	Nodes []string
	Edges int
}

type plotFigure struct {
	Data []struct {
		Mode string          `json:"mode"`
		Text json.RawMessage `json:"text"`
	} `json:"data"`
	Layout struct {
		Annotations []json.RawMessage `json:"annotations"`
	} `json:"layout"`
}

var markupTags = regexp.MustCompile(`<[^>]*>`)

// Network extracts node labels and the edge count from the plot figure.
// Nodes come from marker traces; each edge is drawn as one arrow annotation.
func (g GraphResult) Network() (Network, error) {
	if len(g.PlotData) == 0 || string(g.PlotData) == "null" {
		if g.Error != "" {
			return Network{}, fmt.Errorf("could not render graph: %s", g.Error)
		}
		return Network{}, fmt.Errorf("could not render graph: no plot data")
	}

	var fig plotFigure
	if err := json.Unmarshal(g.PlotData, &fig); err != nil {
		return Network{}, fmt.Errorf("failed to decode plot data: %w", err)
	}

	var net Network
	for _, trace := range fig.Data {
		if !strings.Contains(trace.Mode, "markers") || len(trace.Text) == 0 {
			continue
		}
		var labels []string
		if err := json.Unmarshal(trace.Text, &labels); err != nil {
			var single string
			if err := json.Unmarshal(trace.Text, &single); err != nil {
				continue
			}
			labels = []string{single}
		}
		for _, label := range labels {
			net.Nodes = append(net.Nodes, strings.TrimSpace(markupTags.ReplaceAllString(label, "")))
		}
	}
	net.Edges = len(fig.Layout.Annotations)

	return net, nil
}
