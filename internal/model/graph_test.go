package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphResult_Network(t *testing.T) {
	plot := `{
		"data": [
			{"mode": "lines", "x": [0, 1, null], "y": [0, 1, null]},
			{"mode": "markers+text", "text": ["<b>ACC1000</b>", "<b>ACC1001</b>", "<b>ID: 7</b>"]}
		],
		"layout": {"annotations": [{"x": 1}, {"x": 2}]}
	}`

	result := GraphResult{PlotData: json.RawMessage(plot), AIExplanation: "hub account"}
	net, err := result.Network()
	require.NoError(t, err)
	assert.Equal(t, []string{"ACC1000", "ACC1001", "ID: 7"}, net.Nodes)
	assert.Equal(t, 2, net.Edges)
	assert.Equal(t, "hub account", result.Explanation())
}

func TestGraphResult_NetworkWithoutPlot(t *testing.T) {
	tests := []struct {
		name    string
		result  GraphResult
		errMsg  string
	}{
		{
			name:   "backend error",
			result: GraphResult{Error: "User has no P2P transactions to graph."},
			errMsg: "User has no P2P transactions to graph.",
		},
		{
			name:   "null plot",
			result: GraphResult{PlotData: json.RawMessage("null")},
			errMsg: "no plot data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.result.Network()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Equal(t, "No AI explanation.", tt.result.Explanation())
		})
	}
}

func TestJobStatus(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
		success  bool
	}{
		{JobPending, false, false},
		{JobRunning, false, false},
		{JobUnknown, false, false},
		{JobStatus("STARTED"), false, false},
		{JobSuccess, true, true},
		{JobCompleted, true, true},
		{JobStatus("completed"), true, true},
		{JobFailed, true, false},
		{JobFailure, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.success, tt.status.IsSuccess())
		})
	}
}
