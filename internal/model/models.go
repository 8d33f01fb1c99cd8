// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "sort"

// DefaultModel is the model selector used when none is configured.
const DefaultModel = "qwen-turbo"

// ModelInfo describes an answer model the backend accepts as the "model"
// selector.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Tier        string `json:"tier"`
	Description string `json:"description"`
}

// Models is the registry of known answer models.
var Models = map[string]ModelInfo{
	"qwen-turbo": {
		ID:          "qwen-turbo",
		Name:        "Qwen Turbo",
		Tier:        "Fast",
		Description: "Lowest latency, default for chat",
	},
	"qwen-plus": {
		ID:          "qwen-plus",
		Name:        "Qwen Plus",
		Tier:        "Balanced",
		Description: "Better answers on long documents",
	},
	"qwen-max": {
		ID:          "qwen-max",
		Name:        "Qwen Max",
		Tier:        "Powerful",
		Description: "Highest quality, slowest",
	},
}

// GetModelInfo looks up a model by ID.
func GetModelInfo(id string) (ModelInfo, bool) {
	info, ok := Models[id]
	return info, ok
}

// ModelIDs returns the registry IDs in sorted order.
func ModelIDs() []string {
	ids := make([]string, 0, len(Models))
	for id := range Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
