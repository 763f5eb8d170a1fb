package types

import (
	"github.com/salafibot/salafibot/internal/loader"
	"github.com/salafibot/salafibot/internal/registry"
	"github.com/salafibot/salafibot/internal/syncer"
)

type ListCommandsResponse struct {
	Commands []registry.Record `json:"commands"`
	Total    int               `json:"total"`
	Enabled  int               `json:"enabled"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type CreateCommandRequest struct {
	Name   string `json:"name"`
	Module string `json:"module"`
}

type DeployRequest struct {
	Global bool `json:"global"`
	Dedup  bool `json:"dedup"`
}

type DeployResponse struct {
	Sync    *syncer.Result   `json:"sync"`
	Failed  []loader.Failure `json:"failed,omitempty"`
	Message string           `json:"message"`
}

type ReloadRequest struct {
	Names []string `json:"names"`
}

type ReloadResponse struct {
	Reloaded []string         `json:"reloaded"`
	Failed   []loader.Failure `json:"failed,omitempty"`
	Missing  []string         `json:"missing,omitempty"`
	Message  string           `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Installed int    `json:"installed"`
	Remote    bool   `json:"remote"`
}
