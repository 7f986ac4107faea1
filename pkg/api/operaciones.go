package api

// OperacionDocument представляет документ операции в удаленном хранилище.
// Data содержит только бизнес-поля, локальные флаги не передаются.
type OperacionDocument struct {
	Data      map[string]any `json:"data"`
	ID        string         `json:"id"`
	UpdatedBy string         `json:"updated_by,omitempty"`
	CreatedAt int64          `json:"created_at"` // epoch ms
	UpdatedAt int64          `json:"updated_at"` // epoch ms, server clock
}

// SaveOperacionRequest тело PUT /api/v1/operaciones/{id}
type SaveOperacionRequest struct {
	Data map[string]any `json:"data"`
}

// ListOperacionesResponse ответ GET /api/v1/operaciones
type ListOperacionesResponse struct {
	Operaciones []OperacionDocument `json:"operaciones"`
	ServerTime  int64               `json:"server_time"` // epoch ms
}
