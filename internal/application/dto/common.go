package dto

// PageRequest paginación para listados (page empieza en 1).
type PageRequest struct {
	Page  int `query:"page" validate:"omitempty,min=1"`
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

// DefaultPage aplica valores por defecto si Page/Limit son cero.
func (p *PageRequest) DefaultPage() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = 20
	}
}

// Offset convierte page/limit al offset SQL.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// ErrorResponse cuerpo de error HTTP: código máquina + mensaje humano.
// Details lleva cifras adicionales cuando aplica (ej. stock actual vs solicitado).
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
