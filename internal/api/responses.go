package api

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type ValidationErrorResponse struct {
	Error   string            `json:"error" example:"validation failed"`
	Details []ValidationError `json:"details"`
}

type OKResponse struct {
	OK bool `json:"ok" example:"true"`
}

type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database,omitempty" example:"ok"`
	Redis    string `json:"redis,omitempty" example:"ok"`
}
