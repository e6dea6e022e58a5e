package httpapi

type createTodoRequest struct {
	Title string `json:"title" validate:"required"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

type unhealthyResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}
