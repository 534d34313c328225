package api

const (
	baseUrl = "/api"

	watchUrl  = baseUrl + "/watch"
	healthUrl = baseUrl + "/health"
)
