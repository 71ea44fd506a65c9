package triviagen

const (
	generateEndpoint = "/v1/questions/generate"
)
