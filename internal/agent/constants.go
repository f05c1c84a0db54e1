package agent

// Content item types that render as a URI.
const (
	contentTypeResource     = "resource"
	contentTypeResourceLink = "resource_link"
)
