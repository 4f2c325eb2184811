package registry

// Catalogue lists the notification kinds the service can dispatch and the
// job activities that trigger them.
type Catalogue struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Kinds       []KindSpec `json:"kinds"`
	Activities  []Activity `json:"activities"`
}

// KindSpec describes one notification kind. DataSchema constrains the
// optional bulk payload.
type KindSpec struct {
	Type        string                 `json:"type"`
	DisplayName string                 `json:"displayName"`
	Description string                 `json:"description"`
	Bulk        bool                   `json:"bulk"`
	DataSchema  map[string]interface{} `json:"dataSchema,omitempty"`
}

// Activity is a job type served by a worker, with the schema its variables
// must satisfy.
type Activity struct {
	ID          string                 `json:"id"`
	DisplayName string                 `json:"displayName"`
	TaskType    string                 `json:"taskType"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	ErrorCodes  []string               `json:"errorCodes"`
	Retries     int                    `json:"retries"`
	Tags        []string               `json:"tags"`
}
