package inventory

import "time"

// Resource type identifiers used in grants and audit entries.
const (
	TypeCloudPlatform = "cloud_platform"
	TypeServer        = "server"
	TypeDataStore     = "datastore"
	TypeApplication   = "application"
)

// Record holds the fields shared by every tracked resource.
type Record struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	IsActive           bool      `json:"is_active"`
	Public             bool      `json:"public"`
	Notes              string    `json:"notes,omitempty"`
	SystemManagerNotes string    `json:"system_manager_notes,omitempty"`
	CreatedBy          string    `json:"created_by,omitempty"`
	UpdatedBy          string    `json:"updated_by,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RedactRestricted replaces restricted attributes with the placeholder.
func (r *Record) RedactRestricted(placeholder string) {
	r.SystemManagerNotes = placeholder
}

func (r *Record) baseSnapshot() map[string]any {
	return map[string]any{
		"name":                 r.Name,
		"is_active":            r.IsActive,
		"public":               r.Public,
		"notes":                r.Notes,
		"system_manager_notes": r.SystemManagerNotes,
	}
}

// CloudPlatform is a hosting provider or on-premise estate.
type CloudPlatform struct {
	Record
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

func (p *CloudPlatform) Kind() string { return TypeCloudPlatform }

func (p *CloudPlatform) Snapshot() map[string]any {
	m := p.baseSnapshot()
	m["code"] = p.Code
	m["description"] = p.Description
	return m
}

// Server is a physical, virtual or cloud host.
type Server struct {
	Record
	Hostname        string `json:"hostname"`
	IPAddress       string `json:"ip_address,omitempty"`
	EnvironmentType string `json:"environment_type"`
	OperatingSystem string `json:"operating_system,omitempty"`
	OSVersion       string `json:"os_version,omitempty"`
	PlatformID      string `json:"platform_id,omitempty"`
	CPUCores        int    `json:"cpu_cores,omitempty"`
	MemoryGB        int    `json:"memory_gb,omitempty"`
	StorageGB       int    `json:"storage_gb,omitempty"`
}

func (s *Server) Kind() string { return TypeServer }

func (s *Server) Snapshot() map[string]any {
	m := s.baseSnapshot()
	m["hostname"] = s.Hostname
	m["ip_address"] = s.IPAddress
	m["environment_type"] = s.EnvironmentType
	m["operating_system"] = s.OperatingSystem
	m["os_version"] = s.OSVersion
	m["platform_id"] = s.PlatformID
	m["cpu_cores"] = s.CPUCores
	m["memory_gb"] = s.MemoryGB
	m["storage_gb"] = s.StorageGB
	return m
}

// DataStore is a database, cache, queue or file store.
type DataStore struct {
	Record
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

func (d *DataStore) Kind() string { return TypeDataStore }

func (d *DataStore) Snapshot() map[string]any {
	m := d.baseSnapshot()
	m["type"] = d.Type
	m["description"] = d.Description
	m["version"] = d.Version
	return m
}

// Application is a tracked business application.
type Application struct {
	Record
	Description     string `json:"description,omitempty"`
	BusinessPurpose string `json:"business_purpose,omitempty"`
	LifecycleStage  string `json:"lifecycle_stage"`
	Criticality     string `json:"criticality"`
	BusinessOwner   string `json:"business_owner,omitempty"`
	TechnicalOwner  string `json:"technical_owner,omitempty"`
	PrimaryServerID string `json:"primary_server_id,omitempty"`
	Version         string `json:"version,omitempty"`
	DeploymentPath  string `json:"deployment_path,omitempty"`
}

func (a *Application) Kind() string { return TypeApplication }

func (a *Application) Snapshot() map[string]any {
	m := a.baseSnapshot()
	m["description"] = a.Description
	m["business_purpose"] = a.BusinessPurpose
	m["lifecycle_stage"] = a.LifecycleStage
	m["criticality"] = a.Criticality
	m["business_owner"] = a.BusinessOwner
	m["technical_owner"] = a.TechnicalOwner
	m["primary_server_id"] = a.PrimaryServerID
	m["version"] = a.Version
	m["deployment_path"] = a.DeploymentPath
	return m
}

var platformCodes = map[string]bool{
	"aws": true, "azure": true, "gcp": true, "oracle": true,
	"ibm": true, "digitalocean": true, "onprem": true, "other": true,
}

var environmentTypes = map[string]bool{
	"physical": true, "virtual": true, "container": true, "cloud": true,
}

var dataStoreTypes = map[string]bool{
	"relational": true, "nosql": true, "cache": true, "search": true,
	"file": true, "object": true, "queue": true,
}

var lifecycleStages = map[string]bool{
	"planning": true, "development": true, "testing": true, "staging": true,
	"production": true, "deprecated": true, "retired": true,
}

var criticalities = map[string]bool{
	"low": true, "medium": true, "high": true, "critical": true,
}
