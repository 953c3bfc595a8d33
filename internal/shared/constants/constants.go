package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// HTTP headers
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"

	// Context keys
	ContextKeyRequestID = "request_id"
	ContextKeyScope     = "auth_scope"
	ContextKeyTenantSID = "auth_tenant_sid"

	// Database table names
	TableTenants          = "tenants"
	TableTenantIdentities = "tenant_identities"
	TableQuotaEvents      = "quota_events"
	TableSessionStatuses  = "session_statuses"
)

// Privileged in-band commands recognized from operator identities.
const (
	CommandStatus = "STATUS"
	CommandReload = "RELOAD"
)

// Subscriber keywords handled before any gate runs.
const (
	KeywordStop  = "STOP"
	KeywordStart = "START"
)
