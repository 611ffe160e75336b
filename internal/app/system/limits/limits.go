// internal/app/system/limits/limits.go
package limits

// Request body size limits.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxGraphQLBodySize caps a POST /graphql body (query plus variables).
	MaxGraphQLBodySize = 1 << 20 // 1 MB
)
