// internal/gateway/gateway.go
package gateway

import "context"

// Gateway is the outbound messaging boundary. Implementations return the
// provider message id on success.
type Gateway interface {
	SendEmail(ctx context.Context, to, subject, body string) (string, error)
	SendSMS(ctx context.Context, to, body string) (string, error)
}
