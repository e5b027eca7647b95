package worker

import (
	"github.com/bloxxvault/ticket-bot/internal/service"
)

// StartAuditWorker subscribes the audit service to the dispatcher. Handlers
// run on the publishing goroutine.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
