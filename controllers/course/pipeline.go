package controllers

import "lms/services"

// Shared service instances for the course handlers, wired once at startup.
var (
	progressService *services.ProgressService
	fanout          *services.NotificationFanout
)

// UsePipeline wires the progress service and notification fanout used by
// the course handlers.
func UsePipeline(ps *services.ProgressService, nf *services.NotificationFanout) {
	progressService = ps
	fanout = nf
}
