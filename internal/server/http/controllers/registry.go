package controllers

import (
	"net/http"

	"github.com/gemologic/lattice/internal/runtime"
	eventsvc "github.com/gemologic/lattice/internal/services/events"
	webhooksvc "github.com/gemologic/lattice/internal/services/webhooks"
	"github.com/gemologic/lattice/pkg/log"
)

// ControllerRegistry owns every HTTP controller and registers their routes
// in one place.
type ControllerRegistry struct {
	general   *GeneralController
	projects  *ProjectsController
	tasks     *TasksController
	questions *QuestionsController
	spec      *SpecController
	webhooks  *WebhooksController
	events    *EventsController
}

// NewControllerRegistry wires all controllers over the shared runtime and
// services.
func NewControllerRegistry(rt *runtime.Runtime, events *eventsvc.Service, dispatcher *webhooksvc.Dispatcher, logger log.Logger) *ControllerRegistry {
	st := rt.Store()
	return &ControllerRegistry{
		general:   NewGeneralController(rt),
		projects:  NewProjectsController(st),
		tasks:     NewTasksController(st),
		questions: NewQuestionsController(st),
		spec:      NewSpecController(st),
		webhooks:  NewWebhooksController(st, dispatcher),
		events:    NewEventsController(events, logger),
	}
}

// RegisterAllRoutes registers every controller's routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.projects.RegisterRoutes(mux)
	r.tasks.RegisterRoutes(mux)
	r.questions.RegisterRoutes(mux)
	r.spec.RegisterRoutes(mux)
	r.webhooks.RegisterRoutes(mux)
	r.events.RegisterRoutes(mux)
}
